// Package extract recovers structured results from model replies. Models
// asked for JSON do not always return JSON, especially on models without
// confirmed structured-output support, so a strict parse is backed by an
// ordered chain of pattern extractors. The chain only recovers text that is
// literally present; it never fabricates an answer.
package extract

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"quint/internal/fault"
)

// Object decodes raw into v. It tries the reply verbatim first, then the
// outermost {...} region, which handles code fences and conversational
// padding around an otherwise valid object.
func Object(raw string, v any) error {
	trimmed := strings.TrimSpace(raw)
	if err := json.Unmarshal([]byte(trimmed), v); err == nil {
		return nil
	}
	start := strings.Index(trimmed, "{")
	end := strings.LastIndex(trimmed, "}")
	if start >= 0 && end > start {
		if err := json.Unmarshal([]byte(trimmed[start:end+1]), v); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: reply is not a JSON object", fault.ErrExtraction)
}

type extractor struct {
	name string
	re   *regexp.Regexp
}

// Ordered fallback chain for the one field the interview cannot proceed
// without. First non-empty match wins.
var questionExtractors = []extractor{
	// quoted value after a question-ish label
	{"quoted", regexp.MustCompile(`(?i)"?(?:next_)?question"?\s*[:=]\s*"([^"]{1,500})"`)},
	// single-quoted or unquoted value, some punctuation allowed
	{"loose", regexp.MustCompile(`(?i)"?(?:next_)?question"?\s*[:=]\s*'?([^'"\n{}]{1,300})`)},
	// label-like token followed by a plausible run of characters
	{"generic", regexp.MustCompile(`(?i)question[^:\n]{0,20}:\s*([^\n"{}]{20,200})`)},
}

// Question recovers the interview question text from a free-form reply.
// Returns fault.ErrExtraction when nothing plausible is present.
func Question(raw string) (string, error) {
	for _, ex := range questionExtractors {
		m := ex.re.FindStringSubmatch(raw)
		if m == nil {
			continue
		}
		if q := cleanQuestion(m[1]); q != "" {
			return q, nil
		}
	}
	return "", fmt.Errorf("%w: no question text found", fault.ErrExtraction)
}

func cleanQuestion(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.TrimRight(s, ",;")
	return strings.TrimSpace(s)
}
