package catalog

import (
	"strings"

	"github.com/rs/zerolog"
)

// Models confirmed to exist on their provider's API. Anything outside this
// set is either a typo or a forward-referenced name we cannot trust yet.
var confirmedModels = map[string]bool{
	"gpt-4o-mini":                true,
	"gpt-4o":                     true,
	"gpt-4-turbo":                true,
	"gpt-4-turbo-preview":        true,
	"gpt-4-1106-preview":         true,
	"gpt-4-0125-preview":         true,
	"gpt-4":                      true,
	"gpt-3.5-turbo":              true,
	"gpt-3.5-turbo-1106":         true,
	"gpt-3.5-turbo-0125":         true,
	"claude-3-5-sonnet-20240620": true,
	"claude-3-haiku-20240307":    true,
	"gemini-1.5-pro":             true,
	"gemini-1.5-flash":           true,
	"grok-beta":                  true,
}

// Dated OpenAI revisions that shipped structured-output support. Earlier
// snapshots (0314, 0613) predate it.
var jsonModeRevisions = map[string]bool{
	"1106": true,
	"0125": true,
}

// Resolver maps requested model ids to safe, confirmed ones and answers
// whether a model honors structured-output mode. Both methods are total:
// they degrade to defaults instead of failing.
type Resolver struct {
	logger zerolog.Logger
}

func NewResolver(logger zerolog.Logger) *Resolver {
	return &Resolver{logger: logger}
}

// SafeModel returns requested when it is confirmed available, otherwise the
// fixed default with a warning. Names that merely look like a known provider's
// convention are treated as speculative, not trusted.
func (r *Resolver) SafeModel(requested string) string {
	requested = strings.TrimSpace(requested)
	if confirmedModels[requested] {
		return requested
	}
	if ProviderFor(requested) != "" {
		r.logger.Warn().Str("model", requested).Str("fallback", DefaultModel).
			Msg("model not confirmed available, using fallback")
		return DefaultModel
	}
	r.logger.Warn().Str("model", requested).Str("fallback", DefaultModel).
		Msg("unrecognized model id, using fallback")
	return DefaultModel
}

// SupportsJSONMode reports whether the model honors a structured-output
// request. Deterministic and never fails; unversioned base models are
// assumed not to support it unless explicitly listed.
func (r *Resolver) SupportsJSONMode(model string) bool {
	model = strings.TrimSpace(model)
	switch model {
	case "gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "gpt-4-turbo-preview":
		return true
	}
	if strings.HasPrefix(model, "gpt-4o-") {
		return true
	}
	if strings.HasPrefix(model, "gpt-4-turbo-") {
		return true
	}
	if rev, ok := datedRevision(model, "gpt-4-"); ok {
		return jsonModeRevisions[rev]
	}
	if rev, ok := datedRevision(model, "gpt-3.5-turbo-"); ok {
		return jsonModeRevisions[rev]
	}
	return false
}

// datedRevision extracts the 4-digit revision from ids like
// "gpt-4-1106-preview" or "gpt-3.5-turbo-0125".
func datedRevision(model, prefix string) (string, bool) {
	rest, ok := strings.CutPrefix(model, prefix)
	if !ok {
		return "", false
	}
	rev, _, _ := strings.Cut(rest, "-")
	if len(rev) != 4 {
		return "", false
	}
	for _, c := range rev {
		if c < '0' || c > '9' {
			return "", false
		}
	}
	return rev, true
}
