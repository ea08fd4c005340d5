// Package prompt renders stored prompt templates. Placeholders use the
// {name} form; unresolved placeholders are left as literal text so a bad
// template degrades visibly instead of failing the interview turn.
package prompt

import "regexp"

// Prompt template use cases. One stored template per use case.
const (
	UseCaseObjectiveAnalysis = "objective_analysis"
	UseCaseFirstQuestion     = "first_question"
	UseCaseProbing           = "probing"
	UseCaseInsightSynthesis  = "insight_synthesis"
	UseCaseChat              = "chat"
)

var useCases = map[string]bool{
	UseCaseObjectiveAnalysis: true,
	UseCaseFirstQuestion:     true,
	UseCaseProbing:           true,
	UseCaseInsightSynthesis:  true,
	UseCaseChat:              true,
}

// KnownUseCase reports whether useCase names a stored template slot.
func KnownUseCase(useCase string) bool {
	return useCases[useCase]
}

var placeholderRe = regexp.MustCompile(`\{([A-Za-z][A-Za-z0-9_]*)\}`)

// Render substitutes every {name} occurrence with values[name]. Placeholders
// without a value stay literal. Replacement values are never re-scanned, so a
// value containing {other} cannot trigger further expansion.
func Render(template string, values map[string]string) string {
	return placeholderRe.ReplaceAllStringFunc(template, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := values[name]; ok {
			return v
		}
		return m
	})
}
