// Package fault defines the error categories shared across the interview
// backend. Callers classify with errors.Is; packages wrap these sentinels
// with fmt.Errorf("%w: ...") to add detail.
package fault

import (
	"errors"
	"fmt"
)

var (
	ErrValidation = errors.New("invalid input")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("already exists")
	ErrForbidden  = errors.New("forbidden")

	ErrEncryption = errors.New("encryption failed")
	ErrDecryption = errors.New("decryption failed")
	// ErrIntegrity satisfies ErrDecryption: a failed auth tag is a decryption
	// failure, but one the caller must be able to tell apart from corrupt input.
	ErrIntegrity = fmt.Errorf("%w: integrity check failed", ErrDecryption)

	ErrExtraction = errors.New("no usable structured result in model reply")

	ErrUpstream              = errors.New("llm provider error")
	ErrUpstreamAuth          = fmt.Errorf("%w: authentication rejected", ErrUpstream)
	ErrUpstreamRateLimited   = fmt.Errorf("%w: rate limited", ErrUpstream)
	ErrUpstreamModelNotFound = fmt.Errorf("%w: model not found", ErrUpstream)
)

// UserMessage maps an error to the operator-facing string for that category.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrUpstreamAuth):
		return "Provider rejected the request. Check your API key."
	case errors.Is(err, ErrUpstreamRateLimited):
		return "Provider rate limit reached. Try again later."
	case errors.Is(err, ErrUpstreamModelNotFound):
		return "The selected model is not available on the provider."
	case errors.Is(err, ErrUpstream):
		return "LLM provider error. Please try again later."
	case errors.Is(err, ErrExtraction):
		return "AI did not generate an expected result."
	case errors.Is(err, ErrNotFound):
		return "Not found. Configure prompts and models before retrying."
	default:
		return "Internal error."
	}
}
