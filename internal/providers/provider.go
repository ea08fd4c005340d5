package providers

import "context"

// CompleteRequest is one model invocation. WantsJSON asks the provider to
// constrain the reply to a JSON object; only set it for models the capability
// resolver confirmed support it.
type CompleteRequest struct {
	Model        string
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	Temperature  float64
	WantsJSON    bool
}

type CompleteResponse struct {
	Text string
}

// Client is the LLM collaborator boundary. Implementations classify provider
// failures into the fault.ErrUpstream* categories.
type Client interface {
	Complete(ctx context.Context, req CompleteRequest) (CompleteResponse, error)
}
