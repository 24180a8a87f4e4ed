// Package llmclient is the model-invocation boundary every Specialist and
// the Typification Workflow's Classifier go through. It is the concrete
// ModelRunner pkg/agent's Handle.Run delegates to.
package llmclient

import "context"

// Role mirrors the OpenAI-compatible chat message roles.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a chat completion request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request is a model invocation: provider/model id live on the caller's
// config document (pkg/config.ModelConfig); Request carries only what
// varies per call.
type Request struct {
	Model       string
	Temperature float64
	MaxTokens   int
	Messages    []Message
}

// Client is the narrow contract both Complete and Stream are built from.
// pkg/agent depends on its own ModelRunner (a one-method subset shaped for
// Handle.Run); pkg/specialist and the typification classifier depend on
// Client directly but call only Complete.
type Client interface {
	// Complete blocks until the full response is available.
	Complete(ctx context.Context, req Request) (string, error)
	// Stream invokes onToken for every incremental chunk as it arrives and
	// returns once the response is complete.
	Stream(ctx context.Context, req Request, onToken func(string)) error
}
