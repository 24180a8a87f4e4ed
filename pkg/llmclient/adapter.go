package llmclient

import (
	"context"
	"fmt"

	"github.com/pagbank/agent-router/pkg/agent"
)

// Runner adapts a Client to pkg/agent.ModelRunner: it turns a Handle's
// Binding (instructions + model config) and a plain input string into a
// chat Request, so pkg/agent never needs to know this package's Message
// or Request shapes.
type Runner struct {
	client Client
}

// NewRunner builds a pkg/agent.ModelRunner backed by client.
func NewRunner(client Client) *Runner {
	return &Runner{client: client}
}

// Run implements pkg/agent.ModelRunner.
func (r *Runner) Run(ctx context.Context, binding agent.Binding, input string) (string, error) {
	if binding.Doc == nil {
		return "", fmt.Errorf("llmclient: binding for %s has no config document", binding.AgentID)
	}

	req := Request{
		Model:       binding.Doc.Model.ID,
		Temperature: binding.Doc.Model.Temperature,
		MaxTokens:   binding.Doc.Model.MaxTokens,
		Messages: []Message{
			{Role: RoleSystem, Content: binding.Doc.Instructions},
			{Role: RoleUser, Content: input},
		},
	}

	out, err := r.client.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("llmclient: run %s: %w", binding.AgentID, err)
	}
	return out, nil
}
