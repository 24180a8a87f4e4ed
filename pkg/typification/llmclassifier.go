package typification

import (
	"context"
	"fmt"
	"strings"

	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/session"
)

// LLMClassifier implements Classifier by asking the model to pick one of
// the Hierarchy's valid options at each level (spec §4.8: the classifier
// "proposes the next typification level"). When the reply matches none of
// the offered options it returns the raw reply (see matchOption);
// Workflow.classifyWithRetry re-validates against the Hierarchy, so a
// parsing miss here only costs a retry, never an invalid ticket.
type LLMClassifier struct {
	LLM       llmclient.Client
	Model     string
	Hierarchy *Hierarchy
}

var _ Classifier = (*LLMClassifier)(nil)

// NewLLMClassifier builds a Classifier backed by an llmclient.Client.
func NewLLMClassifier(llm llmclient.Client, model string, hierarchy *Hierarchy) *LLMClassifier {
	return &LLMClassifier{LLM: llm, Model: model, Hierarchy: hierarchy}
}

func (c *LLMClassifier) ask(ctx context.Context, question string, options []string) (string, error) {
	if len(options) == 0 {
		return "", fmt.Errorf("typification: no valid options to classify against")
	}
	if len(options) == 1 {
		return options[0], nil
	}

	prompt := fmt.Sprintf(
		"%s Responda só com uma destas opções, exatamente como escrita, sem explicações: %s",
		question, strings.Join(options, " | "),
	)

	out, err := c.LLM.Complete(ctx, llmclient.Request{
		Model:       c.Model,
		Temperature: 0,
		MaxTokens:   32,
		Messages: []llmclient.Message{
			{Role: llmclient.RoleSystem, Content: "Você classifica tickets de atendimento bancário em categorias fixas."},
			{Role: llmclient.RoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("typification: classify: %w", err)
	}

	return matchOption(out, options), nil
}

// matchOption finds the option the model's free-text reply most plausibly
// picked: an exact case-insensitive match, else the first option the reply
// contains as a substring, else the raw trimmed reply (left for the
// caller's Hierarchy validation to accept or reject).
func matchOption(reply string, options []string) string {
	trimmed := strings.TrimSpace(reply)
	normalized := strings.ToLower(trimmed)
	for _, opt := range options {
		if strings.ToLower(opt) == normalized {
			return opt
		}
	}
	for _, opt := range options {
		if strings.Contains(normalized, strings.ToLower(opt)) {
			return opt
		}
	}
	return trimmed
}

func (c *LLMClassifier) BusinessUnit(ctx context.Context, st *session.State) (string, error) {
	summary := memory.Summarize(st)
	return c.ask(ctx, "Qual a área de negócio deste atendimento? "+summary, c.Hierarchy.BusinessUnits())
}

func (c *LLMClassifier) Product(ctx context.Context, st *session.State, businessUnit string) (string, error) {
	return c.ask(ctx, "Qual o produto, dentro de "+businessUnit+"?", c.Hierarchy.Products(businessUnit))
}

func (c *LLMClassifier) Motive(ctx context.Context, st *session.State, businessUnit, product string) (string, error) {
	return c.ask(ctx, "Qual o motivo do contato, para "+product+"?", c.Hierarchy.Motives(businessUnit, product))
}

func (c *LLMClassifier) Submotive(ctx context.Context, st *session.State, businessUnit, product, motive string) (string, error) {
	return c.ask(ctx, "Qual o submotivo específico, dentro de "+motive+"?", c.Hierarchy.Submotives(businessUnit, product, motive))
}
