// Package specialist implements the Specialists (spec §4.7): the eight
// concrete SpecialistRunner variants pkg/router dispatches to. Every
// specialist binds one knowledge filter and one instruction prompt (its
// config.Document) and produces assistant text plus session/memory side
// effects via pkg/session's typed tools.
package specialist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/knowledge"
	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/session"
)

// knowledgeUnavailableApology is prefixed to a specialist's reply when the
// Knowledge Gateway cannot be queried (spec §7, KnowledgeUnavailable: "the
// specialist continues without retrieval augmentation, prefixes response
// with a soft apology").
const knowledgeUnavailableApology = "Não consegui consultar nossa base de conhecimento agora, mas vou te ajudar com o que sei. "

// KnowledgeSearcher is the narrow slice of the Knowledge Gateway a
// specialist needs. *knowledge.Gateway implements it; tests use a fake.
type KnowledgeSearcher interface {
	Search(ctx context.Context, query string, filter knowledge.Filter, topK int) ([]knowledge.Result, error)
}

// MemoryWriter is the narrow slice of the Memory Store that Feedback
// Collector and Technical Escalation append long-term memories through.
// *memory.Store implements it; tests use a fake.
type MemoryWriter interface {
	AddUserMemory(ctx context.Context, userID, content string, tags []string) (string, error)
}

// ProtocolGenerator is the narrow slice of *protocol.Generator that Human
// Handoff and Technical Escalation need to mint protocol ids.
type ProtocolGenerator interface {
	Generate(prefix string, now time.Time, sessionID string) string
}

// knowledgeTopK bounds how much corpus context gets folded into a prompt.
const knowledgeTopK = 3

// Base is embedded by every concrete specialist: it binds the config
// document (instructions, model, knowledge filter, escalation triggers)
// and the shared collaborators every specialist calls through. Memory and
// Protocols are only read by the specialists that need them (Technical
// Escalation, Feedback Collector, Human Handoff); the rest leave them nil.
type Base struct {
	Doc       *config.Document
	LLM       llmclient.Client
	Knowledge KnowledgeSearcher
	Memory    MemoryWriter
	Protocols ProtocolGenerator
	Clock     func() time.Time
}

// now returns Clock(), defaulting to the real wall clock.
func (b *Base) now() time.Time {
	if b.Clock != nil {
		return b.Clock()
	}
	return time.Now()
}

// respond asks the LLM for a reply to utterance, folding in knowledge-base
// context when a Knowledge collaborator is wired and returns hits. When the
// Knowledge Gateway is unavailable, it proceeds without retrieval
// augmentation and prefixes the reply with a soft apology.
func (b *Base) respond(ctx context.Context, utterance string) (string, error) {
	prompt := b.Doc.Instructions
	knowledgeUnavailable := false

	if b.Knowledge != nil {
		filter := knowledge.Filter{
			BusinessUnit: b.Doc.Knowledge.BusinessUnit,
			Audience:     b.Doc.Knowledge.Audience,
			Complexity:   b.Doc.Knowledge.Complexity,
		}
		if len(b.Doc.Knowledge.ProductType) > 0 {
			filter.ProductType = b.Doc.Knowledge.ProductType[0]
		}
		hits, err := b.Knowledge.Search(ctx, utterance, filter, knowledgeTopK)
		switch {
		case errors.Is(err, knowledge.ErrUnavailable):
			knowledgeUnavailable = true
		case len(hits) > 0:
			var sb strings.Builder
			sb.WriteString("\n\nConhecimento relevante:\n")
			for _, h := range hits {
				sb.WriteString("- ")
				sb.WriteString(h.Content)
				sb.WriteString("\n")
			}
			prompt += sb.String()
		}
	}

	req := llmclient.Request{
		Model:       b.Doc.Model.ID,
		Temperature: b.Doc.Model.Temperature,
		MaxTokens:   b.Doc.Model.MaxTokens,
		Messages: []llmclient.Message{
			{Role: llmclient.RoleSystem, Content: prompt},
			{Role: llmclient.RoleUser, Content: utterance},
		},
	}

	out, err := b.LLM.Complete(ctx, req)
	if err != nil {
		return "", fmt.Errorf("specialist: %s: %w", b.Doc.Agent.AgentID, err)
	}
	if knowledgeUnavailable {
		out = knowledgeUnavailableApology + out
	}
	return out, nil
}

// containsAny reports whether normalized contains any of keywords.
func containsAny(normalized string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// escalate sets flag and marks the session as awaiting a human; the
// Router's post-run check reports such a turn as escalated.
func escalate(st *session.State, flag string) {
	st.SetEscalationFlag(flag)
	st.SetAwaitingHuman(true)
}
