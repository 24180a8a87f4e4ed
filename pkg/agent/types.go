// Package agent implements the Agent Factory (spec §4.4): it resolves a
// config document's version (active or A/B-assigned), binds it to a
// session/user pair, and returns a runnable Handle.
//
// Agent/Team/Workflow are a closed tagged union (Design Notes §9: "dynamic
// typing is replaced by explicit tagged variants"), never an interface with
// hidden dynamic dispatch — Handle carries a Kind discriminant plus exactly
// one populated variant, and Run switches on Kind explicitly.
package agent

import (
	"github.com/pagbank/agent-router/pkg/config"
)

// Kind discriminates a Handle's populated variant.
type Kind string

const (
	KindAgent    Kind = "agent"
	KindTeam     Kind = "team"
	KindWorkflow Kind = "workflow"
)

// Binding is what the factory attaches to every handle at creation time
// (spec §4.4: "binds: model config, instruction prompt, tool functions, a
// knowledge-filter closure ..., a storage binding ..., and session/user
// identifiers").
type Binding struct {
	AgentID   string
	Version   int
	SessionID string
	UserID    string
	Doc       *config.Document
}

// AgentVariant is a single runnable agent: model config, prompt, tools,
// and the bindings above.
type AgentVariant struct {
	Binding Binding
}

// TeamVariant is a Team factory variant (spec §4.4): mode ∈ {route,
// coordinate} plus member handles resolved through the factory by id —
// never owned directly, to avoid ownership cycles (Design Notes §9).
type TeamVariant struct {
	Binding Binding
	Mode    string
	Members []*Handle
}

// WorkflowVariant is a Workflow factory variant: a sequential list of step
// handles sharing one state bag.
type WorkflowVariant struct {
	Binding Binding
	Steps   []*Handle
}

// Handle is the tagged union create_agent returns. Exactly one of Agent,
// Team, Workflow is non-nil, selected by Kind.
type Handle struct {
	Kind     Kind
	Agent    *AgentVariant
	Team     *TeamVariant
	Workflow *WorkflowVariant
}

// binding returns the Binding common to every variant, regardless of Kind.
func (h *Handle) binding() Binding {
	switch h.Kind {
	case KindAgent:
		return h.Agent.Binding
	case KindTeam:
		return h.Team.Binding
	case KindWorkflow:
		return h.Workflow.Binding
	default:
		return Binding{}
	}
}

// AgentID returns the handle's agent_id regardless of variant.
func (h *Handle) AgentID() string { return h.binding().AgentID }

// Version returns the handle's resolved version regardless of variant.
func (h *Handle) Version() int { return h.binding().Version }
