package agent

import (
	"context"
	"fmt"
	"strings"
)

// ModelRunner is the narrow interface a Handle needs to actually produce
// text; pkg/llmclient implements it. Kept here (not imported from
// pkg/llmclient) so pkg/agent has no dependency on the concrete LLM
// transport, only on the shape it needs.
type ModelRunner interface {
	Run(ctx context.Context, binding Binding, input string) (string, error)
}

// Run executes the handle per spec §4.4's `run(input, stream?)` contract.
// Team and Workflow variants are expanded here without any interface-based
// dynamic dispatch — Kind is switched on explicitly (Design Notes §9).
func (h *Handle) Run(ctx context.Context, runner ModelRunner, input string) (string, error) {
	switch h.Kind {
	case KindAgent:
		return runner.Run(ctx, h.Agent.Binding, input)
	case KindTeam:
		return h.runTeam(ctx, runner, input)
	case KindWorkflow:
		return h.runWorkflow(ctx, runner, input)
	default:
		return "", fmt.Errorf("agent: handle has no populated variant")
	}
}

func (h *Handle) runTeam(ctx context.Context, runner ModelRunner, input string) (string, error) {
	team := h.Team
	if len(team.Members) == 0 {
		return "", fmt.Errorf("agent: team %s has no members", team.Binding.AgentID)
	}

	switch team.Mode {
	case "route":
		// Routing decisions themselves belong to the Router (pkg/router);
		// a bare factory Run picks the first member as a deterministic
		// default for the bypass-routing API surface (spec §4.10,
		// POST /agents/{agent_id}/run).
		return team.Members[0].Run(ctx, runner, input)
	case "coordinate":
		var parts []string
		for _, member := range team.Members {
			out, err := member.Run(ctx, runner, input)
			if err != nil {
				return "", fmt.Errorf("agent: team member %s: %w", member.AgentID(), err)
			}
			parts = append(parts, out)
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", fmt.Errorf("agent: team %s has unknown mode %q", team.Binding.AgentID, team.Mode)
	}
}

// runWorkflow runs every step in order, threading each step's output as
// the next step's input (the "shared state bag" of spec §4.4, modeled
// here as the running text since no step currently needs richer state).
func (h *Handle) runWorkflow(ctx context.Context, runner ModelRunner, input string) (string, error) {
	current := input
	for _, step := range h.Workflow.Steps {
		out, err := step.Run(ctx, runner, current)
		if err != nil {
			return "", fmt.Errorf("agent: workflow %s step %s: %w", h.Workflow.Binding.AgentID, step.AgentID(), err)
		}
		current = out
	}
	return current, nil
}
