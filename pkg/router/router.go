// Package router implements the Router (spec §4.6): the per-turn state
// machine that normalizes a Portuguese utterance, scores frustration,
// applies the escalation and fraud-shortcut gates, and dispatches to
// exactly one Specialist.
package router

import (
	"context"
	"fmt"
	"time"

	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/session"
)

// State is one state of the Router's per-turn state machine (spec §4.6,
// "Idle → Handling → (Clarifying | Dispatching) → (Handling | Escalated |
// Closed)").
type State string

const (
	StateIdle       State = "idle"
	StateHandling   State = "handling"
	StateClarifying State = "clarifying"
	StateDispatching State = "dispatching"
	StateEscalated  State = "escalated"
	StateClosed     State = "closed"
)

// SpecialistRunner is implemented by every concrete specialist in
// pkg/specialist. The Router depends only on this narrow interface, never
// on a specific specialist type (Design Notes §9).
type SpecialistRunner interface {
	Run(ctx context.Context, st *session.State, utterance string) (string, error)
}

// SpecialistFailure wraps an error raised by a specialist's Run, triggering
// the Router's retry/fallback policy (spec §4.6, "Failure semantics").
type SpecialistFailure struct {
	Specialist Specialist
	Err        error
}

func (e *SpecialistFailure) Error() string {
	return fmt.Sprintf("specialist %s failed: %v", e.Specialist, e.Err)
}
func (e *SpecialistFailure) Unwrap() error { return e.Err }

// TicketLogger is the narrow interface the Router uses to log a Technical
// Escalation ticket on unrecoverable specialist failure (spec §4.6: "logs a
// Technical Escalation ticket"). Implemented by pkg/typification.Workflow.
type TicketLogger interface {
	LogFailureTicket(ctx context.Context, st *session.State, reason string) (string, error)
}

// Router holds the specialist registry and shared collaborators. clock is
// set to time.Now by New and is not exposed for replacement.
type Router struct {
	specialists map[Specialist]SpecialistRunner
	protocols   *protocol.Generator
	tickets     TicketLogger
	clock       func() time.Time
}

// New builds a Router. specialists must cover every Specialist constant the
// routing table can select, plus SpecialistHumanHandoff.
func New(specialists map[Specialist]SpecialistRunner, protocols *protocol.Generator, tickets TicketLogger) *Router {
	return &Router{
		specialists: specialists,
		protocols:   protocols,
		tickets:     tickets,
		clock:       time.Now,
	}
}

// Result is the outcome of one HandleTurn call.
type Result struct {
	State         State
	Specialist    Specialist
	AssistantText string
	Escalation    bool
	FraudDetected bool
	TicketID      string
}

const maxInteractionsBeforeEscalation = 3

// HandleTurn is the Router's public contract (spec §4.6:
// "handle_turn(session_id, user_id, utterance, stream_sink?)"). The
// session-level mutex must already be held by the caller; HandleTurn does
// not release it around specialist I/O, so it stays held for the whole
// call. See pkg/session's concurrency note.
func (r *Router) HandleTurn(ctx context.Context, st *session.State, utterance string) (*Result, error) {
	original := utterance
	normalized := Normalize(original)

	st.AddTurn(session.RoleUser, original)
	st.SetFrustrationLevel(ScanFrustration(st, original, normalized))

	if r.shouldEscalate(st, normalized) {
		return r.dispatchHumanHandoff(ctx, st, "gatilho de escalonamento")
	}

	if MatchFraud(normalized) {
		return r.dispatchFraud(ctx, st, original)
	}

	matches := MatchSpecialists(normalized)
	if len(matches) == 0 || len(matches) > 2 {
		if st.ClarificationCount >= 1 {
			// Already asked once for this topic; avoid an infinite
			// clarification loop — fall through to Human Handoff instead.
			return r.dispatchHumanHandoff(ctx, st, "clarificação esgotada")
		}
		st.IncrementClarification()
		question := clarificationQuestion(matches)
		st.AddTurn(session.RoleAssistant, question)
		return &Result{State: StateClarifying, AssistantText: question}, nil
	}

	specialist := matches[0]
	return r.dispatch(ctx, st, specialist, original)
}

func (r *Router) shouldEscalate(st *session.State, normalized string) bool {
	if st.FrustrationLevel >= session.FrustrationSevere {
		return true
	}
	if st.InteractionCount > maxInteractionsBeforeEscalation && !st.Resolved {
		return true
	}
	if MatchExplicitHumanRequest(normalized) {
		return true
	}
	return false
}

// dispatch runs the chosen specialist with a single same-version retry and
// a fallback apology, per spec §4.6 "Failure semantics".
func (r *Router) dispatch(ctx context.Context, st *session.State, specialist Specialist, utterance string) (*Result, error) {
	runner, ok := r.specialists[specialist]
	if !ok {
		return nil, fmt.Errorf("router: no specialist registered for %s", specialist)
	}

	text, err := runner.Run(ctx, st, utterance)
	if err != nil {
		text, err = runner.Run(ctx, st, utterance) // single same-version retry
	}
	if err != nil {
		return r.fallback(ctx, st, specialist, err)
	}

	st.RecordRouting(string(specialist), "keyword match")
	st.SetTopic(string(specialist))
	st.AddTurn(session.RoleAssistant, text)

	result := &Result{State: StateHandling, Specialist: specialist, AssistantText: text}

	// A specialist that set fraud_suspected or awaiting_human marks the turn
	// escalated. The escalation gate is not re-run and no handoff
	// specialist is dispatched within this turn.
	if st.HasEscalationFlag("fraud_suspected") || st.AwaitingHuman {
		result.State = StateEscalated
		result.Escalation = true
	}
	return result, nil
}

func (r *Router) fallback(ctx context.Context, st *session.State, specialist Specialist, cause error) (*Result, error) {
	apology := "Desculpe, tivemos um problema técnico ao processar sua solicitação. Vamos te transferir para um atendente."
	st.AddTurn(session.RoleAssistant, apology)
	st.SetAwaitingHuman(true)

	var ticketID string
	if r.tickets != nil {
		id, err := r.tickets.LogFailureTicket(ctx, st, (&SpecialistFailure{Specialist: specialist, Err: cause}).Error())
		if err == nil {
			ticketID = id
			st.AddTicket(ticketID)
		}
	}

	return &Result{
		State:         StateEscalated,
		Specialist:    SpecialistTechnicalEscalation,
		AssistantText: apology,
		Escalation:    true,
		TicketID:      ticketID,
	}, nil
}

func (r *Router) dispatchFraud(ctx context.Context, st *session.State, utterance string) (*Result, error) {
	st.SetEscalationFlag("fraud_suspected")
	protocolID := r.protocols.Generate(protocol.PrefixFraud, r.clock(), st.SessionID)
	st.AddProtocol(protocolID)
	st.SetAwaitingHuman(true)

	warning := fmt.Sprintf(
		"ATENÇÃO: isso é um golpe. NÃO pague nada antes de liberar um empréstimo ou cartão — "+
			"a PagBank nunca cobra taxa antecipada. Protocolo de registro: %s. Vamos te transferir para um especialista.",
		protocolID,
	)

	runner, ok := r.specialists[SpecialistCredit]
	if ok {
		if text, err := runner.Run(ctx, st, utterance); err == nil && text != "" {
			warning = warning + " " + text
		}
	}

	st.RecordRouting(string(SpecialistCredit), "fraud_shortcut")
	st.AddTurn(session.RoleAssistant, warning)

	return &Result{
		State:         StateEscalated,
		Specialist:    SpecialistCredit,
		AssistantText: warning,
		Escalation:    true,
		FraudDetected: true,
		TicketID:      protocolID,
	}, nil
}

func (r *Router) dispatchHumanHandoff(ctx context.Context, st *session.State, reason string) (*Result, error) {
	st.SetAwaitingHuman(true)
	runner, ok := r.specialists[SpecialistHumanHandoff]
	if !ok {
		return nil, fmt.Errorf("router: no human handoff specialist registered")
	}

	text, err := runner.Run(ctx, st, reason)
	if err != nil {
		return r.fallback(ctx, st, SpecialistHumanHandoff, err)
	}

	st.RecordRouting(string(SpecialistHumanHandoff), reason)
	st.AddTurn(session.RoleAssistant, text)

	var ticketID string
	if len(st.Protocols) > 0 {
		ticketID = st.Protocols[len(st.Protocols)-1]
	}

	return &Result{
		State:         StateEscalated,
		Specialist:    SpecialistHumanHandoff,
		AssistantText: text,
		Escalation:    true,
		TicketID:      ticketID,
	}, nil
}

func clarificationQuestion(matches []Specialist) string {
	if len(matches) == 0 {
		return "Pode me contar um pouco mais sobre o que você precisa?"
	}
	return "Você quer pedir um cartão novo ou tem dúvida sobre um que já tem? Me conta um pouco mais para eu te direcionar certo."
}
