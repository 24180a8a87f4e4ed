package typification

import (
	"context"
	"fmt"
	"time"

	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/session"
)

// Classifier proposes the next typification level given everything decided
// so far. A concrete implementation typically asks the LLM client
// (pkg/llmclient) a constrained question; a deterministic/test classifier
// can also implement this interface directly.
type Classifier interface {
	BusinessUnit(ctx context.Context, st *session.State) (string, error)
	Product(ctx context.Context, st *session.State, businessUnit string) (string, error)
	Motive(ctx context.Context, st *session.State, businessUnit, product string) (string, error)
	Submotive(ctx context.Context, st *session.State, businessUnit, product, motive string) (string, error)
}

// maxRetriesPerStep is spec §4.8: "validation rejects any out-of-hierarchy
// selection and retries the responsible step (max 2 retries per step)".
const maxRetriesPerStep = 2

// Ticket is the record persisted at conversation close (spec §3).
type Ticket struct {
	TicketID             string
	SessionID            string
	BusinessUnit         string
	Product              string
	Motive               string
	Submotive            string
	Conclusion           string
	Summary              string
	Resolution           string
	AssignedTeam         string
	TypificationPartial  bool
	CreatedAt            time.Time
}

// TicketStore is the narrow persistence interface the Workflow depends on.
// *Store implements it against Postgres; tests use an in-memory fake.
type TicketStore interface {
	CreateTicket(ctx context.Context, t Ticket) error
}

// Workflow runs the sequential 5-level classifier and persists the
// resulting Ticket.
type Workflow struct {
	hierarchy *Hierarchy
	store     TicketStore
	protocols *protocol.Generator
	clock     func() time.Time
}

// New builds a Typification Workflow against an already-loaded hierarchy.
func New(hierarchy *Hierarchy, store TicketStore, protocols *protocol.Generator) *Workflow {
	return &Workflow{hierarchy: hierarchy, store: store, protocols: protocols, clock: time.Now}
}

// Run executes the ordered, non-parallelizable classification steps (spec
// §4.8, "Ordering invariant"). On any step exhausting its retries, Run stops
// at the deepest level reached and persists a partial ticket (spec §4.8:
// "typified at the deepest level reached plus typification_partial=true").
func (w *Workflow) Run(ctx context.Context, st *session.State, classifier Classifier, summary, assignedTeam string) (*Ticket, error) {
	ticket := &Ticket{
		SessionID:    st.SessionID,
		Conclusion:   FixedConclusion,
		Summary:      summary,
		AssignedTeam: assignedTeam,
		CreatedAt:    w.clock(),
	}

	bu, ok := w.classifyWithRetry(ctx, func() (string, error) {
		return classifier.BusinessUnit(ctx, st)
	}, func(candidate string) bool {
		return contains(w.hierarchy.BusinessUnits(), candidate)
	})
	if !ok {
		return w.persistPartial(ctx, ticket)
	}
	ticket.BusinessUnit = bu

	product, ok := w.classifyWithRetry(ctx, func() (string, error) {
		return classifier.Product(ctx, st, bu)
	}, func(candidate string) bool {
		return contains(w.hierarchy.Products(bu), candidate)
	})
	if !ok {
		return w.persistPartial(ctx, ticket)
	}
	ticket.Product = product

	motive, ok := w.classifyWithRetry(ctx, func() (string, error) {
		return classifier.Motive(ctx, st, bu, product)
	}, func(candidate string) bool {
		return contains(w.hierarchy.Motives(bu, product), candidate)
	})
	if !ok {
		return w.persistPartial(ctx, ticket)
	}
	ticket.Motive = motive

	submotive, ok := w.classifyWithRetry(ctx, func() (string, error) {
		return classifier.Submotive(ctx, st, bu, product, motive)
	}, func(candidate string) bool {
		return w.hierarchy.ValidPath(bu, product, motive, candidate)
	})
	if !ok {
		return w.persistPartial(ctx, ticket)
	}
	ticket.Submotive = submotive

	return w.persist(ctx, ticket, false)
}

// classifyWithRetry calls propose up to 1+maxRetriesPerStep times, accepting
// the first candidate that valid approves.
func (w *Workflow) classifyWithRetry(ctx context.Context, propose func() (string, error), valid func(string) bool) (string, bool) {
	for attempt := 0; attempt <= maxRetriesPerStep; attempt++ {
		candidate, err := propose()
		if err != nil {
			continue
		}
		if valid(candidate) {
			return candidate, true
		}
	}
	return "", false
}

func (w *Workflow) persistPartial(ctx context.Context, ticket *Ticket) (*Ticket, error) {
	return w.persist(ctx, ticket, true)
}

func (w *Workflow) persist(ctx context.Context, ticket *Ticket, partial bool) (*Ticket, error) {
	ticket.TypificationPartial = partial
	ticket.TicketID = w.protocols.Generate(protocol.PrefixHandoff, w.clock(), ticket.SessionID)

	if err := w.store.CreateTicket(ctx, *ticket); err != nil {
		return nil, fmt.Errorf("typification: persist ticket: %w", err)
	}
	return ticket, nil
}

// LogFailureTicket implements router.TicketLogger: it persists a
// deepest-level-reached partial ticket assigned to Technical Escalation
// when a specialist fails unrecoverably (spec §4.6 "Failure semantics").
func (w *Workflow) LogFailureTicket(ctx context.Context, st *session.State, reason string) (string, error) {
	ticket := &Ticket{
		SessionID:    st.SessionID,
		Conclusion:   FixedConclusion,
		Summary:      reason,
		AssignedTeam: "Technical Escalation",
		CreatedAt:    w.clock(),
	}
	persisted, err := w.persist(ctx, ticket, true)
	if err != nil {
		return "", err
	}
	return persisted.TicketID, nil
}
