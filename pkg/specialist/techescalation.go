package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// TechnicalEscalation implements the Technical Escalation specialist (spec
// §4.7): mints a TECH- protocol and logs the reported issue as a long-term
// memory tagged "technical_issue", so repeated reports of the same bug
// become visible to later pattern aggregation (the same aggregation path
// Feedback Collector's "feedback" tag feeds).
type TechnicalEscalation struct {
	Base
}

var _ router.SpecialistRunner = (*TechnicalEscalation)(nil)

func (t *TechnicalEscalation) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := t.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	if t.Protocols != nil {
		id := t.Protocols.Generate(protocol.PrefixTech, t.now(), st.SessionID)
		st.AddProtocol(id)
		text += " Registrei o protocolo " + id + " para acompanhar esse problema técnico."
	}

	if t.Memory != nil {
		_, _ = t.Memory.AddUserMemory(ctx, st.CustomerID, utterance, []string{"technical_issue"})
	}

	return text, nil
}
