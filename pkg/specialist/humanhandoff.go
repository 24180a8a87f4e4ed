package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// HumanHandoff implements the Human Handoff specialist (spec §4.7): emits a
// conversation summary, mints a PGB- protocol, and closes the session.
// Unlike the other specialists it does not call the LLM — the handoff
// message is the deterministic summary a human agent reads to pick up the
// conversation, not a generated reply.
type HumanHandoff struct {
	Base
}

var _ router.SpecialistRunner = (*HumanHandoff)(nil)

func (h *HumanHandoff) Run(_ context.Context, st *session.State, _ string) (string, error) {
	summary := memory.Summarize(st)

	id := ""
	if h.Protocols != nil {
		id = h.Protocols.Generate(protocol.PrefixHandoff, h.now(), st.SessionID)
		st.AddProtocol(id)
	}

	st.SetAwaitingHuman(true)
	st.MarkResolved()

	text := "Vou te transferir para um atendente humano. " + summary
	if id != "" {
		text += " Protocolo: " + id + "."
	}
	return text, nil
}
