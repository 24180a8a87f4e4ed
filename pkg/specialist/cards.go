package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// securityKeywords trigger Cards' mandatory verification escalation (spec
// §4.7: "security sub-flow blocks/unblocks must always be escalated for
// verification").
var securityKeywords = []string{"bloquear", "desbloquear", "bloqueio", "desbloqueio", "perda", "roubo", "furto"}

// Cards implements the Cards specialist (spec §4.7).
type Cards struct {
	Base
}

var _ router.SpecialistRunner = (*Cards)(nil)

func (c *Cards) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := c.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	if containsAny(router.Normalize(utterance), securityKeywords) {
		escalate(st, "card_security_verification")
		text += " Por segurança, vou te transferir para confirmar sua identidade antes de prosseguir."
	}

	return text, nil
}
