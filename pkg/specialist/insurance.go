package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

var (
	drawKeywords   = []string{"sorteio", "prêmio", "premiação"}
	healthKeywords = []string{"saúde", "plano de saúde", "consulta"}
)

// Insurance implements the Insurance specialist (spec §4.7): mentions the
// R$20,000 monthly draw and R$24.90 health-plan anchors when relevant.
type Insurance struct {
	Base
}

var _ router.SpecialistRunner = (*Insurance)(nil)

func (i *Insurance) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := i.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	normalized := router.Normalize(utterance)
	if containsAny(normalized, drawKeywords) {
		text += " Esse seguro participa do sorteio mensal de até R$20.000."
	}
	if containsAny(normalized, healthKeywords) {
		text += " Temos um plano de saúde a partir de R$24,90 por mês."
	}

	return text, nil
}
