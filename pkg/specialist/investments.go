package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// complianceDisclaimer is appended to every Investments response without
// exception (spec §4.7: "must append a fixed compliance disclaimer to
// every response").
const complianceDisclaimer = "Esta não é uma recomendação de investimento. Rentabilidade passada não garante resultados futuros."

var fgcKeywords = []string{"cdb", "lci", "lca"}

// Investments implements the Investments specialist (spec §4.7).
type Investments struct {
	Base
}

var _ router.SpecialistRunner = (*Investments)(nil)

func (i *Investments) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := i.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	if containsAny(router.Normalize(utterance), fgcKeywords) {
		text += " Esse produto conta com a cobertura do FGC (Fundo Garantidor de Créditos) até o limite vigente."
	}

	return text + " " + complianceDisclaimer, nil
}
