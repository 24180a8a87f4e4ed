package specialist

import (
	"context"
	"strings"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

// guaranteedApprovalPhrases must never appear in a Credit response (spec
// §4.7: "must never emit phrases that imply guaranteed approval"). Any
// LLM output containing one is replaced by a conservative, accurate
// statement before being returned.
var guaranteedApprovalPhrases = []string{
	"aprovação garantida", "crédito garantido", "100% aprovado", "aprovado na certeza",
}

// Credit implements the Credit specialist (spec §4.7). It reuses
// pkg/router's scam-keyword set (router.MatchFraud) so the specialist's
// own detection and the Router's fraud-shortcut gate can never disagree
// on what counts as a scam keyword.
type Credit struct {
	Base
}

var _ router.SpecialistRunner = (*Credit)(nil)

func (c *Credit) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	normalized := router.Normalize(utterance)

	if router.MatchFraud(normalized) {
		escalate(st, "fraud_suspected")
		return "ATENÇÃO: isso é um golpe. NÃO pague nada antecipadamente — a PagBank nunca cobra taxa antes de liberar um empréstimo ou cartão de crédito. Vou te transferir para um especialista para apurar o caso.", nil
	}

	text, err := c.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	return sanitizeApprovalClaims(text), nil
}

func sanitizeApprovalClaims(text string) string {
	lower := strings.ToLower(text)
	for _, phrase := range guaranteedApprovalPhrases {
		if strings.Contains(lower, phrase) {
			return "A aprovação de crédito depende de análise e não pode ser garantida antecipadamente. Posso te explicar os critérios gerais, se quiser."
		}
	}
	return text
}
