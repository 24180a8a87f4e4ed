package specialist

import (
	"context"

	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
)

const (
	operatingHoursStart = 8
	operatingHoursEnd   = 20
)

var (
	pixKeywords = []string{"pix"}
	cdiKeywords = []string{"cdb", "rendimento", "rende"}
)

// DigitalAccount implements the Digital Account specialist (spec §4.7):
// PIX, TED, account, salary portability, free-PIX and 100%-CDI-yield
// disclosures, operation-hour validation. The operating-hour check reads
// Base.Clock (real wall clock unless a test overrides it).
type DigitalAccount struct {
	Base
}

var _ router.SpecialistRunner = (*DigitalAccount)(nil)

// NewDigitalAccount builds a DigitalAccount specialist.
func NewDigitalAccount(base Base) *DigitalAccount {
	return &DigitalAccount{Base: base}
}

func (d *DigitalAccount) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	text, err := d.respond(ctx, utterance)
	if err != nil {
		return "", err
	}

	normalized := router.Normalize(utterance)
	if containsAny(normalized, pixKeywords) {
		text += " Lembrando: transferências PIX na conta PagBank são gratuitas."
	}
	if containsAny(normalized, cdiKeywords) {
		text += " O rendimento da conta é de 100% do CDI."
	}

	if hour := d.now().Hour(); hour < operatingHoursStart || hour >= operatingHoursEnd {
		text += " Algumas operações de atendimento humano só estão disponíveis das 8h às 20h; no momento você está fora desse horário, mas posso continuar te ajudando por aqui."
	}

	return text, nil
}
