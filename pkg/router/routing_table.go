package router

import "strings"

// Specialist is a closed tagged enum of the specialists the Router can
// dispatch to (Design Notes §9: "explicit tagged variants", not
// duck-typed dispatch).
type Specialist string

const (
	SpecialistCards               Specialist = "cards"
	SpecialistDigitalAccount      Specialist = "digital_account"
	SpecialistInvestments         Specialist = "investments"
	SpecialistCredit              Specialist = "credit"
	SpecialistInsurance           Specialist = "insurance"
	SpecialistTechnicalEscalation Specialist = "technical_escalation"
	SpecialistFeedbackCollector   Specialist = "feedback_collector"
	SpecialistHumanHandoff        Specialist = "human_handoff"
)

// routingTable is deterministic and ordered: first-match wins across table
// order (spec §4.6, "Routing table"). Each entry's keywords are matched as
// substrings of the normalized utterance.
var routingTable = []struct {
	Specialist Specialist
	Keywords   []string
}{
	{SpecialistCards, []string{"cartão", "limite", "crédito", "débito", "pré-pago", "anuidade", "cvv", "bloqueio do cartão"}},
	{SpecialistDigitalAccount, []string{"pix", "ted", "doc", "conta", "saldo", "extrato", "folha de pagamento", "recarga"}},
	{SpecialistInvestments, []string{"investir", "cdb", "lci", "lca", "tesouro", "cofrinho", "render", "poupança"}},
	{SpecialistCredit, []string{"empréstimo", "fgts", "consignado", "crédito pessoal"}},
	{SpecialistInsurance, []string{"seguro", "saúde", "vida", "residência", "proteção"}},
	{SpecialistTechnicalEscalation, []string{"erro", "bug", "travou", "tela branca", "não abre"}},
	{SpecialistFeedbackCollector, []string{"sugestão", "reclamação", "feedback", "opinião"}},
}

// fraudKeywords is the Credit-fraud keyword set that shortcuts directly to
// Credit with alert_level=HIGH (spec §4.6 step 5).
var fraudKeywords = []string{
	"pagamento antecipado", "pagar para liberar", "depósito antes", "deposito antes",
	"taxa de liberação", "taxa de liberacao", "boleto para liberar",
}

// explicitHumanRequestKeywords trigger the escalation gate directly (spec
// §4.6 step 4, "utterance matches an explicit-human-request pattern").
var explicitHumanRequestKeywords = []string{
	"falar com atendente", "quero um humano", "falar com uma pessoa", "atendimento humano",
}

// fraudFillerWords are tokens scammers routinely insert between the fixed
// phrases in fraudKeywords — amounts and currency words — so a near-variant
// like "pagar 500 reais para liberar" still collapses to the contiguous
// phrase "pagar para liberar" once they're dropped (spec §4.6 step 5, §8
// testable property 4).
var fraudFillerWords = map[string]bool{
	"reais": true, "real": true, "mil": true, "centavos": true, "rs": true,
}

// stripFraudFillers removes purely numeric tokens and fraudFillerWords from
// the normalized utterance, closing the gap a contiguous strings.Contains
// check would otherwise leave between a scam phrase's words and an amount
// spoken in between them.
func stripFraudFillers(normalized string) string {
	words := strings.Fields(normalized)
	kept := make([]string, 0, len(words))
	for _, w := range words {
		trimmed := strings.Trim(w, ".,!?;:")
		if isNumericToken(trimmed) || fraudFillerWords[trimmed] {
			continue
		}
		kept = append(kept, trimmed)
	}
	return strings.Join(kept, " ")
}

func isNumericToken(w string) bool {
	if w == "" {
		return false
	}
	for _, r := range w {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MatchFraud reports whether the normalized utterance contains a
// payment-advance scam keyword (spec §4.6 step 5), after stripping the
// numeric amounts and currency filler words scammers typically interpose
// between the keyword's own words.
func MatchFraud(normalized string) bool {
	filtered := stripFraudFillers(normalized)
	for _, kw := range fraudKeywords {
		if strings.Contains(filtered, kw) {
			return true
		}
	}
	return false
}

// MatchExplicitHumanRequest reports whether the utterance explicitly asks
// for a human agent.
func MatchExplicitHumanRequest(normalized string) bool {
	for _, kw := range explicitHumanRequestKeywords {
		if strings.Contains(normalized, kw) {
			return true
		}
	}
	return false
}

// MatchSpecialists returns every specialist whose keyword set matches the
// normalized utterance, in table order (spec §4.6 step 6: "if the utterance
// matches no table or matches more than two tables, emit one clarification
// question").
func MatchSpecialists(normalized string) []Specialist {
	var matches []Specialist
	for _, entry := range routingTable {
		for _, kw := range entry.Keywords {
			if strings.Contains(normalized, kw) {
				matches = append(matches, entry.Specialist)
				break
			}
		}
	}
	return matches
}
