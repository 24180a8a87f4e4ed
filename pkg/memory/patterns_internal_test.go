package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPatternsPure_TagFrequencyThreshold(t *testing.T) {
	records := []UserMemory{
		{Tags: []string{"cartao_bloqueado"}},
		{Tags: []string{"cartao_bloqueado"}},
		{Tags: []string{"cartao_bloqueado"}},
		{Tags: []string{"pix_atraso"}},
		{Tags: []string{"pix_atraso"}},
	}
	patterns := detectPatterns(records)
	assert.Contains(t, patterns.RecurringIssues, "cartao_bloqueado", "count > 2 must be flagged recurring")
	assert.NotContains(t, patterns.RecurringIssues, "pix_atraso", "count of exactly 2 must not be flagged recurring")
}

func TestDetectPatternsPure_FrustrationAndFraudKeywords(t *testing.T) {
	records := []UserMemory{
		{Content: "O atendimento foi péssimo e quero cancelar"},
		{Content: "Disseram que é um golpe, não autorizei nada"},
		{Content: "Tudo certo, obrigado"},
	}
	patterns := detectPatterns(records)
	assert.Len(t, patterns.FrustrationIndicators, 1)
	assert.Len(t, patterns.FraudSignals, 1)
}
