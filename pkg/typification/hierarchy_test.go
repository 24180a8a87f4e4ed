package typification_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/typification"
)

const sampleHierarchyCSV = `business_unit,product,motive,submotive
Cartões,Crédito,Fatura,Valor divergente
Cartões,Crédito,Fatura,Data de vencimento
Cartões,Crédito,Bloqueio,Perda ou roubo
Conta Digital,Conta Corrente,Transferência,PIX não concluído
,Conta Corrente,Transferência,Depósito não identificado
`

func TestLoadHierarchyCSV_BuildsTree(t *testing.T) {
	h, err := typification.LoadHierarchyCSV(strings.NewReader(sampleHierarchyCSV))
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"Cartões", "Conta Digital"}, h.BusinessUnits())
	assert.ElementsMatch(t, []string{"Fatura", "Bloqueio"}, h.Motives("Cartões", "Crédito"))
	assert.ElementsMatch(t, []string{"Valor divergente", "Data de vencimento"}, h.Submotives("Cartões", "Crédito", "Fatura"))
}

func TestLoadHierarchyCSV_FlagsIncompleteRowsAsAmbiguous(t *testing.T) {
	h, err := typification.LoadHierarchyCSV(strings.NewReader(sampleHierarchyCSV))
	require.NoError(t, err)

	require.Len(t, h.Ambiguous, 1)
	assert.Contains(t, h.Ambiguous[0], "Depósito não identificado")
}

func TestValidPath_AcceptsKnownRejectsUnknown(t *testing.T) {
	h, err := typification.LoadHierarchyCSV(strings.NewReader(sampleHierarchyCSV))
	require.NoError(t, err)

	assert.True(t, h.ValidPath("Cartões", "Crédito", "Fatura", "Valor divergente"))
	assert.False(t, h.ValidPath("Cartões", "Crédito", "Fatura", "Motivo inexistente"))
	assert.False(t, h.ValidPath("Cartões", "Débito", "Fatura", "Valor divergente"))
}

func TestLoadHierarchyCSV_MissingColumnErrors(t *testing.T) {
	_, err := typification.LoadHierarchyCSV(strings.NewReader("business_unit,product,motive\nA,B,C\n"))
	assert.Error(t, err)
}
