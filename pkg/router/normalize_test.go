package router_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/pagbank/agent-router/pkg/router"
)

func TestNormalize_RestoresAccentsAndExpandsAbbreviations(t *testing.T) {
	got := router.Normalize("vc pode me ajudar com o cartao pq nao entendi")
	assert.Contains(t, got, "você")
	assert.Contains(t, got, "cartão")
	assert.Contains(t, got, "porque")
	assert.Contains(t, got, "não")
}

func TestNormalize_IsFixedPoint(t *testing.T) {
	once := router.Normalize("vc ta com pressa pra resolver isso, nao é?")
	twice := router.Normalize(once)
	assert.Equal(t, once, twice)
}

func TestCapsRatio_DetectsShouting(t *testing.T) {
	assert.GreaterOrEqual(t, router.CapsRatio("ISSO NAO FUNCIONA NUNCA"), 0.6)
	assert.Less(t, router.CapsRatio("isso não funciona nunca"), 0.6)
}

func TestOverlap_JaccardSimilarity(t *testing.T) {
	a := router.BagOfWords("quero cancelar meu cartão agora")
	b := router.BagOfWords("quero cancelar meu cartão já")
	assert.GreaterOrEqual(t, router.Overlap(a, b), 0.6)
}
