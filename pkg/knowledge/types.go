// Package knowledge implements the Knowledge Gateway (spec §4.2): filtered
// semantic search over a pgvector-indexed corpus of Brazilian-Portuguese
// banking support content. It is read-only to the rest of the system —
// specialists and the router search it, nobody but the ingest path writes
// to it.
//
// Logging in this package uses zerolog rather than the repo-wide log/slog,
// matching the style of the agentoven vectorstore/embeddings code it is
// adapted from; see DESIGN.md.
package knowledge

import "time"

// Record is one row of the knowledge corpus (spec §3 "KnowledgeRecord").
type Record struct {
	ID           string
	Content      string
	BusinessUnit string // area: cartoes, conta_digital, investimentos, credito, seguros
	ProductType  string // tipo_produto
	InfoType     string // tipo_informacao: como_solicitar, taxas, beneficios, requisitos, prazos, limites, problemas_comuns
	Complexity   string // nivel_complexidade: basico, intermediario, avancado
	Audience     string // publico_alvo
	Keywords     []string
	UpdatedAt    time.Time
}

// Filter narrows a search to a metadata shard before vector ranking (spec
// §4.2: "exact match on business_unit/product_type; set membership for
// audience/complexity").
type Filter struct {
	BusinessUnit string
	ProductType  string
	Audience     []string
	Complexity   []string
}

// Result is one ranked hit returned by Search.
type Result struct {
	Content  string
	Metadata Record
	Score    float64
}
