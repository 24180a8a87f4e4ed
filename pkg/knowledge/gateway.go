package knowledge

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/pagbank/agent-router/pkg/database"
)

// Gateway is the Knowledge Gateway (spec §4.2): a pgvector-backed,
// filter-then-rank search surface over the knowledge corpus.
type Gateway struct {
	db       *database.Client
	embedder Embedder
}

// New builds a Gateway against an already-migrated database and an Embedder.
func New(db *database.Client, embedder Embedder) *Gateway {
	return &Gateway{db: db, embedder: embedder}
}

// Search narrows by metadata first, then ranks the shard by cosine
// similarity to query's embedding, returning at most topK records. Ties on
// score are broken by higher updated_at (spec §4.2, "stable ordering
// required for tests").
func (g *Gateway) Search(ctx context.Context, query string, filter Filter, topK int) ([]Result, error) {
	if topK <= 0 {
		topK = 5
	}

	vec, err := g.embedder.Embed(ctx, query)
	if err != nil {
		log.Error().Err(err).Str("query", query).Msg("knowledge: embedding failed")
		return nil, fmt.Errorf("knowledge: embed query: %w: %w", ErrUnavailable, err)
	}

	sqlQuery := strings.Builder{}
	sqlQuery.WriteString(`
		SELECT id, content, business_unit, product_type, info_type, complexity, audience, keywords, updated_at,
			1 - (embedding <=> $1) AS score
		FROM knowledge_records
		WHERE 1=1`)

	args := []interface{}{pgvectorLiteral(vec)}
	argIdx := 2

	if filter.BusinessUnit != "" {
		sqlQuery.WriteString(fmt.Sprintf(" AND business_unit = $%d", argIdx))
		args = append(args, filter.BusinessUnit)
		argIdx++
	}
	if filter.ProductType != "" {
		sqlQuery.WriteString(fmt.Sprintf(" AND product_type = $%d", argIdx))
		args = append(args, filter.ProductType)
		argIdx++
	}
	if len(filter.Audience) > 0 {
		sqlQuery.WriteString(fmt.Sprintf(" AND audience = ANY($%d)", argIdx))
		args = append(args, filter.Audience)
		argIdx++
	}
	if len(filter.Complexity) > 0 {
		sqlQuery.WriteString(fmt.Sprintf(" AND complexity = ANY($%d)", argIdx))
		args = append(args, filter.Complexity)
		argIdx++
	}

	sqlQuery.WriteString(fmt.Sprintf(" ORDER BY score DESC, updated_at DESC LIMIT $%d", argIdx))
	args = append(args, topK)

	rows, err := g.db.Pool.Query(ctx, sqlQuery.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("knowledge: search query: %w: %w", ErrUnavailable, err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var rec Record
		var score float64
		if err := rows.Scan(&rec.ID, &rec.Content, &rec.BusinessUnit, &rec.ProductType, &rec.InfoType,
			&rec.Complexity, &rec.Audience, &rec.Keywords, &rec.UpdatedAt, &score); err != nil {
			return nil, fmt.Errorf("knowledge: scan result: %w: %w", ErrUnavailable, err)
		}
		results = append(results, Result{Content: rec.Content, Metadata: rec, Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("knowledge: read results: %w: %w", ErrUnavailable, err)
	}
	return results, nil
}

// Upsert inserts or replaces a knowledge record and its embedding. Used by
// the corpus loader (ingest.go), never by specialists (spec §5: "specialists
// may not write to the Knowledge index").
func (g *Gateway) Upsert(ctx context.Context, rec Record, vec []float64) error {
	_, err := g.db.Pool.Exec(ctx, `
		INSERT INTO knowledge_records (id, content, business_unit, product_type, info_type, complexity, audience, keywords, updated_at, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content, business_unit = EXCLUDED.business_unit, product_type = EXCLUDED.product_type,
			info_type = EXCLUDED.info_type, complexity = EXCLUDED.complexity, audience = EXCLUDED.audience,
			keywords = EXCLUDED.keywords, updated_at = EXCLUDED.updated_at, embedding = EXCLUDED.embedding`,
		rec.ID, rec.Content, rec.BusinessUnit, rec.ProductType, rec.InfoType, rec.Complexity, rec.Audience,
		rec.Keywords, rec.UpdatedAt, pgvectorLiteral(vec),
	)
	if err != nil {
		return fmt.Errorf("knowledge: upsert record: %w", err)
	}
	return nil
}

// pgvectorLiteral formats a float64 slice as pgvector's text input format,
// grounded on agentoven-agentoven's vectorstore.pgvectorArray.
func pgvectorLiteral(v []float64) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		fmt.Fprintf(&sb, "%g", f)
	}
	sb.WriteByte(']')
	return sb.String()
}
