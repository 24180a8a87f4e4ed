package knowledge

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// LoadCSV reads the knowledge corpus (spec §6: "Knowledge corpus (CSV)")
// and upserts every row into the gateway, embedding each row's content on
// the way in. Column order: conteudo, area, tipo_produto, tipo_informacao,
// nivel_complexidade, publico_alvo, palavras_chave, atualizado_em (YYYY-MM).
// The corpus's authoring pipeline is an external collaborator (spec §1
// Non-goals); this loader only consumes its CSV output.
func (g *Gateway) LoadCSV(ctx context.Context, r io.Reader) (int, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return 0, fmt.Errorf("knowledge: read csv header: %w", err)
	}
	cols := columnIndex(header)

	required := []string{"conteudo", "area", "tipo_produto", "tipo_informacao", "nivel_complexidade", "publico_alvo", "palavras_chave", "atualizado_em"}
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			return 0, fmt.Errorf("knowledge: csv missing required column %q", c)
		}
	}

	count := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("knowledge: read csv row %d: %w", count+1, err)
		}

		rec := Record{
			ID:           fmt.Sprintf("kb-%05d", count+1),
			Content:      row[cols["conteudo"]],
			BusinessUnit: row[cols["area"]],
			ProductType:  row[cols["tipo_produto"]],
			InfoType:     row[cols["tipo_informacao"]],
			Complexity:   row[cols["nivel_complexidade"]],
			Audience:     row[cols["publico_alvo"]],
			Keywords:     splitKeywords(row[cols["palavras_chave"]]),
		}
		rec.UpdatedAt = parseMonth(row[cols["atualizado_em"]])

		vec, err := g.embedder.Embed(ctx, rec.Content)
		if err != nil {
			log.Warn().Err(err).Str("id", rec.ID).Msg("knowledge: embedding failed during ingest, skipping row")
			continue
		}
		if err := g.Upsert(ctx, rec, vec); err != nil {
			return count, err
		}
		count++
	}

	log.Info().Int("rows", count).Msg("knowledge: corpus ingested")
	return count, nil
}

func columnIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		idx[strings.TrimSpace(strings.ToLower(h))] = i
	}
	return idx
}

func splitKeywords(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// parseMonth parses the corpus's "YYYY-MM" updated_at column, defaulting to
// the zero time (sorts last in the tie-break) on malformed input rather than
// failing the whole ingest.
func parseMonth(raw string) time.Time {
	t, err := time.Parse("2006-01", strings.TrimSpace(raw))
	if err != nil {
		return time.Time{}
	}
	return t
}
