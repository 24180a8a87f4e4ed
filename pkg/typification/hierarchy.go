// Package typification implements the Typification Workflow (spec §4.8):
// the sequential 5-level classifier invoked at session closure, and the
// Ticket it produces.
package typification

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// FixedConclusion is the only valid value of the final typification level
// (spec §3: "conclusion is fixed").
const FixedConclusion = "Orientação"

// Hierarchy is the 4-level business_unit → product → motive → submotive
// tree, read from a dedicated hierarchy CSV by LoadHierarchyCSV (spec §4.8,
// §9 Open Questions). It is loaded once at startup and never mutated.
type Hierarchy struct {
	// tree[businessUnit][product][motive] = allowed submotives
	tree map[string]map[string]map[string][]string
	// Ambiguous records rows the loader could not place unambiguously —
	// flagged rather than guessed (spec §9 Open Questions).
	Ambiguous []string
}

// LoadHierarchyCSV parses a hierarchy export with columns
// business_unit,product,motive,submotive. This is a distinct artifact from
// the Knowledge Gateway's content corpus (pkg/knowledge), since that CSV
// carries no motive/submotive columns — see DESIGN.md for why the two are
// not conflated.
func LoadHierarchyCSV(r io.Reader) (*Hierarchy, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("typification: read hierarchy header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.ToLower(h))] = i
	}
	for _, required := range []string{"business_unit", "product", "motive", "submotive"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("typification: hierarchy csv missing column %q", required)
		}
	}

	h := &Hierarchy{tree: make(map[string]map[string]map[string][]string)}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("typification: read hierarchy row: %w", err)
		}

		bu := strings.TrimSpace(row[cols["business_unit"]])
		product := strings.TrimSpace(row[cols["product"]])
		motive := strings.TrimSpace(row[cols["motive"]])
		submotive := strings.TrimSpace(row[cols["submotive"]])

		if bu == "" || product == "" || motive == "" || submotive == "" {
			h.Ambiguous = append(h.Ambiguous, fmt.Sprintf("%s/%s/%s/%s", bu, product, motive, submotive))
			continue
		}

		if h.tree[bu] == nil {
			h.tree[bu] = make(map[string]map[string][]string)
		}
		if h.tree[bu][product] == nil {
			h.tree[bu][product] = make(map[string][]string)
		}
		if !contains(h.tree[bu][product][motive], submotive) {
			h.tree[bu][product][motive] = append(h.tree[bu][product][motive], submotive)
		}
	}

	return h, nil
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// BusinessUnits returns every known business unit.
func (h *Hierarchy) BusinessUnits() []string {
	out := make([]string, 0, len(h.tree))
	for bu := range h.tree {
		out = append(out, bu)
	}
	return out
}

// Products returns the valid products for a business unit.
func (h *Hierarchy) Products(businessUnit string) []string {
	products := h.tree[businessUnit]
	out := make([]string, 0, len(products))
	for p := range products {
		out = append(out, p)
	}
	return out
}

// Motives returns the valid motives for a (business_unit, product) pair.
func (h *Hierarchy) Motives(businessUnit, product string) []string {
	motives := h.tree[businessUnit][product]
	out := make([]string, 0, len(motives))
	for m := range motives {
		out = append(out, m)
	}
	return out
}

// Submotives returns the valid submotives for a (business_unit, product, motive) triple.
func (h *Hierarchy) Submotives(businessUnit, product, motive string) []string {
	return h.tree[businessUnit][product][motive]
}

// ValidPath reports whether (businessUnit, product, motive, submotive) is a
// valid path in the hierarchy (spec §3 invariant, §8 testable property 5).
func (h *Hierarchy) ValidPath(businessUnit, product, motive, submotive string) bool {
	return contains(h.Submotives(businessUnit, product, motive), submotive)
}
