package router

import (
	"strings"
	"unicode"
)

// misspellings is the fixed dictionary of common Portuguese chat shorthand
// and missing-accent spellings the Router restores before matching against
// the routing table (spec §4.6, step 1).
var misspellings = map[string]string{
	"cartao":  "cartão",
	"pra":     "para",
	"nao":     "não",
	"ta":      "está",
	"vc":      "você",
	"voce":    "você",
	"pq":      "porque",
	"tb":      "também",
	"tbm":     "também",
	"obg":     "obrigado",
	"vcs":     "vocês",
	"add":     "adicionar",
	"qto":     "quanto",
	"qdo":     "quando",
	"pagbk":   "pagbank",
	"emprest": "empréstimo",
}

// Normalize lowercases and rewrites known shorthand/misspellings word by
// word, without discarding the original text (spec §4.6: "Never discards
// information; preserves the original for the log"). Normalizing an
// already-normalized string is a fixed point (spec §8): every substitution
// target is itself stable under another pass.
func Normalize(utterance string) string {
	lower := strings.ToLower(strings.TrimSpace(utterance))
	words := strings.Fields(lower)
	for i, w := range words {
		trimmed := strings.Trim(w, ".,!?;:")
		if repl, ok := misspellings[trimmed]; ok {
			words[i] = strings.Replace(w, trimmed, repl, 1)
		}
	}
	return strings.Join(words, " ")
}

// CapsRatio is the fraction of alphabetic runes that are uppercase in the
// original (non-normalized) utterance, used by the frustration scan (spec
// §4.6 step 3: "CAPS-ratio ≥ 0.6 over alphabetic characters").
func CapsRatio(utterance string) float64 {
	var upper, alpha int
	for _, r := range utterance {
		if !unicode.IsLetter(r) {
			continue
		}
		alpha++
		if unicode.IsUpper(r) {
			upper++
		}
	}
	if alpha == 0 {
		return 0
	}
	return float64(upper) / float64(alpha)
}

// BagOfWords builds a normalized set-of-words for overlap comparison (spec
// §4.6 step 3, §8 testable property 7).
func BagOfWords(normalized string) map[string]bool {
	words := strings.Fields(normalized)
	bag := make(map[string]bool, len(words))
	for _, w := range words {
		bag[strings.Trim(w, ".,!?;:")] = true
	}
	return bag
}

// Overlap returns the Jaccard overlap between two bags of words.
func Overlap(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	intersection := 0
	for w := range a {
		if b[w] {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	if union == 0 {
		return 0
	}
	return float64(intersection) / float64(union)
}
