package memory

import (
	"context"
	"strings"
)

// Patterns is the advisory output of DetectPatterns (spec §4.3). Nothing in
// this module treats Patterns as authoritative — it informs specialists and
// the router, it never gates a decision on its own.
type Patterns struct {
	RecurringIssues       []string
	FrustrationIndicators []string
	CommonRequests        []string
	FraudSignals          []string
}

// maxPatternRecords bounds DetectPatterns to the most recent N records
// (spec §4.3: "over the most recent N memory records (N≤50)").
const maxPatternRecords = 50

var frustrationKeywords = []string{"péssimo", "pessimo", "horrível", "horrivel", "absurdo", "nunca mais", "cancelar", "revoltante"}

var fraudKeywords = []string{"golpe", "não autorizei", "nao autorizei", "roubaram", "clonado", "fraude", "me enganaram"}

// DetectPatterns fetches a user's most recent memories and runs the pure
// tag-frequency/keyword analysis over them.
func (s *Store) DetectPatterns(ctx context.Context, userID string) (Patterns, error) {
	records, err := s.SearchUserMemory(ctx, userID, "", "", maxPatternRecords)
	if err != nil {
		return Patterns{}, err
	}
	return detectPatterns(records), nil
}

// detectPatterns is the pure function backing DetectPatterns, kept
// side-effect-free for direct unit testing (spec §4.3).
func detectPatterns(records []UserMemory) Patterns {
	tagCounts := make(map[string]int)
	var frustration, fraud, requests []string

	for _, r := range records {
		for _, tag := range r.Tags {
			tagCounts[tag]++
		}

		lower := strings.ToLower(r.Content)
		for _, kw := range frustrationKeywords {
			if strings.Contains(lower, kw) {
				frustration = append(frustration, r.Content)
				break
			}
		}
		for _, kw := range fraudKeywords {
			if strings.Contains(lower, kw) {
				fraud = append(fraud, r.Content)
				break
			}
		}
		for _, tag := range r.Tags {
			if strings.HasPrefix(tag, "solicitacao_") {
				requests = append(requests, tag)
				break
			}
		}
	}

	var recurring []string
	for tag, count := range tagCounts {
		if count > 2 {
			recurring = append(recurring, tag)
		}
	}

	return Patterns{
		RecurringIssues:       recurring,
		FrustrationIndicators: frustration,
		CommonRequests:        dedupe(requests),
		FraudSignals:          fraud,
	}
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}
