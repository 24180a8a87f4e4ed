package router

import (
	"strings"

	"github.com/pagbank/agent-router/pkg/session"
)

// frustrationKeywords is the fixed keyword set scanned against the
// normalized utterance (spec §4.6 step 3).
var frustrationKeywords = []string{
	"droga", "merda", "não funciona", "nao funciona", "horrível", "horrivel",
	"cansei", "desisto", "absurdo", "péssimo", "pessimo", "revoltante",
}

// repeatOverlapThreshold and requiredRepeats implement "bump level by +1 if
// the user repeats the same intent... three times" (spec §4.6 step 3).
const (
	repeatOverlapThreshold = 0.8
	requiredRepeats        = 3
)

// ScanFrustration computes the frustration delta for one turn: +1 per
// keyword hit (capped), +1 for a high CAPS ratio, and +1 if this is the
// third consecutive near-duplicate utterance. It returns the new level
// unclamped; callers commit it via session.State.SetFrustrationLevel,
// which applies the cap.
func ScanFrustration(st *session.State, originalUtterance, normalizedUtterance string) int {
	delta := 0

	hits := 0
	for _, kw := range frustrationKeywords {
		if strings.Contains(normalizedUtterance, kw) {
			hits++
		}
	}
	delta += hits

	if CapsRatio(originalUtterance) >= 0.6 {
		delta++
	}

	if repeatsRecentIntent(st, normalizedUtterance) {
		delta++
	}

	return st.FrustrationLevel + delta
}

// repeatsRecentIntent reports whether normalizedUtterance is the third
// consecutive user turn whose bag-of-words overlaps the prior two at
// ≥ repeatOverlapThreshold.
func repeatsRecentIntent(st *session.State, normalizedUtterance string) bool {
	var recentUser []string
	for i := len(st.MessageHistory) - 1; i >= 0 && len(recentUser) < requiredRepeats-1; i-- {
		if st.MessageHistory[i].Role == session.RoleUser {
			recentUser = append(recentUser, st.MessageHistory[i].Content)
		}
	}
	if len(recentUser) < requiredRepeats-1 {
		return false
	}

	current := BagOfWords(normalizedUtterance)
	for _, prior := range recentUser {
		if Overlap(current, BagOfWords(Normalize(prior))) < repeatOverlapThreshold {
			return false
		}
	}
	return true
}
