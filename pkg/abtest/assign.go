package abtest

import "hash/fnv"

// bucket deterministically maps userID into [0, 100) using FNV-1a (spec
// §4.9: "sticky via a deterministic hash of user_id"). No external hash
// library appears anywhere in the retrieved corpus for this kind of
// bucketing, so this uses stdlib hash/fnv — a justified stdlib exception,
// recorded in DESIGN.md.
func bucket(userID string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return int(h.Sum32() % 100)
}

// pickVersion walks dist's cumulative weight ranges in ascending version
// order and returns the version whose range contains b (spec §4.9:
// "mapping into the configured weight buckets"). dist's weights must
// already sum to 100 (validated at test-creation time).
func pickVersion(dist map[int]int, b int) int {
	versions := sortedVersions(dist)
	cumulative := 0
	for _, v := range versions {
		cumulative += dist[v]
		if b < cumulative {
			return v
		}
	}
	// Rounding cannot reach here if weights sum to exactly 100 and
	// b < 100, but fall back to the last version defensively.
	return versions[len(versions)-1]
}

func sortedVersions(dist map[int]int) []int {
	out := make([]int, 0, len(dist))
	for v := range dist {
		out = append(out, v)
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
