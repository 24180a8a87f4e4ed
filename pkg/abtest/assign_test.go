package abtest

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBucket_IsDeterministic(t *testing.T) {
	assert.Equal(t, bucket("user-42"), bucket("user-42"))
}

func TestBucket_DistributesAcrossRange(t *testing.T) {
	seen := make(map[int]bool)
	for i := 0; i < 500; i++ {
		seen[bucket(fmtUser(i))] = true
	}
	assert.Greater(t, len(seen), 10, "expected buckets to spread across the [0,100) range")
}

func TestPickVersion_RespectsWeightBoundaries(t *testing.T) {
	dist := map[int]int{1: 80, 2: 20}
	assert.Equal(t, 1, pickVersion(dist, 0))
	assert.Equal(t, 1, pickVersion(dist, 79))
	assert.Equal(t, 2, pickVersion(dist, 80))
	assert.Equal(t, 2, pickVersion(dist, 99))
}

func TestPickVersion_ThreeWaySplit(t *testing.T) {
	dist := map[int]int{1: 50, 2: 30, 3: 20}
	assert.Equal(t, 1, pickVersion(dist, 10))
	assert.Equal(t, 2, pickVersion(dist, 60))
	assert.Equal(t, 3, pickVersion(dist, 90))
}

func fmtUser(i int) string {
	return "user-" + strconv.Itoa(i)
}
