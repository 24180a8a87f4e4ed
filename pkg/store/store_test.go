package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/store"
	"github.com/pagbank/agent-router/test/dbtest"
)

func TestCreateVersion_DuplicateFails(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	v := store.Version{AgentID: "cards-agent", Version: 1, ConfigBlob: []byte(`{}`)}
	require.NoError(t, s.CreateVersion(ctx, v, "alice"))

	err := s.CreateVersion(ctx, v, "alice")
	assert.ErrorIs(t, err, store.ErrVersionExists)
}

func TestActivateVersion_OnlyOneActive(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "cards-agent", Version: 1, ConfigBlob: []byte(`{}`)}, "alice"))
	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "cards-agent", Version: 2, ConfigBlob: []byte(`{}`)}, "alice"))

	require.NoError(t, s.ActivateVersion(ctx, "cards-agent", 1, "initial rollout", "alice"))
	active, err := s.GetActive(ctx, "cards-agent")
	require.NoError(t, err)
	assert.Equal(t, 1, active.Version)

	require.NoError(t, s.ActivateVersion(ctx, "cards-agent", 2, "promote v2", "bob"))
	active, err = s.GetActive(ctx, "cards-agent")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version)

	versions, err := s.ListVersions(ctx, "cards-agent")
	require.NoError(t, err)
	activeCount := 0
	for _, v := range versions {
		if v.IsActive {
			activeCount++
		}
	}
	assert.Equal(t, 1, activeCount, "at most one active version at any instant")

	history, err := s.History(ctx, "cards-agent")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(history), 4) // 2 created + 2 activated
}

func TestActivateVersion_UnknownVersion(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "cards-agent", Version: 1, ConfigBlob: []byte(`{}`)}, "alice"))
	err := s.ActivateVersion(ctx, "cards-agent", 99, "oops", "alice")
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
}

func TestGetActive_NoneConfigured(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	_, err := s.GetActive(ctx, "unknown-agent")
	assert.ErrorIs(t, err, store.ErrNoActiveVersion)
}

func TestGetActive_CacheInvalidatesOnWrite(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "cards-agent", Version: 1, ConfigBlob: []byte(`{}`)}, "alice"))
	require.NoError(t, s.ActivateVersion(ctx, "cards-agent", 1, "initial", "alice"))

	genBefore := s.Generation()
	_, err := s.GetActive(ctx, "cards-agent")
	require.NoError(t, err)

	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "cards-agent", Version: 2, ConfigBlob: []byte(`{}`)}, "alice"))
	require.NoError(t, s.ActivateVersion(ctx, "cards-agent", 2, "promote", "alice"))

	assert.Greater(t, s.Generation(), genBefore)
	active, err := s.GetActive(ctx, "cards-agent")
	require.NoError(t, err)
	assert.Equal(t, 2, active.Version, "cache must not serve the stale active version after activation")
}

func TestRecordMetric_AccumulatesDailyRollup(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	require.NoError(t, s.CreateVersion(ctx, store.Version{AgentID: "credit-agent", Version: 1, ConfigBlob: []byte(`{}`)}, "alice"))

	require.NoError(t, s.RecordMetric(ctx, "credit-agent", 1, store.MetricEvent{Success: true, ResponseTimeMs: 100}))
	require.NoError(t, s.RecordMetric(ctx, "credit-agent", 1, store.MetricEvent{Success: false, ResponseTimeMs: 300, Escalated: true}))

	m, err := s.GetMetrics(ctx, "credit-agent", 1)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Total)
	assert.Equal(t, 1, m.Success)
	assert.Equal(t, 1, m.Failed)
}

func TestDeprecateVersion_UnknownVersion(t *testing.T) {
	ctx := context.Background()
	db := dbtest.Client(t)
	s := store.New(db)

	err := s.DeprecateVersion(ctx, "cards-agent", 5, "sunset", "alice")
	assert.ErrorIs(t, err, store.ErrVersionNotFound)
}
