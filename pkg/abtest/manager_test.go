package abtest_test

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/abtest"
)

type assignmentKey struct{ testID, userID string }

type fakePersistence struct {
	tests       map[string]abtest.Test
	assignments map[assignmentKey]int
	samples     map[string][]abtest.Outcome // key: testID|version
}

func newFakePersistence() *fakePersistence {
	return &fakePersistence{
		tests:       make(map[string]abtest.Test),
		assignments: make(map[assignmentKey]int),
		samples:     make(map[string][]abtest.Outcome),
	}
}

func sampleKey(testID string, version int) string {
	return testID + "|" + strconv.Itoa(version)
}

func (f *fakePersistence) CreateTest(_ context.Context, t abtest.Test) error {
	f.tests[t.TestID] = t
	return nil
}

func (f *fakePersistence) StartTest(_ context.Context, testID string, _ time.Time) error {
	t, ok := f.tests[testID]
	if !ok {
		return abtest.ErrTestNotFound
	}
	t.Status = abtest.StatusRunning
	f.tests[testID] = t
	return nil
}

func (f *fakePersistence) StopTest(_ context.Context, testID string, _ time.Time) error {
	t, ok := f.tests[testID]
	if !ok {
		return abtest.ErrTestNotFound
	}
	t.Status = abtest.StatusStopped
	f.tests[testID] = t
	return nil
}

func (f *fakePersistence) GetTest(_ context.Context, testID string) (*abtest.Test, error) {
	t, ok := f.tests[testID]
	if !ok {
		return nil, abtest.ErrTestNotFound
	}
	return &t, nil
}

func (f *fakePersistence) GetAssignment(_ context.Context, testID, userID string) (*int, error) {
	v, ok := f.assignments[assignmentKey{testID, userID}]
	if !ok {
		return nil, nil
	}
	return &v, nil
}

func (f *fakePersistence) RecordAssignment(_ context.Context, testID, userID string, version int, _ time.Time) error {
	key := assignmentKey{testID, userID}
	if _, exists := f.assignments[key]; exists {
		return nil // ON CONFLICT DO NOTHING semantics
	}
	f.assignments[key] = version
	return nil
}

func (f *fakePersistence) RecordInteraction(_ context.Context, testID, _ string, version int, outcome abtest.Outcome, _ time.Time) error {
	k := sampleKey(testID, version)
	f.samples[k] = append(f.samples[k], outcome)
	return nil
}

func (f *fakePersistence) ArmSamples(_ context.Context, testID string, version int) ([]abtest.Outcome, error) {
	return f.samples[sampleKey(testID, version)], nil
}

func (f *fakePersistence) GetRunningTestForAgent(_ context.Context, agentID string) (*abtest.Test, error) {
	for _, t := range f.tests {
		if t.AgentID == agentID && t.Status == abtest.StatusRunning {
			tCopy := t
			return &tCopy, nil
		}
	}
	return nil, nil
}

func TestAssign_IsStickyAcrossCalls(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t1", AgentID: "cards", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 50, 2: 50}, MinSample: 10, PrimaryMetric: "success",
	}))
	require.NoError(t, m.StartTest(ctx, "t1"))

	first, err := m.Assign(ctx, "t1", "user-a")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := m.Assign(ctx, "t1", "user-a")
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestAssign_FailsWhenTestNotRunning(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t2", AgentID: "cards", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 100}, MinSample: 10, PrimaryMetric: "success",
	}))

	_, err := m.Assign(ctx, "t2", "user-a")
	assert.ErrorIs(t, err, abtest.ErrTestNotRunning)
}

func TestCreateTest_RejectsWeightsNotSummingTo100(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)

	err := m.CreateTest(context.Background(), abtest.Test{
		TestID: "t3", Distribution: map[int]int{1: 50, 2: 40},
	})
	assert.ErrorIs(t, err, abtest.ErrDistributionInvalid)
}

func TestAnalyze_PromotesOnLargeSignificantImprovement(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t4", AgentID: "cards", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 50, 2: 50}, MinSample: 50, PrimaryMetric: "success",
	}))
	require.NoError(t, m.StartTest(ctx, "t4"))

	for i := 0; i < 100; i++ {
		success := i < 60 // 60% control success rate
		require.NoError(t, m.Record(ctx, "t4", "u", 1, abtest.Outcome{Success: success}))
	}
	for i := 0; i < 100; i++ {
		success := i < 90 // 90% challenger success rate
		require.NoError(t, m.Record(ctx, "t4", "u", 2, abtest.Outcome{Success: success}))
	}

	analysis, err := m.Analyze(ctx, "t4")
	require.NoError(t, err)
	require.Len(t, analysis.Challengers, 1)
	assert.Equal(t, "promote", analysis.Challengers[0].Recommendation)
	assert.True(t, analysis.Challengers[0].Significant)
}

func TestAnalyze_KeepsControlBelowMinSample(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t5", AgentID: "cards", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 50, 2: 50}, MinSample: 1000, PrimaryMetric: "success",
	}))
	require.NoError(t, m.StartTest(ctx, "t5"))

	require.NoError(t, m.Record(ctx, "t5", "u", 1, abtest.Outcome{Success: true}))
	require.NoError(t, m.Record(ctx, "t5", "u", 2, abtest.Outcome{Success: true}))

	analysis, err := m.Analyze(ctx, "t5")
	require.NoError(t, err)
	assert.Equal(t, "keep_control", analysis.Challengers[0].Recommendation)
}

func TestAssignForAgent_FalseWhenNoRunningTest(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)

	_, ok, err := m.AssignForAgent(context.Background(), "cards-specialist", "user-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAssignForAgent_AssignsWhenTestRunning(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t7", AgentID: "cards-specialist", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 50, 2: 50}, MinSample: 10, PrimaryMetric: "success",
	}))
	require.NoError(t, m.StartTest(ctx, "t7"))

	version, ok, err := m.AssignForAgent(ctx, "cards-specialist", "user-a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, []int{1, 2}, version)
}

func TestAnalyze_KeepsControlOnSmallImprovement(t *testing.T) {
	store := newFakePersistence()
	m := abtest.New(store)
	ctx := context.Background()

	require.NoError(t, m.CreateTest(ctx, abtest.Test{
		TestID: "t6", AgentID: "cards", ControlVersion: 1, TestVersions: []int{2},
		Distribution: map[int]int{1: 50, 2: 50}, MinSample: 50, PrimaryMetric: "success",
	}))
	require.NoError(t, m.StartTest(ctx, "t6"))

	for i := 0; i < 100; i++ {
		require.NoError(t, m.Record(ctx, "t6", "u", 1, abtest.Outcome{Success: i < 70}))
	}
	for i := 0; i < 100; i++ {
		require.NoError(t, m.Record(ctx, "t6", "u", 2, abtest.Outcome{Success: i < 71}))
	}

	analysis, err := m.Analyze(ctx, "t6")
	require.NoError(t, err)
	assert.Equal(t, "keep_control", analysis.Challengers[0].Recommendation)
}
