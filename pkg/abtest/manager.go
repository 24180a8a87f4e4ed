package abtest

import (
	"context"
	"fmt"
	"math"
	"time"
)

// Persistence is the narrow interface Manager depends on; *Store
// implements it against Postgres, tests substitute an in-memory fake
// (mirrors the router/typification narrow-interface convention).
type Persistence interface {
	CreateTest(ctx context.Context, t Test) error
	StartTest(ctx context.Context, testID string, now time.Time) error
	StopTest(ctx context.Context, testID string, now time.Time) error
	GetTest(ctx context.Context, testID string) (*Test, error)
	GetAssignment(ctx context.Context, testID, userID string) (*int, error)
	RecordAssignment(ctx context.Context, testID, userID string, version int, now time.Time) error
	RecordInteraction(ctx context.Context, testID, userID string, version int, outcome Outcome, now time.Time) error
	ArmSamples(ctx context.Context, testID string, version int) ([]Outcome, error)
	GetRunningTestForAgent(ctx context.Context, agentID string) (*Test, error)
}

// Manager implements the A/B Test Manager's operations (spec §4.9):
// create_test, start_test, assign, record, analyze.
type Manager struct {
	store Persistence
	clock func() time.Time
}

// New builds an A/B Test Manager over a persistence backend.
func New(store Persistence) *Manager {
	return &Manager{store: store, clock: time.Now}
}

// CreateTest validates the weight distribution and persists a draft test.
func (m *Manager) CreateTest(ctx context.Context, t Test) error {
	if err := validateDistribution(t.Distribution); err != nil {
		return err
	}
	t.Status = StatusDraft
	return m.store.CreateTest(ctx, t)
}

// StartTest flips a draft test to running. The distribution is fixed for
// the lifetime of the test from this point on (spec §4.9).
func (m *Manager) StartTest(ctx context.Context, testID string) error {
	return m.store.StartTest(ctx, testID, m.clock())
}

// StopTest flips a running test to stopped.
func (m *Manager) StopTest(ctx context.Context, testID string) error {
	return m.store.StopTest(ctx, testID, m.clock())
}

// Assign returns userID's sticky version for testID (spec §4.9,
// §8 testable property 6: "assign(U, T) returns the same version across
// calls until the test ends"). The first call computes and persists the
// bucket assignment; every subsequent call for the same user replays it.
func (m *Manager) Assign(ctx context.Context, testID, userID string) (int, error) {
	existing, err := m.store.GetAssignment(ctx, testID, userID)
	if err != nil {
		return 0, err
	}
	if existing != nil {
		return *existing, nil
	}

	test, err := m.store.GetTest(ctx, testID)
	if err != nil {
		return 0, err
	}
	if test.Status != StatusRunning {
		return 0, ErrTestNotRunning
	}

	version := pickVersion(test.Distribution, bucket(userID))
	if err := m.store.RecordAssignment(ctx, testID, userID, version, m.clock()); err != nil {
		return 0, err
	}

	// A concurrent assignment may have won the race on the unique
	// (test_id, user_id) key; re-read so every caller converges on the
	// same sticky version regardless of who actually inserted it.
	winning, err := m.store.GetAssignment(ctx, testID, userID)
	if err != nil {
		return 0, err
	}
	if winning == nil {
		return 0, fmt.Errorf("abtest: assignment vanished for test %s user %s", testID, userID)
	}
	return *winning, nil
}

// AssignForAgent is the Agent Factory's entry point (spec §4.4: resolve a
// version "via C9's A/B assignment for the given user_id"). It looks up
// whether agentID has a running test at all before assigning; ok is false
// when no running test targets this agent, in which case the Factory
// should fall back to the Config Store's active version.
func (m *Manager) AssignForAgent(ctx context.Context, agentID, userID string) (version int, ok bool, err error) {
	test, err := m.store.GetRunningTestForAgent(ctx, agentID)
	if err != nil {
		return 0, false, err
	}
	if test == nil {
		return 0, false, nil
	}
	v, err := m.Assign(ctx, test.TestID, userID)
	if err != nil {
		return 0, false, err
	}
	return v, true, nil
}

// Record appends one outcome for userID's already-assigned version (spec
// §4.9, record(test_id, user_id, version, outcome)).
func (m *Manager) Record(ctx context.Context, testID, userID string, version int, outcome Outcome) error {
	return m.store.RecordInteraction(ctx, testID, userID, version, outcome, m.clock())
}

// Analyze computes ArmStats for the control and every test version, runs
// the significance test against the control, and recommends promote or
// keep_control per spec §4.9: "promote iff sample size per arm >=
// min_sample and improvement over control >= 5% with significant=true".
func (m *Manager) Analyze(ctx context.Context, testID string) (*Analysis, error) {
	test, err := m.store.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}

	controlSamples, err := m.store.ArmSamples(ctx, testID, test.ControlVersion)
	if err != nil {
		return nil, err
	}
	controlStats := summarize(test.ControlVersion, controlSamples)

	analysis := &Analysis{TestID: testID, PrimaryMetric: test.PrimaryMetric, Control: controlStats}

	for _, v := range test.TestVersions {
		samples, err := m.store.ArmSamples(ctx, testID, v)
		if err != nil {
			return nil, err
		}
		arm := summarize(v, samples)
		analysis.Challengers = append(analysis.Challengers, compare(test.PrimaryMetric, test.MinSample, controlStats, controlSamples, arm, samples))
	}

	return analysis, nil
}

func summarize(version int, samples []Outcome) ArmStats {
	stats := ArmStats{Version: version, Samples: len(samples)}
	if len(samples) == 0 {
		return stats
	}
	successes, escalations := 0, 0
	var latencySum, satisfactionSum float64
	for _, o := range samples {
		if o.Success {
			successes++
		}
		if o.Escalated {
			escalations++
		}
		latencySum += o.LatencyMs
		satisfactionSum += o.Satisfaction
	}
	n := float64(len(samples))
	stats.SuccessRate = float64(successes) / n
	stats.EscalationRate = float64(escalations) / n
	stats.AvgLatencyMs = latencySum / n
	stats.AvgSatisfaction = satisfactionSum / n
	return stats
}

// compare runs the appropriate significance test for primaryMetric and
// applies the promote/keep_control recommendation rule.
func compare(primaryMetric string, minSample int, control ArmStats, controlSamples []Outcome, arm ArmStats, armSamples []Outcome) ChallengerResult {
	result := ChallengerResult{Arm: arm, Recommendation: "keep_control"}

	if control.Samples < minSample || arm.Samples < minSample {
		return result
	}

	var improvement float64
	var significant bool

	switch primaryMetric {
	case "success":
		controlSuccesses := int(math.Round(control.SuccessRate * float64(control.Samples)))
		armSuccesses := int(math.Round(arm.SuccessRate * float64(arm.Samples)))
		_, significant = twoProportionZTest(controlSuccesses, control.Samples, armSuccesses, arm.Samples)
		if control.SuccessRate > 0 {
			improvement = (arm.SuccessRate - control.SuccessRate) / control.SuccessRate
		}
	case "satisfaction":
		controlVals := extract(controlSamples, func(o Outcome) float64 { return o.Satisfaction })
		armVals := extract(armSamples, func(o Outcome) float64 { return o.Satisfaction })
		_, significant = welchTTest(mean(controlVals), sampleVariance(controlVals, mean(controlVals)), len(controlVals),
			mean(armVals), sampleVariance(armVals, mean(armVals)), len(armVals))
		if control.AvgSatisfaction > 0 {
			improvement = (arm.AvgSatisfaction - control.AvgSatisfaction) / control.AvgSatisfaction
		}
	case "latency":
		controlVals := extract(controlSamples, func(o Outcome) float64 { return o.LatencyMs })
		armVals := extract(armSamples, func(o Outcome) float64 { return o.LatencyMs })
		_, significant = welchTTest(mean(controlVals), sampleVariance(controlVals, mean(controlVals)), len(controlVals),
			mean(armVals), sampleVariance(armVals, mean(armVals)), len(armVals))
		if control.AvgLatencyMs > 0 {
			// Lower latency is the improvement direction.
			improvement = (control.AvgLatencyMs - arm.AvgLatencyMs) / control.AvgLatencyMs
		}
	default:
		return result
	}

	result.ImprovementRatio = improvement
	result.Significant = significant
	if improvement >= 0.05 && significant {
		result.Recommendation = "promote"
	}
	return result
}

func extract(samples []Outcome, f func(Outcome) float64) []float64 {
	out := make([]float64, len(samples))
	for i, o := range samples {
		out[i] = f(o)
	}
	return out
}
