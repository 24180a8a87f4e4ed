package abtest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pagbank/agent-router/pkg/database"
)

// Store persists A/B tests, assignments, and interactions against the
// ab_tests/ab_assignments/ab_interactions tables (same migration as the
// Typification Workflow's tickets table).
type Store struct {
	db *database.Client
}

// NewStore wraps a database client for A/B test persistence.
func NewStore(db *database.Client) *Store {
	return &Store{db: db}
}

// CreateTest inserts a draft test. Weights must sum to 100 (spec §4.9).
func (s *Store) CreateTest(ctx context.Context, t Test) error {
	if err := validateDistribution(t.Distribution); err != nil {
		return err
	}
	distJSON, err := json.Marshal(t.Distribution)
	if err != nil {
		return fmt.Errorf("abtest: marshal distribution: %w", err)
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO ab_tests (test_id, agent_id, control_version, test_versions, distribution, status, min_sample, primary_metric)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		t.TestID, t.AgentID, t.ControlVersion, t.TestVersions, distJSON, StatusDraft, t.MinSample, t.PrimaryMetric,
	)
	if err != nil {
		return fmt.Errorf("abtest: create test: %w", err)
	}
	return nil
}

// StartTest flips a draft test to running, stamping start_at. The
// distribution is immutable from this point on (spec §4.9, "distribution
// change mid-test is disallowed") — enforced by never accepting a
// distribution argument here.
func (s *Store) StartTest(ctx context.Context, testID string, now time.Time) error {
	cmd, err := s.db.Pool.Exec(ctx, `
		UPDATE ab_tests SET status = $1, start_at = $2
		WHERE test_id = $3 AND status = $4`,
		StatusRunning, now, testID, StatusDraft,
	)
	if err != nil {
		return fmt.Errorf("abtest: start test: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

// StopTest flips a running test to stopped, stamping end_at.
func (s *Store) StopTest(ctx context.Context, testID string, now time.Time) error {
	cmd, err := s.db.Pool.Exec(ctx, `
		UPDATE ab_tests SET status = $1, end_at = $2
		WHERE test_id = $3 AND status = $4`,
		StatusStopped, now, testID, StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("abtest: stop test: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrTestNotFound
	}
	return nil
}

// GetTest fetches one test by id.
func (s *Store) GetTest(ctx context.Context, testID string) (*Test, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT test_id, agent_id, control_version, test_versions, distribution, status, start_at, end_at, min_sample, primary_metric
		FROM ab_tests WHERE test_id = $1`,
		testID,
	)
	var t Test
	var distJSON []byte
	err := row.Scan(&t.TestID, &t.AgentID, &t.ControlVersion, &t.TestVersions, &distJSON, &t.Status, &t.StartAt, &t.EndAt, &t.MinSample, &t.PrimaryMetric)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTestNotFound
		}
		return nil, fmt.Errorf("abtest: get test: %w", err)
	}
	if err := json.Unmarshal(distJSON, &t.Distribution); err != nil {
		return nil, fmt.Errorf("abtest: unmarshal distribution: %w", err)
	}
	return &t, nil
}

// GetAssignment returns the version previously assigned to userID for
// testID, or nil if none exists yet (spec §4.9, sticky assignment).
func (s *Store) GetAssignment(ctx context.Context, testID, userID string) (*int, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT version FROM ab_assignments WHERE test_id = $1 AND user_id = $2`,
		testID, userID,
	)
	var version int
	if err := row.Scan(&version); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("abtest: get assignment: %w", err)
	}
	return &version, nil
}

// RecordAssignment persists a new sticky assignment. A concurrent insert
// for the same (test_id, user_id) is resolved by the primary key: the
// loser's insert is a no-op (ON CONFLICT DO NOTHING, no error) and the
// caller re-reads via GetAssignment to learn the stored version.
func (s *Store) RecordAssignment(ctx context.Context, testID, userID string, version int, now time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO ab_assignments (test_id, user_id, version, assigned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (test_id, user_id) DO NOTHING`,
		testID, userID, version, now,
	)
	if err != nil {
		return fmt.Errorf("abtest: record assignment: %w", err)
	}
	return nil
}

// RecordInteraction appends one outcome row (spec §4.9, record(test_id,
// user_id, version, outcome)).
func (s *Store) RecordInteraction(ctx context.Context, testID, userID string, version int, outcome Outcome, now time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO ab_interactions (test_id, user_id, version, success, latency_ms, satisfaction, escalated, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		testID, userID, version, outcome.Success, outcome.LatencyMs, outcome.Satisfaction, outcome.Escalated, now,
	)
	if err != nil {
		return fmt.Errorf("abtest: record interaction: %w", err)
	}
	return nil
}

// GetRunningTestForAgent returns the running test targeting agentID, if
// any (spec §4.4: the Agent Factory resolves a version "via C9's A/B
// assignment for the given user_id", which first requires knowing
// whether agentID has a live test at all). Returns (nil, nil) when no
// running test targets this agent.
func (s *Store) GetRunningTestForAgent(ctx context.Context, agentID string) (*Test, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT test_id, agent_id, control_version, test_versions, distribution, status, start_at, end_at, min_sample, primary_metric
		FROM ab_tests WHERE agent_id = $1 AND status = $2
		ORDER BY start_at DESC LIMIT 1`,
		agentID, StatusRunning,
	)
	var t Test
	var distJSON []byte
	err := row.Scan(&t.TestID, &t.AgentID, &t.ControlVersion, &t.TestVersions, &distJSON, &t.Status, &t.StartAt, &t.EndAt, &t.MinSample, &t.PrimaryMetric)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("abtest: get running test for agent: %w", err)
	}
	if err := json.Unmarshal(distJSON, &t.Distribution); err != nil {
		return nil, fmt.Errorf("abtest: unmarshal distribution: %w", err)
	}
	return &t, nil
}

// ArmSamples returns every recorded outcome for (test_id, version), used
// by analyze() to compute ArmStats and run the significance test.
func (s *Store) ArmSamples(ctx context.Context, testID string, version int) ([]Outcome, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT success, latency_ms, satisfaction, escalated
		FROM ab_interactions WHERE test_id = $1 AND version = $2`,
		testID, version,
	)
	if err != nil {
		return nil, fmt.Errorf("abtest: arm samples: %w", err)
	}
	defer rows.Close()

	var out []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.Success, &o.LatencyMs, &o.Satisfaction, &o.Escalated); err != nil {
			return nil, fmt.Errorf("abtest: scan interaction: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
