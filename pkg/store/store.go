// Package store implements the Config Store (spec §4.1): the system of
// record for agent/team/workflow configuration versions, their activation
// history, and per-version outcome metrics. It is the only component
// permitted to mutate agent_configs, version_history, and version_metrics
// (spec §5, "Shared-resource policy").
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/pagbank/agent-router/pkg/database"
)

// cacheEntry memoizes the active version for one agent_id against the
// generation it was read at (spec §4.1, "Cache").
type cacheEntry struct {
	version *Version
	gen     uint64
}

// Store is the Config Store. All mutation methods run inside a single
// transaction and bump the generation counter on success so the Agent
// Factory's handle cache (pkg/agent) knows to invalidate (spec §4.4, §5).
type Store struct {
	db  *database.Client
	gen atomic.Uint64

	mu    sync.RWMutex
	cache map[string]cacheEntry
}

// New wraps a database client as a Config Store.
func New(db *database.Client) *Store {
	return &Store{
		db:    db,
		cache: make(map[string]cacheEntry),
	}
}

// Generation returns the store's current write generation. The Agent
// Factory polls this to decide whether a cached handle is stale.
func (s *Store) Generation() uint64 {
	return s.gen.Load()
}

func (s *Store) bump() {
	s.gen.Add(1)
}

// CreateVersion inserts a new (agent_id, version) row. Returns ErrVersionExists
// on a duplicate pair (spec §4.1).
func (s *Store) CreateVersion(ctx context.Context, v Version, actor string) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO agent_configs (agent_id, version, config_blob, created_by, is_active, is_deprecated, description)
		VALUES ($1, $2, $3, $4, false, false, $5)`,
		v.AgentID, v.Version, v.ConfigBlob, actor, v.Description,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrVersionExists
		}
		return fmt.Errorf("store: insert version: %w", err)
	}

	if err := appendHistory(ctx, tx, v.AgentID, v.Version, ActionCreated, actor, "created"); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit create: %w", err)
	}
	s.bump()
	return nil
}

// ActivateVersion atomically makes (agent_id, version) the sole active
// version for agent_id: every other version's is_active flips to false in
// the same transaction, and a version_history row is appended (spec §4.1,
// "activate_version is atomic"). Readers never observe more than one
// active version at a time because the flip happens under a single
// transaction against the unique partial index idx_agent_configs_one_active.
func (s *Store) ActivateVersion(ctx context.Context, agentID string, version int, reason, actor string) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin activate: %w", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		UPDATE agent_configs SET is_active = false
		WHERE agent_id = $1 AND version <> $2 AND is_active = true`,
		agentID, version,
	)
	if err != nil {
		return fmt.Errorf("store: deactivate siblings: %w", err)
	}
	_ = tag

	cmd, err := tx.Exec(ctx, `
		UPDATE agent_configs SET is_active = true, is_deprecated = false
		WHERE agent_id = $1 AND version = $2`,
		agentID, version,
	)
	if err != nil {
		return fmt.Errorf("store: activate version: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionNotFound
	}

	if err := appendHistory(ctx, tx, agentID, version, ActionActivated, actor, reason); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit activate: %w", err)
	}
	s.bump()
	return nil
}

// DeprecateVersion marks a version as deprecated. A deprecated version may
// still be active (deprecation is a warning label, activation is the
// serving switch); callers typically activate a replacement first.
func (s *Store) DeprecateVersion(ctx context.Context, agentID string, version int, reason, actor string) error {
	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("store: begin deprecate: %w", err)
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, `
		UPDATE agent_configs SET is_deprecated = true
		WHERE agent_id = $1 AND version = $2`,
		agentID, version,
	)
	if err != nil {
		return fmt.Errorf("store: deprecate version: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrVersionNotFound
	}

	if err := appendHistory(ctx, tx, agentID, version, ActionDeprecated, actor, reason); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("store: commit deprecate: %w", err)
	}
	s.bump()
	return nil
}

// GetActive returns the active version for agentID, serving from the
// per-agent memoized cache when the store's generation hasn't advanced
// since the entry was read (spec §4.1, "at most one query per miss").
func (s *Store) GetActive(ctx context.Context, agentID string) (*Version, error) {
	currentGen := s.Generation()

	s.mu.RLock()
	entry, ok := s.cache[agentID]
	s.mu.RUnlock()
	if ok && entry.gen == currentGen {
		return entry.version, nil
	}

	v, err := s.queryActive(ctx, agentID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache[agentID] = cacheEntry{version: v, gen: currentGen}
	s.mu.Unlock()

	return v, nil
}

func (s *Store) queryActive(ctx context.Context, agentID string) (*Version, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT agent_id, version, config_blob, created_at, created_by, is_active, is_deprecated, description
		FROM agent_configs WHERE agent_id = $1 AND is_active = true`,
		agentID,
	)
	v := &Version{}
	err := row.Scan(&v.AgentID, &v.Version, &v.ConfigBlob, &v.CreatedAt, &v.CreatedBy, &v.IsActive, &v.IsDeprecated, &v.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoActiveVersion
		}
		return nil, fmt.Errorf("store: query active: %w", err)
	}
	return v, nil
}

// GetVersion returns one specific (agent_id, version) row, active or not.
// Used by the Agent Factory when a caller pins an explicit version rather
// than deferring to the active one or an A/B assignment (spec §4.4).
func (s *Store) GetVersion(ctx context.Context, agentID string, version int) (*Version, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT agent_id, version, config_blob, created_at, created_by, is_active, is_deprecated, description
		FROM agent_configs WHERE agent_id = $1 AND version = $2`,
		agentID, version,
	)
	v := &Version{}
	err := row.Scan(&v.AgentID, &v.Version, &v.ConfigBlob, &v.CreatedAt, &v.CreatedBy, &v.IsActive, &v.IsDeprecated, &v.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrVersionNotFound
		}
		return nil, fmt.Errorf("store: get version: %w", err)
	}
	return v, nil
}

// ListVersions returns every version of agentID, newest first.
func (s *Store) ListVersions(ctx context.Context, agentID string) ([]Version, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT agent_id, version, config_blob, created_at, created_by, is_active, is_deprecated, description
		FROM agent_configs WHERE agent_id = $1 ORDER BY version DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: list versions: %w", err)
	}
	defer rows.Close()

	var out []Version
	for rows.Next() {
		var v Version
		if err := rows.Scan(&v.AgentID, &v.Version, &v.ConfigBlob, &v.CreatedAt, &v.CreatedBy, &v.IsActive, &v.IsDeprecated, &v.Description); err != nil {
			return nil, fmt.Errorf("store: scan version: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// RecordMetric folds one turn's outcome into today's version_metrics row
// for (agent_id, version), upserting the daily rollup (spec §4.1).
func (s *Store) RecordMetric(ctx context.Context, agentID string, version int, ev MetricEvent) error {
	today := time.Now().UTC().Truncate(24 * time.Hour)

	successInc, failedInc := 0, 0
	if ev.Success {
		successInc = 1
	} else {
		failedInc = 1
	}
	escalatedInc := 0
	if ev.Escalated {
		escalatedInc = 1
	}

	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO version_metrics (agent_id, version, date, total, success, failed, avg_response_ms, escalation_rate, satisfaction)
		VALUES ($1, $2, $3, 1, $4, $5, $6, $7, $8)
		ON CONFLICT (agent_id, version, date) DO UPDATE SET
			total            = version_metrics.total + 1,
			success          = version_metrics.success + $4,
			failed           = version_metrics.failed + $5,
			avg_response_ms  = (version_metrics.avg_response_ms * version_metrics.total + $6) / (version_metrics.total + 1),
			escalation_rate  = (version_metrics.escalation_rate * version_metrics.total + $9) / (version_metrics.total + 1),
			satisfaction     = (version_metrics.satisfaction * version_metrics.total + $8) / (version_metrics.total + 1)`,
		agentID, version, today, successInc, failedInc, ev.ResponseTimeMs, float64(escalatedInc), ev.Satisfaction, float64(escalatedInc),
	)
	if err != nil {
		return fmt.Errorf("store: record metric: %w", err)
	}
	return nil
}

// GetMetrics returns the cumulative rollup for (agent_id, version) across
// all days, used by the A/B Test Manager's analysis (spec §4.9).
func (s *Store) GetMetrics(ctx context.Context, agentID string, version int) (*Metrics, error) {
	row := s.db.Pool.QueryRow(ctx, `
		SELECT $1, $2,
			COALESCE(SUM(total), 0), COALESCE(SUM(success), 0), COALESCE(SUM(failed), 0),
			COALESCE(AVG(avg_response_ms), 0), COALESCE(AVG(escalation_rate), 0), COALESCE(AVG(satisfaction), 0)
		FROM version_metrics WHERE agent_id = $1 AND version = $2`,
		agentID, version,
	)
	m := &Metrics{}
	if err := row.Scan(&m.AgentID, &m.Version, &m.Total, &m.Success, &m.Failed, &m.AvgResponseMs, &m.EscalationRate, &m.Satisfaction); err != nil {
		return nil, fmt.Errorf("store: get metrics: %w", err)
	}
	return m, nil
}

func appendHistory(ctx context.Context, tx pgx.Tx, agentID string, version int, action HistoryAction, changedBy, reason string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO version_history (agent_id, version, action, changed_by, reason)
		VALUES ($1, $2, $3, $4, $5)`,
		agentID, version, action, changedBy, reason,
	)
	if err != nil {
		return fmt.Errorf("store: append history: %w", err)
	}
	return nil
}

// History returns the version_history rows for agentID, newest first.
func (s *Store) History(ctx context.Context, agentID string) ([]HistoryEntry, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, agent_id, version, action, changed_by, changed_at, reason
		FROM version_history WHERE agent_id = $1 ORDER BY changed_at DESC`,
		agentID,
	)
	if err != nil {
		return nil, fmt.Errorf("store: history: %w", err)
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.ID, &h.AgentID, &h.Version, &h.Action, &h.ChangedBy, &h.ChangedAt, &h.Reason); err != nil {
			return nil, fmt.Errorf("store: scan history: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}
