package store

import "time"

// Version is one row of agent_configs: a specific (agent_id, version) pair
// and the config document blob it carries (spec §3, §4.1).
type Version struct {
	AgentID      string
	Version      int
	ConfigBlob   []byte // raw YAML/JSON, see pkg/config.Parse
	CreatedAt    time.Time
	CreatedBy    string
	IsActive     bool
	IsDeprecated bool
	Description  string
}

// HistoryAction enumerates the version_history.action values (spec §4.1).
type HistoryAction string

const (
	ActionCreated    HistoryAction = "created"
	ActionActivated  HistoryAction = "activated"
	ActionDeprecated HistoryAction = "deprecated"
	ActionUpdated    HistoryAction = "updated"
)

// HistoryEntry is one append-only version_history row.
type HistoryEntry struct {
	ID        int64
	AgentID   string
	Version   int
	Action    HistoryAction
	ChangedBy string
	ChangedAt time.Time
	Reason    string
}

// MetricEvent is a single outcome reported by a specialist/router turn,
// folded into the version_metrics daily rollup by RecordMetric.
type MetricEvent struct {
	Success        bool
	ResponseTimeMs float64
	Escalated      bool
	Satisfaction   float64 // 0 when not reported
}

// Metrics is a version_metrics rollup for one (agent_id, version).
// GetMetrics fills it across all days and leaves Date zero.
type Metrics struct {
	AgentID        string
	Version        int
	Date           time.Time
	Total          int
	Success        int
	Failed         int
	AvgResponseMs  float64
	EscalationRate float64
	Satisfaction   float64
}
