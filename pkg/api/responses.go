package api

import "github.com/pagbank/agent-router/pkg/database"

// ChatResponse is the final envelope returned after a turn completes (spec
// §4.10: "a final envelope {session_id, version_used, routing_trail,
// ticket_id?, escalation?}"). It is sent as the last SSE event of the
// response stream, after the assistant-token events.
type ChatResponse struct {
	SessionID    string   `json:"session_id"`
	VersionUsed  int      `json:"version_used,omitempty"`
	RoutingTrail []string `json:"routing_trail"`
	TicketID     string   `json:"ticket_id,omitempty"`
	Escalation   bool     `json:"escalation"`
	FraudAlert   bool     `json:"fraud_alert,omitempty"`
}

// TokenEvent is one SSE "token" event carrying a chunk of the assistant's
// reply (spec §4.10: "returns a stream of assistant tokens").
type TokenEvent struct {
	Token string `json:"token"`
}

// HealthResponse is GET /health's body.
type HealthResponse struct {
	Status   string                   `json:"status"`
	Version  string                   `json:"version"`
	Database *database.HealthStatus   `json:"database,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

// VersionResponse is one agent_configs row rendered for the API.
type VersionResponse struct {
	AgentID      string `json:"agent_id"`
	Version      int    `json:"version"`
	IsActive     bool   `json:"is_active"`
	IsDeprecated bool   `json:"is_deprecated"`
	Description  string `json:"description,omitempty"`
	CreatedBy    string `json:"created_by,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// RunResponse is POST /agents/{agent_id}/run's body.
type RunResponse struct {
	AgentID string `json:"agent_id"`
	Version int    `json:"version"`
	Output  string `json:"output"`
}

// ABTestResponse is the rendering of an abtest.Test.
type ABTestResponse struct {
	TestID         string      `json:"test_id"`
	AgentID        string      `json:"agent_id"`
	ControlVersion int         `json:"control_version"`
	TestVersions   []int       `json:"test_versions"`
	Distribution   map[int]int `json:"distribution"`
	Status         string      `json:"status"`
}

// ABAnalysisResponse mirrors abtest.Analysis for JSON rendering.
type ABAnalysisResponse struct {
	TestID        string                     `json:"test_id"`
	PrimaryMetric string                     `json:"primary_metric"`
	Control       ArmStatsResponse           `json:"control"`
	Challengers   []ChallengerResultResponse `json:"challengers"`
}

// ArmStatsResponse mirrors abtest.ArmStats.
type ArmStatsResponse struct {
	Version         int     `json:"version"`
	Samples         int     `json:"samples"`
	SuccessRate     float64 `json:"success_rate"`
	AvgLatencyMs    float64 `json:"avg_latency_ms"`
	AvgSatisfaction float64 `json:"avg_satisfaction"`
	EscalationRate  float64 `json:"escalation_rate"`
}

// ChallengerResultResponse mirrors abtest.ChallengerResult.
type ChallengerResultResponse struct {
	Arm              ArmStatsResponse `json:"arm"`
	ImprovementRatio float64          `json:"improvement_ratio"`
	Significant      bool             `json:"significant"`
	Recommendation   string           `json:"recommendation"`
}

// ErrorResponse is the envelope every non-2xx JSON response uses. A
// specialist failure during a chat turn does not reach it: the Router turns
// that into a Portuguese apology inside the normal stream (spec §7:
// "user-visible failures are always Portuguese, empathetic, and never
// reveal internal identifiers beyond a protocol number"). POST /chat still
// answers with this envelope for a malformed request body and for an
// error returned by Router.HandleTurn itself (via mapError).
type ErrorResponse struct {
	Error string `json:"error"`
}
