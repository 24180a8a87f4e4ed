// Package session implements Session State (spec §4.5): the mutable,
// per-conversation record that the Router and Specialists read and write
// across turns. A session's fields are mutated exclusively through the
// typed methods on *State — nothing else in this module is permitted to
// reach into a session's fields directly (spec §5, "Session State is
// mutated exclusively through typed tools").
//
// Concurrency model (spec §5): *State embeds a mutex representing the
// "one turn at a time" contract. pkg/api's chat handler takes it before
// Router.HandleTurn and releases it after, so it stays held across the
// turn's long I/O (LLM calls, knowledge searches) as well. The methods
// below assume the caller already holds the lock, they do not lock
// internally. Across different
// sessions, any number of turns run in parallel; only the Manager's
// lookup map needs its own lock (see manager.go), grounded on the
// teacher's session.Manager.
package session

import (
	"sync"
	"time"
)

// MessageRole mirrors the teacher's session.MessageRole.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Turn is one message in MessageHistory.
type Turn struct {
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// RoutingEntry is one Router decision recorded in RoutingHistory.
type RoutingEntry struct {
	Specialist string    `json:"specialist"`
	Reason     string    `json:"reason"`
	Timestamp  time.Time `json:"timestamp"`
}

// CustomerContext is the customer_context{} block of SessionState (spec §3).
type CustomerContext struct {
	EducationLevel      string `json:"education_level,omitempty"`
	CommunicationStyle  string `json:"communication_style,omitempty"`
	Channel             string `json:"channel,omitempty"`
}

// Shared is the shared{} block: cross-specialist scratch state for team
// coordination (spec §3, §4.5).
type Shared struct {
	ResearchFindings []string `json:"research_findings,omitempty"`
	TeamDecisions    []string `json:"team_decisions,omitempty"`
	EscalationFlags  []string `json:"escalation_flags,omitempty"`
}

// FrustrationLevel is clamped to [0,3] by SetFrustrationLevel (spec §3).
const (
	FrustrationNone     = 0
	FrustrationMild     = 1
	FrustrationModerate = 2
	FrustrationSevere   = 3
)

// State is one session's full SessionState record (spec §3).
type State struct {
	sync.Mutex `json:"-"`

	SessionID          string          `json:"session_id"`
	CustomerID         string          `json:"customer_id"`
	CustomerName       string          `json:"customer_name,omitempty"`
	InteractionCount   int             `json:"interaction_count"`
	ClarificationCount int             `json:"clarification_count"`
	FrustrationLevel   int             `json:"frustration_level"`
	MessageHistory     []Turn          `json:"message_history"`
	RoutingHistory     []RoutingEntry  `json:"routing_history"`
	CurrentTopic       string          `json:"current_topic,omitempty"`
	LastTopic          string          `json:"last_topic,omitempty"`
	Resolved           bool            `json:"resolved"`
	AwaitingHuman      bool            `json:"awaiting_human"`
	Tickets            []string        `json:"tickets,omitempty"`
	Protocols          []string        `json:"protocols,omitempty"`
	SatisfactionScore  float64         `json:"satisfaction_score,omitempty"`
	ResolutionTime     time.Duration   `json:"resolution_time,omitempty"`
	CustomerContext    CustomerContext `json:"customer_context"`
	ABAssignments      map[string]int  `json:"ab_assignments,omitempty"` // test_id -> version
	Shared             Shared          `json:"shared"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates a fresh session ready for its first turn.
func New(sessionID, customerID string) *State {
	now := time.Now()
	return &State{
		SessionID:     sessionID,
		CustomerID:    customerID,
		ABAssignments: make(map[string]int),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// Snapshot returns a deep copy safe to serialize or hand to a reader
// outside the per-session lock (grounded on the teacher's Session.Clone).
func (s *State) Snapshot() State {
	cp := *s
	cp.Mutex = sync.Mutex{}
	cp.MessageHistory = append([]Turn(nil), s.MessageHistory...)
	cp.RoutingHistory = append([]RoutingEntry(nil), s.RoutingHistory...)
	cp.Tickets = append([]string(nil), s.Tickets...)
	cp.Protocols = append([]string(nil), s.Protocols...)
	cp.ABAssignments = make(map[string]int, len(s.ABAssignments))
	for k, v := range s.ABAssignments {
		cp.ABAssignments[k] = v
	}
	cp.Shared.ResearchFindings = append([]string(nil), s.Shared.ResearchFindings...)
	cp.Shared.TeamDecisions = append([]string(nil), s.Shared.TeamDecisions...)
	cp.Shared.EscalationFlags = append([]string(nil), s.Shared.EscalationFlags...)
	return cp
}
