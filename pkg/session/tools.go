package session

import "time"

// AddTurn appends a message to the conversation history and bumps
// interaction_count when the turn is from the customer (spec §3).
func (s *State) AddTurn(role MessageRole, content string) {
	s.MessageHistory = append(s.MessageHistory, Turn{Role: role, Content: content, Timestamp: time.Now()})
	if role == RoleUser {
		s.InteractionCount++
	}
	s.UpdatedAt = time.Now()
}

// RecordRouting appends one Router decision to routing_history.
func (s *State) RecordRouting(specialist, reason string) {
	s.RoutingHistory = append(s.RoutingHistory, RoutingEntry{Specialist: specialist, Reason: reason, Timestamp: time.Now()})
	s.UpdatedAt = time.Now()
}

// IncrementClarification bumps clarification_count, used when the Router
// asks a clarifying question instead of dispatching (spec §4.6).
func (s *State) IncrementClarification() {
	s.ClarificationCount++
	s.UpdatedAt = time.Now()
}

// SetFrustrationLevel clamps level to [0,3] (spec §3).
func (s *State) SetFrustrationLevel(level int) {
	if level < FrustrationNone {
		level = FrustrationNone
	}
	if level > FrustrationSevere {
		level = FrustrationSevere
	}
	s.FrustrationLevel = level
	s.UpdatedAt = time.Now()
}

// SetTopic moves the current topic to last_topic and records the new one.
func (s *State) SetTopic(topic string) {
	if s.CurrentTopic != "" {
		s.LastTopic = s.CurrentTopic
	}
	s.CurrentTopic = topic
	s.UpdatedAt = time.Now()
}

// MarkResolved marks the session resolved and records the total resolution
// time since creation.
func (s *State) MarkResolved() {
	s.Resolved = true
	s.ResolutionTime = time.Since(s.CreatedAt)
	s.UpdatedAt = time.Now()
}

// SetAwaitingHuman flips the awaiting_human flag (spec §4.7 Human Handoff).
func (s *State) SetAwaitingHuman(awaiting bool) {
	s.AwaitingHuman = awaiting
	s.UpdatedAt = time.Now()
}

// AddTicket records a ticket id produced by the Typification Workflow.
func (s *State) AddTicket(ticketID string) {
	s.Tickets = append(s.Tickets, ticketID)
	s.UpdatedAt = time.Now()
}

// AddProtocol records a protocol number (PGB-/TECH-/FRAUDE-, spec §4.7, §8).
func (s *State) AddProtocol(protocol string) {
	s.Protocols = append(s.Protocols, protocol)
	s.UpdatedAt = time.Now()
}

// SetSatisfactionScore records a post-interaction satisfaction rating.
func (s *State) SetSatisfactionScore(score float64) {
	s.SatisfactionScore = score
	s.UpdatedAt = time.Now()
}

// UpdateCustomerInsight updates one field of customer_context (spec §4.5,
// "update_customer_insight"). Unknown fields are ignored rather than erroring,
// since insights are advisory and sourced from free-text inference.
func (s *State) UpdateCustomerInsight(field, value string) {
	switch field {
	case "education_level":
		s.CustomerContext.EducationLevel = value
	case "communication_style":
		s.CustomerContext.CommunicationStyle = value
	case "channel":
		s.CustomerContext.Channel = value
	}
	s.UpdatedAt = time.Now()
}

// RecordTeamDecision appends to shared.team_decisions — used when a
// specialist or the router makes a decision other specialists should see
// (spec §4.5, "record_team_decision").
func (s *State) RecordTeamDecision(decision string) {
	s.Shared.TeamDecisions = append(s.Shared.TeamDecisions, decision)
	s.UpdatedAt = time.Now()
}

// AddResearchFinding appends to shared.research_findings.
func (s *State) AddResearchFinding(finding string) {
	s.Shared.ResearchFindings = append(s.Shared.ResearchFindings, finding)
	s.UpdatedAt = time.Now()
}

// SetEscalationFlag appends a flag to shared.escalation_flags (spec §4.5,
// "set_escalation_flag"), e.g. "fraud_suspected" or "high_value_pix".
func (s *State) SetEscalationFlag(flag string) {
	for _, f := range s.Shared.EscalationFlags {
		if f == flag {
			return
		}
	}
	s.Shared.EscalationFlags = append(s.Shared.EscalationFlags, flag)
	s.UpdatedAt = time.Now()
}

// GetTeamContext returns the shared{} block other specialists have
// contributed to this session (spec §4.5, "get_team_context").
func (s *State) GetTeamContext() Shared {
	return Shared{
		ResearchFindings: append([]string(nil), s.Shared.ResearchFindings...),
		TeamDecisions:    append([]string(nil), s.Shared.TeamDecisions...),
		EscalationFlags:  append([]string(nil), s.Shared.EscalationFlags...),
	}
}

// SetABAssignment records which version a user was assigned for a running
// A/B test, so subsequent turns in the same session stay sticky without a
// second lookup (spec §4.9).
func (s *State) SetABAssignment(testID string, version int) {
	if s.ABAssignments == nil {
		s.ABAssignments = make(map[string]int)
	}
	s.ABAssignments[testID] = version
	s.UpdatedAt = time.Now()
}

// HasEscalationFlag reports whether flag was previously set.
func (s *State) HasEscalationFlag(flag string) bool {
	for _, f := range s.Shared.EscalationFlags {
		if f == flag {
			return true
		}
	}
	return false
}
