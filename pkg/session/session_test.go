package session_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/session"
)

func TestSetFrustrationLevel_Clamps(t *testing.T) {
	s := session.New("sess-1", "cust-1")
	s.SetFrustrationLevel(10)
	assert.Equal(t, session.FrustrationSevere, s.FrustrationLevel)

	s.SetFrustrationLevel(-5)
	assert.Equal(t, session.FrustrationNone, s.FrustrationLevel)
}

func TestAddTurn_CountsOnlyUserMessages(t *testing.T) {
	s := session.New("sess-1", "cust-1")
	s.AddTurn(session.RoleSystem, "prompt")
	s.AddTurn(session.RoleUser, "oi")
	s.AddTurn(session.RoleAssistant, "olá")
	s.AddTurn(session.RoleUser, "quero um cartão")

	assert.Equal(t, 2, s.InteractionCount)
	assert.Len(t, s.MessageHistory, 4)
}

func TestSetEscalationFlag_Deduplicates(t *testing.T) {
	s := session.New("sess-1", "cust-1")
	s.SetEscalationFlag("fraud_suspected")
	s.SetEscalationFlag("fraud_suspected")
	assert.Len(t, s.Shared.EscalationFlags, 1)
	assert.True(t, s.HasEscalationFlag("fraud_suspected"))
}

func TestSetTopic_TracksLastTopic(t *testing.T) {
	s := session.New("sess-1", "cust-1")
	s.SetTopic("cartao")
	s.SetTopic("pix")
	assert.Equal(t, "pix", s.CurrentTopic)
	assert.Equal(t, "cartao", s.LastTopic)
}

func TestSnapshot_IsIndependentCopy(t *testing.T) {
	s := session.New("sess-1", "cust-1")
	s.AddTicket("PGB-1")
	snap := s.Snapshot()

	s.AddTicket("PGB-2")
	assert.Len(t, snap.Tickets, 1, "snapshot must not observe later mutations")
	assert.Len(t, s.Tickets, 2)
}

func TestManager_GetOrCreate_ReturnsSameInstance(t *testing.T) {
	m := session.NewManager()
	a := m.GetOrCreate("sess-1", "cust-1")
	b := m.GetOrCreate("sess-1", "cust-1")
	require.Same(t, a, b)
}

func TestManager_Drop(t *testing.T) {
	m := session.NewManager()
	m.GetOrCreate("sess-1", "cust-1")
	m.Drop("sess-1")
	assert.Nil(t, m.Get("sess-1"))
}

func TestManager_EvictIdle_DropsOnlySessionsPastMaxIdle(t *testing.T) {
	m := session.NewManager()
	now := time.Now()

	stale := m.GetOrCreate("stale", "cust-1")
	stale.UpdatedAt = now.Add(-2 * time.Hour)

	fresh := m.GetOrCreate("fresh", "cust-2")
	fresh.UpdatedAt = now.Add(-time.Minute)

	evicted := m.EvictIdle(time.Hour, now)

	assert.Equal(t, 1, evicted)
	assert.Nil(t, m.Get("stale"))
	assert.NotNil(t, m.Get("fresh"))
}
