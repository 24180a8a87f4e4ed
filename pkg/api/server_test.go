package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagbank/agent-router/pkg/abtest"
	"github.com/pagbank/agent-router/pkg/agent"
	"github.com/pagbank/agent-router/pkg/api"
	"github.com/pagbank/agent-router/pkg/llmclient"
	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/protocol"
	"github.com/pagbank/agent-router/pkg/router"
	"github.com/pagbank/agent-router/pkg/session"
	"github.com/pagbank/agent-router/pkg/store"
	"github.com/pagbank/agent-router/test/dbtest"
)

// stubCards is a canned router.SpecialistRunner standing in for the real
// LLM-backed Cards specialist in these HTTP-layer tests.
type stubCards struct {
	reply string
	err   error
}

func (s *stubCards) Run(ctx context.Context, st *session.State, utterance string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

// fakeLLM is a canned llmclient.Client for the /agents/{id}/run bypass path.
type fakeLLM struct{ reply string }

func (f *fakeLLM) Complete(context.Context, llmclient.Request) (string, error) { return f.reply, nil }
func (f *fakeLLM) Stream(context.Context, llmclient.Request, func(string)) error {
	return nil
}

func newTestServer(t *testing.T, cardsReply string) *api.Server {
	t.Helper()
	db := dbtest.Client(t)

	configs := store.New(db)
	abStore := abtest.NewStore(db)
	abManager := abtest.New(abStore)
	sessions := session.NewManager()
	memories := memory.New(db)
	factory := agent.New(configs, abManager)
	protocols := protocol.NewGenerator()

	specialists := map[router.Specialist]router.SpecialistRunner{
		router.SpecialistCards: &stubCards{reply: cardsReply},
	}
	rtr := router.New(specialists, protocols, stubTicketLogger{})

	llm := &fakeLLM{reply: "olá, em que posso ajudar?"}

	return api.NewServer(db, configs, abManager, sessions, memories, factory, rtr, llm, nil, nil)
}

type stubTicketLogger struct{}

func (stubTicketLogger) LogFailureTicket(ctx context.Context, st *session.State, reason string) (string, error) {
	return "TECH-000", nil
}

func validConfigBlob(agentID string, version int) []byte {
	doc := map[string]any{
		"agent": map[string]any{
			"agent_id": agentID,
			"version":  version,
			"name":     "Cards Specialist",
			"role":     "specialist",
		},
		"model": map[string]any{
			"provider":    "openai",
			"id":          "gpt-4o-mini",
			"temperature": 0.2,
			"max_tokens":  512,
		},
		"instructions": "Responda dúvidas sobre cartões.",
		"storage": map[string]any{
			"type":       "postgres",
			"table_name": "cards_sessions",
		},
	}
	raw, _ := json.Marshal(doc)
	return raw
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, "ok")
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp api.HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	require.NotNil(t, resp.Database)
	assert.Equal(t, "healthy", resp.Database.Status)
}

func TestChat_RoutesToCardsAndStreamsSSE(t *testing.T) {
	srv := newTestServer(t, "Claro, posso te ajudar com seu cartão.")

	body := strings.NewReader(`{"user_id":"user-1","message":"quero saber o limite do meu cartão"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	req.Header.Set("Content-Type", "application/json")

	srv.Engine().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	out := w.Body.String()
	assert.Contains(t, out, "event: token")
	assert.Contains(t, out, "event: final")
	assert.Contains(t, out, "Claro,")
}

func TestChat_MissingMessageIsBadRequest(t *testing.T) {
	srv := newTestServer(t, "ok")

	body := strings.NewReader(`{"user_id":"user-1"}`)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", body)
	req.Header.Set("Content-Type", "application/json")

	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestChat_ThenGetSession_ReturnsPersistedSnapshot(t *testing.T) {
	srv := newTestServer(t, "Resposta do especialista de cartões.")

	sessionID := "sess-roundtrip-1"
	chatBody := fmt.Sprintf(`{"session_id":%q,"user_id":"user-2","message":"bloqueio do cartão perdido"}`, sessionID)
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(chatBody))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/sessions/"+sessionID, nil)
	srv.Engine().ServeHTTP(w2, req2)

	require.Equal(t, http.StatusOK, w2.Code)
	var snap session.State
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &snap))
	assert.Equal(t, sessionID, snap.SessionID)
	assert.NotEmpty(t, snap.MessageHistory)
}

func TestGetSession_UnknownReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, "ok")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/sessions/does-not-exist", nil)
	srv.Engine().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAgentVersionLifecycle(t *testing.T) {
	srv := newTestServer(t, "ok")
	agentID := "cards"

	createBody, _ := json.Marshal(api.CreateVersionRequest{
		Version:     1,
		ConfigBlob:  string(validConfigBlob(agentID, 1)),
		Description: "initial",
		Actor:       "alice",
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(createBody)))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created api.VersionResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, 1, created.Version)
	assert.False(t, created.IsActive)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPut, fmt.Sprintf("/agents/%s/versions/%d/activate", agentID, 1), strings.NewReader(`{"actor":"alice"}`))
	req2.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w2, req2)
	require.Equal(t, http.StatusNoContent, w2.Code, w2.Body.String())

	w3 := httptest.NewRecorder()
	req3 := httptest.NewRequest(http.MethodGet, "/agents/"+agentID+"/versions", nil)
	srv.Engine().ServeHTTP(w3, req3)
	require.Equal(t, http.StatusOK, w3.Code)

	var list []api.VersionResponse
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.True(t, list[0].IsActive)
}

func TestCreateVersion_DuplicateIsConflict(t *testing.T) {
	srv := newTestServer(t, "ok")
	agentID := "credit"

	body, _ := json.Marshal(api.CreateVersionRequest{Version: 1, ConfigBlob: string(validConfigBlob(agentID, 1))})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(body)))
	req2.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w2, req2)
	assert.Equal(t, http.StatusConflict, w2.Code)
}

func TestRunAgent_BypassesRouting(t *testing.T) {
	srv := newTestServer(t, "ok")
	agentID := "digital_account"

	body, _ := json.Marshal(api.CreateVersionRequest{Version: 1, ConfigBlob: string(validConfigBlob(agentID, 1))})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	runBody, _ := json.Marshal(api.RunAgentRequest{Version: 1, Input: "qual o saldo da minha conta?"})
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/run", strings.NewReader(string(runBody)))
	req2.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w2, req2)

	require.Equal(t, http.StatusOK, w2.Code, w2.Body.String())
	var resp api.RunResponse
	require.NoError(t, json.Unmarshal(w2.Body.Bytes(), &resp))
	assert.Equal(t, agentID, resp.AgentID)
	assert.Equal(t, 1, resp.Version)
	assert.NotEmpty(t, resp.Output)
}

func TestABTestLifecycle(t *testing.T) {
	srv := newTestServer(t, "ok")
	agentID := "cards"

	for _, v := range []int{1, 2} {
		body, _ := json.Marshal(api.CreateVersionRequest{Version: v, ConfigBlob: string(validConfigBlob(agentID, v))})
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(body)))
		req.Header.Set("Content-Type", "application/json")
		srv.Engine().ServeHTTP(w, req)
		require.Equal(t, http.StatusCreated, w.Code)
	}

	createBody, _ := json.Marshal(api.CreateABTestRequest{
		TestID:         "exp-1",
		AgentID:        agentID,
		ControlVersion: 1,
		TestVersions:   []int{2},
		Distribution:   map[string]int{"1": 50, "2": 50},
		PrimaryMetric:  "success_rate",
		Start:          true,
	})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ab_tests", strings.NewReader(string(createBody)))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created api.ABTestResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "running", created.Status)

	recordBody, _ := json.Marshal(api.RecordOutcomeRequest{UserID: "user-9", Version: 1, Success: true, LatencyMs: 120, Satisfaction: 4})
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/ab_tests/exp-1/record", strings.NewReader(string(recordBody)))
	req2.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w2, req2)
	require.Equal(t, http.StatusNoContent, w2.Code, w2.Body.String())

	w3 := httptest.NewRecorder()
	req3 := httptest.NewRequest(http.MethodGet, "/ab_tests/exp-1/analysis", nil)
	srv.Engine().ServeHTTP(w3, req3)
	require.Equal(t, http.StatusOK, w3.Code, w3.Body.String())

	var analysis api.ABAnalysisResponse
	require.NoError(t, json.Unmarshal(w3.Body.Bytes(), &analysis))
	assert.Equal(t, "exp-1", analysis.TestID)
	assert.Equal(t, 1, analysis.Control.Samples)
}

func TestCreateABTest_InvalidDistributionIsBadRequest(t *testing.T) {
	srv := newTestServer(t, "ok")
	agentID := "insurance"

	body, _ := json.Marshal(api.CreateVersionRequest{Version: 1, ConfigBlob: string(validConfigBlob(agentID, 1))})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/agents/"+agentID+"/versions", strings.NewReader(string(body)))
	req.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code)

	createBody, _ := json.Marshal(api.CreateABTestRequest{
		TestID:         "exp-bad",
		AgentID:        agentID,
		ControlVersion: 1,
		Distribution:   map[string]int{"1": 50},
	})
	w2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodPost, "/ab_tests", strings.NewReader(string(createBody)))
	req2.Header.Set("Content-Type", "application/json")
	srv.Engine().ServeHTTP(w2, req2)

	assert.Equal(t, http.StatusBadRequest, w2.Code)
}
