package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pagbank/agent-router/pkg/memory"
	"github.com/pagbank/agent-router/pkg/session"
)

// typificationTimeout bounds the best-effort classification run at session
// closure; it never blocks the response the customer is waiting on, since
// it only starts after the reply has already been streamed.
const typificationTimeout = 30 * time.Second

// handleChat implements POST /chat (spec §4.10): it holds the session
// mutex for the span of one turn, runs it through the Router, then streams
// the assistant's reply as SSE "token" events followed by a final "final"
// event carrying the envelope.
//
// Base.respond (pkg/specialist) only ever calls llmclient.Client.Complete,
// never Stream — a turn's assistant text is already fully formed by the
// time HandleTurn returns. Token-level streaming is therefore simulated by
// chunking that finished text word by word rather than plumbed through the
// specialist layer; see DESIGN.md for why this is the pragmatic reading of
// "a stream of assistant tokens" here.
func (s *Server) handleChat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	// A session evicted from the in-process Manager is reinstalled from its
	// durable snapshot before the turn runs.
	if s.sessions.Get(sessionID) == nil {
		if stored, err := s.memories.GetSession(c.Request.Context(), sessionID); err == nil && stored != nil {
			s.sessions.Put(stored)
		}
	}
	st := s.sessions.GetOrCreate(sessionID, req.UserID)

	ctx, cancel := context.WithTimeout(c.Request.Context(), hardTimeout)
	defer cancel()

	st.Lock()
	result, turnErr := s.rtr.HandleTurn(ctx, st, req.Message)
	var snapshot session.State
	if turnErr == nil {
		snapshot = st.Snapshot()
	}
	st.Unlock()

	if turnErr != nil {
		mapError(c, turnErr)
		return
	}

	if err := s.memories.PutSession(context.WithoutCancel(c.Request.Context()), snapshot); err != nil {
		slog.Error("api: persist session failed", "error", err, "session_id", sessionID)
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)

	streamTokens(c, result.AssistantText)

	trail := make([]string, len(snapshot.RoutingHistory))
	for i, entry := range snapshot.RoutingHistory {
		trail[i] = entry.Specialist
	}

	versionUsed := 0
	if result.Specialist != "" {
		if active, err := s.configs.GetActive(context.WithoutCancel(c.Request.Context()), string(result.Specialist)); err == nil {
			versionUsed = active.Version
		}
	}

	c.SSEvent("final", ChatResponse{
		SessionID:    sessionID,
		VersionUsed:  versionUsed,
		RoutingTrail: trail,
		TicketID:     result.TicketID,
		Escalation:   result.Escalation,
		FraudAlert:   result.FraudDetected,
	})
	c.Writer.Flush()

	if snapshot.Resolved {
		s.typify(context.WithoutCancel(c.Request.Context()), snapshot, string(result.Specialist))
	}
}

// typify runs the Typification Workflow at session closure (spec §4.8: "the
// sequential 5-level classifier invoked at session closure"). It is
// best-effort and runs after the response has already been flushed, so a
// slow or failed classification never delays the customer's reply.
func (s *Server) typify(parent context.Context, snapshot session.State, assignedTeam string) {
	if s.typification == nil || s.classifier == nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, typificationTimeout)
	defer cancel()

	if assignedTeam == "" {
		assignedTeam = "Atendimento Geral"
	}

	if _, err := s.typification.Run(ctx, &snapshot, s.classifier, memory.Summarize(&snapshot), assignedTeam); err != nil {
		slog.Error("api: typification failed", "error", err, "session_id", snapshot.SessionID)
	}
}

// streamTokens writes text as a sequence of SSE "token" events, one word
// (plus its trailing space) per event.
func streamTokens(c *gin.Context, text string) {
	words := strings.SplitAfter(text, " ")
	for _, w := range words {
		if w == "" {
			continue
		}
		c.SSEvent("token", TokenEvent{Token: w})
		c.Writer.Flush()
	}
}
