package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// handleGetSession implements GET /sessions/{session_id} (spec §6:
// "external consumers read via GET /sessions/{session_id}"). It prefers
// the live in-process state — it reflects the turn in progress — and
// falls back to the durable Memory Store snapshot for a session not
// currently loaded in this process (e.g. after a restart).
func (s *Server) handleGetSession(c *gin.Context) {
	sessionID := c.Param("session_id")

	if st := s.sessions.Get(sessionID); st != nil {
		st.Lock()
		snap := st.Snapshot()
		st.Unlock()
		c.JSON(http.StatusOK, snap)
		return
	}

	snap, err := s.memories.GetSession(c.Request.Context(), sessionID)
	if err != nil {
		mapError(c, err)
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found"})
		return
	}
	c.JSON(http.StatusOK, snap)
}
