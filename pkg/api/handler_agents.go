package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/store"
)

func renderVersion(v store.Version) VersionResponse {
	return VersionResponse{
		AgentID:      v.AgentID,
		Version:      v.Version,
		IsActive:     v.IsActive,
		IsDeprecated: v.IsDeprecated,
		Description:  v.Description,
		CreatedBy:    v.CreatedBy,
		CreatedAt:    v.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// handleCreateVersion implements POST /agents/{agent_id}/versions (spec §6).
func (s *Server) handleCreateVersion(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req CreateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	doc, err := config.Parse([]byte(req.ConfigBlob))
	if err != nil {
		mapError(c, err)
		return
	}
	if err := config.Validate(doc); err != nil {
		mapError(c, err)
		return
	}

	v := store.Version{
		AgentID:     agentID,
		Version:     req.Version,
		ConfigBlob:  []byte(req.ConfigBlob),
		CreatedBy:   req.Actor,
		Description: req.Description,
	}
	if err := s.configs.CreateVersion(c.Request.Context(), v, req.Actor); err != nil {
		mapError(c, err)
		return
	}

	stored, err := s.configs.GetVersion(c.Request.Context(), agentID, req.Version)
	if err != nil {
		mapError(c, err)
		return
	}
	c.JSON(http.StatusCreated, renderVersion(*stored))
}

// handleListVersions implements GET /agents/{agent_id}/versions.
func (s *Server) handleListVersions(c *gin.Context) {
	agentID := c.Param("agent_id")

	versions, err := s.configs.ListVersions(c.Request.Context(), agentID)
	if err != nil {
		mapError(c, err)
		return
	}

	out := make([]VersionResponse, len(versions))
	for i, v := range versions {
		out[i] = renderVersion(v)
	}
	c.JSON(http.StatusOK, out)
}

// handleDeprecateVersion implements PUT /agents/{agent_id}/versions: it
// deprecates the version named in the body (spec §6 groups POST/GET/PUT
// under one path without a second verb for deprecation).
func (s *Server) handleDeprecateVersion(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req DeprecateVersionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	if err := s.configs.DeprecateVersion(c.Request.Context(), agentID, req.Version, req.Reason, req.Actor); err != nil {
		mapError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleActivateVersion implements PUT /agents/{agent_id}/versions/{version}/activate.
func (s *Server) handleActivateVersion(c *gin.Context) {
	agentID := c.Param("agent_id")
	version, err := strconv.Atoi(c.Param("version"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "version must be an integer"})
		return
	}

	var req ActivateVersionRequest
	_ = c.ShouldBindJSON(&req) // body is optional; reason/actor default to ""

	if err := s.configs.ActivateVersion(c.Request.Context(), agentID, version, req.Reason, req.Actor); err != nil {
		mapError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleRunAgent implements POST /agents/{agent_id}/run (spec §6: "bypasses
// routing"): it builds a Handle directly through the Agent Factory and runs
// it, skipping the Router entirely.
func (s *Server) handleRunAgent(c *gin.Context) {
	agentID := c.Param("agent_id")

	var req RunAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	handle, err := s.factory.CreateAgent(c.Request.Context(), agentID, req.Version, "", req.UserID)
	if err != nil {
		mapError(c, err)
		return
	}

	output, err := handle.Run(c.Request.Context(), s.runner, req.Input)
	if err != nil {
		mapError(c, err)
		return
	}

	c.JSON(http.StatusOK, RunResponse{AgentID: agentID, Version: handle.Version(), Output: output})
}
