package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/abtest"
)

func renderArmStats(a abtest.ArmStats) ArmStatsResponse {
	return ArmStatsResponse{
		Version:         a.Version,
		Samples:         a.Samples,
		SuccessRate:     a.SuccessRate,
		AvgLatencyMs:    a.AvgLatencyMs,
		AvgSatisfaction: a.AvgSatisfaction,
		EscalationRate:  a.EscalationRate,
	}
}

// handleCreateABTest implements POST /ab_tests (spec §6). Distribution
// arrives as a JSON object (string keys, JSON has no integer-keyed maps) and
// is converted to abtest.Test's map[int]int here.
func (s *Server) handleCreateABTest(c *gin.Context) {
	var req CreateABTestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	dist := make(map[int]int, len(req.Distribution))
	for k, w := range req.Distribution {
		version, err := strconv.Atoi(k)
		if err != nil {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "distribution keys must be version numbers"})
			return
		}
		dist[version] = w
	}

	test := abtest.Test{
		TestID:         req.TestID,
		AgentID:        req.AgentID,
		ControlVersion: req.ControlVersion,
		TestVersions:   req.TestVersions,
		Distribution:   dist,
		Status:         abtest.StatusDraft,
		MinSample:      req.MinSample,
		PrimaryMetric:  req.PrimaryMetric,
	}

	if err := s.abtests.CreateTest(c.Request.Context(), test); err != nil {
		mapError(c, err)
		return
	}

	if req.Start {
		if err := s.abtests.StartTest(c.Request.Context(), req.TestID); err != nil {
			mapError(c, err)
			return
		}
		test.Status = abtest.StatusRunning
	}

	c.JSON(http.StatusCreated, ABTestResponse{
		TestID:         test.TestID,
		AgentID:        test.AgentID,
		ControlVersion: test.ControlVersion,
		TestVersions:   test.TestVersions,
		Distribution:   dist,
		Status:         string(test.Status),
	})
}

// handleStartABTest implements POST /ab_tests/{id}/start, part of the A/B
// lifecycle spec §6 groups under "A/B lifecycle" alongside create/record/analysis.
func (s *Server) handleStartABTest(c *gin.Context) {
	if err := s.abtests.StartTest(c.Request.Context(), c.Param("id")); err != nil {
		mapError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleStopABTest implements POST /ab_tests/{id}/stop.
func (s *Server) handleStopABTest(c *gin.Context) {
	if err := s.abtests.StopTest(c.Request.Context(), c.Param("id")); err != nil {
		mapError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleRecordOutcome implements POST /ab_tests/{id}/record.
func (s *Server) handleRecordOutcome(c *gin.Context) {
	testID := c.Param("id")

	var req RecordOutcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	outcome := abtest.Outcome{
		Success:      req.Success,
		LatencyMs:    req.LatencyMs,
		Satisfaction: req.Satisfaction,
		Escalated:    req.Escalated,
	}
	if err := s.abtests.Record(c.Request.Context(), testID, req.UserID, req.Version, outcome); err != nil {
		mapError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// handleABAnalysis implements GET /ab_tests/{id}/analysis.
func (s *Server) handleABAnalysis(c *gin.Context) {
	analysis, err := s.abtests.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		mapError(c, err)
		return
	}

	challengers := make([]ChallengerResultResponse, len(analysis.Challengers))
	for i, ch := range analysis.Challengers {
		challengers[i] = ChallengerResultResponse{
			Arm:              renderArmStats(ch.Arm),
			ImprovementRatio: ch.ImprovementRatio,
			Significant:      ch.Significant,
			Recommendation:   ch.Recommendation,
		}
	}

	c.JSON(http.StatusOK, ABAnalysisResponse{
		TestID:        analysis.TestID,
		PrimaryMetric: analysis.PrimaryMetric,
		Control:       renderArmStats(analysis.Control),
		Challengers:   challengers,
	})
}
