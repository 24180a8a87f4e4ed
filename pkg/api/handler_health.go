package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/database"
	"github.com/pagbank/agent-router/pkg/version"
)

func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	dbHealth, err := database.Health(ctx, s.db)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, HealthResponse{
			Status:   "unhealthy",
			Version:  version.Full(),
			Database: dbHealth,
			Error:    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, HealthResponse{
		Status:   "healthy",
		Version:  version.Full(),
		Database: dbHealth,
	})
}
