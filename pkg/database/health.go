package database

import (
	"context"
	"time"
)

// HealthStatus reports database connectivity and pool statistics.
type HealthStatus struct {
	Status        string        `json:"status"`
	ResponseTime  time.Duration `json:"response_time_ms"`
	TotalConns    int32         `json:"total_conns"`
	IdleConns     int32         `json:"idle_conns"`
	AcquiredConns int32         `json:"acquired_conns"`
	MaxConns      int32         `json:"max_conns"`
}

// Health pings the database and reports pool statistics.
func Health(ctx context.Context, c *Client) (*HealthStatus, error) {
	start := time.Now()

	if err := c.Pool.Ping(ctx); err != nil {
		return &HealthStatus{
			Status:       "unhealthy",
			ResponseTime: time.Since(start),
		}, err
	}

	stat := c.Pool.Stat()
	return &HealthStatus{
		Status:        "healthy",
		ResponseTime:  time.Since(start),
		TotalConns:    stat.TotalConns(),
		IdleConns:     stat.IdleConns(),
		AcquiredConns: stat.AcquiredConns(),
		MaxConns:      stat.MaxConns(),
	}, nil
}
