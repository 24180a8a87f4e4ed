package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pagbank/agent-router/pkg/abtest"
	"github.com/pagbank/agent-router/pkg/config"
	"github.com/pagbank/agent-router/pkg/store"
)

// mapError translates a domain sentinel/typed error into an HTTP status and
// writes the JSON error envelope, adapted from the teacher's
// mapServiceError: known errors get their own status, anything else is
// logged and returned as a 500 so internals never leak to the caller.
func mapError(c *gin.Context, err error) {
	var validationErr *config.ValidationError
	switch {
	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, config.ErrInvalidDocument):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrVersionExists):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrVersionNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrNoActiveVersion):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: err.Error()})
	case errors.Is(err, abtest.ErrTestNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, abtest.ErrDistributionInvalid), errors.Is(err, abtest.ErrDistributionLocked), errors.Is(err, abtest.ErrTestNotRunning):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	default:
		slog.Error("api: unhandled error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}
