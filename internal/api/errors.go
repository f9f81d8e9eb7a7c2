package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-alert-board/internal/models"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrAuthFailure):
		return http.StatusUnauthorized
	case errors.Is(err, models.ErrDuplicateVote):
		return http.StatusConflict
	case errors.Is(err, models.ErrUnknownUser):
		return http.StatusForbidden
	case errors.Is(err, models.ErrLocationUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrInvalidInput):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err as a single human-readable message. Store and
// unexpected errors are logged and reported generically.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "something went wrong, please try again"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}
