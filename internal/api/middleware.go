package api

import (
	"log/slog"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mr1hm/go-alert-board/internal/models"
)

const ctxUserID = "userID"

// RequestLogger logs one line per request through slog.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		}
		if uid := c.GetString(ctxUserID); uid != "" {
			attrs = append(attrs, "user_id", uid)
		}

		switch {
		case c.Writer.Status() >= 500:
			slog.Error("request", attrs...)
		case c.Writer.Status() >= 400:
			slog.Warn("request", attrs...)
		default:
			slog.Info("request", attrs...)
		}
	}
}

// bearerToken reads the token from the Authorization header, falling back
// to the access_token query parameter for websocket clients.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return c.Query("access_token")
}

func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			respondError(c, models.ErrAuthFailure)
			return
		}
		sess, err := h.auth.Session(token)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Set(ctxUserID, sess.UserID)
		c.Next()
	}
}

// optionalAuth identifies the caller when a valid token is present and
// otherwise lets the request through anonymously.
func (h *Handler) optionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if sess, err := h.auth.Session(token); err == nil {
				c.Set(ctxUserID, sess.UserID)
			}
		}
		c.Next()
	}
}
