package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	pingInterval = 25 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	// The stream is read-only; any origin may subscribe.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// events streams live events as JSON text frames. Anonymous clients receive
// public events; authenticated clients also get their nearby notifications.
func (h *Handler) events(c *gin.Context) {
	userID := c.GetString(ctxUserID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	id, ch := h.broadcaster.Subscribe(userID)
	defer h.broadcaster.Unsubscribe(id)

	slog.Info("client subscribed to event stream", "subscriber_id", id, "user_id", userID)

	// read loop ends on client close/error
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			slog.Info("client disconnected from event stream", "subscriber_id", id)
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case e, ok := <-ch:
			if !ok {
				conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(e); err != nil {
				slog.Error("failed to send event to websocket", "error", err, "subscriber_id", id)
				return
			}
		}
	}
}
