package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sweeney/dryeye-sensor/internal/status"
)

const writeWait = 5 * time.Second

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket pushes the status JSON on connect and then every
// PushInterval until the client leaves or the server shuts down.
func (s *Server) handleWebSocket(c echo.Context) error {
	ws, err := wsUpgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", zap.Error(err))
		return nil
	}
	defer ws.Close()

	// Drain client frames so close and ping control messages are processed.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(s.PushInterval)
	defer ticker.Stop()

	for {
		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, status.FormatStatusEvent(s.tracker.Snapshot(), "", "")); err != nil {
			return nil
		}

		select {
		case <-ticker.C:
		case <-gone:
			return nil
		case <-s.done:
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down")
			_ = ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			return nil
		}
	}
}
