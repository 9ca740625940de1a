package gateway

import (
	"log/slog"
	"net/http"

	"github.com/baoagent/voice-gateway/internal/voicesession"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WSServer upgrades voice clients and binds each socket to its own session.
type WSServer struct {
	manager *voicesession.Manager
	logger  *slog.Logger
}

func NewWSServer(manager *voicesession.Manager, logger *slog.Logger) *WSServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSServer{
		manager: manager,
		logger:  logger.With("component", "ws_server"),
	}
}

// HandleConnection serves one voice client for the lifetime of its socket.
// The read pump runs on the handler goroutine; when it returns the session
// is torn down and unregistered.
func (s *WSServer) HandleConnection(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newWSConnection(ws, s.logger)
	session := s.manager.CreateSession(conn)
	s.logger.Info("voice client connected", "session_id", session.ID(), "remote", c.RealIP())

	go conn.writePump()
	conn.readPump()

	s.manager.RemoveSession(session.ID())
	session.Wait()

	s.logger.Info("voice client disconnected", "session_id", session.ID())
	return nil
}
