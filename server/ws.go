package server

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"docchat/internal/models"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Same-origin UI only; the cookie scopes the session.
		return true
	},
}

type wsMessage struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

// handleWebSocket streams answers chunk by chunk. The client sends
// {"type":"query","content":...}; the server replies with a sequence of
// "stream" messages followed by one "response" carrying the full answer.
func (s *Server) handleWebSocket(c echo.Context) error {
	session := s.sessions.Get(c)

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return nil
		}
		if msg.Type != "query" {
			s.sendWS(conn, "error", "unknown message type")
			continue
		}

		session.Lock()
		mode := session.Mode()
		apiKey := session.APIKey()

		answer, err := s.engine.QueryStream(c.Request().Context(), msg.Content, mode, apiKey, func(chunk string) {
			s.sendWS(conn, "stream", chunk)
		})
		if err != nil {
			session.Unlock()
			s.sendWS(conn, "error", publicError(err))
			continue
		}

		session.AppendTurn(models.ChatTurn{
			ID:       uuid.NewString(),
			Question: msg.Content,
			Answer:   answer,
			Mode:     mode,
			AskedAt:  time.Now(),
		})
		session.Unlock()

		s.sendWS(conn, "response", answer)
	}
}

func (s *Server) sendWS(conn *websocket.Conn, msgType, content string) {
	if err := conn.WriteJSON(wsMessage{Type: msgType, Content: content}); err != nil {
		s.log.Warn("websocket write failed", zap.Error(err))
	}
}
