package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"cryptoguide/internal/session"
	"cryptoguide/logger"
)

const maxMessageSize = 4096

func (s *Server) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin:     s.allowOrigin,
	}
}

// allowOrigin accepts same-host requests and the configured CORS origins.
func (s *Server) allowOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, allowed := range s.cfg.CORS.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	trimmed := strings.TrimPrefix(strings.TrimPrefix(origin, "https://"), "http://")
	return strings.EqualFold(trimmed, r.Host)
}

// handleWebSocket runs one conversation per connection. Every text frame is a
// question; every reply is the assistant turn as JSON.
func (s *Server) handleWebSocket(c *gin.Context) {
	up := s.upgrader()
	conn, err := up.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.entry.WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(maxMessageSize)

	sess := session.New()
	log := s.entry.WithFields(logger.Fields{"session_id": sess.ID.String()})
	log.Debug("websocket session started")

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.WithError(err).Warn("websocket read failed")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		question := strings.TrimSpace(string(data))
		if question == "" {
			continue
		}

		turn := sess.Ask(c.Request.Context(), s.answerer, question)
		if err := conn.WriteJSON(turn); err != nil {
			log.WithError(err).Warn("websocket write failed")
			return
		}
	}
}
