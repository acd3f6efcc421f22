package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cryptoguide/internal/session"
	"cryptoguide/logger"
)

const sessionCookie = "session_id"

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	SessionID uuid.UUID `json:"session_id"`
	Reply     string    `json:"reply"`
	Turns     int       `json:"turns"`
}

// sessionFor returns the caller's session, creating one when needed. The
// cookie is re-issued on every call so its expiry slides with activity.
func (s *Server) sessionFor(c *gin.Context) *session.Session {
	var id uuid.UUID
	if raw, err := c.Cookie(sessionCookie); err == nil {
		if parsed, err := uuid.Parse(raw); err == nil {
			id = parsed
		}
	}

	sess, _ := s.sessions.GetOrCreate(id)
	maxAge := int(s.cfg.SessionIdleTimeout / time.Second)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, sess.ID.String(), maxAge, "/", "", false, true)
	return sess
}

func (s *Server) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	sess := s.sessionFor(c)
	start := time.Now()
	reply := sess.Ask(c.Request.Context(), s.answerer, message)
	logger.LogPerformanceEntry(s.entry, "server", "chat", time.Since(start), logger.Fields{
		"session_id": sess.ID.String(),
	})

	c.JSON(http.StatusOK, chatResponse{
		SessionID: sess.ID,
		Reply:     reply.Content,
		Turns:     sess.Len(),
	})
}

func (s *Server) handleHistory(c *gin.Context) {
	sess := s.sessionFor(c)
	c.JSON(http.StatusOK, gin.H{
		"session_id": sess.ID,
		"turns":      sess.Turns(),
	})
}

func (s *Server) handleClearHistory(c *gin.Context) {
	if raw, err := c.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(raw); err == nil {
			s.sessions.Delete(id)
		}
	}
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
	c.Status(http.StatusNoContent)
}
