package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"timetracker/internal/session"
)

// SessionCookie names the cookie carrying the console session id.
const SessionCookie = "tt_console"

const sessionKey = "session"

// withSession attaches the caller's console session, opening a new one when
// the cookie is missing or stale.
func (s *Server) withSession(c *gin.Context) {
	id, _ := c.Cookie(SessionCookie)
	sess, created := s.sessions.Acquire(id)
	if created || id != sess.ID {
		s.setSessionCookie(c, sess.ID)
	}
	c.Set(sessionKey, sess)
	c.Next()
}

func currentSession(c *gin.Context) *session.Session {
	return c.MustGet(sessionKey).(*session.Session)
}

func (s *Server) setSessionCookie(c *gin.Context, id string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, id, 0, "/api/admin", "", s.secureCookie, true)
}

func (s *Server) clearSessionCookie(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/api/admin", "", s.secureCookie, true)
}
