package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/productenquiry/internal/session"
)

// ContextKeySessionID holds the visitor's session identifier in Gin context.
const ContextKeySessionID = "sessionID"

// SessionMiddleware reads the visitor's session cookie, issuing a new one when it is
// missing or malformed. The cookie is refreshed on every request.
func SessionMiddleware(cookieName string, ttlSeconds int, secure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid, err := c.Cookie(cookieName)
		if err != nil || !session.ValidID(sid) {
			sid = session.NewID()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(cookieName, sid, ttlSeconds, "/", "", secure, true)
		c.Set(ContextKeySessionID, sid)
		c.Next()
	}
}

// SessionID returns the identifier set by SessionMiddleware.
func SessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}
