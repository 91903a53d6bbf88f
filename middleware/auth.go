package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ChatProject/tools/security"
)

// CtxUserKey is where the verified user id lands in the gin context.
const CtxUserKey = "user_id"

// Auth returns a gin middleware that requires a valid bearer token and
// stores its subject in the context. REST is strict here, unlike the
// WebSocket handshake which degrades to an anonymous session.
func Auth(opts security.Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimSpace(c.GetHeader("Authorization"))
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[len("bearer "):])
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		uid, err := security.Verify(opts, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		c.Set(CtxUserKey, uid)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Auth.
func UserID(c *gin.Context) string {
	return c.GetString(CtxUserKey)
}
