package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/services"
)

// Auth validates the operator's access token and stores the user ID in the
// request context. The token comes from the Authorization header, or from
// a ?token= query parameter for media elements that cannot set headers.
func Auth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		claims, err := authService.ValidateAccessToken(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		userID, err := uuid.Parse(claims.UserID)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token subject"})
			c.Abort()
			return
		}

		c.Set("userID", userID)
		c.Set("accessToken", token)
		c.Next()
	}
}

// ShareSession validates a visitor's gate-session token against the slug
// in the route. Routes using this middleware must carry a :slug param.
func ShareSession(shareService *services.ShareService) gin.HandlerFunc {
	return func(c *gin.Context) {
		slug := c.Param("slug")
		token := c.GetHeader("X-Share-Session")
		if token == "" {
			token = c.Query("session")
		}
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "share session required"})
			c.Abort()
			return
		}

		claims, err := shareService.ValidateShareSession(token, slug)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired share session"})
			c.Abort()
			return
		}

		c.Set("shareSlug", claims.ShareSlug)
		c.Set("listenerEmail", claims.ListenerEmail)
		c.Next()
	}
}

func extractToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

// UserID returns the authenticated operator's ID from the context.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
