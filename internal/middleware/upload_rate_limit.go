package middleware

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/playdrop/backend/internal/config"
	"github.com/redis/go-redis/v9"
)

// UploadRateLimit limits the number of track uploads per operator within a
// rolling window. Keeps a runaway import script from flooding storage.
func UploadRateLimit(redisClient *redis.Client, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.Background()

		if c.Request.Method != "POST" {
			c.Next()
			return
		}

		if !isUploadEndpoint(c.Request.URL.Path) {
			c.Next()
			return
		}

		// Operator ID comes from the Auth middleware
		userIDInterface, exists := c.Get("userID")
		if !exists {
			c.Next()
			return
		}

		operatorID, ok := userIDInterface.(uuid.UUID)
		if !ok {
			c.Next()
			return
		}

		key := fmt.Sprintf("upload_limit:%s", operatorID.String())

		count, err := redisClient.Get(ctx, key).Int()
		if err == redis.Nil {
			// First upload in the window
			if err := redisClient.Set(ctx, key, 1, cfg.UploadRateLimitWindow).Err(); err != nil {
				// Redis error - don't block the upload
				c.Next()
				return
			}
		} else if err != nil {
			c.Next()
			return
		} else if count >= cfg.UploadRateLimitRequests {
			ttl, _ := redisClient.TTL(ctx, key).Result()
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":         "upload_rate_limit_exceeded",
				"message":       "Too many uploads. Please wait before uploading more tracks.",
				"retry_after":   int(ttl.Seconds()),
				"window":        cfg.UploadRateLimitWindow.String(),
				"max_uploads":   cfg.UploadRateLimitRequests,
				"uploads_count": count,
			})
			c.Abort()
			return
		} else {
			redisClient.Incr(ctx, key)
		}

		c.Next()
	}
}

// isUploadEndpoint checks if the path is an upload endpoint
func isUploadEndpoint(path string) bool {
	if path == "/api/v1/tracks/upload" {
		return true
	}
	// Playlist artwork uploads: /api/v1/playlists/:id/artwork
	if len(path) > len("/api/v1/playlists/") && path[:len("/api/v1/playlists/")] == "/api/v1/playlists/" {
		if len(path) >= len("/artwork") && path[len(path)-len("/artwork"):] == "/artwork" {
			return true
		}
	}
	return false
}
