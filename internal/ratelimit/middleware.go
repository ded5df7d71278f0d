package ratelimit

import (
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware limits each client to limit requests per window. The key is the
// authenticated user id when present, the client IP otherwise. Redis errors
// fail open: the request proceeds and the error is logged.
func Middleware(limiter *Limiter, scope string, limit int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := scope + ":" + clientKey(c)

		result, err := limiter.Allow(c.Request.Context(), key, limit, window)
		if err != nil {
			log.Println("[RATELIMIT] [WARN] check failed, allowing request:", err)
			c.Next()
			return
		}

		if !result.Allowed {
			retryAfter := int(math.Ceil(time.Until(result.ResetAt).Seconds()))
			if retryAfter < 1 {
				retryAfter = 1
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many requests, please try again later",
				"retryAfter": retryAfter,
			})
			return
		}

		c.Next()
	}
}

func clientKey(c *gin.Context) string {
	if userID, ok := c.Get("userId"); ok {
		switch id := userID.(type) {
		case string:
			if id != "" {
				return id
			}
		case interface{ Hex() string }:
			return id.Hex()
		}
	}
	return c.ClientIP()
}
