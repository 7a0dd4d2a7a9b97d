package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/suPer8Hu/ai-assistant/internal/common"
)

const (
	RequestIDKey    = "request_id"
	RequestIDHeader = "X-Request-ID"
)

// RequestID reuses an incoming X-Request-ID or mints a ULID.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		rid := c.GetHeader(RequestIDHeader)
		if rid == "" {
			id, err := common.NewULID()
			if err == nil {
				rid = id
			}
		}
		if rid != "" {
			c.Set(RequestIDKey, rid)
			c.Header(RequestIDHeader, rid)
		}
		c.Next()
	}
}
