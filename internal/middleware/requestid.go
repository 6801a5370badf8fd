package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
)

// RequestID reuses a caller supplied id or mints one.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}
		c.Set(requestIDKey, id)
		c.Header(RequestIDHeader, id)
		c.Next()
	}
}

func RequestIDFrom(c *gin.Context) string {
	return c.GetString(requestIDKey)
}

// Logger is gin's access log with the request id in front.
func Logger() gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(p gin.LogFormatterParams) string {
		id, _ := p.Keys[requestIDKey].(string)
		return fmt.Sprintf("[%s] %s %s %s %d %s\n",
			id,
			p.TimeStamp.Format(time.RFC3339),
			p.Method,
			p.Path,
			p.StatusCode,
			p.Latency,
		)
	})
}
