package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/siteauth/internal/tokens"
	"github.com/gogotex/siteauth/pkg/logger"
)

// RequestIDHeader carries the per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// RequestLogger logs one line per request with method, path, status and
// latency, tagged with a request id that is echoed in the response.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(RequestIDHeader)
		if id == "" {
			id, _ = tokens.RandomToken(8)
		}
		c.Header(RequestIDHeader, id)
		c.Next()
		// query strings are left out: the OAuth callback carries the code
		logger.Infof("request_id=%s method=%s path=%s status=%d latency_ms=%d",
			id, c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start).Milliseconds())
	}
}
