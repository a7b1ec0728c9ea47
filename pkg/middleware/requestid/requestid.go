package requestid

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// Header is the request ID header exchanged with the portal front end.
	Header = "X-Request-ID"

	contextKey = "request_id"
)

// Middleware tags every request with an ID so log lines for one document
// request can be correlated across handler, service and dispatcher output.
// A client-supplied ID is kept as-is; otherwise a fresh one is minted.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(Header)
		if id == "" {
			id = uuid.NewString()
		}

		c.Set(contextKey, id)
		c.Writer.Header().Set(Header, id)

		c.Next()
	}
}

// Value returns the request ID for the current request, or "" outside
// the middleware chain.
func Value(c *gin.Context) string {
	if v, ok := c.Get(contextKey); ok {
		if id, isString := v.(string); isString {
			return id
		}
	}
	return ""
}
