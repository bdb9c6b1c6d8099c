package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// clientKeyHeader carries the peer public key the transport layer
// authenticated. Connection-level authentication itself is a transport
// concern outside this server; the header is its hand-off point.
const clientKeyHeader = "X-Client-Key"

const clientKeyContext = "clientKey"

// RequireClientKey rejects wire requests that arrive without an
// authenticated peer key.
func RequireClientKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(clientKeyHeader)
		if key == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing client key"})
			return
		}

		c.Set(clientKeyContext, key)

		c.Next()
	}
}
