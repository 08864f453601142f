package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Harsh-BH/jobdeck/internal/domain"
)

// BodySizeLimit caps submission bodies at maxBytes. Declared oversize bodies
// are refused up front; chunked ones fail while the handler reads them.
func BodySizeLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body == nil || c.Request.Body == http.NoBody {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": domain.ErrPayloadTooLarge.Error()})
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
