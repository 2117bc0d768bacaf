package middleware

import (
	"fmt"
	"net/http"
	"time"

	ecaapp "github.com/erp/eca/internal/application/eca"
	"github.com/erp/eca/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

// BodyLimit rejects requests whose declared Content-Length exceeds maxBytes
// and caps the body reader for the rest. A non-positive maxBytes disables
// the limit.
func BodyLimit(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if maxBytes <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > maxBytes {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, BodyTooLargeResponse(maxBytes))
			return
		}

		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}

// BodyTooLargeResponse is the webhook response for an oversized body
func BodyTooLargeResponse(maxBytes int64) *ecaapp.ECAWebhookResponse {
	err := shared.NewDomainError(shared.CodeValidation,
		fmt.Sprintf("Request body exceeds maximum allowed size of %d bytes", maxBytes)).
		WithDetails(map[string]any{"max_bytes": maxBytes})
	return ecaapp.ErrorResponse("", err, time.Now().UTC())
}
