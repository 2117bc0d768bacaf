// Package middleware provides the HTTP middleware of the ECA webhook server.
package middleware

import (
	"crypto/rand"
	"encoding/hex"
	"time"

	"github.com/erp/eca/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
)

// Gin context keys shared between handlers and middleware
const (
	// RequestIDKey holds the request id, set by RequestID
	RequestIDKey = logger.RequestIDContextKey
	// OrganizationIDKey holds the organization of the processed event, set by the webhook handler
	OrganizationIDKey = "organization_id"
	// ActionKey holds the action of the processed event, set by the webhook handler
	ActionKey = "eca_action"
	// ErrorCodeKey holds the error code of a failed event, set by the webhook handler
	ErrorCodeKey = "eca_error_code"
)

// HeaderRequestID carries the request id in both directions
const HeaderRequestID = "X-Request-ID"

// MaxRequestIDLength bounds client supplied request ids
const MaxRequestIDLength = 128

// RequestID assigns a request id to each request. A client supplied
// X-Request-ID is kept when it is not longer than MaxRequestIDLength.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" || len(requestID) > MaxRequestIDLength {
			requestID = generateRequestID()
		}
		c.Set(RequestIDKey, requestID)
		c.Writer.Header().Set(HeaderRequestID, requestID)
		c.Next()
	}
}

// generateRequestID returns 16 random bytes hex encoded
func generateRequestID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return time.Now().UTC().Format("20060102150405.000000000")
	}
	return hex.EncodeToString(bytes)
}

// Secure sets the response headers expected of a JSON API
func Secure() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")
		c.Next()
	}
}

func contextString(c *gin.Context, key string) string {
	if v, ok := c.Get(key); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
