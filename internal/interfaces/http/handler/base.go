package handler

import (
	"github.com/erp/eca/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
)

// getRequestID extracts the request ID from the context
func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.HeaderRequestID)
}
