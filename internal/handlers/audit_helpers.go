package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"watchparty-service/internal/middleware"
)

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(middleware.RequestIDKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(middleware.RequestIDKey, requestID)
	return requestID
}

func auditUserID(id string) *string {
	if id == "" {
		return nil
	}
	return &id
}
