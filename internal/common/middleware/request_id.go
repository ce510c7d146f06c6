package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader is the header name for request ID
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey is the context key for request ID
	RequestIDKey = "request_id"

	maxRequestIDLength = 128
)

// RequestID middleware reuses the caller's X-Request-ID or generates a UUID.
//
// Why:
// - a wallet client retrying a claim can keep one id across attempts
// - ids longer than 128 characters are replaced so they cannot bloat log lines
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" || len(requestID) > maxRequestIDLength {
			requestID = uuid.New().String()
		}

		// Set in context for handlers/services to use
		c.Set(RequestIDKey, requestID)
		// Set in response header for client correlation
		c.Header(RequestIDHeader, requestID)

		c.Next()
	}
}

// GetRequestID extracts request ID from gin context
func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}
