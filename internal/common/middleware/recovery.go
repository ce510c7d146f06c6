package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ahwlsqja/coinflip-claim-engine/internal/common/errors"
)

// Recovery turns panics into the standard INTERNAL_ERROR envelope
func Recovery(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		logger.Error("panic recovered",
			zap.String("request_id", GetRequestID(c)),
			zap.String("path", c.Request.URL.Path),
			zap.Any("panic", recovered),
		)
		RespondError(c, errors.Internal("An unexpected error occurred"))
		c.Abort()
	})
}
