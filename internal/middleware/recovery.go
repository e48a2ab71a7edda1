package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/lakshayybhati/liftor-worker/internal/pkg/logger"
	"go.uber.org/zap"
)

// RecoveryConfig holds recovery middleware configuration
type RecoveryConfig struct {
	EnableStackTrace bool
	StackTraceSize   int
}

// DefaultRecoveryConfig returns default recovery configuration
func DefaultRecoveryConfig() *RecoveryConfig {
	return &RecoveryConfig{
		EnableStackTrace: true,
		StackTraceSize:   4096,
	}
}

// RecoveryMiddleware catches panics that escape the handler and answers
// with a generic 500 envelope.
func RecoveryMiddleware(config *RecoveryConfig) gin.HandlerFunc {
	if config == nil {
		config = DefaultRecoveryConfig()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				var stackTrace string
				if config.EnableStackTrace {
					stack := debug.Stack()
					if len(stack) > config.StackTraceSize {
						stack = stack[:config.StackTraceSize]
					}
					stackTrace = string(stack)
				}

				logger.Error("panic recovered",
					zap.Any("panic", err),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.String("stack", stackTrace),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   "UNEXPECTED_ERROR: internal server error",
				})
			}
		}()

		c.Next()
	}
}
