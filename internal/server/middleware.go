package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bellybank/bellybank/internal/engines/security"
)

// Context keys set by the middleware chain.
const (
	ctxRequestID = "RequestID"
	ctxUserID    = "UserID"
	ctxPhone     = "Phone"
)

// ErrorHandlerMiddleware catches panics and converts them to 500 responses
// so a handler bug never kills the process.
func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.Error("Panic recovered in request handler",
					zap.Any("error", err),
					zap.String("path", c.Request.URL.Path),
					zap.String("method", c.Request.Method))

				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"detail": "Internal server error",
				})
			}
		}()

		c.Next()
	}
}

// RequestIDMiddleware tags every request with a UUID, echoed in the
// X-Request-ID response header and attached to log lines.
func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set(ctxRequestID, requestID)
		c.Header("X-Request-ID", requestID)
		c.Next()
	}
}

// LoggingMiddleware logs every request with its status and latency.
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		method := c.Request.Method
		path := c.Request.URL.Path

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()
		requestID := c.GetString(ctxRequestID)

		fields := []zap.Field{
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", statusCode),
			zap.Duration("duration", duration),
			zap.String("request_id", requestID),
			zap.String("client_ip", c.ClientIP()),
		}

		switch {
		case statusCode >= 500:
			fields = append(fields, zap.String("error", c.Errors.ByType(gin.ErrorTypePrivate).String()))
			logger.Error("Request failed", fields...)
		case statusCode >= 400:
			logger.Warn("Request returned client error", fields...)
		default:
			logger.Info("Request completed", fields...)
		}
	}
}

// CORSMiddleware allows cross-origin requests from the configured origins.
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := ""
		for _, candidate := range allowedOrigins {
			if candidate == "*" || candidate == origin {
				allowed = candidate
				break
			}
		}

		if allowed != "" {
			if allowed == "*" {
				c.Header("Access-Control-Allow-Origin", "*")
			} else {
				c.Header("Access-Control-Allow-Origin", origin)
			}
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Header("Access-Control-Max-Age", "600")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// AuthMiddleware validates the Bearer token and stores the caller identity
// in the context.
func AuthMiddleware(tokens *security.TokenEngine) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
			return
		}

		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid authorization header"})
			return
		}

		claims, err := tokens.ValidateToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Could not validate credentials"})
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxPhone, claims.Phone)
		c.Next()
	}
}

// currentUserID returns the authenticated user's id from the context.
func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}
