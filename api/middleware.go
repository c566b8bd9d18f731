package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"cloudbudget/internal/errors"
	"cloudbudget/internal/logging"
	"cloudbudget/internal/security"
)

const userIDKey = "user_id"

// requestLogger logs one line per request.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logging.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// bearerToken extracts the token from the Authorization header.
func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}

// requireAuth validates the bearer token and stores the caller's user id in
// the request context.
func (s *Server) requireAuth(c *gin.Context) {
	token, ok := bearerToken(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
		return
	}

	claims, err := security.ParseToken(s.cfg.Auth.JWTSecret, token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	c.Set(userIDKey, claims.UserID())
	c.Next()
}

// callerID returns the authenticated user id set by requireAuth.
func callerID(c *gin.Context) string {
	v, _ := c.Get(userIDKey)
	id, _ := v.(string)
	return id
}

// respondError maps a typed error onto an HTTP status.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if e, ok := err.(*errors.Error); ok {
		switch e.Type {
		case errors.TypeInput, errors.TypeNumeric:
			status = http.StatusBadRequest
		case errors.TypeAuth:
			status = http.StatusUnauthorized
		case errors.TypeNotFound:
			status = http.StatusNotFound
		case errors.TypeState:
			status = http.StatusConflict
		case errors.TypeConfig:
			status = http.StatusServiceUnavailable
		}
		if status >= http.StatusInternalServerError {
			logging.Error("request failed", zap.String("type", string(e.Type)), zap.Error(err))
		}
		c.JSON(status, gin.H{"error": e.Message, "type": string(e.Type)})
		return
	}

	logging.Error("request failed", zap.Error(err))
	c.JSON(status, gin.H{"error": "internal error"})
}
