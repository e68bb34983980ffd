package httpserver

import (
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ringtap/ringtap/internal/limiter"
)

const (
	ctxUserID = "userID"
	ctxRole   = "role"
)

// RequestLogger logs one structured line per request, metadata only.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("http",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("dur", time.Since(start)),
			zap.String("ip", c.ClientIP()),
		)
	}
}

// Recovery converts panics into a 500 without killing the process.
func Recovery(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic",
					zap.Any("reason", r),
					zap.ByteString("stack", debug.Stack()),
					zap.String("path", c.Request.URL.Path),
				)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal"})
			}
		}()
		c.Next()
	}
}

// RequireAuth validates the bearer token and stores subject and role in the
// request context.
func RequireAuth(v *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		userID, role, err := v.Verify(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxRole, role)
		c.Next()
	}
}

// ClaimLimit throttles claim endpoints per client IP. Conflicting attempts
// count as failures; limiter storage errors fail open.
func ClaimLimit(lim limiter.Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ipHash := limiter.HashIP(c.ClientIP())

		allowed, retryAfter, err := lim.Allow(c.Request.Context(), ipHash)
		if err != nil {
			log.Warn("claim limiter allow failed", zap.Error(err))
			c.Next()
			return
		}
		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "too many claim attempts",
				"retry_after": fmt.Sprintf("%.0fs", retryAfter.Seconds()),
			})
			return
		}

		c.Next()

		ctx := c.Request.Context()
		switch {
		case c.Writer.Status() == http.StatusConflict:
			if _, _, err := lim.Failure(ctx, ipHash); err != nil {
				log.Warn("claim limiter failure failed", zap.Error(err))
			}
		case c.Writer.Status() < http.StatusMultipleChoices:
			if err := lim.Success(ctx, ipHash); err != nil {
				log.Warn("claim limiter success failed", zap.Error(err))
			}
		}
	}
}

func bearerToken(c *gin.Context) (string, bool) {
	header := strings.TrimSpace(c.GetHeader("Authorization"))
	if len(header) >= 7 && strings.EqualFold(header[:7], "bearer ") {
		if t := strings.TrimSpace(header[7:]); t != "" {
			return t, true
		}
	}
	return "", false
}
