package rest

import (
	"net/http"
	"strings"
	"time"

	"github.com/dmitrijs2005/lingokeeper/internal/common"
	"github.com/gin-gonic/gin"
)

const userIDKey = "userID"

// maxBodyBytes caps request bodies. Every request DTO is a handful of short
// strings.
const maxBodyBytes = 16 << 10

// limitBody stops reading request bodies after maxBodyBytes; binding then
// fails and the request is rejected as a bad request.
func limitBody() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		}
		c.Next()
	}
}

// requireBearer resolves "Authorization: Bearer <token>" to a user ID and
// stores it in the gin context under userIDKey.
func (s *HTTPServer) requireBearer() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader(common.AuthorizationHeaderName)
		scheme := len(common.BearerScheme)
		if len(header) <= scheme || !strings.EqualFold(header[:scheme], common.BearerScheme) {
			s.writeError(c, common.ErrorUnauthorized)
			return
		}

		userID, err := s.users.Authenticate(c.Request.Context(), strings.TrimSpace(header[scheme:]))
		if err != nil {
			s.writeError(c, common.ErrorUnauthorized)
			return
		}

		c.Set(userIDKey, userID)
		c.Next()
	}
}

// rateLimit counts requests per client IP in bucket. Limiter failures are
// logged and the request is let through.
func (s *HTTPServer) rateLimit(bucket string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.limiter == nil {
			c.Next()
			return
		}

		allowed, err := s.limiter.Allow(c.Request.Context(), bucket+":"+c.ClientIP())
		if err != nil {
			s.logger.Warn(c.Request.Context(), "rate limiter unavailable", "bucket", bucket, "error", err)
			c.Next()
			return
		}
		if !allowed {
			s.metrics.RecordRateLimited(c.FullPath())
			s.writeError(c, common.ErrorTooManyRequests)
			return
		}
		c.Next()
	}
}

// observe records per-route metrics and a debug log line for each request.
func (s *HTTPServer) observe() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		elapsed := time.Since(start)
		s.metrics.RecordRequest(c.Request.Method, route, c.Writer.Status(), elapsed)
		s.logger.Debug(c.Request.Context(), "request",
			"method", c.Request.Method,
			"route", route,
			"status", c.Writer.Status(),
			"duration", elapsed,
		)
	}
}

func currentUserID(c *gin.Context) int64 {
	return c.GetInt64(userIDKey)
}
