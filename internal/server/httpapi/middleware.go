package httpapi

import (
	"strings"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/tileschb/larang-api/internal/server/auth"
	"github.com/tileschb/larang-api/internal/server/models"
)

const (
	ctxTokenKey  = "tokenRecord"
	ctxBearerKey = "bearerToken"
	bearerPrefix = "Bearer "
)

// requestLogger logs one line per request with the request id attached.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		rlog := s.logger.With(
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"client_ip", c.ClientIP(),
			"request_id", requestid.Get(c),
		)

		start := time.Now()
		rlog.Debug(c.Request.Context(), "request started")
		c.Next()
		rlog.Info(c.Request.Context(), "request completed",
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

// authenticate resolves the bearer token and applies the route gate: the
// token must be live, and only the rotation endpoint accepts refresh tokens.
// The resolved record and the raw plaintext are stored on the context for
// handlers.
func (s *Server) authenticate(routeName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		plain := bearerToken(c)
		if plain == "" {
			s.unauthenticated(c)
			return
		}

		rec, err := s.tokens.Resolve(c.Request.Context(), plain)
		if err != nil {
			s.unauthenticated(c)
			return
		}
		if !auth.AllowsRoute(rec, routeName) {
			s.unauthenticated(c)
			return
		}

		c.Set(ctxTokenKey, rec)
		c.Set(ctxBearerKey, plain)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(h, bearerPrefix))
}

func currentToken(c *gin.Context) *models.TokenRecord {
	v, ok := c.Get(ctxTokenKey)
	if !ok {
		return nil
	}
	rec, _ := v.(*models.TokenRecord)
	return rec
}

func currentBearer(c *gin.Context) string {
	return c.GetString(ctxBearerKey)
}
