package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/auth"
	"github.com/primefragrance/cmms/internal/identity"
	"go.uber.org/zap"
)

const (
	keyRequestID = "request_id"
	keyUsername  = "username"
)

// Logger logs one line per request: 5xx at Error, 4xx at Warn, else Info.
func Logger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.String("ip", c.ClientIP()),
			zap.Duration("latency", time.Since(start)),
			zap.String("request_id", c.GetString(keyRequestID)),
		}
		if user := c.GetString(keyUsername); user != "" {
			fields = append(fields, zap.String("user", user))
		}

		switch {
		case status >= 500:
			log.Error("server error", fields...)
		case status >= 400:
			log.Warn("client error", fields...)
		default:
			log.Info("request", fields...)
		}
	}
}

// RequestID propagates X-Request-ID, minting one when absent.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(keyRequestID, id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// BodyLimit caps the request body at n bytes.
func BodyLimit(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

// bearerToken extracts the token from an "Authorization: Bearer" header.
func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// Authenticate resolves the bearer token into the request principal.
func Authenticate(svc *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			abort(c, apperr.New(apperr.Unauthenticated, "Silakan login terlebih dahulu"))
			return
		}
		p, err := svc.Authenticate(c.Request.Context(), token)
		if err != nil {
			abort(c, err)
			return
		}
		c.Set(keyUsername, p.Username)
		c.Request = c.Request.WithContext(identity.With(c.Request.Context(), p))
		c.Next()
	}
}

// RequireRole rejects principals holding none of roles.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := identity.From(c.Request.Context())
		if !ok {
			abort(c, apperr.New(apperr.Unauthenticated, "Silakan login terlebih dahulu"))
			return
		}
		if !p.HasRole(roles...) {
			abort(c, apperr.New(apperr.Forbidden, "Akses ditolak. Role %s tidak diizinkan.", p.Role))
			return
		}
		c.Next()
	}
}

func abort(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	c.AbortWithStatusJSON(apperr.Status(kind), gin.H{"message": apperr.Message(err, "Terjadi kesalahan internal server")})
}
