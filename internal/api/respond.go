package api

import (
	"errors"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/primefragrance/cmms/internal/apperr"
	"github.com/primefragrance/cmms/internal/identity"
	"go.uber.org/zap"
)

const internalMessage = "Terjadi kesalahan internal server"

// fail writes err as a JSON error. Unclassified errors become 500 and are
// logged with the request id.
func (s *server) fail(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"message": "Ukuran request terlalu besar"})
		return
	}
	kind := apperr.KindOf(err)
	msg := apperr.Message(err, internalMessage)
	if kind == apperr.Internal {
		s.log.Error("request failed",
			zap.String("request_id", c.GetString(keyRequestID)),
			zap.String("path", c.Request.URL.Path),
			zap.Error(err))
		if s.Debug {
			msg = err.Error()
		}
	}
	c.JSON(apperr.Status(kind), gin.H{"message": msg})
}

// invalid reports a request body that could not be bound.
func (s *server) invalid(c *gin.Context, err error) {
	s.fail(c, apperr.Wrap(apperr.Validation, err, "Data request tidak valid"))
}

func (s *server) recovered(c *gin.Context, v any) {
	s.log.Error("panic recovered",
		zap.String("request_id", c.GetString(keyRequestID)),
		zap.Any("panic", v))
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": internalMessage})
}

// principal returns the caller set by Authenticate.
func principal(c *gin.Context) identity.Principal {
	p, _ := identity.From(c.Request.Context())
	return p
}

func isMultipart(c *gin.Context) bool {
	return strings.HasPrefix(c.ContentType(), "multipart/form-data")
}

// formFiles returns the uploaded files under field, or nil.
func formFiles(c *gin.Context, field string) ([]*multipart.FileHeader, error) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, err
	}
	return form.File[field], nil
}

// splitList flattens form values that may each hold a comma separated list.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
