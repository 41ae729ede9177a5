package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jonesrussell/north-cloud/list-pages/internal/domain"
	"github.com/jonesrussell/north-cloud/list-pages/internal/listpage"
	"github.com/jonesrussell/north-cloud/list-pages/internal/logger"
)

// Error codes.
const (
	CodeInvalidRequest          = "INVALID_REQUEST"
	CodeInvalidValue            = "INVALID_VALUE"
	CodeConfigurationIncomplete = "CONFIGURATION_INCOMPLETE"
	CodeFilterNotAvailable      = "FILTER_NOT_AVAILABLE"
	CodeSourceUnavailable       = "SOURCE_UNAVAILABLE"
	CodeNotFound                = "NOT_FOUND"
	CodeInternal                = "INTERNAL_ERROR"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error     string    `json:"error"`
	Code      string    `json:"code"`
	Timestamp time.Time `json:"timestamp"`
}

// statusFor maps the recoverable domain errors to HTTP statuses.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConfigurationIncomplete):
		return http.StatusUnprocessableEntity, CodeConfigurationIncomplete
	case errors.Is(err, listpage.ErrFilterNotAvailable), errors.Is(err, domain.ErrFieldUnresolved):
		return http.StatusUnprocessableEntity, CodeFilterNotAvailable
	case errors.Is(err, domain.ErrInvalidSubmittedValue):
		return http.StatusBadRequest, CodeInvalidValue
	case errors.Is(err, domain.ErrConfigurationNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, domain.ErrSourceUnavailable):
		return http.StatusNotFound, CodeSourceUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}

func (h *Handler) respondError(c *gin.Context, msg string, err error) {
	status, code := statusFor(err)
	log := logger.FromContext(c.Request.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, logger.Error(err), logger.String("path", c.FullPath()))
		_ = c.Error(err)
	} else {
		log.Debug(msg, logger.Error(err), logger.String("code", code))
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, Timestamp: h.now()})
}

func (h *Handler) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: msg, Code: CodeInvalidRequest, Timestamp: h.now()})
}
