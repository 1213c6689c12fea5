package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/jwalitptl/labops-api/pkg/errors"
)

// ErrorResponse is the error envelope returned to clients.
type ErrorResponse struct {
	Code    int               `json:"code"`
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
	TraceID string            `json:"trace_id,omitempty"`
}

// ErrorHandler maps errors attached by handlers to HTTP responses. The error
// taxonomy carries its own status codes; nothing here inspects messages.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("trace_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")
		}

		appErr := apperrors.From(c.Errors.Last().Err)
		status := appErr.StatusCode()

		message := appErr.Message
		if status == http.StatusInternalServerError {
			message = "internal error"
		}

		c.JSON(status, ErrorResponse{
			Code:    status,
			Error:   appErr.Code.String(),
			Message: message,
			Fields:  appErr.Fields,
			TraceID: traceID,
		})
	}
}
