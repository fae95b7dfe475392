// Package httpkit is the shared gin plumbing: identity, middleware and the
// JSON error envelope.
package httpkit

import (
	"errors"
	"net/http"

	"zoning_portal_backend/platform/apperr"

	"github.com/gin-gonic/gin"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Details   any    `json:"details,omitempty"`
	RequestID string `json:"requestId,omitempty"`
}

func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Error writes an error envelope that is not backed by an apperr.Error.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: c.Writer.Header().Get(HeaderRequestID),
	})
}

// HandleError writes err as an error envelope and reports whether it did.
// apperr kinds pick the status. Anything else is a 500 with a generic message,
// and the cause is attached to the gin context for RequestLogger.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	resp := ErrorResponse{RequestID: c.Writer.Header().Get(HeaderRequestID)}
	status := http.StatusInternalServerError

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) && domainErr.Kind != apperr.KindInternal && domainErr.Kind != apperr.KindUnknown {
		status = domainErr.HTTPStatus()
		resp.Error = domainErr.Message
		resp.Code = domainErr.Kind.String()
		resp.Details = domainErr.Details
	} else {
		resp.Error = "internal error"
		resp.Code = apperr.KindInternal.String()
		_ = c.Error(err)
	}

	c.JSON(status, resp)
	return true
}
