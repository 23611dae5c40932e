package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/medbook/booking-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, code int, data interface{}) {
	c.JSON(code, Response{
		Status: "success",
		Data:   data,
	})
}

// RespondWithError sends an error response, mapping the internal
// error taxonomy onto HTTP status codes.
func RespondWithError(c *gin.Context, err error) {
	c.JSON(StatusFor(err), Response{
		Status:  "error",
		Message: MessageFor(err),
	})
}

// StatusFor maps an application error to an HTTP status code.
func StatusFor(err error) int {
	var appErr *errors.AppError
	if !stderrors.As(err, &appErr) {
		return http.StatusInternalServerError
	}
	switch appErr.Code {
	case errors.ErrNotFound:
		return http.StatusNotFound
	case errors.ErrValidation:
		return http.StatusBadRequest
	case errors.ErrConflict:
		return http.StatusConflict
	case errors.ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// MessageFor returns the caller-facing message for an error. Internal
// errors are masked behind a generic retry hint.
func MessageFor(err error) string {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) && appErr.Code != errors.ErrInternal {
		return appErr.Message
	}
	return "something went wrong, please try again"
}
