package response

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	domainagg "github.com/yungbote/enrollment-backend/internal/domain/aggregates"
	"github.com/yungbote/enrollment-backend/internal/domain/enrollment"
	"github.com/yungbote/enrollment-backend/internal/platform/apierr"
)

// CapacityDetails is attached to capacity_exceeded errors.
type CapacityDetails struct {
	Attempted int `json:"attempted"`
	Current   int `json:"current"`
	Ceiling   int `json:"ceiling"`
	Remaining int `json:"remaining"`
}

// Classify maps a service error onto an HTTP status and wire code.
func Classify(err error) (int, string) {
	if ae, ok := apierr.As(err); ok {
		return ae.Status, ae.Code
	}
	switch code := domainagg.CodeOf(err); code {
	case domainagg.CodeValidation:
		return http.StatusBadRequest, string(code)
	case domainagg.CodeNotFound:
		return http.StatusNotFound, string(code)
	case domainagg.CodeCapacityExceeded, domainagg.CodeDuplicateActive, domainagg.CodeConflict:
		return http.StatusConflict, string(code)
	case domainagg.CodePreconditionFailed:
		return http.StatusPreconditionFailed, string(code)
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, string(code)
	case domainagg.CodeInvariantViolation, domainagg.CodeInternal:
		return http.StatusInternalServerError, string(code)
	}
	switch {
	case enrollment.IsInvalidInput(err):
		return http.StatusBadRequest, string(domainagg.CodeValidation)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, string(domainagg.CodeRetryable)
	default:
		return http.StatusInternalServerError, string(domainagg.CodeInternal)
	}
}

// RespondServiceError writes the error envelope for err. Internal failures are reported
// without their cause; the caller is expected to have logged it.
func RespondServiceError(c *gin.Context, err error) {
	status, code := Classify(err)
	body := APIError{Message: err.Error(), Code: code}
	switch {
	case status == http.StatusServiceUnavailable:
		body.Message = "temporarily unavailable, please retry"
		body.Retryable = true
	case status >= http.StatusInternalServerError:
		body.Message = "internal server error"
	case code == string(domainagg.CodeConflict):
		body.Message = "the enrollment was modified concurrently, please retry"
		body.Retryable = true
	}
	if ce, ok := enrollment.AsCapacityExceeded(err); ok {
		body.Message = ce.Error()
		body.Details = CapacityDetails{
			Attempted: ce.Attempted,
			Current:   ce.Current,
			Ceiling:   ce.Ceiling,
			Remaining: ce.Remaining(),
		}
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", "1")
	}
	if body.Retryable {
		MarkRetryable(c)
	}
	c.JSON(status, ErrorEnvelope{Error: body})
}
