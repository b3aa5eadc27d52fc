package generate

import (
	"fmt"
	"infragen/internal/models"
	"net/http"
)

// ServiceError represents errors from the generation service with HTTP context.
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for the gate's rejection states

func NewBadRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeBadRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewQuotaExceededError(limit int) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeQuotaExceeded,
		Message:    fmt.Sprintf("message limit reached: maximum %d messages per 24 hours", limit),
		StatusCode: http.StatusTooManyRequests,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}
