package errors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/ZanzyTHEbar/errbuilder-go"
	"github.com/gin-gonic/gin"
)

// ErrorCategory classifies a failure for logging and retry decisions
type ErrorCategory string

const (
	CategoryValidation   ErrorCategory = "validation"
	CategoryNotFound     ErrorCategory = "not_found"
	CategoryUnauthorized ErrorCategory = "unauthorized"
	CategoryForbidden    ErrorCategory = "forbidden"
	CategoryConflict     ErrorCategory = "conflict"
	CategoryNetwork      ErrorCategory = "network"
	CategoryTimeout      ErrorCategory = "timeout"
	CategoryRateLimit    ErrorCategory = "rate_limit"
	CategoryInternal     ErrorCategory = "internal"
	CategoryExternalAPI  ErrorCategory = "external_api"
)

// AppError is the service's error currency: an errbuilder error plus
// the category and HTTP status the transport layer needs. Handlers
// attach one via c.Error and the ErrorHandler middleware renders it.
type AppError struct {
	*errbuilder.ErrBuilder
	Category   ErrorCategory `json:"category"`
	HTTPStatus int           `json:"http_status"`
	Timestamp  time.Time     `json:"timestamp"`
	StackTrace string        `json:"stack_trace,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(e.Category)), e.ErrBuilder.Msg)
}

func (e *AppError) Unwrap() error {
	return e.ErrBuilder.Unwrap()
}

// MarshalJSON shapes the response body itself. The embedded builder's
// marshaler must not be promoted: it dereferences the cause, which most
// client errors do not carry.
func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Error      string        `json:"error"`
		Category   ErrorCategory `json:"category"`
		HTTPStatus int           `json:"http_status"`
		Timestamp  time.Time     `json:"timestamp"`
		StackTrace string        `json:"stack_trace,omitempty"`
	}{
		Error:      e.ErrBuilder.Msg,
		Category:   e.Category,
		HTTPStatus: e.HTTPStatus,
		Timestamp:  e.Timestamp,
		StackTrace: e.StackTrace,
	})
}

// NewAppError wraps an errbuilder error with transport context
func NewAppError(builder *errbuilder.ErrBuilder, category ErrorCategory, httpStatus int) *AppError {
	return &AppError{
		ErrBuilder: builder,
		Category:   category,
		HTTPStatus: httpStatus,
		Timestamp:  time.Now(),
	}
}

func newError(code errbuilder.ErrCode, category ErrorCategory, status int, message string, cause error) *AppError {
	builder := errbuilder.New().WithCode(code).WithMsg(message)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return NewAppError(builder, category, status)
}

// NewValidationError rejects malformed or out-of-range input (400).
// An optional detail is attached for the response body.
func NewValidationError(message string, details ...interface{}) *AppError {
	appErr := newError(errbuilder.CodeInvalidArgument, CategoryValidation, http.StatusBadRequest, message, nil)
	if len(details) > 0 {
		errorMap := errbuilder.ErrorMap{}
		errorMap.Set("validation_details", fmt.Errorf("%v", details[0]))
		appErr.ErrBuilder = appErr.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))
	}
	return appErr
}

// NewNotFoundError reports a missing record by type and id (404)
func NewNotFoundError(resource, id string) *AppError {
	return newError(errbuilder.CodeNotFound, CategoryNotFound, http.StatusNotFound,
		fmt.Sprintf("%s not found: %s", resource, id), nil)
}

// NewUnauthorizedError rejects missing or invalid credentials (401)
func NewUnauthorizedError(message string) *AppError {
	return newError(errbuilder.CodeUnauthenticated, CategoryUnauthorized, http.StatusUnauthorized, message, nil)
}

// NewForbiddenError rejects a valid identity lacking the role (403)
func NewForbiddenError(message string) *AppError {
	return newError(errbuilder.CodePermissionDenied, CategoryForbidden, http.StatusForbidden, message, nil)
}

// NewConflictError reports a state conflict, e.g. a duplicate bid or
// an operation against a closed tender (409)
func NewConflictError(message string) *AppError {
	return newError(errbuilder.CodeFailedPrecondition, CategoryConflict, http.StatusConflict, message, nil)
}

// NewNetworkError reports an unreachable upstream (502)
func NewNetworkError(message string, cause error) *AppError {
	return newError(errbuilder.CodeUnavailable, CategoryNetwork, http.StatusBadGateway, message, cause)
}

// NewTimeoutError reports an expired deadline (504)
func NewTimeoutError(message string, cause error) *AppError {
	return newError(errbuilder.CodeDeadlineExceeded, CategoryTimeout, http.StatusGatewayTimeout, message, cause)
}

// NewRateLimitError reports an exhausted quota with a retry hint (429)
func NewRateLimitError(retryAfter string) *AppError {
	appErr := newError(errbuilder.CodeResourceExhausted, CategoryRateLimit, http.StatusTooManyRequests,
		"Rate limit exceeded", nil)
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("retry_after", errors.New(retryAfter))
	appErr.ErrBuilder = appErr.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))
	return appErr
}

// NewExternalAPIError reports a failed upstream API call (502)
func NewExternalAPIError(apiName string, cause error) *AppError {
	appErr := newError(errbuilder.CodeUnavailable, CategoryExternalAPI, http.StatusBadGateway,
		fmt.Sprintf("%s API error", apiName), cause)
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("api_name", errors.New(apiName))
	appErr.ErrBuilder = appErr.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))
	return appErr
}

// NewInternalError hides the underlying failure behind a generic 500;
// the real message only reaches the details map and the log.
func NewInternalError(message string, cause error) *AppError {
	appErr := newError(errbuilder.CodeInternal, CategoryInternal, http.StatusInternalServerError,
		"Internal server error", cause)
	errorMap := errbuilder.ErrorMap{}
	errorMap.Set("internal_details", errors.New(message))
	appErr.ErrBuilder = appErr.ErrBuilder.WithDetails(errbuilder.NewErrDetails(errorMap))

	if gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode {
		appErr.StackTrace = captureStackTrace()
	}
	return appErr
}

func captureStackTrace() string {
	buf := make([]byte, 4096)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ErrorHandler renders the last error a handler attached via c.Error.
// Handlers return early after attaching; this middleware owns the
// response body for every failure path.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}
		appErr := ToAppError(c.Errors.Last().Err)
		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	}
}

// RecoveryHandler converts panics into structured 500 responses
func RecoveryHandler() gin.HandlerFunc {
	return gin.RecoveryWithWriter(nil, func(c *gin.Context, err interface{}) {
		appErr := NewInternalError(
			fmt.Sprintf("Panic recovered: %v", err),
			fmt.Errorf("%v", err),
		)
		appErr.StackTrace = captureStackTrace()

		LogError(c, appErr)
		c.JSON(appErr.HTTPStatus, appErr)
	})
}

// ToAppError coerces any error into an AppError, classifying common
// transport failures by message. Unrecognized errors become 500s.
func ToAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return appErr
	}
	if ebErr, ok := err.(*errbuilder.ErrBuilder); ok {
		return NewAppError(ebErr, CategoryInternal, http.StatusInternalServerError)
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "network is unreachable"):
		return NewNetworkError("Network connection failed", err)
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "deadline exceeded"):
		return NewTimeoutError("Request timeout", err)
	case errors.Is(err, context.Canceled):
		return NewTimeoutError("Request cancelled", err)
	case errors.Is(err, context.DeadlineExceeded):
		return NewTimeoutError("Request deadline exceeded", err)
	}
	return NewInternalError("An unexpected error occurred", err)
}

// LogError writes the error with a level matching its category:
// client mistakes warn, upstream flakiness informs, the rest errors.
func LogError(c *gin.Context, err *AppError) {
	logEntry := slog.With(
		"error_category", err.Category,
		"error_code", err.ErrBuilder.ErrCode(),
		"http_status", err.HTTPStatus,
		"ip", c.ClientIP(),
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"request_id", c.GetHeader("X-Request-ID"),
	)

	msg := err.ErrBuilder.Msg
	cause := err.ErrBuilder.Unwrap()

	switch err.Category {
	case CategoryValidation, CategoryNotFound, CategoryConflict, CategoryRateLimit,
		CategoryUnauthorized, CategoryForbidden:
		logEntry.Warn(msg)
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI:
		if cause != nil {
			logEntry.Info(msg, "cause", cause)
		} else {
			logEntry.Info(msg)
		}
	default:
		if cause != nil {
			logEntry.Error(msg, "cause", cause)
		} else {
			logEntry.Error(msg)
		}
	}

	if err.StackTrace != "" && (gin.Mode() == gin.DebugMode || gin.Mode() == gin.TestMode) {
		logEntry.Debug("stack_trace", "trace", err.StackTrace)
	}
}

// IsRetryableError reports whether a retry could plausibly succeed
func IsRetryableError(err error) bool {
	switch ToAppError(err).Category {
	case CategoryNetwork, CategoryTimeout, CategoryExternalAPI, CategoryRateLimit:
		return true
	default:
		return false
	}
}

// WrapError adds context while preserving errors.Is/As chains
func WrapError(err error, message string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(message, args...), err)
}

// SafeClose closes a resource and logs instead of returning the error,
// for defer sites during shutdown
func SafeClose(closer interface{ Close() error }, resourceName string) {
	if closer == nil {
		return
	}
	if err := closer.Close(); err != nil {
		slog.Warn("Failed to close resource", "resource", resourceName, "error", err)
	}
}
