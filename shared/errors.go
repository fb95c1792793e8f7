package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrorCategory represents different types of errors that can occur
type ErrorCategory string

const (
	// ErrorCategoryProviderUnavailable covers any failed market-data call. Callers treat it as "no data".
	ErrorCategoryProviderUnavailable ErrorCategory = "provider_unavailable"
	ErrorCategoryNotFound            ErrorCategory = "not_found"
	ErrorCategoryWriteBack           ErrorCategory = "write_back"
	ErrorCategoryValidation          ErrorCategory = "validation"
	ErrorCategoryDatabase            ErrorCategory = "database"
	ErrorCategoryConfiguration       ErrorCategory = "configuration"
)

// ErrNotFound is matched by errors.Is for every not_found ServiceError
var ErrNotFound = errors.New("record not found")

// ServiceError represents a standardized error with additional context
type ServiceError struct {
	Category    ErrorCategory `json:"category"`
	Code        string        `json:"code"`
	Message     string        `json:"message"`
	Details     interface{}   `json:"details,omitempty"`
	Timestamp   time.Time     `json:"timestamp"`
	ServiceName string        `json:"service_name"`
	Operation   string        `json:"operation"`
	Retryable   bool          `json:"retryable"`
	Cause       error         `json:"-"`
}

// Error implements the error interface
func (e *ServiceError) Error() string {
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is lets errors.Is(err, ErrNotFound) match not_found errors regardless of cause
func (e *ServiceError) Is(target error) bool {
	return target == ErrNotFound && e.Category == ErrorCategoryNotFound
}

// NewServiceError creates a new service error
func NewServiceError(category ErrorCategory, code, message, serviceName, operation string, retryable bool, cause error) *ServiceError {
	return &ServiceError{
		Category:    category,
		Code:        code,
		Message:     message,
		Timestamp:   time.Now(),
		ServiceName: serviceName,
		Operation:   operation,
		Retryable:   retryable,
		Cause:       cause,
	}
}

// NewNotFoundError reports a record identity that does not resolve
func NewNotFoundError(serviceName, operation, identity string) *ServiceError {
	return NewServiceError(
		ErrorCategoryNotFound,
		"RECORD_NOT_FOUND",
		fmt.Sprintf("record %s not found", identity),
		serviceName,
		operation,
		false,
		nil,
	)
}

// NewProviderError wraps a failed market-data call. Provider errors are never retried here.
func NewProviderError(serviceName, operation, subject string, cause error) *ServiceError {
	message := fmt.Sprintf("provider call failed for %s", subject)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return NewServiceError(ErrorCategoryProviderUnavailable, "PROVIDER_UNAVAILABLE", message, serviceName, operation, false, cause)
}

// WithDetails adds additional details to the error
func (e *ServiceError) WithDetails(details interface{}) *ServiceError {
	e.Details = details
	return e
}

// LogError logs the error with structured fields
func (e *ServiceError) LogError() {
	logrus.WithFields(logrus.Fields{
		"error_category":   e.Category,
		"error_code":       e.Code,
		"error_message":    e.Message,
		"service_name":     e.ServiceName,
		"operation":        e.Operation,
		"retryable":        e.Retryable,
		"timestamp":        e.Timestamp,
		"details":          e.Details,
		"underlying_error": e.Cause,
	}).Error("Service error occurred")
}

// IsNotFound reports whether err is, or wraps, a not_found error
func IsNotFound(err error) bool {
	return err != nil && errors.Is(err, ErrNotFound)
}

// CategoryOf returns the category of the first ServiceError in err's chain
func CategoryOf(err error) (ErrorCategory, bool) {
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Category, true
	}
	return "", false
}

// BuildBatchProcessingErrorSummary creates a comprehensive error summary for batch processing results
func BuildBatchProcessingErrorSummary(successCount, totalErrorCount int, sampleErrors []error) string {
	var summaryBuilder strings.Builder
	summaryBuilder.WriteString(fmt.Sprintf("batch processing completed with %d successes and %d failures", successCount, totalErrorCount))

	// Only a few samples are included to keep log lines bounded
	sampleSize := len(sampleErrors)
	if sampleSize > 3 {
		sampleSize = 3
	}

	for i := 0; i < sampleSize; i++ {
		summaryBuilder.WriteString(fmt.Sprintf("; %s", sampleErrors[i].Error()))
	}

	if totalErrorCount > sampleSize {
		summaryBuilder.WriteString(fmt.Sprintf("; and %d additional errors", totalErrorCount-sampleSize))
	}

	return summaryBuilder.String()
}

// WrapError wraps an existing error with service error context
func WrapError(err error, category ErrorCategory, code, serviceName, operation string, retryable bool) *ServiceError {
	if err == nil {
		return nil
	}

	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr
	}

	return NewServiceError(category, code, err.Error(), serviceName, operation, retryable, err)
}
