// Package errors provides standardized error handling for the verification pipeline.
package errors

import (
	"fmt"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodePayloadEmpty       ErrorCode = "PAYLOAD_EMPTY"
	ErrCodePayloadUnusable    ErrorCode = "PAYLOAD_UNUSABLE"
	ErrCodeDocumentUnreadable ErrorCode = "DOCUMENT_UNREADABLE"
	ErrCodeDocumentTooLarge   ErrorCode = "DOCUMENT_TOO_LARGE"
	ErrCodeDocumentQuarantine ErrorCode = "DOCUMENT_QUARANTINED"

	ErrCodeReferenceFetchFailed  ErrorCode = "REFERENCE_FETCH_FAILED"
	ErrCodeReferenceFetchTimeout ErrorCode = "REFERENCE_FETCH_TIMEOUT"
	ErrCodeReferenceUntrusted    ErrorCode = "REFERENCE_UNTRUSTED"

	ErrCodeReconcileFailed ErrorCode = "RECONCILE_FAILED"

	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeReportWriteFailed        ErrorCode = "REPORT_WRITE_FAILED"
	ErrCodeIndexWriteFailed         ErrorCode = "INDEX_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// WithMetadata attaches extra context to the error and returns it.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

// New creates a StandardError with the given code and message.
func New(code ErrorCode, message string, retryable bool) *StandardError {
	return &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
	}
}

// NewQuarantineError marks a document as blocked by the security gate.
func NewQuarantineError(path string, riskLevel string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDocumentQuarantine,
		Message:   "Document blocked by security quarantine",
		Details:   fmt.Sprintf("%s (risk level %s)", path, riskLevel),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFetchError wraps a failed reference source fetch. Fetch failures are
// retryable because remote portals throttle aggressively.
func NewFetchError(url string, cause error) *StandardError {
	return &StandardError{
		Code:      ErrCodeReferenceFetchFailed,
		Message:   "Failed to fetch reference record",
		Details:   fmt.Sprintf("%s: %v", url, cause),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// IsRetryable reports whether err is a retryable StandardError.
func IsRetryable(err error) bool {
	if se, ok := err.(*StandardError); ok {
		return se.Retryable
	}
	return false
}
