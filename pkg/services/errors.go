// Package services provides the flow lifecycle operations exposed over the
// API, plus standardized error types for service layer operations.
package services

import (
	"errors"
	"fmt"

	"github.com/relayhq/chatflow/pkg/persistence"
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	// Validation Errors (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")
	ErrInvalidGraph   = errors.New("invalid flow graph")
	ErrFlowNil        = errors.New("flow cannot be nil")

	// Business Logic Conflicts (409 Conflict).
	ErrFlowNotActive         = errors.New("flow is not active")
	ErrFlowAlreadyActive     = errors.New("flow is already active")
	ErrFlowHasActiveSessions = persistence.ErrFlowHasActiveSessions

	// Not found (404).
	ErrFlowNotFound    = persistence.ErrFlowNotFound
	ErrSessionNotFound = persistence.ErrSessionNotFound
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidGraph) ||
		errors.Is(err, ErrFlowNil)
}

// IsConflictError checks if an error is a business logic conflict that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrFlowNotActive) ||
		errors.Is(err, ErrFlowAlreadyActive) ||
		errors.Is(err, ErrFlowHasActiveSessions)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}
