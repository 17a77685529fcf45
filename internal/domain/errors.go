package domain

import "fmt"

// Error types for consistent error handling across the API.

// ErrNotFound indicates a resource was not found.
type ErrNotFound struct {
	Resource string
	ID       string
}

func (e *ErrNotFound) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ErrValidation indicates a validation error (bad input).
type ErrValidation struct {
	Field   string
	Message string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("validation error on '%s': %s", e.Field, e.Message)
}

// ErrUnauthorized indicates invalid credentials or token.
type ErrUnauthorized struct {
	Message string
}

func (e *ErrUnauthorized) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "unauthorized"
}

// ErrConfiguration indicates required configuration is missing.
// Surfaces as a 500: the operator has to fix the deployment.
type ErrConfiguration struct {
	Key string
}

func (e *ErrConfiguration) Error() string {
	return fmt.Sprintf("missing required configuration: %s", e.Key)
}

// ErrUpstreamAuth indicates the partner rejected our credential.
type ErrUpstreamAuth struct {
	Message string
}

func (e *ErrUpstreamAuth) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("partner auth failed: %s", e.Message)
	}
	return "partner auth failed"
}

// ErrExternalService indicates a transport-level failure in an external call.
type ErrExternalService struct {
	Service string
	Err     error
}

func (e *ErrExternalService) Error() string {
	return fmt.Sprintf("external service error [%s]: %v", e.Service, e.Err)
}

func (e *ErrExternalService) Unwrap() error {
	return e.Err
}

// ErrPersistence indicates a store write failure. Callers log it and still
// try to return a meaningful response — the partner-side state already exists.
type ErrPersistence struct {
	Op  string
	Err error
}

func (e *ErrPersistence) Error() string {
	return fmt.Sprintf("persistence error [%s]: %v", e.Op, e.Err)
}

func (e *ErrPersistence) Unwrap() error {
	return e.Err
}

// ErrCircuitOpen indicates the circuit breaker is open.
type ErrCircuitOpen struct {
	Service string
}

func (e *ErrCircuitOpen) Error() string {
	return fmt.Sprintf("circuit breaker open for service: %s", e.Service)
}
