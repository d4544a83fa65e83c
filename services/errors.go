package services

import (
	"fmt"
)

// Error taxonomy for the booking core. Controllers map these onto HTTP
// statuses; services never return raw storage or driver errors.

// ValidationError: bad shape or range in the request.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...interface{}) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError: the referenced resource does not exist.
type NotFoundError struct {
	Resource string
}

func (e *NotFoundError) Error() string { return e.Resource + " not found" }

func notFound(resource string) error {
	return &NotFoundError{Resource: resource}
}

// ConflictError: overlap, duplicate intent or illegal state transition.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

func conflictf(format string, args ...interface{}) error {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// ForbiddenError: ownership, role or cancellation-window violation.
type ForbiddenError struct {
	Msg string
}

func (e *ForbiddenError) Error() string { return e.Msg }

func forbidden(msg string) error {
	return &ForbiddenError{Msg: msg}
}

// ExternalGatewayError: the payment processor failed or timed out. Local
// state is left unchanged so the operation is retry-safe.
type ExternalGatewayError struct {
	Op  string
	Err error
}

func (e *ExternalGatewayError) Error() string {
	return fmt.Sprintf("payment gateway %s failed: %v", e.Op, e.Err)
}

func (e *ExternalGatewayError) Unwrap() error { return e.Err }

// SignatureError: webhook signature verification failed. The webhook is
// rejected so the gateway redelivers it.
type SignatureError struct {
	Msg string
}

func (e *SignatureError) Error() string { return e.Msg }
