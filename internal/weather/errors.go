package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrSchema marks a persisted store that violates the structural invariants.
	ErrSchema = errors.New("schema error")
	// ErrInput marks a caller error: naive instant, bad coordinates, bad month.
	ErrInput = errors.New("input error")
	// ErrAPI marks a failed provider call.
	ErrAPI = errors.New("api error")
	// ErrUnimplemented marks an adapter that lacks a required operation.
	ErrUnimplemented = errors.New("unimplemented capability")
)

// SchemaError is returned when a persisted store cannot be loaded.
type SchemaError struct {
	Reason string
	Err    error
}

func (e *SchemaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("schema error: %s: %v", e.Reason, e.Err)
	}
	return "schema error: " + e.Reason
}

func (e *SchemaError) Unwrap() error { return e.Err }

func (e *SchemaError) Is(target error) bool { return target == ErrSchema }

// InputError is returned for invalid caller input.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Is(target error) bool { return target == ErrInput }

// APIError carries the provider status and body of a failed fetch.
// Status is 0 when no response was received (transport failure, timeout).
type APIError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%s request failed", e.Provider)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s [%d]", msg, e.Status)
	}
	if e.Body != "" {
		msg = fmt.Sprintf("%s: %s", msg, truncate(e.Body, 200))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *APIError) Unwrap() error { return e.Err }

func (e *APIError) Is(target error) bool { return target == ErrAPI }

// UnimplementedCapabilityError is returned by an adapter operation that the
// adapter does not provide.
type UnimplementedCapabilityError struct {
	Adapter string
	Op      string
}

func (e *UnimplementedCapabilityError) Error() string {
	return fmt.Sprintf("adapter %q does not implement %s", e.Adapter, e.Op)
}

func (e *UnimplementedCapabilityError) Is(target error) bool { return target == ErrUnimplemented }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
