// Package core provides the configuration, errors and shared domain types of PowerPersona.
package core

import (
	"errors"
	"fmt"
)

// Predefined errors for common failure scenarios.
var (
	// ErrInvalidConfig indicates that the provided configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrInvalidInput indicates that the provided input is invalid.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidKind indicates that a document kind is not one of the known kinds.
	ErrInvalidKind = errors.New("invalid document kind")

	// ErrEmbeddingFailed indicates that embedding generation failed.
	ErrEmbeddingFailed = errors.New("embedding generation failed")

	// ErrPersistence indicates that the memory store could not be written to stable storage.
	ErrPersistence = errors.New("persistence failed")

	// ErrGenerationFailed indicates that a generation port failed or timed out.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrUnknownChannel indicates that a channel is not registered on the message board.
	ErrUnknownChannel = errors.New("unknown channel")

	// ErrArchetypeNotFound indicates that an archetype key is missing from the catalogue.
	ErrArchetypeNotFound = errors.New("archetype not found")

	// ErrStopped indicates that the persona runtime has been stopped.
	ErrStopped = errors.New("persona stopped")
)

// PersonaError wraps errors with operation context.
//
// Example:
//
//	err := &PersonaError{
//	    Op:  "AddDocument",
//	    Err: ErrPersistence,
//	}
//	// Error() returns: "powerpersona: AddDocument: persistence failed"
type PersonaError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns a formatted error message.
//
// The format is: "powerpersona: <Op>: <Err>"
func (e *PersonaError) Error() string {
	return fmt.Sprintf("powerpersona: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As see through it.
func (e *PersonaError) Unwrap() error {
	return e.Err
}

// NewPersonaError creates a new PersonaError wrapping the given error.
//
// If err is nil, returns nil:
//
//	if err != nil {
//	    return NewPersonaError("AddDocument", err)
//	}
func NewPersonaError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersonaError{
		Op:  op,
		Err: err,
	}
}

// wrapf joins a sentinel with a detail error so both match errors.Is.
func wrapf(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
