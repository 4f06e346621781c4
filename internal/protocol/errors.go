package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrorType represents the category of a protocol-layer failure
type ErrorType int

const (
	// ErrTypeParse indicates a sub-message that is neither a ping nor valid JSON
	ErrTypeParse ErrorType = iota
	// ErrTypeUnclassified indicates valid JSON matching no known message shape
	ErrTypeUnclassified
	// ErrTypeSerialization indicates an outbound command could not be encoded
	ErrTypeSerialization
	// ErrTypeTerminated indicates the engine was used after it terminated
	ErrTypeTerminated
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeParse:
		return "Parse Error"
	case ErrTypeUnclassified:
		return "Unclassified Message"
	case ErrTypeSerialization:
		return "Serialization Error"
	case ErrTypeTerminated:
		return "Engine Terminated"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Error is a protocol-layer failure raised by the client itself.
type Error struct {
	Type    ErrorType // Category of error
	Message string    // Human-readable error message
	Raw     string    // Offending sub-message (if any)
	Err     error     // Underlying error (if any)
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *Error) Unwrap() error {
	return e.Err
}

// IsType reports whether err is a protocol Error of type t.
func IsType(err error, t ErrorType) bool {
	var pe *Error
	return errors.As(err, &pe) && pe.Type == t
}

// ServerError is a failure signalled by the server with protocol_error,
// study_error or critical_error. Body is the server's message verbatim.
type ServerError struct {
	Kind MessageKind
	Body json.RawMessage
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server sent %s: %s", e.Kind, string(e.Body))
}

// IsServerError reports whether err carries a server-signalled failure and
// returns it.
func IsServerError(err error) (*ServerError, bool) {
	var se *ServerError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}
