package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of a transport failure.
// Every transport failure is fatal for the connection.
type ErrorType int

const (
	// ErrTypeConnect indicates the TCP connection could not be established
	ErrTypeConnect ErrorType = iota
	// ErrTypeTLS indicates the TLS handshake failed
	ErrTypeTLS
	// ErrTypeUpgrade indicates the HTTP Upgrade exchange failed
	ErrTypeUpgrade
	// ErrTypeRead indicates a stream read failure
	ErrTypeRead
	// ErrTypeWrite indicates a stream write failure
	ErrTypeWrite
	// ErrTypeFrameDecode indicates a malformed or unsupported inbound frame
	ErrTypeFrameDecode
	// ErrTypeFrameEncode indicates an outbound message could not be framed
	ErrTypeFrameEncode
	// ErrTypeChannelSend indicates the engine side stopped accepting payloads
	ErrTypeChannelSend
	// ErrTypeChannelReceive indicates the engine side stopped producing replies
	ErrTypeChannelReceive
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnect:
		return "Connect Error"
	case ErrTypeTLS:
		return "TLS Error"
	case ErrTypeUpgrade:
		return "Upgrade Error"
	case ErrTypeRead:
		return "Read Error"
	case ErrTypeWrite:
		return "Write Error"
	case ErrTypeFrameDecode:
		return "Frame Decode Error"
	case ErrTypeFrameEncode:
		return "Frame Encode Error"
	case ErrTypeChannelSend:
		return "Channel Send Error"
	case ErrTypeChannelReceive:
		return "Channel Receive Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// Label returns a short lowercase name used as a metrics label.
func (et ErrorType) Label() string {
	switch et {
	case ErrTypeConnect:
		return "connect"
	case ErrTypeTLS:
		return "tls"
	case ErrTypeUpgrade:
		return "upgrade"
	case ErrTypeRead:
		return "read"
	case ErrTypeWrite:
		return "write"
	case ErrTypeFrameDecode:
		return "frame_decode"
	case ErrTypeFrameEncode:
		return "frame_encode"
	case ErrTypeChannelSend:
		return "channel_send"
	case ErrTypeChannelReceive:
		return "channel_receive"
	default:
		return "unknown"
	}
}

// Error is a transport-layer failure.
type Error struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	Addr       string    // Remote address (for context)
	StatusCode int       // HTTP status of a failed Upgrade (if applicable)
	Err        error     // Underlying error (if any)
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

// IsType reports whether err is a transport Error of type t.
func IsType(err error, t ErrorType) bool {
	var te *Error
	return errors.As(err, &te) && te.Type == t
}

// ClassifyNetworkError wraps a dial failure in an ErrTypeConnect error with
// a message naming the specific cause.
func ClassifyNetworkError(err error, addr string) *Error {
	if err == nil {
		return nil
	}

	classified := &Error{
		Type:    ErrTypeConnect,
		Message: "network error occurred",
		Addr:    addr,
		Err:     err,
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case os.IsTimeout(err):
		classified.Message = "connection timed out"
	case errors.As(err, &dnsErr):
		classified.Message = fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name)
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED):
		classified.Message = "connection refused"
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.EHOSTUNREACH):
		classified.Message = "host unreachable"
	case errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ENETUNREACH):
		classified.Message = "network unreachable"
	}
	return classified
}

// GetTroubleshootingHint returns user-facing advice for a transport error.
func GetTroubleshootingHint(err error) string {
	var te *Error
	if !errors.As(err, &te) {
		return ""
	}

	switch te.Type {
	case ErrTypeConnect:
		return strings.Join([]string{
			"Could not reach the data gateway.",
			"Troubleshooting:",
			"  • Check your network connection",
			"  • Verify endpoint.host and endpoint.port in the session profile",
		}, "\n")
	case ErrTypeTLS:
		return strings.Join([]string{
			"The TLS handshake failed.",
			"Troubleshooting:",
			"  • Check that endpoint.tls matches the port (443 is TLS)",
			"  • A proxy may be intercepting the connection",
		}, "\n")
	case ErrTypeUpgrade:
		if te.StatusCode != 0 {
			return fmt.Sprintf("The gateway refused the WebSocket upgrade (HTTP %d). Check endpoint.path and endpoint.origin.", te.StatusCode)
		}
		return "The gateway did not complete the WebSocket upgrade. Check endpoint.path."
	case ErrTypeFrameDecode:
		return "The gateway sent a frame this client does not handle. Capture the session with --capture-dir and run tvstream analyze."
	default:
		return ""
	}
}
