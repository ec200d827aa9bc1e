// Package errors provides error handling for the spamd client
package errors

import "fmt"

// SpamdError represents the different types of errors that can occur
type SpamdError struct {
	Type    ErrorType
	Message string
	Cause   error
	// Command is the wire name of the command in flight, if any
	Command string
	// Addr is the daemon address the exchange targeted, if known
	Addr string
	// Code is the daemon status code for DaemonError
	Code int
}

// ErrorType represents the type of error
type ErrorType int

const (
	ConfigError ErrorType = iota
	InvalidRequest
	InvalidHeaderName
	InvalidHeaderValue
	EncodeError
	ConnectionError
	WriteError
	ReadError
	Timeout
	UnexpectedEOF
	MalformedStatusLine
	MalformedHeader
	DaemonError
	PoolExhausted
	UnknownError
)

// Error implements the error interface
func (e *SpamdError) Error() string {
	msg := e.Message
	switch e.Type {
	case ConfigError:
		msg = fmt.Sprintf("Configuration error: %s", e.Message)
	case InvalidRequest:
		msg = fmt.Sprintf("Invalid request: %s", e.Message)
	case InvalidHeaderName:
		msg = fmt.Sprintf("Invalid header name: %s", e.Message)
	case InvalidHeaderValue:
		msg = fmt.Sprintf("Invalid header value: %s", e.Message)
	case EncodeError:
		msg = fmt.Sprintf("Encode error: %s", e.Message)
	case ConnectionError:
		msg = fmt.Sprintf("Connection failed: %s", e.Message)
	case WriteError:
		msg = fmt.Sprintf("Write failed: %s", e.Message)
	case ReadError:
		msg = fmt.Sprintf("Read failed: %s", e.Message)
	case Timeout:
		msg = fmt.Sprintf("Operation timed out: %s", e.Message)
	case UnexpectedEOF:
		msg = fmt.Sprintf("Peer closed before response completed: %s", e.Message)
	case MalformedStatusLine:
		msg = fmt.Sprintf("Malformed status line: %s", e.Message)
	case MalformedHeader:
		msg = fmt.Sprintf("Malformed header: %s", e.Message)
	case DaemonError:
		msg = fmt.Sprintf("Daemon rejected request (code %d): %s", e.Code, e.Message)
	case PoolExhausted:
		msg = fmt.Sprintf("Connection pool exhausted: %s", e.Message)
	case UnknownError:
		msg = "Unknown error"
	}
	if e.Command != "" {
		msg = fmt.Sprintf("%s [command=%s]", msg, e.Command)
	}
	if e.Addr != "" {
		msg = fmt.Sprintf("%s [addr=%s]", msg, e.Addr)
	}
	return msg
}

// Unwrap returns the underlying cause error
func (e *SpamdError) Unwrap() error {
	return e.Cause
}

// TypeOf returns the ErrorType of err, or UnknownError if err is not a
// *SpamdError.
func TypeOf(err error) ErrorType {
	if se, ok := err.(*SpamdError); ok {
		return se.Type
	}
	return UnknownError
}

// WithContext annotates err with the command and address of the exchange it
// occurred in. Non-SpamdError values are returned unchanged.
func WithContext(err error, command, addr string) error {
	if se, ok := err.(*SpamdError); ok {
		if se.Command == "" {
			se.Command = command
		}
		if se.Addr == "" {
			se.Addr = addr
		}
	}
	return err
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *SpamdError {
	return &SpamdError{
		Type:    ConfigError,
		Message: message,
	}
}

// NewInvalidRequestError creates a new invalid request error
func NewInvalidRequestError(message string) *SpamdError {
	return &SpamdError{
		Type:    InvalidRequest,
		Message: message,
	}
}

// NewInvalidHeaderNameError creates a new invalid header name error
func NewInvalidHeaderNameError(message string) *SpamdError {
	return &SpamdError{
		Type:    InvalidHeaderName,
		Message: message,
	}
}

// NewInvalidHeaderValueError creates a new invalid header value error
func NewInvalidHeaderValueError(message string) *SpamdError {
	return &SpamdError{
		Type:    InvalidHeaderValue,
		Message: message,
	}
}

// NewEncodeError creates a new encode error
func NewEncodeError(message string) *SpamdError {
	return &SpamdError{
		Type:    EncodeError,
		Message: message,
	}
}

// NewConnectionError creates a new connection error with a cause
func NewConnectionError(addr string, cause error) *SpamdError {
	return &SpamdError{
		Type:    ConnectionError,
		Message: cause.Error(),
		Cause:   cause,
		Addr:    addr,
	}
}

// NewWriteError creates a new write error with a cause
func NewWriteError(cause error) *SpamdError {
	return &SpamdError{
		Type:    WriteError,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewReadError creates a new read error with a cause
func NewReadError(cause error) *SpamdError {
	return &SpamdError{
		Type:    ReadError,
		Message: cause.Error(),
		Cause:   cause,
	}
}

// NewTimeoutError creates a new timeout error with an optional cause
func NewTimeoutError(message string, cause error) *SpamdError {
	return &SpamdError{
		Type:    Timeout,
		Message: message,
		Cause:   cause,
	}
}

// NewUnexpectedEOFError creates a new unexpected EOF error
func NewUnexpectedEOFError(message string) *SpamdError {
	return &SpamdError{
		Type:    UnexpectedEOF,
		Message: message,
	}
}

// NewMalformedStatusLineError creates a new malformed status line error
func NewMalformedStatusLineError(message string) *SpamdError {
	return &SpamdError{
		Type:    MalformedStatusLine,
		Message: message,
	}
}

// NewMalformedHeaderError creates a new malformed header error
func NewMalformedHeaderError(message string) *SpamdError {
	return &SpamdError{
		Type:    MalformedHeader,
		Message: message,
	}
}

// NewDaemonError creates a new daemon error from a response status
func NewDaemonError(code int, message string) *SpamdError {
	return &SpamdError{
		Type:    DaemonError,
		Message: message,
		Code:    code,
	}
}

// NewPoolExhaustedError creates a new pool exhausted error
func NewPoolExhaustedError(message string) *SpamdError {
	return &SpamdError{
		Type:    PoolExhausted,
		Message: message,
	}
}
