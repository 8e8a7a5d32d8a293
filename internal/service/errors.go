package service

import "fmt"

// Error is a domain error returned by service methods.
// Handlers map these to appropriate HTTP responses.
type Error struct {
	Kind    ErrorKind
	Code    string // machine-readable error code (e.g., "not_found", "exhausted")
	Message string // human-readable message

	// UpstreamStatus and UpstreamBody carry the provider's original response
	// for ErrUpstream, so callers can pass it through unchanged.
	UpstreamStatus int
	UpstreamBody   []byte
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorKind classifies domain errors for HTTP status mapping.
type ErrorKind int

const (
	ErrBadRequest      ErrorKind = iota // 400: malformed input
	ErrAlreadyExists                    // 400: uniqueness violation on create
	ErrUnauthorized                     // 401: token absent, unknown, or disabled
	ErrForbidden                        // 403: capability gate or banned user
	ErrExhausted                        // 403: no uses left
	ErrNotFound                         // 404: entity absent on read paths
	ErrInternal                         // 500
	ErrPersistence                      // 503: store unavailable
	ErrUpstream                         // provider returned non-2xx, status preserved
	ErrUpstreamTimeout                  // 504: bounded upstream timeout elapsed
)

func NewBadRequest(code, message string) *Error {
	return &Error{Kind: ErrBadRequest, Code: code, Message: message}
}

func NewAlreadyExists(code, message string) *Error {
	return &Error{Kind: ErrAlreadyExists, Code: code, Message: message}
}

func NewUnauthorized(code, message string) *Error {
	return &Error{Kind: ErrUnauthorized, Code: code, Message: message}
}

func NewForbidden(code, message string) *Error {
	return &Error{Kind: ErrForbidden, Code: code, Message: message}
}

func NewExhausted(code, message string) *Error {
	return &Error{Kind: ErrExhausted, Code: code, Message: message}
}

func NewNotFound(code, message string) *Error {
	return &Error{Kind: ErrNotFound, Code: code, Message: message}
}

func NewInternal(code, message string) *Error {
	return &Error{Kind: ErrInternal, Code: code, Message: message}
}

func NewPersistence(code, message string) *Error {
	return &Error{Kind: ErrPersistence, Code: code, Message: message}
}

func NewUpstream(status int, body []byte) *Error {
	return &Error{
		Kind:           ErrUpstream,
		Code:           "upstream_error",
		Message:        fmt.Sprintf("upstream returned status %d", status),
		UpstreamStatus: status,
		UpstreamBody:   body,
	}
}

func NewUpstreamTimeout(message string) *Error {
	return &Error{Kind: ErrUpstreamTimeout, Code: "upstream_timeout", Message: message}
}
