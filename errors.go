// errors.go
// ---------
// Every failure that leaves the pipeline is an *Error carrying one of a closed
// set of kinds. Callers branch with errors.Is against the sentinels below or
// switch on Error.Kind directly. Messages are sanitized at construction, so a
// UI can render them without escaping.
package securebridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/opengovern/secure-bridge/internal/sanitize"
)

// ErrorKind classifies a pipeline failure.
type ErrorKind string

const (
	KindUnauthorized    ErrorKind = "unauthorized"
	KindForbidden       ErrorKind = "forbidden"
	KindRateLimited     ErrorKind = "rate_limited"
	KindTimeout         ErrorKind = "timeout"
	KindNotFound        ErrorKind = "not_found"
	KindServerError     ErrorKind = "server_error"
	KindNetworkError    ErrorKind = "network_error"
	KindValidationError ErrorKind = "validation_error"
)

// Sentinel errors, one per kind.
var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrTimeout      = errors.New("request timeout")
	ErrNotFound     = errors.New("not found")
	ErrServer       = errors.New("server error")
	ErrNetwork      = errors.New("network error")
	ErrValidation   = errors.New("validation failed")
)

var sentinels = map[ErrorKind]error{
	KindUnauthorized:    ErrUnauthorized,
	KindForbidden:       ErrForbidden,
	KindRateLimited:     ErrRateLimited,
	KindTimeout:         ErrTimeout,
	KindNotFound:        ErrNotFound,
	KindServerError:     ErrServer,
	KindNetworkError:    ErrNetwork,
	KindValidationError: ErrValidation,
}

// Kinds lists every error kind the pipeline can produce.
func Kinds() []ErrorKind {
	return []ErrorKind{
		KindUnauthorized, KindForbidden, KindRateLimited, KindTimeout,
		KindNotFound, KindServerError, KindNetworkError, KindValidationError,
	}
}

// FieldError describes one violated field of a validated payload.
type FieldError struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Message string `json:"message"`
}

// Error is the classified failure returned by every SecureBridge call.
type Error struct {
	Kind       ErrorKind
	Message    string
	HTTPStatus int           // 0 when no response was received
	RetryAfter time.Duration // set for KindRateLimited when the server sent Retry-After
	Fields     []FieldError  // set for KindValidationError

	err error
}

func newError(kind ErrorKind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: sanitize.String(message), err: cause}
}

func newStatusError(kind ErrorKind, status int, message string) *Error {
	e := newError(kind, message, nil)
	e.HTTPStatus = status
	return e
}

func newValidationError(message string, fields []FieldError, cause error) *Error {
	e := newError(KindValidationError, message, cause)
	for i := range fields {
		fields[i].Message = sanitize.String(fields[i].Message)
	}
	e.Fields = fields
	return e
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.HTTPStatus != 0 {
		fmt.Fprintf(&b, " (%d)", e.HTTPStatus)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	return b.String()
}

// Unwrap exposes the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

// AsError extracts the classified error from err.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// KindOf returns the kind of a classified error, or "" for anything else.
func KindOf(err error) ErrorKind {
	if e, ok := AsError(err); ok {
		return e.Kind
	}
	return ""
}
