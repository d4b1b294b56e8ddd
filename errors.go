package polyquery

import (
	"errors"
	"fmt"
	"time"
)

// Code is the fixed error-code enumeration. Every Error
// carries exactly one of these.
type Code string

const (
	CodeConnectionFailed     Code = "CONNECTION_FAILED"
	CodeConnectionLost       Code = "CONNECTION_LOST"
	CodeAuthenticationFailed Code = "AUTHENTICATION_FAILED"
	CodeTimeout              Code = "TIMEOUT"
	CodePoolExhausted        Code = "POOL_EXHAUSTED"
	CodeDuplicateKey         Code = "DUPLICATE_KEY"
	CodeValidationError      Code = "VALIDATION_ERROR"
	CodeCollectionNotFound   Code = "COLLECTION_NOT_FOUND"
	CodeQueryError           Code = "QUERY_ERROR"
	CodeGuardrailBlocked     Code = "GUARDRAIL_BLOCKED"
	CodeUnknownOperator      Code = "UNKNOWN_OPERATOR"
	CodeSchemaMismatch       Code = "SCHEMA_MISMATCH"
	CodeUnsupportedOperation Code = "UNSUPPORTED_OPERATION"
	CodeInternalError        Code = "INTERNAL_ERROR"
)

// retryable is the fixed set of codes marked safe to retry
// (connection-level failures and timeouts/pool exhaustion).
var retryable = map[Code]bool{
	CodeConnectionFailed: true,
	CodeConnectionLost:   true,
	CodeTimeout:          true,
	CodePoolExhausted:    true,
}

// Retryable reports whether code is in the retryable set.
func (c Code) Retryable() bool {
	return retryable[c]
}

// Error is the normalized error every pipeline stage and adapter
// surfaces. The driver-native error is preserved via Unwrap for
// diagnostics, but Error() never renders it: messages are single
// sentences ending with "Fix: <remediation>".
type Error struct {
	Code       Code
	Message    string
	Fix        string
	Backend    string
	Collection string
	Operation  string
	Retryable  bool
	Timestamp  time.Time
	cause      error
}

// Error renders "<message> Fix: <fix>", the user-visible shape, or the
// bare message when fix is empty.
func (e *Error) Error() string {
	if e.Fix == "" {
		return e.Message
	}
	return fmt.Sprintf("%s Fix: %s", e.Message, e.Fix)
}

// Unwrap exposes the original driver-native error for diagnostics
// (errors.Is/errors.As chains), never rendered in Error().
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is the same Code. This lets callers do
// errors.Is(err, polyquery.NewError(polyquery.CodeDuplicateKey, ...))
// style comparisons against a sentinel-shaped Error carrying only Code.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Code == t.Code
	}
	return false
}

// NewError constructs a normalized Error. Retryable is derived from
// code unless overridden with WithRetryable.
func NewError(code Code, message, fix string) *Error {
	return &Error{
		Code:      code,
		Message:   message,
		Fix:       fix,
		Retryable: code.Retryable(),
		Timestamp: timeNow(),
	}
}

// WithBackend sets the backend tag and returns e for chaining.
func (e *Error) WithBackend(backend string) *Error {
	e.Backend = backend
	return e
}

// WithCollection sets the collection name and returns e for chaining.
func (e *Error) WithCollection(collection string) *Error {
	e.Collection = collection
	return e
}

// WithOperation sets the operation name and returns e for chaining.
func (e *Error) WithOperation(op string) *Error {
	e.Operation = op
	return e
}

// WithCause attaches the original driver-native error, reachable via
// Unwrap but never rendered by Error().
func (e *Error) WithCause(cause error) *Error {
	e.cause = cause
	return e
}

// IsCode reports whether err is a *Error with the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// AsError extracts the normalized *Error from err, if any.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// timeNow exists so tests can stub timestamp generation without
// reaching into the package from outside; production code just calls
// time.Now.
var timeNow = time.Now
