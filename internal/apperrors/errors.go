package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the request collides with the current state of another resource.
var ErrConflict = errors.New("conflict")

// ErrInvalidState indicates an operation is not allowed from the resource's current status.
var ErrInvalidState = errors.New("invalid state")

// ErrUpstream indicates an external collaborator (ledger, notification gateway) failed.
var ErrUpstream = errors.New("upstream failure")

// ErrInsufficientFunds is returned by the ledger when a debit cannot be covered.
var ErrInsufficientFunds = errors.New("insufficient funds")

// ErrMaxRetriesExceeded indicates the circuit breaker for a recurring action has tripped.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// AppError carries an HTTP-ish status code, a human message, the wrapped cause
// and optional context fields (ids, current state) for callers to act on.
type AppError struct {
	Code    int
	Message string
	Err     error
	Fields  map[string]string
}

// NewAppError creates a new AppError.
func NewAppError(code int, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func (e *AppError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		first := true
		for _, k := range sortedKeys(e.Fields) {
			if !first {
				b.WriteString(", ")
			}
			first = false
			b.WriteString(k)
			b.WriteString("=")
			b.WriteString(e.Fields[k])
		}
		b.WriteString(")")
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// With returns a copy of the error carrying an extra context field.
func (e *AppError) With(key, value string) *AppError {
	fields := make(map[string]string, len(e.Fields)+1)
	for k, v := range e.Fields {
		fields[k] = v
	}
	fields[key] = value
	return &AppError{Code: e.Code, Message: e.Message, Err: e.Err, Fields: fields}
}

// NewNotFoundError returns an error wrapping ErrNotFound for the given entity.
func NewNotFoundError(entity, id string) *AppError {
	return NewAppError(404, fmt.Sprintf("%s not found", entity), ErrNotFound).With("id", id)
}

// NewInvalidStateError reports a rejected transition along with the persisted status.
func NewInvalidStateError(entity, id, current, attempted string) *AppError {
	return NewAppError(409, fmt.Sprintf("cannot %s %s in status %s", attempted, entity, current), ErrInvalidState).
		With("id", id).
		With("state", current)
}

// FieldsOf extracts the context fields from the first AppError in err's chain.
func FieldsOf(err error) map[string]string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Fields
	}
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
