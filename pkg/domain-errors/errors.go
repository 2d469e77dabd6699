// Package domainerrors defines the closed set of error codes the verification
// core returns to callers. Handlers match on codes, never on message strings,
// so user-facing wording stays decoupled from internal reasons.
package domainerrors

import (
	"errors"
	"fmt"
)

// Code is a stable, machine-matchable error tag.
type Code string

const (
	CodeInvalidNode        Code = "invalid_node"
	CodeDuplicateIdentity  Code = "duplicate_identity"
	CodeExpiredProof       Code = "expired_proof"
	CodeInvalidSignature   Code = "invalid_signature"
	CodeMalformedToken     Code = "malformed_token"
	CodeDecryptionFailure  Code = "decryption_failure"
	CodeTransactionAborted Code = "transaction_aborted"

	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeConflict     Code = "conflict"
	CodeUnauthorized Code = "unauthorized"
	CodeInternal     Code = "internal"
)

// Error carries a code plus a human-oriented message. The wrapped cause is
// kept for logs; it is never part of the user-facing message.
type Error struct {
	Code    Code
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches two domain errors on code and message, ignoring the cause, so
// errors.Is works against a freshly constructed comparison value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code && e.Message == t.Message
}

// New creates a domain error with the given code and message.
func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

// Newf creates a domain error with a formatted message.
func Newf(code Code, format string, args ...any) error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, message string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: message, cause: err}
}

// HasCode reports whether err (or anything it wraps) carries the given code.
func HasCode(err error, code Code) bool {
	var de *Error
	if errors.As(err, &de) {
		return de.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal for
// unclassified errors so callers always get a closed-set answer.
func CodeOf(err error) Code {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeInternal
}
