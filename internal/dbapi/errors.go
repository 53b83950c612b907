package dbapi

import (
	"errors"
	"fmt"
)

// ErrorKind is the DB-API exception class of an Error.
type ErrorKind string

const (
	KindWarning      ErrorKind = "Warning"
	KindError        ErrorKind = "Error"
	KindInterface    ErrorKind = "InterfaceError"
	KindDatabase     ErrorKind = "DatabaseError"
	KindData         ErrorKind = "DataError"
	KindOperational  ErrorKind = "OperationalError"
	KindIntegrity    ErrorKind = "IntegrityError"
	KindInternal     ErrorKind = "InternalError"
	KindProgramming  ErrorKind = "ProgrammingError"
	KindNotSupported ErrorKind = "NotSupportedError"
)

// Kinds lists every ErrorKind.
var Kinds = []ErrorKind{
	KindWarning, KindError, KindInterface, KindDatabase, KindData,
	KindOperational, KindIntegrity, KindInternal, KindProgramming, KindNotSupported,
}

// Valid reports whether k is one of the known kinds.
func (k ErrorKind) Valid() bool {
	for _, known := range Kinds {
		if k == known {
			return true
		}
	}
	return false
}

// Error is a classified client error.
//
// Code carries the server or driver error number when one exists (0
// otherwise). Err is the underlying driver error; it is not persisted when
// an Error is recorded.
type Error struct {
	Kind    ErrorKind
	Code    int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("%s: (%d) %s", e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap returns the underlying driver error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error of the same kind, code and message, so a
// reconstructed error compares equal to the one that was recorded.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind && e.Code == t.Code && e.Message == t.Message
}

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Errorf creates an Error of the given kind with a formatted message.
func Errorf(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first *Error in err's chain.
// Returns "" if there is none.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsOperational reports whether err is an OperationalError.
func IsOperational(err error) bool { return KindOf(err) == KindOperational }

// IsIntegrity reports whether err is an IntegrityError.
func IsIntegrity(err error) bool { return KindOf(err) == KindIntegrity }

// IsProgramming reports whether err is a ProgrammingError.
func IsProgramming(err error) bool { return KindOf(err) == KindProgramming }

// IsInterface reports whether err is an InterfaceError.
func IsInterface(err error) bool { return KindOf(err) == KindInterface }

// IsNotSupported reports whether err is a NotSupportedError.
func IsNotSupported(err error) bool { return KindOf(err) == KindNotSupported }
