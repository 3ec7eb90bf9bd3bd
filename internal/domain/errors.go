package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind is the closed set of failure categories callers can branch on.
type ErrorKind string

const (
	KindValidation     ErrorKind = "validation"
	KindNotFound       ErrorKind = "not_found"
	KindConflict       ErrorKind = "conflict"
	KindArchiveFormat  ErrorKind = "archive_format"
	KindToolInvocation ErrorKind = "tool_invocation"
	KindPersistence    ErrorKind = "persistence"
	KindClassification ErrorKind = "classification"
)

// Error carries a kind plus structured context.
type Error struct {
	Kind ErrorKind
	// Op is the operation that failed, e.g. "scan" or "enable check".
	Op string
	// Names lists offending identifiers (check names, ids) when relevant.
	Names []string
	Msg   string
	Err   error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	if e.Msg != "" {
		b.WriteString(e.Msg)
	} else {
		b.WriteString(string(e.Kind))
	}
	if len(e.Names) > 0 {
		fmt.Fprintf(&b, ": [%s]", strings.Join(e.Names, ", "))
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so errors.Is(err, &Error{Kind: k}) works.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Op == "" && t.Msg == "" && t.Err == nil
}

// NewError builds an Error without a cause.
func NewError(kind ErrorKind, op, msg string, names ...string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg, Names: names}
}

// WrapError builds an Error around cause.
func WrapError(kind ErrorKind, op string, cause error) *Error {
	return &Error{Kind: kind, Op: op, Err: cause}
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries kind.
func IsKind(err error, kind ErrorKind) bool { return KindOf(err) == kind }
