// Package core implements the trie node, its per-node value queue, and
// the Out access-options modifiers (spec components C2 and C9).
package core

import (
	"errors"
	"fmt"
)

// Code is a machine-readable boundary error code, per spec §6.
type Code string

const (
	CodeInvalidPath             Code = "InvalidPath"
	CodeInvalidPathSubcomponent Code = "InvalidPathSubcomponent"
	CodeInvalidType             Code = "InvalidType"
	CodeInvalidPermissions      Code = "InvalidPermissions"
	CodeMalformedInput          Code = "MalformedInput"
	CodeNoObjectFound           Code = "NoObjectFound"
	CodeNoSuchPath              Code = "NoSuchPath"
	CodeTypeMismatch            Code = "TypeMismatch"
	CodeTimeout                 Code = "Timeout"
	CodeInvalidError            Code = "InvalidError"
	CodeUnknownError            Code = "UnknownError"
	CodeUnserializableType      Code = "UnserializableType"
	CodeSerializationFuncMissing Code = "SerializationFunctionMissing"
)

// Error is the error type returned at every PathSpace boundary. It wraps
// an optional cause (modeled on engine/domain's ValidationError: a
// sentinel plus context) so callers can both switch on Code and
// errors.Is/As against the wrapped cause.
type Error struct {
	Code    Code
	Path    string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("pathspace: %s: %s (path=%q)", e.Code, e.Message, e.Path)
	}
	return fmt.Sprintf("pathspace: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, core.ErrTimeout) etc. match by Code, not identity,
// since each New call allocates a fresh *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Path == "" && t.Message == ""
}

// New constructs an *Error carrying code and a human message.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Newf constructs an *Error with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// WithPath returns a copy of e annotated with the path it occurred at.
func (e *Error) WithPath(p string) *Error {
	c := *e
	c.Path = p
	return &c
}

// Wrap constructs an *Error that wraps cause.
func Wrap(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// Sentinels usable with errors.Is against the Code, independent of path
// or message (matches via (*Error).Is).
var (
	ErrNoObjectFound = &Error{Code: CodeNoObjectFound}
	ErrNoSuchPath    = &Error{Code: CodeNoSuchPath}
	ErrTypeMismatch  = &Error{Code: CodeTypeMismatch}
	ErrTimeout       = &Error{Code: CodeTimeout}
	ErrInvalidPermissions = &Error{Code: CodeInvalidPermissions}
)

// IsCode reports whether err is a *core.Error (at any wrap depth) with
// the given code.
func IsCode(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
