package rapfiles

import (
	"errors"
	"fmt"
	"io/fs"
)

// Kind categorizes every error this package returns. Callers can branch on
// the category without parsing message strings.
type Kind string

const (
	// KindValidation indicates bad input (empty path, embedded NUL byte,
	// unsupported mode token, unsupported whence value, operation on a
	// closed handle). Detected before any filesystem access; no side
	// effect has occurred.
	KindValidation Kind = "VALIDATION"

	// KindIO indicates an OS-level open/read/write/seek/metadata failure.
	// The error wraps the path and the underlying cause. Never
	// auto-retried; the caller decides whether to retry.
	KindIO Kind = "IO"

	// KindDecode indicates a text-mode read produced bytes that are not
	// valid UTF-8. Distinct from KindIO so callers can tell "I/O
	// succeeded, content isn't text" from "I/O failed".
	KindDecode Kind = "DECODE"
)

// Error is the error type returned by every failing operation in this
// package. It carries the failed operation, the path involved, and the
// underlying cause (if any), and participates in errors.Is/As/Unwrap so
// stdlib sentinels such as fs.ErrNotExist and fs.ErrPermission remain
// matchable through it.
type Error struct {
	kind Kind
	op   string
	path string
	msg  string
	err  error
}

// Kind returns the error category.
func (e *Error) Kind() Kind { return e.kind }

// Op returns the operation that failed (e.g. "open", "read", "seek").
func (e *Error) Op() string { return e.op }

// Path returns the path involved, if any.
func (e *Error) Path() string { return e.path }

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.err }

func (e *Error) Error() string {
	s := e.op
	if e.path != "" {
		s += " " + e.path
	}
	if e.msg != "" {
		s += ": " + e.msg
	}
	if e.err != nil {
		s += ": " + e.err.Error()
	}
	return s
}

// newValidationError reports bad input detected before any filesystem
// access. cause may be nil.
func newValidationError(op, path, msg string, cause error) *Error {
	return &Error{kind: KindValidation, op: op, path: path, msg: msg, err: cause}
}

// newIOError wraps an OS-level failure with the operation and path.
func newIOError(op, path string, cause error) *Error {
	return &Error{kind: KindIO, op: op, path: path, err: cause}
}

// newDecodeError reports invalid UTF-8 on a text-mode read.
func newDecodeError(op, path string) *Error {
	return &Error{kind: KindDecode, op: op, path: path, msg: "invalid UTF-8"}
}

// IsValidation reports whether err (or any error it wraps) is a
// validation error.
func IsValidation(err error) bool { return hasKind(err, KindValidation) }

// IsIO reports whether err (or any error it wraps) is an I/O error.
func IsIO(err error) bool { return hasKind(err, KindIO) }

// IsDecode reports whether err (or any error it wraps) is a decode error.
func IsDecode(err error) bool { return hasKind(err, KindDecode) }

func hasKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.kind == kind
}

// validatePath rejects paths the filesystem must never see: empty strings
// and strings containing a NUL byte. Returns nil for everything else;
// existence and type checks are the OS's job.
func validatePath(op, path string) error {
	if path == "" {
		return newValidationError(op, path, "path cannot be empty", nil)
	}
	for i := 0; i < len(path); i++ {
		if path[i] == 0 {
			return newValidationError(op, path, "path cannot contain null bytes", nil)
		}
	}
	return nil
}

// errClosed builds the error returned by operations on a closed handle.
// It wraps fs.ErrClosed so errors.Is(err, fs.ErrClosed) holds.
func errClosed(op, path string) *Error {
	return newValidationError(op, path, "i/o operation on closed file", fs.ErrClosed)
}

func errNotReadable(op, path string) *Error {
	return newIOError(op, path, fmt.Errorf("file not open for reading"))
}

func errNotWritable(op, path string) *Error {
	return newIOError(op, path, fmt.Errorf("file not open for writing"))
}
