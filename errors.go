package lrfs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error so callers can branch on failure category
// without string matching.
type Kind int

const (
	// KindIOFailed wraps an error returned verbatim by the OS layer.
	KindIOFailed Kind = iota
	// KindNotFound is returned by Rename and Size when name is absent, and
	// by OpenFile when name is visible in neither layer and FlagCreate is
	// not set.
	KindNotFound
	// KindInvalidInput marks a discovered hole list extending past the
	// source file, or (as a panic, not an Error) a name not rooted at
	// destination home.
	KindInvalidInput
	// KindNotSupported is returned for map/advise/extend and directory opens.
	KindNotSupported
	// KindPanic names a connection panic. No lrfs operation returns it: a
	// background fill that stops on a panic ends without an error.
	KindPanic
)

func (k Kind) String() string {
	switch k {
	case KindIOFailed:
		return "io-failed"
	case KindNotFound:
		return "not-found"
	case KindInvalidInput:
		return "invalid-input"
	case KindNotSupported:
		return "not-supported"
	case KindPanic:
		return "panic"
	default:
		return "unknown"
	}
}

// Error is the error type returned by the FS and Handle operations.
// Config.Validate, and New through it, return a plain error instead.
type Error struct {
	Kind Kind
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("lrfs: %s %s: %s: %v", e.Op, e.Name, e.Kind, e.Err)
	}
	return fmt.Sprintf("lrfs: %s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap lets errors.Is/errors.As see through to the underlying cause.
func (e *Error) Unwrap() error { return e.Err }

// Cause satisfies github.com/pkg/errors' Causer interface.
func (e *Error) Cause() error { return e.Err }

func newError(kind Kind, op, name string, err error) *Error {
	return &Error{Kind: kind, Op: op, Name: name, Err: errors.WithStack(err)}
}

func errHoleBeyondSource(last, sourceSize int64) error {
	return fmt.Errorf("hole list extends to %d past source size %d", last, sourceSize)
}

var errNotSupportedDirectory = fmt.Errorf("directory handles are not supported")

// IsNotFound reports whether err is (or wraps) a KindNotFound Error.
func IsNotFound(err error) bool { return hasKind(err, KindNotFound) }

// IsNotSupported reports whether err is (or wraps) a KindNotSupported Error.
func IsNotSupported(err error) bool { return hasKind(err, KindNotSupported) }

func hasKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
