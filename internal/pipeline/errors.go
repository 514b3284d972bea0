package pipeline

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindUnsupportedInput Kind = "unsupported_input"
	KindInvalidArchive   Kind = "invalid_archive"
	KindPackagingFailed  Kind = "packaging_failed"
)

// Error is the only error Process returns. Kind is stable and safe to show
// to clients; Err carries the underlying cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf reports the pipeline error kind carried by err, if any.
func KindOf(err error) (Kind, bool) {
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Kind, true
	}
	return "", false
}
