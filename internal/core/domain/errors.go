package domain

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNoFiles      = errors.New("no files uploaded")
	ErrTemporary    = errors.New("temporary failure")
	ErrUpstream     = errors.New("upstream failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// DetailError carries the message shown to API clients alongside the error
// kind and cause.
type DetailError struct {
	Kind   error
	Detail string
	Err    error
}

func (e *DetailError) Error() string {
	return e.Detail
}

func (e *DetailError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// WithDetail wraps err so that the API reports "<detail>: <err>".
func WithDetail(kind error, detail string, err error) error {
	if err == nil {
		return nil
	}
	return &DetailError{Kind: kind, Detail: detail + ": " + err.Error(), Err: err}
}

// ClientDetail returns the client-facing message for err.
func ClientDetail(err error) string {
	var detailed *DetailError
	if errors.As(err, &detailed) {
		return detailed.Detail
	}
	return err.Error()
}
