package store

import (
	"errors"
	"fmt"
)

var (
	ErrReadOnly = errors.New("store: write in a read-only transaction")
	ErrClosed   = errors.New("store: closed")
	ErrNotFound = errors.New("store: document not found")
)

// DocError reports a stored document that failed to decode, validate or
// encode. Err is usually a bipf error; use errors.Is to test for specific
// ones.
type DocError struct {
	Collection string
	ID         string
	Err        error
}

func (e *DocError) Error() string {
	return fmt.Sprintf("store: %s/%s: %v", e.Collection, e.ID, e.Err)
}

func (e *DocError) Unwrap() error {
	return e.Err
}

type panicked struct {
	reason any
	stack  string
}

func (p panicked) Error() string {
	return fmt.Sprintf("panic: %v\n\n%s", p.reason, p.stack)
}
