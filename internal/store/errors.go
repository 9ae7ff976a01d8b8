package store

import (
	"errors"
	"fmt"
)

// Kind classifies a store failure so callers can map it without inspecting
// driver errors.
type Kind int

const (
	KindPersistence Kind = iota
	KindValidation
	KindNotFound
	KindConflict
	KindInvariant
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not found"
	case KindConflict:
		return "conflict"
	case KindInvariant:
		return "invariant violation"
	default:
		return "persistence"
	}
}

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrDuplicateUser  = errors.New("username already exists")
	ErrNoGeneratedKey = errors.New("insert returned no generated key")
	ErrTaskNotFound   = errors.New("task not found")
)

// Error is returned by store operations that distinguish failure kinds.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(op string, kind Kind, err error) *Error {
	return &Error{Op: op, Kind: kind, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain. Errors that did
// not come from the store are persistence failures.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindPersistence
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
