package store

import (
	"errors"
	"fmt"

	"github.com/obask/taskonizer/pkg/model"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrInvalidCategory = model.ErrInvalidCategory
	ErrPersistence     = errors.New("persistence failed")
	ErrEmptyName       = errors.New("empty name")
)

// Error is returned by every failing store operation. Kind is one of the
// sentinels above; Err carries the persistence cause when there is one.
type Error struct {
	Kind error
	Op   string
	ID   string
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Op + ": " + e.Kind.Error()
	if e.ID != "" {
		msg = fmt.Sprintf("%s %s", msg, e.ID)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func notFound(op string, id fmt.Stringer) error {
	return &Error{Kind: ErrNotFound, Op: op, ID: id.String()}
}

func projectNotFound(op string, id fmt.Stringer) error {
	return &Error{Kind: ErrProjectNotFound, Op: op, ID: id.String()}
}

func invalidCategory(op string, c model.Category) error {
	return &Error{Kind: ErrInvalidCategory, Op: op, ID: fmt.Sprintf("%q", string(c))}
}
