package scene

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidGeometry = errors.New("invalid geometry")
	ErrUnknownTarget   = errors.New("unknown target")
	ErrInvalidValue    = errors.New("invalid value")
	ErrNonFinitePose   = errors.New("non-finite pose")
	ErrUnknownCommand  = errors.New("unknown command")
)

// ObjectError reports a failure of an operation on one object.
// Ref is the target as the caller wrote it; ID is zero when the target did not resolve.
type ObjectError struct {
	Op  string
	Ref string
	ID  ObjectID
	Err error
}

func (e *ObjectError) Error() string {
	switch {
	case e.ID != 0:
		return fmt.Sprintf("%s %s: %v", e.Op, e.ID, e.Err)
	case e.Ref != "":
		return fmt.Sprintf("%s %q: %v", e.Op, e.Ref, e.Err)
	default:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
}

func (e *ObjectError) Unwrap() error { return e.Err }
