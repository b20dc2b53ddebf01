package framer

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrDestroyed     = errors.New("framer: destroyed")
	ErrWriteAfterEnd = errors.New("framer: write after end")
	ErrNilSource     = errors.New("framer: nil source")
	ErrNoSink        = errors.New("framer: no sink configured")
	ErrZeroRecord    = errors.New("framer: zero record")
)

// DoubleBindingError is raised when a second source tries to attach.
type DoubleBindingError struct {
	Bound Source // the source already attached
}

func (e *DoubleBindingError) Error() string {
	return fmt.Sprintf("framer: a source is already bound (%T)", e.Bound)
}

// UnsupportedOperationError is raised for read modes the framer cannot honour,
// such as any text encoding.
type UnsupportedOperationError struct {
	Op     string
	Detail string
}

func (e *UnsupportedOperationError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("framer: unsupported operation %s", e.Op)
	}
	return fmt.Sprintf("framer: unsupported operation %s: %s", e.Op, e.Detail)
}

type NotImplementedError struct {
	Op string
}

func (e *NotImplementedError) Error() string {
	return fmt.Sprintf("framer: %s is not implemented", e.Op)
}

// LeftoverDataError is raised when the source completes while bytes that do
// not form a whole record are still buffered.
type LeftoverDataError struct {
	Buffered int
}

func (e *LeftoverDataError) Error() string {
	return fmt.Sprintf("framer: %d bytes left over at end of input", e.Buffered)
}
