package types

import (
	"errors"
	"fmt"
)

type ErrorKind uint8

const (
	ValueError ErrorKind = iota
	ShapeMismatchError
	FunctionSpaceMismatchError
	SampleCountMismatchError
	UnsupportedDimensionError
	MatrixTypeError
	ZeroDivisionError
	SolverWarning
	SystemError
	MemoryError
)

func (ek ErrorKind) String() string {
	return [...]string{"ValueError", "ShapeMismatchError", "FunctionSpaceMismatchError",
		"SampleCountMismatchError", "UnsupportedDimensionError", "MatrixTypeError",
		"ZeroDivisionError", "SolverWarning", "SystemError", "MemoryError"}[ek]
}

// Sentinels for errors.Is, one per kind
var (
	ErrValue                 = &Error{Kind: ValueError}
	ErrShapeMismatch         = &Error{Kind: ShapeMismatchError}
	ErrFunctionSpaceMismatch = &Error{Kind: FunctionSpaceMismatchError}
	ErrSampleCountMismatch   = &Error{Kind: SampleCountMismatchError}
	ErrUnsupportedDimension  = &Error{Kind: UnsupportedDimensionError}
	ErrMatrixType            = &Error{Kind: MatrixTypeError}
	ErrZeroDivision          = &Error{Kind: ZeroDivisionError}
	ErrSolverWarning         = &Error{Kind: SolverWarning}
	ErrSystem                = &Error{Kind: SystemError}
	ErrMemory                = &Error{Kind: MemoryError}
)

type Error struct {
	Kind ErrorKind
	Msg  string
}

func NewError(kind ErrorKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Kind.String()
	}
	return e.Kind.String() + ": " + e.Msg
}

// Is matches any *Error of the same kind, so the sentinels work with errors.Is
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// KindOf returns the kind carried by err, ok is false for foreign errors
func KindOf(err error) (kind ErrorKind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return
}

// IsWarning is true when the solve produced a usable, non-converged result
func IsWarning(err error) bool {
	return errors.Is(err, ErrSolverWarning)
}
