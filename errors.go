package csg

import (
	"errors"
	"fmt"
	"runtime/debug"

	"github.com/soypat/csg/props"
)

var (
	// ErrLocked is returned when configuring a shape whose parameters are locked.
	ErrLocked = errors.New("shape is locked")
	// ErrNotLocked is raised when querying a composite that has not been locked.
	ErrNotLocked = errors.New("shape is not locked")
	// ErrInvalidShape is returned by Lock when parameters are missing or out of range.
	ErrInvalidShape = errors.New("invalid shape parameters")
	// ErrInvalidOperand is returned when a composite operand is missing or not locked.
	ErrInvalidOperand = errors.New("invalid operand")
	// ErrNoPartMask is raised when a composite receives a valid face mask without parts.
	ErrNoPartMask = errors.New("face mask has no part index")
	// ErrNoForcedVolume is raised by ForcedVolume when no volume has been forced.
	ErrNoForcedVolume = errors.New("no forced volume")
	// ErrInvalidVolume is returned when building a malformed volume tree.
	ErrInvalidVolume = errors.New("invalid volume")
	// ErrMissingProperty is returned by Initialize when a mandatory property is absent.
	ErrMissingProperty = props.ErrMissing
)

// InterceptError is raised when a composite intercept search exceeds its step cap.
type InterceptError struct {
	Shape string
	Part  int32
	Steps int
}

func (e *InterceptError) Error() string {
	return fmt.Sprintf("%s: intercept search on part %d exceeded %d steps (suspicion of infinite loop)", e.Shape, e.Part, e.Steps)
}

// shapeErr carries a recovered panic from a shape query.
type shapeErr struct {
	panicObj interface{}
	stack    string
}

func (s *shapeErr) Error() string {
	return fmt.Sprintf("%s", s.panicObj)
}

func (s *shapeErr) Unwrap() error {
	err, _ := s.panicObj.(error)
	return err
}

func recoverShapeErr(err *error) {
	if a := recover(); a != nil {
		if ie, ok := a.(*InterceptError); ok {
			*err = ie
			return
		}
		*err = &shapeErr{
			panicObj: a,
			stack:    string(debug.Stack()),
		}
	}
}
