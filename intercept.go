package csg

import (
	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// FaceIntercept is the result of a ray query.
type FaceIntercept struct {
	Impact r3.Vec
	Face   FaceID
}

// NoIntercept returns the result of a ray that hits nothing.
func NoIntercept() FaceIntercept {
	return FaceIntercept{Impact: d3.NaN()}
}

// IsOK reports whether the impact point is finite and the face is valid.
func (fi FaceIntercept) IsOK() bool {
	return fi.Face.IsValid() && d3.IsFinite(fi.Impact)
}

// FindIntercept calls s.FindIntercept and converts an exhausted composite
// search into a returned *InterceptError instead of a panic.
func FindIntercept(s Shape3, from, dir r3.Vec, tol float64) (fi FaceIntercept, err error) {
	fi = NoIntercept()
	defer recoverShapeErr(&err)
	fi = s.FindIntercept(from, dir, tol)
	return fi, nil
}
