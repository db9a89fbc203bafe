package d2

import (
	"gonum.org/v1/gonum/spatial/r2"
)

// Box is a 2d bounding box.
type Box r2.Box

// BoxOf returns the smallest box containing every point of s.
// It panics if s is empty.
func BoxOf(s Set) Box {
	return Box{Min: s.Min(), Max: s.Max()}
}

// Include enlarges a 2d box to include a point.
func (a Box) Include(v r2.Vec) Box {
	return Box{MinElem(a.Min, v), MaxElem(a.Max, v)}
}

// Size returns the size of a 2d box.
func (a Box) Size() r2.Vec {
	return r2.Sub(a.Max, a.Min)
}

// Contains checks if the 2d box contains the given vector within a margin.
func (a Box) Contains(v r2.Vec, margin float64) bool {
	return a.Min.X-margin <= v.X && a.Min.Y-margin <= v.Y &&
		v.X <= a.Max.X+margin && v.Y <= a.Max.Y+margin
}
