package csg

import (
	"strings"

	"gonum.org/v1/gonum/spatial/r3"
)

// Domain is a bit set classifying a point against a shape or volume.
type Domain uint8

const (
	DomainNone            Domain = 0
	DomainInside          Domain = 1
	DomainOutside         Domain = 2
	DomainSurface         Domain = 4
	DomainInsideDaughter  Domain = 8
	DomainDaughterSurface Domain = 16
)

var domainNames = [...]string{"inside", "outside", "surface", "inside_daughter", "daughter_surface"}

func (d Domain) String() string {
	if d == DomainNone {
		return "none"
	}
	var parts []string
	for i, name := range domainNames {
		if d&(1<<i) != 0 {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, "|")
}

// CheckInside reports whether p is inside s. Points outside the bounding
// data grown by twice the tolerance are rejected without calling s. A point
// that s reports neither outside nor on its surface counts as inside.
func CheckInside(s Shape3, p r3.Vec, tol float64) bool {
	tol = s.Tolerance(tol)
	if bd, ok := s.BoundingData(); ok && bd.IsOutside(p, 2*tol) {
		return false
	}
	if s.IsInside(p, tol) {
		return true
	}
	return !s.IsOutside(p, tol) && !s.OnSurface(p, FaceInvalid(), tol).IsValid()
}

// CheckOutside reports whether p is outside s, with the same early rejection
// and fallback rules as CheckInside.
func CheckOutside(s Shape3, p r3.Vec, tol float64) bool {
	tol = s.Tolerance(tol)
	if bd, ok := s.BoundingData(); ok && bd.IsOutside(p, 2*tol) {
		return true
	}
	if s.IsOutside(p, tol) {
		return true
	}
	return !s.IsInside(p, tol) && !s.OnSurface(p, FaceInvalid(), tol).IsValid()
}

// CheckSurface reports whether p lies on any face of s.
func CheckSurface(s Shape3, p r3.Vec, tol float64) bool {
	tol = s.Tolerance(tol)
	if bd, ok := s.BoundingData(); ok && bd.IsOutside(p, 2*tol) {
		return false
	}
	return s.OnSurface(p, FaceInvalid(), tol).IsValid()
}

// IsOnSurface reports whether p lies on a face of s selected by mask.
func IsOnSurface(s Shape3, p r3.Vec, mask FaceID, tol float64) bool {
	return s.OnSurface(p, mask, tol).IsValid()
}

// WhereIs classifies p against s. Surface takes precedence over inside,
// which takes precedence over outside.
func WhereIs(s Shape3, p r3.Vec, tol float64) Domain {
	switch {
	case CheckSurface(s, p, tol):
		return DomainSurface
	case CheckInside(s, p, tol):
		return DomainInside
	case CheckOutside(s, p, tol):
		return DomainOutside
	}
	return DomainNone
}
