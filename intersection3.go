package csg

import "gonum.org/v1/gonum/spatial/r3"

// Intersection is the solid common to both operands.
type Intersection struct {
	composite
}

var (
	_ Shape3      = (*Intersection)(nil)
	_ FaceTrimmer = (*Intersection)(nil)
)

// NewIntersection returns the locked intersection of first and second.
func NewIntersection(first, second Operand) (*Intersection, error) {
	x := NewIntersectionUnlocked()
	if err := x.SetOperands(first, second); err != nil {
		return nil, err
	}
	if err := x.Lock(); err != nil {
		return nil, err
	}
	return x, nil
}

// NewIntersectionUnlocked returns an intersection without operands.
func NewIntersectionUnlocked() *Intersection {
	x := &Intersection{}
	x.initComposite("intersection", x)
	return x
}

func (x *Intersection) Lock() error { return x.lockComposite() }

func (x *Intersection) Reset() { x.resetComposite() }

// keep accepts the surface of each operand lying within the other.
func (x *Intersection) keep(part int32, p r3.Vec, tol float64) bool {
	return !x.out(1-part, p, tol)
}

func (x *Intersection) IsInside(p r3.Vec, tol float64) bool {
	x.mustBeLocked()
	tol = x.Tolerance(tol)
	return x.in(FirstPart, p, tol) && x.in(SecondPart, p, tol)
}

func (x *Intersection) IsOutside(p r3.Vec, tol float64) bool {
	x.mustBeLocked()
	tol = x.Tolerance(tol)
	return x.out(FirstPart, p, tol) || x.out(SecondPart, p, tol)
}

func (x *Intersection) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	return x.onSurface(p, mask, tol, x.keep)
}

func (x *Intersection) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	return x.normal(p, face, [2]bool{}, x.keep)
}

func (x *Intersection) TrimFace(face FaceID, p r3.Vec, tol float64) (keep, flip bool) {
	return x.trimFace(face, p, tol, x.keep, [2]bool{})
}

func (x *Intersection) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	return x.findIntercept(from, dir, tol, x.keep)
}

// BuildBoundingData returns the overlap of the operand boxes. Disjoint boxes
// fall back to the box of first.
func (x *Intersection) BuildBoundingData() (BoundingData, bool) {
	b0, ok0 := x.operandBounds(FirstPart)
	b1, ok1 := x.operandBounds(SecondPart)
	switch {
	case ok0 && ok1:
		if b, ok := b0.Intersect(b1); ok {
			return b, true
		}
		return b0, true
	case ok0:
		return b0, true
	case ok1:
		return b1, true
	}
	return BoundingData{}, false
}

// GenerateWires keeps each operand's wires inside or on the other.
func (x *Intersection) GenerateWires(pl Placement, opts WireOption) Wires {
	keep := DomainInside | DomainSurface
	return x.generateWires(pl, opts, [2]Domain{keep, keep})
}
