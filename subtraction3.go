package csg

import "gonum.org/v1/gonum/spatial/r3"

// Subtraction is the solid first minus second.
type Subtraction struct {
	composite
}

var (
	_ Shape3      = (*Subtraction)(nil)
	_ FaceTrimmer = (*Subtraction)(nil)
)

// NewSubtraction returns the locked subtraction of second from first.
func NewSubtraction(first, second Operand) (*Subtraction, error) {
	s := NewSubtractionUnlocked()
	if err := s.SetOperands(first, second); err != nil {
		return nil, err
	}
	if err := s.Lock(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSubtractionUnlocked returns a subtraction without operands.
func NewSubtractionUnlocked() *Subtraction {
	s := &Subtraction{}
	s.initComposite("subtraction", s)
	return s
}

func (s *Subtraction) Lock() error { return s.lockComposite() }

func (s *Subtraction) Reset() { s.resetComposite() }

// keep accepts first's surface outside the removed volume and second's
// surface within first.
func (s *Subtraction) keep(part int32, p r3.Vec, tol float64) bool {
	if part == FirstPart {
		return !s.in(SecondPart, p, tol)
	}
	return !s.out(FirstPart, p, tol)
}

func (s *Subtraction) IsInside(p r3.Vec, tol float64) bool {
	s.mustBeLocked()
	tol = s.Tolerance(tol)
	return s.in(FirstPart, p, tol) && s.out(SecondPart, p, tol)
}

func (s *Subtraction) IsOutside(p r3.Vec, tol float64) bool {
	s.mustBeLocked()
	tol = s.Tolerance(tol)
	return s.out(FirstPart, p, tol) || s.in(SecondPart, p, tol)
}

func (s *Subtraction) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	return s.onSurface(p, mask, tol, s.keep)
}

// NormalOnSurface negates the normals of second, whose outside is the inside
// of the result.
func (s *Subtraction) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	return s.normal(p, face, [2]bool{false, true}, s.keep)
}

func (s *Subtraction) TrimFace(face FaceID, p r3.Vec, tol float64) (keep, flip bool) {
	return s.trimFace(face, p, tol, s.keep, [2]bool{false, true})
}

func (s *Subtraction) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	return s.findIntercept(from, dir, tol, s.keep)
}

// BuildBoundingData returns the box of first, which contains the result.
func (s *Subtraction) BuildBoundingData() (BoundingData, bool) {
	return s.operandBounds(FirstPart)
}

// GenerateWires keeps first's wires outside second and second's wires
// inside or on first.
func (s *Subtraction) GenerateWires(pl Placement, opts WireOption) Wires {
	return s.generateWires(pl, opts, [2]Domain{DomainOutside, DomainInside | DomainSurface})
}
