package csg

import "gonum.org/v1/gonum/spatial/r3"

// Union is the solid covered by either operand.
type Union struct {
	composite
}

var (
	_ Shape3      = (*Union)(nil)
	_ FaceTrimmer = (*Union)(nil)
)

// NewUnion returns the locked union of first and second.
func NewUnion(first, second Operand) (*Union, error) {
	u := NewUnionUnlocked()
	if err := u.SetOperands(first, second); err != nil {
		return nil, err
	}
	if err := u.Lock(); err != nil {
		return nil, err
	}
	return u, nil
}

// NewUnionUnlocked returns a union without operands.
func NewUnionUnlocked() *Union {
	u := &Union{}
	u.initComposite("union", u)
	return u
}

func (u *Union) Lock() error { return u.lockComposite() }

func (u *Union) Reset() { u.resetComposite() }

// keep accepts the surface of each operand not buried in the other.
func (u *Union) keep(part int32, p r3.Vec, tol float64) bool {
	return !u.in(1-part, p, tol)
}

func (u *Union) IsInside(p r3.Vec, tol float64) bool {
	u.mustBeLocked()
	tol = u.Tolerance(tol)
	return u.in(FirstPart, p, tol) || u.in(SecondPart, p, tol)
}

func (u *Union) IsOutside(p r3.Vec, tol float64) bool {
	u.mustBeLocked()
	tol = u.Tolerance(tol)
	return u.out(FirstPart, p, tol) && u.out(SecondPart, p, tol)
}

func (u *Union) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	return u.onSurface(p, mask, tol, u.keep)
}

func (u *Union) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	return u.normal(p, face, [2]bool{}, u.keep)
}

func (u *Union) TrimFace(face FaceID, p r3.Vec, tol float64) (keep, flip bool) {
	return u.trimFace(face, p, tol, u.keep, [2]bool{})
}

func (u *Union) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	return u.findIntercept(from, dir, tol, u.keep)
}

// BuildBoundingData returns the box enclosing both operand boxes.
func (u *Union) BuildBoundingData() (BoundingData, bool) {
	b0, ok0 := u.operandBounds(FirstPart)
	b1, ok1 := u.operandBounds(SecondPart)
	if !ok0 || !ok1 {
		return BoundingData{}, false
	}
	return b0.Extend(b1), true
}

// GenerateWires keeps each operand's wires that are not inside the other.
func (u *Union) GenerateWires(pl Placement, opts WireOption) Wires {
	keep := DomainOutside | DomainSurface
	return u.generateWires(pl, opts, [2]Domain{keep, keep})
}
