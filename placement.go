package csg

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
	"gonum.org/v1/gonum/spatial/r3"
)

// Placement is a rigid transform mapping a child frame into its mother frame:
//  pMother = R*pChild + Translation
// The zero value is the identity placement.
type Placement struct {
	Translation r3.Vec
	// rot is a unit quaternion. The zero quaternion stands for identity.
	rot quat.Number
}

// Identity returns the identity placement.
func Identity() Placement { return Placement{} }

// PlacementAt returns a pure translation.
func PlacementAt(t r3.Vec) Placement {
	return Placement{Translation: t}
}

// NewPlacement returns a placement rotating by angle radians around axis,
// then translating by t. A zero axis yields no rotation.
func NewPlacement(t r3.Vec, axis r3.Vec, angle float64) Placement {
	p := Placement{Translation: t}
	if r3.Norm2(axis) == 0 || angle == 0 {
		return p
	}
	p.rot = quat.Number(r3.NewRotation(angle, r3.Unit(axis)))
	return p
}

// PlacementZYZ returns a placement with rotation Rz(phi)*Ry(theta)*Rz(delta),
// the Euler convention of the geometry description files.
func PlacementZYZ(t r3.Vec, phi, theta, delta float64) Placement {
	z := r3.Vec{Z: 1}
	y := r3.Vec{Y: 1}
	a := NewPlacement(r3.Vec{}, z, phi)
	b := NewPlacement(r3.Vec{}, y, theta)
	c := NewPlacement(r3.Vec{}, z, delta)
	p := a.Compose(b).Compose(c)
	p.Translation = t
	return p
}

func (p Placement) q() quat.Number {
	if p.rot == (quat.Number{}) {
		return quat.Number{Real: 1}
	}
	return p.rot
}

// HasRotation reports whether p rotates vectors.
func (p Placement) HasRotation() bool {
	q := p.q()
	return q != quat.Number{Real: 1} && q != quat.Number{Real: -1}
}

// Rotation returns the rotation part of p.
func (p Placement) Rotation() r3.Rotation { return r3.Rotation(p.q()) }

// ChildToMother maps a point from the child frame to the mother frame.
func (p Placement) ChildToMother(v r3.Vec) r3.Vec {
	return r3.Add(p.ChildToMotherDirection(v), p.Translation)
}

// MotherToChild maps a point from the mother frame to the child frame.
func (p Placement) MotherToChild(v r3.Vec) r3.Vec {
	return p.MotherToChildDirection(r3.Sub(v, p.Translation))
}

// ChildToMotherDirection rotates a direction from the child to the mother frame.
func (p Placement) ChildToMotherDirection(d r3.Vec) r3.Vec {
	if !p.HasRotation() {
		return d
	}
	return r3.Rotation(p.rot).Rotate(d)
}

// MotherToChildDirection rotates a direction from the mother to the child frame.
func (p Placement) MotherToChildDirection(d r3.Vec) r3.Vec {
	if !p.HasRotation() {
		return d
	}
	return r3.Rotation(quat.Conj(p.rot)).Rotate(d)
}

// Inverse returns the placement mapping mother coordinates to child coordinates.
func (p Placement) Inverse() Placement {
	inv := Placement{rot: quat.Conj(p.q())}
	inv.Translation = r3.Scale(-1, inv.ChildToMotherDirection(p.Translation))
	return inv
}

// Compose returns the placement of a grandchild placed by child within p's child frame.
func (p Placement) Compose(child Placement) Placement {
	out := Placement{
		Translation: p.ChildToMother(child.Translation),
		rot:         quat.Mul(p.q(), child.q()),
	}
	if n := quat.Abs(out.rot); n != 0 && math.Abs(n-1) > 1e-12 {
		out.rot = quat.Scale(1/n, out.rot)
	}
	return out
}

// Translated returns p with its translation shifted by d in the mother frame.
func (p Placement) Translated(d r3.Vec) Placement {
	p.Translation = r3.Add(p.Translation, d)
	return p
}
