package csg

import (
	"math"
	"testing"

	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

const geomTol = 1e-12

func TestPlacementRotation(t *testing.T) {
	pl := NewPlacement(r3.Vec{X: 1, Y: 2, Z: 3}, r3.Vec{Z: 2}, math.Pi/2)
	got := pl.ChildToMother(r3.Vec{X: 1})
	want := r3.Vec{X: 1, Y: 3, Z: 3}
	if !d3.EqualWithin(got, want, geomTol) {
		t.Errorf("ChildToMother = %v, want %v", got, want)
	}
	if back := pl.MotherToChild(got); !d3.EqualWithin(back, r3.Vec{X: 1}, geomTol) {
		t.Errorf("MotherToChild round trip = %v", back)
	}
	if d := pl.ChildToMotherDirection(r3.Vec{Y: 1}); !d3.EqualWithin(d, r3.Vec{X: -1}, geomTol) {
		t.Errorf("ChildToMotherDirection = %v", d)
	}
}

func TestPlacementIdentity(t *testing.T) {
	var pl Placement
	if pl.HasRotation() {
		t.Error("zero placement rotates")
	}
	p := r3.Vec{X: 1.5, Y: -2, Z: 7}
	if pl.ChildToMother(p) != p || pl.MotherToChild(p) != p {
		t.Error("zero placement moves points")
	}
	if NewPlacement(r3.Vec{}, r3.Vec{}, 1).HasRotation() {
		t.Error("zero axis rotates")
	}
}

func TestPlacementComposeInverse(t *testing.T) {
	a := NewPlacement(r3.Vec{X: 1}, r3.Vec{X: 1, Y: 1}, 0.7)
	b := NewPlacement(r3.Vec{Y: -2, Z: 0.5}, r3.Vec{Z: 1}, -1.3)
	c := a.Compose(b)
	for _, p := range []r3.Vec{{}, {X: 1}, {X: -3, Y: 2, Z: 5}} {
		want := a.ChildToMother(b.ChildToMother(p))
		if got := c.ChildToMother(p); !d3.EqualWithin(got, want, geomTol) {
			t.Errorf("Compose(%v) = %v, want %v", p, got, want)
		}
		if got := a.Inverse().ChildToMother(a.ChildToMother(p)); !d3.EqualWithin(got, p, geomTol) {
			t.Errorf("Inverse round trip of %v = %v", p, got)
		}
	}
}

func TestPlacementZYZ(t *testing.T) {
	pl := PlacementZYZ(r3.Vec{}, math.Pi/2, 0, 0)
	if got := pl.ChildToMother(r3.Vec{X: 1}); !d3.EqualWithin(got, r3.Vec{Y: 1}, geomTol) {
		t.Errorf("phi rotation = %v", got)
	}
	pl = PlacementZYZ(r3.Vec{Z: 1}, 0, math.Pi/2, 0)
	if got := pl.ChildToMother(r3.Vec{Z: 1}); !d3.EqualWithin(got, r3.Vec{X: 1, Z: 1}, geomTol) {
		t.Errorf("theta rotation = %v", got)
	}
}
