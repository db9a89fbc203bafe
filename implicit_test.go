package csg

import (
	"math"
	"testing"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

func mustImplicit(t testing.TB, s sdf.SDF3, err error) *Implicit {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
	im, err := NewImplicit(s)
	if err != nil {
		t.Fatal(err)
	}
	return im
}

func TestImplicitSphere(t *testing.T) {
	ball, err := sdf.Sphere3D(2)
	im := mustImplicit(t, ball, err)
	if !im.IsInside(r3.Vec{X: 1.9}, 0) || !im.IsOutside(r3.Vec{Y: 2.1}, 0) {
		t.Error("containment")
	}
	if f := im.OnSurface(r3.Vec{Z: 2}, FaceInvalid(), 0); f != FaceBits(ImplicitFaceSurface) {
		t.Errorf("OnSurface = %v", f)
	}
	fi := im.FindIntercept(r3.Vec{X: -5}, r3.Vec{X: 1}, 0)
	if !fi.IsOK() || !d3.EqualWithin(fi.Impact, r3.Vec{X: -2}, 1e-6) {
		t.Fatalf("intercept = %v", fi.Impact)
	}
	if n := im.NormalOnSurface(fi.Impact, fi.Face); !d3.EqualWithin(n, r3.Vec{X: -1}, 1e-6) {
		t.Errorf("normal = %v", n)
	}
	// Starting on the surface returns the far side.
	fi = im.FindIntercept(r3.Vec{X: -2}, r3.Vec{X: 1}, 0)
	if !fi.IsOK() || !d3.EqualWithin(fi.Impact, r3.Vec{X: 2}, 1e-6) {
		t.Errorf("intercept from the surface = %v", fi.Impact)
	}
	if fi := im.FindIntercept(r3.Vec{X: -5}, r3.Vec{X: -1}, 0); fi.IsOK() {
		t.Errorf("ray away from the sphere hit %v", fi.Impact)
	}
	bd, ok := im.BoundingData()
	if !ok || !d3.EqualWithin(bd.Max, d3.Elem(2), 1e-12) {
		t.Errorf("bounding data %v", bd)
	}
}

func TestImplicitMesh(t *testing.T) {
	ball, err := sdf.Sphere3D(2)
	im := mustImplicit(t, ball, err)
	im.Unlock()
	if err := im.SetMeshCells(16); err != nil {
		t.Fatal(err)
	}
	if err := im.Lock(); err != nil {
		t.Fatal(err)
	}
	faces := im.ComputedFaces()
	if len(faces) != 1 || faces[0].Label != "surface" {
		t.Fatalf("faces %v", faces)
	}
	tris := faces[0].Surface.Triangles()
	if len(tris) == 0 {
		t.Fatal("empty mesh")
	}
	for _, tri := range tris {
		for _, v := range tri.V {
			if math.Abs(r3.Norm(v)-2) > 0.25 {
				t.Fatalf("mesh vertex %v off the surface", v)
			}
		}
	}
	if a := faces[0].Surface.Area(); math.Abs(a-16*math.Pi)/(16*math.Pi) > 0.1 {
		t.Errorf("mesh area %g, want about %g", a, 16*math.Pi)
	}
}

// The subtraction of two boxes must agree with the sdfx difference of the
// same boxes away from the surfaces.
func TestSubtractionMatchesDistanceField(t *testing.T) {
	s, err := NewSubtraction(
		OwnedOperand(mustBox(t, 2, 2, 2), Identity()),
		OwnedOperand(mustBox(t, 1, 1, 3), PlacementAt(r3.Vec{X: 0.5})),
	)
	if err != nil {
		t.Fatal(err)
	}
	outer, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	inner, err := sdf.Box3D(v3.Vec{X: 1, Y: 1, Z: 3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	field := sdf.Difference3D(outer, sdf.Transform3D(inner, sdf.Translate3d(v3.Vec{X: 0.5})))
	for i := -15; i <= 15; i++ {
		for j := -15; j <= 15; j += 3 {
			for k := -15; k <= 15; k += 5 {
				p := r3.Vec{X: 0.1 * float64(i), Y: 0.1 * float64(j), Z: 0.1 * float64(k)}
				d := field.Evaluate(toV3(p))
				if math.Abs(d) < 0.01 {
					continue
				}
				want := DomainOutside
				if d < 0 {
					want = DomainInside
				}
				if got := WhereIs(s, p, 0); got != want {
					t.Fatalf("%v: %v, distance %g", p, got, d)
				}
			}
		}
	}
}

func TestImplicitOperand(t *testing.T) {
	box, err := sdf.Box3D(v3.Vec{X: 2, Y: 2, Z: 2}, 0)
	cube := mustImplicit(t, box, err)
	s, err := NewSubtraction(
		BorrowedOperand(cube, Identity()),
		OwnedOperand(mustSphere(t, 0.5), Identity()),
	)
	if err != nil {
		t.Fatal(err)
	}
	fi := s.FindIntercept(r3.Vec{X: -3}, r3.Vec{X: 1}, 0)
	if !d3.EqualWithin(fi.Impact, r3.Vec{X: -1}, 1e-6) || fi.Face.Part(0) != FirstPart {
		t.Errorf("from outside: %v %v", fi.Impact, fi.Face)
	}
	fi = s.FindIntercept(r3.Vec{}, r3.Vec{X: 1}, 0)
	if !d3.EqualWithin(fi.Impact, r3.Vec{X: 0.5}, 1e-12) || fi.Face.Part(0) != SecondPart {
		t.Fatalf("from the cavity: %v %v", fi.Impact, fi.Face)
	}
	if n := s.NormalOnSurface(fi.Impact, fi.Face); !d3.EqualWithin(n, r3.Vec{X: -1}, 1e-12) {
		t.Errorf("cavity normal = %v", n)
	}
	if WhereIs(s, r3.Vec{X: 0.8}, 0) != DomainInside || WhereIs(s, r3.Vec{X: 0.2}, 0) != DomainOutside {
		t.Error("shell classification")
	}
}
