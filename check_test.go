package csg

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r3"
)

func checkShapes(t *testing.T) map[string]Shape3 {
	a, b := shiftedBoxes(t)
	u, err := NewUnion(a, b)
	if err != nil {
		t.Fatal(err)
	}
	x, err := NewIntersection(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return map[string]Shape3{
		"box":          mustBox(t, 1, 1, 1),
		"sphere":       mustSphere(t, 0.7),
		"subtraction":  scenarioA(t),
		"union":        u,
		"intersection": x,
	}
}

// forGrid calls f on a grid with 0.1 spacing that passes through faces.
func forGrid(f func(p r3.Vec)) {
	for i := -12; i <= 12; i++ {
		for j := -8; j <= 8; j++ {
			for k := -8; k <= 8; k += 2 {
				f(r3.Vec{X: 0.1 * float64(i), Y: 0.1 * float64(j), Z: 0.1 * float64(k)})
			}
		}
	}
}

func TestCheckPartition(t *testing.T) {
	for name, s := range checkShapes(t) {
		forGrid(func(p r3.Vec) {
			n := 0
			for _, ok := range []bool{CheckInside(s, p, 0), CheckSurface(s, p, 0), CheckOutside(s, p, 0)} {
				if ok {
					n++
				}
			}
			if n != 1 {
				t.Errorf("%s at %v: %d domains hold", name, p, n)
			}
			if WhereIs(s, p, 0) == DomainNone {
				t.Errorf("%s at %v: unclassified", name, p)
			}
		})
	}
}

func TestBoundingDataContainsShape(t *testing.T) {
	for name, s := range checkShapes(t) {
		bd, ok := s.BoundingData()
		if !ok {
			t.Fatalf("%s: no bounding data", name)
		}
		sd, ok := s.(interface{ Stackable() (StackableData, bool) })
		forGrid(func(p r3.Vec) {
			if WhereIs(s, p, 0) == DomainOutside {
				return
			}
			if !bd.Contains(p, s.Tolerance(0)) {
				t.Errorf("%s: %v not in bounding data %v", name, p, bd)
			}
			if !ok {
				return
			}
			if st, _ := sd.Stackable(); p.X < st.Min.X-1e-9 || p.X > st.Max.X+1e-9 {
				t.Errorf("%s: %v not in stackable data %v", name, p, st)
			}
		})
	}
}

func TestCheckTolerance(t *testing.T) {
	b := mustBox(t, 1, 1, 1)
	p := r3.Vec{X: 0.5 + 0.04}
	if CheckSurface(b, p, 0) {
		t.Error("point 0.04 off the face is on the surface with the default skin")
	}
	if !CheckSurface(b, p, 0.1) {
		t.Error("point 0.04 off the face is not on the surface with tolerance 0.1")
	}
	b.Unlock()
	if err := b.SetSkin(0.1); err != nil {
		t.Fatal(err)
	}
	if err := b.Lock(); err != nil {
		t.Fatal(err)
	}
	if WhereIs(b, p, 0) != DomainSurface {
		t.Error("skin not used as default tolerance")
	}
	if WhereIs(b, p, 1e-3) != DomainOutside {
		t.Error("explicit tolerance should override the skin")
	}
	// Far points are rejected on the bounding data alone.
	if !CheckOutside(b, r3.Vec{X: 10}, 0) || CheckSurface(b, r3.Vec{X: 10}, 0) {
		t.Error("far point misclassified")
	}
}

func TestIsOnSurfaceMask(t *testing.T) {
	b := mustBox(t, 1, 1, 1)
	back := r3.Vec{X: -0.5}
	if !IsOnSurface(b, back, FaceInvalid(), 0) || !IsOnSurface(b, back, FaceBits(BoxFaceBack), 0) {
		t.Error("back face point not on surface")
	}
	if IsOnSurface(b, back, FaceBits(BoxFaceFront), 0) {
		t.Error("back face point matched the front mask")
	}

	s := scenarioA(t)
	carved := r3.Vec{X: -0.2, Y: 0.1}
	if !IsOnSurface(s, carved, FaceBits(BoxFaceBack).PrependPart(SecondPart), 0) {
		t.Error("carved face not matched by its part mask")
	}
	if IsOnSurface(s, carved, AnyFaceBits().PrependPart(FirstPart), 0) {
		t.Error("carved face matched the first part mask")
	}
	mustPanic(t, ErrNoPartMask, func() { IsOnSurface(s, carved, FaceBits(BoxFaceBack), 0) })
}

func TestDomainString(t *testing.T) {
	for _, test := range []struct {
		d    Domain
		want string
	}{
		{DomainNone, "none"},
		{DomainInside, "inside"},
		{DomainSurface | DomainOutside, "outside|surface"},
		{DomainDaughterSurface, "daughter_surface"},
		{DomainInside | DomainInsideDaughter, "inside|inside_daughter"},
	} {
		if got := test.d.String(); got != test.want {
			t.Errorf("%d: %q, want %q", test.d, got, test.want)
		}
	}
}
