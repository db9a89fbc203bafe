package csg

import (
	"errors"
	"math"
	"testing"

	"github.com/soypat/csg/internal/d3"
	"github.com/soypat/csg/props"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

func mustBox(t testing.TB, x, y, z float64) *Box {
	t.Helper()
	b, err := NewBox(x, y, z)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func mustSphere(t testing.TB, r float64) *Sphere {
	t.Helper()
	s, err := NewSphere(r)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestBoxClassify(t *testing.T) {
	b := mustBox(t, 1, 2, 3)
	for _, test := range []struct {
		p    r3.Vec
		want Domain
		face uint32
	}{
		{r3.Vec{}, DomainInside, 0},
		{r3.Vec{X: 0.4, Y: 0.9, Z: -1.4}, DomainInside, 0},
		{r3.Vec{X: 0.5}, DomainSurface, BoxFaceFront},
		{r3.Vec{X: -0.5}, DomainSurface, BoxFaceBack},
		{r3.Vec{Y: 1}, DomainSurface, BoxFaceRight},
		{r3.Vec{Z: -1.5}, DomainSurface, BoxFaceBottom},
		{r3.Vec{X: 0.5, Y: 1, Z: 1.5}, DomainSurface, BoxFaceFront},
		{r3.Vec{X: 0.6}, DomainOutside, 0},
		{r3.Vec{Z: 10}, DomainOutside, 0},
	} {
		if got := WhereIs(b, test.p, 0); got != test.want {
			t.Errorf("WhereIs(%v) = %v, want %v", test.p, got, test.want)
		}
		if test.face == 0 {
			continue
		}
		if f := b.OnSurface(test.p, FaceInvalid(), 0); f != FaceBits(test.face) {
			t.Errorf("OnSurface(%v) = %v, want bits %b", test.p, f, test.face)
		}
	}
	if f := b.OnSurface(r3.Vec{X: 0.5}, FaceBits(BoxFaceTop), 0); f.IsValid() {
		t.Errorf("masked OnSurface = %v, want invalid", f)
	}
	if !b.IsInside(r3.Vec{X: 0.45}, 0) || b.IsInside(r3.Vec{X: 0.45}, 0.2) {
		t.Error("explicit tolerance not honored")
	}
}

func TestBoxIntercept(t *testing.T) {
	b := mustBox(t, 1, 2, 3)
	for _, test := range []struct {
		from, dir, want r3.Vec
		face            uint32
	}{
		{r3.Vec{X: 5}, r3.Vec{X: -1}, r3.Vec{X: 0.5}, BoxFaceFront},
		{r3.Vec{}, r3.Vec{Z: 1}, r3.Vec{Z: 1.5}, BoxFaceTop},
		{r3.Vec{Y: -4}, r3.Vec{Y: 2}, r3.Vec{Y: -1}, BoxFaceLeft},
		{r3.Vec{X: 0.5}, r3.Vec{X: -1}, r3.Vec{X: -0.5}, BoxFaceBack},
	} {
		fi := b.FindIntercept(test.from, test.dir, 0)
		if !fi.IsOK() {
			t.Errorf("FindIntercept(%v, %v): no hit", test.from, test.dir)
			continue
		}
		if !d3.EqualWithin(fi.Impact, test.want, 1e-12) || fi.Face != FaceBits(test.face) {
			t.Errorf("FindIntercept(%v, %v) = %v %v, want %v bits %b", test.from, test.dir, fi.Impact, fi.Face, test.want, test.face)
		}
	}
	if fi := b.FindIntercept(r3.Vec{X: 5}, r3.Vec{X: 1}, 0); fi.IsOK() {
		t.Errorf("ray away from box hit at %v", fi.Impact)
	}
}

func TestBoxFacesOutward(t *testing.T) {
	b := mustBox(t, 1, 2, 3)
	faces := b.ComputedFaces()
	if len(faces) != 6 {
		t.Fatalf("got %d faces, want 6", len(faces))
	}
	var area float64
	for i, f := range faces {
		n := f.Surface.Normal(r3.Vec{})
		want := b.NormalOnSurface(r3.Vec{}, f.ID)
		if !d3.EqualWithin(n, want, 1e-12) {
			t.Errorf("face %d (%s) normal %v, want %v", i, f.Label, n, want)
		}
		area += f.Surface.Area()
	}
	if math.Abs(area-b.SurfaceArea()) > 1e-12 {
		t.Errorf("faces area %g, want %g", area, b.SurfaceArea())
	}
	if b.Volume() != 6 || b.SurfaceArea() != 22 {
		t.Errorf("volume %g area %g", b.Volume(), b.SurfaceArea())
	}
}

func TestBoxLifecycle(t *testing.T) {
	if _, err := NewBox(0, 1, 1); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("zero extent: got %v", err)
	}
	b := mustBox(t, 1, 1, 1)
	if err := b.SetDimensions(2, 2, 2); !errors.Is(err, ErrLocked) {
		t.Errorf("SetDimensions on locked box: %v", err)
	}
	b.Unlock()
	if err := b.SetDimensions(2, 4, 6); err != nil {
		t.Fatal(err)
	}
	if err := b.Lock(); err != nil {
		t.Fatal(err)
	}
	bd, ok := b.BoundingData()
	if !ok || bd.Max != (r3.Vec{X: 1, Y: 2, Z: 3}) {
		t.Errorf("bounding data after relock: %v %v", bd, ok)
	}
	b.Reset()
	if b.IsLocked() || b.IsValid() || b.Lock() == nil {
		t.Error("reset box should be unlocked and invalid")
	}
}

func TestBoxInitialize(t *testing.T) {
	p := props.FromMap(map[string]any{
		"x":             "1 cm",
		"y":             20,
		"z":             0.3,
		"length_unit":   "cm",
		"skin":          "1 um",
		"forced_volume": "2 cm3",
	})
	b := NewBoxUnlocked()
	if err := b.Initialize(p); err != nil {
		t.Fatal(err)
	}
	if err := b.Lock(); err != nil {
		t.Fatal(err)
	}
	if got := b.Dimensions(); !d3.EqualWithin(got, r3.Vec{X: 10, Y: 200, Z: 3}, 1e-9) {
		t.Errorf("dimensions %v", got)
	}
	if math.Abs(b.Skin()-1e-3) > 1e-15 || b.Tolerance(0) != b.Skin() {
		t.Errorf("skin %g", b.Skin())
	}
	if math.Abs(EffectiveVolume(b)-2000) > 1e-9 {
		t.Errorf("effective volume %g, want forced 2000", EffectiveVolume(b))
	}

	missing := props.FromMap(map[string]any{"x": 1, "y": 1})
	if err := NewBoxUnlocked().Initialize(missing); !errors.Is(err, ErrMissingProperty) {
		t.Errorf("missing z: got %v", err)
	}
	negative := props.FromMap(map[string]any{"x": 1, "y": 1, "z": -1})
	if err := NewBoxUnlocked().Initialize(negative); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("negative z: got %v", err)
	}
}

func TestForcedVolumePanics(t *testing.T) {
	b := mustBox(t, 1, 1, 1)
	if EffectiveVolume(b) != 1 {
		t.Errorf("effective volume %g", EffectiveVolume(b))
	}
	defer func() {
		if r := recover(); r != ErrNoForcedVolume {
			t.Errorf("recovered %v, want ErrNoForcedVolume", r)
		}
	}()
	b.ForcedVolume()
}

func TestSphere(t *testing.T) {
	s := mustSphere(t, 2)
	if !s.IsInside(r3.Vec{X: 1}, 0) || !s.IsOutside(r3.Vec{X: 2.1}, 0) {
		t.Error("sphere containment")
	}
	if f := s.OnSurface(r3.Vec{Y: 2}, FaceInvalid(), 0); f != FaceBits(SphereFaceOuter) {
		t.Errorf("OnSurface = %v", f)
	}
	if n := s.NormalOnSurface(r3.Vec{Y: 2}, FaceBits(SphereFaceOuter)); !d3.EqualWithin(n, r3.Vec{Y: 1}, 1e-15) {
		t.Errorf("normal %v", n)
	}
	for _, test := range []struct{ from, dir, want r3.Vec }{
		{r3.Vec{Z: -5}, r3.Vec{Z: 1}, r3.Vec{Z: -2}},
		{r3.Vec{}, r3.Vec{Z: 3}, r3.Vec{Z: 2}},
		{r3.Vec{Z: -2}, r3.Vec{Z: 1}, r3.Vec{Z: 2}},
	} {
		fi := s.FindIntercept(test.from, test.dir, 0)
		if !fi.IsOK() || !d3.EqualWithin(fi.Impact, test.want, 1e-12) {
			t.Errorf("FindIntercept(%v, %v) = %v", test.from, test.dir, fi.Impact)
		}
	}
	if fi := s.FindIntercept(r3.Vec{X: 3}, r3.Vec{Z: 1}, 0); fi.IsOK() {
		t.Error("ray missing the sphere reported a hit")
	}
	if math.Abs(s.Volume()-32*math.Pi/3) > 1e-12 {
		t.Errorf("volume %g", s.Volume())
	}
	for _, tri := range s.ComputedFaces()[0].Surface.Triangles() {
		c := r3.Scale(1.0/3, r3.Add(tri.V[0], r3.Add(tri.V[1], tri.V[2])))
		if r3.Dot(tri.Normal(c), c) <= 0 {
			t.Fatalf("sphere mesh triangle %v wound inward", tri.V)
		}
	}
}

func triangleWall(t testing.TB) *Wall {
	t.Helper()
	w, err := NewWall([]r2.Vec{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}}, 10)
	if err != nil {
		t.Fatal(err)
	}
	return w
}

func TestWallFaces(t *testing.T) {
	w := triangleWall(t)
	faces := w.ComputedFaces()
	if len(faces) != 3 {
		t.Fatalf("got %d faces, want 3", len(faces))
	}
	side, ok := faces[0].Surface.(*CompositeSurface)
	if !ok || len(side.Faces) != 3 {
		t.Fatalf("side surface %T", faces[0].Surface)
	}
	for _, f := range faces[1:] {
		if c := f.Surface.(*CompositeSurface); len(c.Faces) != 1 {
			t.Errorf("%s has %d triangles", f.Label, len(c.Faces))
		}
	}
	if w.Volume() != 60 {
		t.Errorf("volume %g", w.Volume())
	}
	if got, want := w.SurfaceArea(), 2*6+10*12.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("area %g, want %g", got, want)
	}
	bd, _ := w.BoundingData()
	if bd.Min != (r3.Vec{Z: -5}) || bd.Max != (r3.Vec{X: 4, Y: 3, Z: 5}) {
		t.Errorf("bounding data %v", bd)
	}
}

func TestWallClassify(t *testing.T) {
	for _, base := range [][]r2.Vec{
		{{X: 0, Y: 0}, {X: 4, Y: 0}, {X: 0, Y: 3}},
		{{X: 0, Y: 0}, {X: 0, Y: 3}, {X: 4, Y: 0}},
	} {
		w, err := NewWall(base, 10)
		if err != nil {
			t.Fatal(err)
		}
		for _, test := range []struct {
			p      r3.Vec
			want   Domain
			face   uint32
			normal r3.Vec
		}{
			{r3.Vec{X: 1, Y: 1}, DomainInside, 0, r3.Vec{}},
			{r3.Vec{X: 1, Y: 1, Z: 5}, DomainSurface, WallFaceTop, r3.Vec{Z: 1}},
			{r3.Vec{X: 1, Y: 1, Z: -5}, DomainSurface, WallFaceBottom, r3.Vec{Z: -1}},
			{r3.Vec{X: 2, Z: 1}, DomainSurface, WallFaceSide, r3.Vec{Y: -1}},
			{r3.Vec{Y: 1, Z: -2}, DomainSurface, WallFaceSide, r3.Vec{X: -1}},
			{r3.Vec{X: 3, Y: 3}, DomainOutside, 0, r3.Vec{}},
			{r3.Vec{X: 1, Y: 1, Z: 6}, DomainOutside, 0, r3.Vec{}},
		} {
			if got := WhereIs(w, test.p, 0); got != test.want {
				t.Errorf("clockwise=%v WhereIs(%v) = %v, want %v", w.Base().IsClockwise(), test.p, got, test.want)
			}
			if test.face == 0 {
				continue
			}
			f := w.OnSurface(test.p, FaceInvalid(), 0)
			if f != FaceBits(test.face) {
				t.Errorf("OnSurface(%v) = %v, want bits %b", test.p, f, test.face)
				continue
			}
			if n := w.NormalOnSurface(test.p, f); !d3.EqualWithin(n, test.normal, 1e-12) {
				t.Errorf("clockwise=%v normal at %v = %v, want %v", w.Base().IsClockwise(), test.p, n, test.normal)
			}
		}
	}
}

func TestWallIntercept(t *testing.T) {
	w := triangleWall(t)
	for _, test := range []struct {
		from, dir, want r3.Vec
		face            uint32
	}{
		{r3.Vec{X: 1, Y: 1, Z: 20}, r3.Vec{Z: -1}, r3.Vec{X: 1, Y: 1, Z: 5}, WallFaceTop},
		{r3.Vec{X: 1, Y: -5}, r3.Vec{Y: 1}, r3.Vec{X: 1}, WallFaceSide},
		{r3.Vec{X: 1, Y: 1}, r3.Vec{Z: -1}, r3.Vec{X: 1, Y: 1, Z: -5}, WallFaceBottom},
	} {
		fi := w.FindIntercept(test.from, test.dir, 0)
		if !fi.IsOK() || !d3.EqualWithin(fi.Impact, test.want, 1e-9) || fi.Face != FaceBits(test.face) {
			t.Errorf("FindIntercept(%v, %v) = %v %v", test.from, test.dir, fi.Impact, fi.Face)
		}
	}
}

func TestWallInitialize(t *testing.T) {
	p, err := props.Parse([]byte(`
length_unit: cm
z: 5 mm
base:
  x: [0, 1, 1, 0]
  y: [0, 0, 2, 2]
`))
	if err != nil {
		t.Fatal(err)
	}
	w := NewWallUnlocked()
	if err := w.Initialize(p); err != nil {
		t.Fatal(err)
	}
	if err := w.Lock(); err != nil {
		t.Fatal(err)
	}
	if w.Z() != 5 || math.Abs(w.Volume()-5*200) > 1e-9 {
		t.Errorf("z %g volume %g", w.Z(), w.Volume())
	}
	bad, _ := props.Parse([]byte("z: 1\nbase:\n  x: [0, 1]\n  y: [0, 0, 1]\n"))
	if err := NewWallUnlocked().Initialize(bad); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("mismatched base: got %v", err)
	}
}

func TestStackable(t *testing.T) {
	b := mustBox(t, 2, 2, 2)
	sd, ok := b.Stackable()
	if !ok || sd.Min != (r3.Vec{X: -1, Y: -1, Z: -1}) || b.HasEnforcedStackable() {
		t.Errorf("derived stackable %v %v", sd, ok)
	}
	b.Unlock()
	want := StackableData{Min: r3.Vec{Z: -3}, Max: r3.Vec{X: 1, Y: 1, Z: 3}}
	if err := b.SetStackableData(want); err != nil {
		t.Fatal(err)
	}
	if sd, _ := b.Stackable(); sd != want || !b.HasEnforcedStackable() {
		t.Errorf("enforced stackable %v", sd)
	}
	if err := b.SetStackableData(StackableData{Min: r3.Vec{X: 1}, Max: r3.Vec{}}); !errors.Is(err, ErrInvalidShape) {
		t.Errorf("reversed stackable: %v", err)
	}
}
