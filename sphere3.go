package csg

import (
	"fmt"
	"math"

	"github.com/soypat/csg/internal/d3"
	"github.com/soypat/csg/props"
	"gonum.org/v1/gonum/spatial/r3"
)

// SphereFaceOuter is the only face of a Sphere.
const SphereFaceOuter uint32 = 1

// Sphere is a full sphere centered on the origin.
type Sphere struct {
	ShapeBase
	r float64
}

var _ Shape3 = (*Sphere)(nil)

// NewSphere returns a locked sphere of radius r.
func NewSphere(r float64) (*Sphere, error) {
	s := &Sphere{r: math.NaN()}
	s.InitBase(s)
	if err := s.SetRadius(r); err != nil {
		return nil, err
	}
	if err := s.Lock(); err != nil {
		return nil, err
	}
	return s, nil
}

// NewSphereUnlocked returns a sphere with unset radius.
func NewSphereUnlocked() *Sphere {
	s := &Sphere{r: math.NaN()}
	s.InitBase(s)
	return s
}

func (s *Sphere) ShapeName() string { return "sphere" }

func (s *Sphere) SetRadius(r float64) error {
	if err := s.checkUnlocked(); err != nil {
		return err
	}
	if !(r > 0) || math.IsInf(r, 1) {
		return fmt.Errorf("sphere radius %g: %w", r, ErrInvalidShape)
	}
	s.r = r
	return nil
}

func (s *Sphere) Radius() float64 { return s.r }

// Initialize reads the length r plus the common shape properties.
func (s *Sphere) Initialize(p props.Properties) error {
	if err := s.InitializeBase(p); err != nil {
		return err
	}
	r, err := fetchPositiveLength(p, "r")
	if err != nil {
		return fmt.Errorf("sphere: %w", err)
	}
	return s.SetRadius(r)
}

func (s *Sphere) Lock() error {
	if !(s.r > 0) {
		return fmt.Errorf("sphere: %w", ErrInvalidShape)
	}
	return s.LockBase()
}

func (s *Sphere) Reset() {
	s.ResetBase()
	s.r = math.NaN()
}

func (s *Sphere) IsInside(p r3.Vec, tol float64) bool {
	return r3.Norm(p) < s.r-s.Tolerance(tol)/2
}

func (s *Sphere) IsOutside(p r3.Vec, tol float64) bool {
	return r3.Norm(p) > s.r+s.Tolerance(tol)/2
}

func (s *Sphere) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	if mask.allowsBit(SphereFaceOuter) && withinSkin(r3.Norm(p)-s.r, s.Tolerance(tol)) {
		return FaceBits(SphereFaceOuter)
	}
	return FaceInvalid()
}

func (s *Sphere) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	if !face.HasFaceBit(SphereFaceOuter) || r3.Norm2(p) == 0 {
		return d3.NaN()
	}
	return r3.Unit(p)
}

// FindIntercept solves |from + t*dir| = r for the smallest t > 0.
func (s *Sphere) FindIntercept(from, dir r3.Vec, _ float64) FaceIntercept {
	a := r3.Norm2(dir)
	if a == 0 {
		return NoIntercept()
	}
	b := r3.Dot(from, dir)
	c := r3.Norm2(from) - s.r*s.r
	disc := b*b - a*c
	if disc < 0 {
		return NoIntercept()
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / a
	if t <= 0 {
		t = (-b + sq) / a
	}
	if t <= 0 {
		return NoIntercept()
	}
	return FaceIntercept{Impact: r3.Add(from, r3.Scale(t, dir)), Face: FaceBits(SphereFaceOuter)}
}

func (s *Sphere) MakeAnyFace() FaceID { return AnyFaceBits() }

func (s *Sphere) Volume() float64 { return 4.0 / 3.0 * math.Pi * s.r * s.r * s.r }

func (s *Sphere) SurfaceArea() float64 { return 4 * math.Pi * s.r * s.r }

func (s *Sphere) BuildBoundingData() (BoundingData, bool) {
	return NewBoundingData(d3.Elem(-s.r), d3.Elem(s.r)), true
}

func (s *Sphere) ComputeFaces() []FaceInfo {
	return []FaceInfo{{
		Surface: SphericalSurface{R: s.r},
		ID:      FaceBits(SphereFaceOuter),
		Label:   "outer",
	}}
}

// GenerateWires draws three great circles and two latitude rings.
func (s *Sphere) GenerateWires(pl Placement, opts WireOption) Wires {
	n := 36
	if opts&WireBoostSampling != 0 {
		n = 144
	}
	x, y, z := r3.Vec{X: 1}, r3.Vec{Y: 1}, r3.Vec{Z: 1}
	var o r3.Vec
	w := Wires{
		circle(o, x, y, s.r, n),
		circle(o, y, z, s.r, n),
		circle(o, z, x, s.r, n),
	}
	for _, lat := range []float64{-math.Pi / 4, math.Pi / 4} {
		sin, cos := math.Sincos(lat)
		w = append(w, circle(r3.Vec{Z: s.r * sin}, x, y, s.r*cos, n))
	}
	return placeWires(w, pl)
}

// SphericalSurface is a sphere surface of radius R centered on the origin.
type SphericalSurface struct {
	R float64
}

func (s SphericalSurface) IsOnSurface(p r3.Vec, tol float64) bool {
	return withinSkin(r3.Norm(p)-s.R, tol)
}

func (s SphericalSurface) Normal(p r3.Vec) r3.Vec { return r3.Unit(p) }

func (s SphericalSurface) FindIntercept(from, dir r3.Vec, tol float64) (r3.Vec, bool) {
	sp := Sphere{r: s.R}
	fi := sp.FindIntercept(from, dir, tol)
	return fi.Impact, fi.IsOK()
}

func (s SphericalSurface) Area() float64 { return 4 * math.Pi * s.R * s.R }

// Triangles returns a UV mesh with 24 meridians and 12 parallels.
func (s SphericalSurface) Triangles() []Triangle {
	const nu, nv = 24, 12
	at := func(i, j int) r3.Vec {
		theta := math.Pi * float64(j) / nv
		phi := 2 * math.Pi * float64(i) / nu
		st, ct := math.Sincos(theta)
		sp, cp := math.Sincos(phi)
		return r3.Vec{X: s.R * st * cp, Y: s.R * st * sp, Z: s.R * ct}
	}
	var out []Triangle
	for j := 0; j < nv; j++ {
		for i := 0; i < nu; i++ {
			a, b := at(i, j), at(i+1, j)
			c, d := at(i+1, j+1), at(i, j+1)
			if j > 0 {
				out = append(out, Triangle{V: [3]r3.Vec{a, d, b}})
			}
			if j < nv-1 {
				out = append(out, Triangle{V: [3]r3.Vec{b, d, c}})
			}
		}
	}
	return out
}
