package csg

import (
	"errors"
	"math"

	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// ImplicitFaceSurface is the only face of an Implicit shape.
const ImplicitFaceSurface uint32 = 1

const (
	defaultTraceSteps = 1 << 12
	defaultMeshCells  = 64
	gradientStep      = 1e-6
)

// Implicit is a shape defined by a signed distance function, negative
// inside. Any sdfx SDF3 can be used.
type Implicit struct {
	ShapeBase
	sdf       sdf.SDF3
	maxSteps  int
	meshCells int
}

var _ Shape3 = (*Implicit)(nil)

// NewImplicit returns a locked shape evaluating s.
func NewImplicit(s sdf.SDF3) (*Implicit, error) {
	if s == nil {
		return nil, errors.New("implicit: nil sdf")
	}
	im := &Implicit{sdf: s, maxSteps: defaultTraceSteps, meshCells: defaultMeshCells}
	im.InitBase(im)
	if err := im.Lock(); err != nil {
		return nil, err
	}
	return im, nil
}

func (im *Implicit) ShapeName() string { return "implicit" }

// SDF returns the wrapped distance function.
func (im *Implicit) SDF() sdf.SDF3 { return im.sdf }

// SetTraceSteps sets the maximum number of sphere tracing steps of FindIntercept.
func (im *Implicit) SetTraceSteps(n int) error {
	if err := im.checkUnlocked(); err != nil {
		return err
	}
	if n <= 0 {
		n = defaultTraceSteps
	}
	im.maxSteps = n
	return nil
}

// SetMeshCells sets the marching cubes resolution used by the computed face.
func (im *Implicit) SetMeshCells(n int) error {
	if err := im.checkUnlocked(); err != nil {
		return err
	}
	if n <= 0 {
		n = defaultMeshCells
	}
	im.meshCells = n
	return nil
}

func (im *Implicit) Lock() error {
	if im.sdf == nil {
		return errors.New("implicit: nil sdf")
	}
	return im.LockBase()
}

// Reset keeps the distance function and restores default settings.
func (im *Implicit) Reset() {
	im.ResetBase()
	im.maxSteps = defaultTraceSteps
	im.meshCells = defaultMeshCells
}

func (im *Implicit) eval(p r3.Vec) float64 { return im.sdf.Evaluate(toV3(p)) }

func (im *Implicit) IsInside(p r3.Vec, tol float64) bool {
	return im.eval(p) < -im.Tolerance(tol)/2
}

func (im *Implicit) IsOutside(p r3.Vec, tol float64) bool {
	return im.eval(p) > im.Tolerance(tol)/2
}

func (im *Implicit) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	if mask.allowsBit(ImplicitFaceSurface) && withinSkin(im.eval(p), im.Tolerance(tol)) {
		return FaceBits(ImplicitFaceSurface)
	}
	return FaceInvalid()
}

func (im *Implicit) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	if !face.HasFaceBit(ImplicitFaceSurface) {
		return d3.NaN()
	}
	return gradient(im.sdf, p, math.Max(gradientStep, im.Tolerance(0)))
}

// FindIntercept sphere traces the ray. A ray starting on the surface first
// steps off it so the returned crossing lies strictly ahead.
func (im *Implicit) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	tol = im.Tolerance(tol)
	if r3.Norm2(dir) == 0 {
		return NoIntercept()
	}
	maxDist := math.Inf(1)
	if bd, ok := im.BoundingData(); ok {
		maxDist = r3.Norm(r3.Sub(from, d3.Box(bd.Box()).Center())) + bd.Diagonal()
	}
	start := 0.0
	if withinSkin(im.eval(from), tol) {
		start = tol
	}
	hit, t, _ := raycast(im.sdf, from, dir, start, tol/2, maxDist, im.maxSteps)
	if t < 0 {
		return NoIntercept()
	}
	return FaceIntercept{Impact: hit, Face: FaceBits(ImplicitFaceSurface)}
}

func (im *Implicit) MakeAnyFace() FaceID { return AnyFaceBits() }

func (im *Implicit) BuildBoundingData() (BoundingData, bool) {
	bb := im.sdf.BoundingBox()
	return NewBoundingData(fromV3(bb.Min), fromV3(bb.Max)), true
}

func (im *Implicit) ComputeFaces() []FaceInfo {
	return []FaceInfo{{
		Surface: &ImplicitSurface{SDF: im.sdf, Cells: im.meshCells},
		ID:      FaceBits(ImplicitFaceSurface),
		Label:   "surface",
	}}
}

// ImplicitSurface is the zero level set of a distance function.
type ImplicitSurface struct {
	SDF sdf.SDF3
	// Cells is the marching cubes resolution along the longest bounding box side.
	Cells int
}

func (s *ImplicitSurface) IsOnSurface(p r3.Vec, tol float64) bool {
	return withinSkin(s.SDF.Evaluate(toV3(p)), tol)
}

func (s *ImplicitSurface) Normal(p r3.Vec) r3.Vec { return gradient(s.SDF, p, gradientStep) }

func (s *ImplicitSurface) FindIntercept(from, dir r3.Vec, tol float64) (r3.Vec, bool) {
	bb := s.SDF.BoundingBox()
	box := d3.Box{Min: fromV3(bb.Min), Max: fromV3(bb.Max)}
	maxDist := r3.Norm(r3.Sub(from, box.Center())) + r3.Norm(box.Size())
	hit, t, _ := raycast(s.SDF, from, dir, 0, tol/2, maxDist, defaultTraceSteps)
	return hit, t >= 0
}

// Area returns the area of the tessellated surface.
func (s *ImplicitSurface) Area() float64 {
	var a float64
	for _, t := range s.Triangles() {
		a += t.Area()
	}
	return a
}

// Triangles tessellates the surface with uniform marching cubes.
func (s *ImplicitSurface) Triangles() []Triangle {
	cells := s.Cells
	if cells <= 0 {
		cells = defaultMeshCells
	}
	tris := render.ToTriangles(s.SDF, render.NewMarchingCubesUniform(cells))
	out := make([]Triangle, 0, len(tris))
	for _, t := range tris {
		out = append(out, Triangle{V: [3]r3.Vec{fromV3(t[0]), fromV3(t[1]), fromV3(t[2])}})
	}
	return out
}

// raycast marches from from+start*dir along dir by the absolute distance
// value until it falls under eps. It returns the collision point, the
// distance travelled (negative on failure) and the number of steps.
func raycast(s sdf.SDF3, from, dir r3.Vec, start, eps, maxDist float64, maxSteps int) (collision r3.Vec, t float64, steps int) {
	dirN := r3.Unit(dir)
	t = start
	pos := r3.Add(from, r3.Scale(t, dirN))
	for {
		val := math.Abs(s.Evaluate(toV3(pos)))
		if val <= eps && t > 0 {
			return pos, t, steps
		}
		steps++
		if steps >= maxSteps {
			return d3.NaN(), -1, steps
		}
		// Steps are at least eps long.
		t += math.Max(val, eps)
		pos = r3.Add(from, r3.Scale(t, dirN))
		if t > maxDist {
			return d3.NaN(), -1, steps
		}
	}
}

// gradient returns the normalized central difference gradient of s at p,
// sampled inside a box of side 2*eps.
func gradient(s sdf.SDF3, p r3.Vec, eps float64) r3.Vec {
	at := func(d r3.Vec) float64 { return s.Evaluate(toV3(r3.Add(p, d))) }
	return r3.Unit(r3.Vec{
		X: at(r3.Vec{X: eps}) - at(r3.Vec{X: -eps}),
		Y: at(r3.Vec{Y: eps}) - at(r3.Vec{Y: -eps}),
		Z: at(r3.Vec{Z: eps}) - at(r3.Vec{Z: -eps}),
	})
}

func toV3(p r3.Vec) v3.Vec { return v3.Vec{X: p.X, Y: p.Y, Z: p.Z} }

func fromV3(p v3.Vec) r3.Vec { return r3.Vec{X: p.X, Y: p.Y, Z: p.Z} }
