package csg

import (
	"fmt"
	"math"

	"github.com/soypat/csg/internal/d3"
	"github.com/soypat/csg/props"
	"github.com/soypat/csg/units"
	"gonum.org/v1/gonum/spatial/r2"
	"gonum.org/v1/gonum/spatial/r3"
)

// Wall face bits.
const (
	WallFaceSide   uint32 = 1 << iota
	WallFaceBottom        // z = -h/2
	WallFaceTop           // z = +h/2
)

// Wall is a simple polygon in the XY plane extruded along z over [-z/2, z/2].
type Wall struct {
	ShapeBase
	base *SimplePolygon
	z    float64
}

var _ Shape3 = (*Wall)(nil)

// NewWall returns a locked wall of height z built on base.
func NewWall(base []r2.Vec, z float64) (*Wall, error) {
	w := &Wall{}
	w.InitBase(w)
	w.z = math.NaN()
	if err := w.SetBase(base); err != nil {
		return nil, err
	}
	if err := w.SetZ(z); err != nil {
		return nil, err
	}
	if err := w.Lock(); err != nil {
		return nil, err
	}
	return w, nil
}

// NewWallUnlocked returns a wall with no base and unset height.
func NewWallUnlocked() *Wall {
	w := &Wall{}
	w.InitBase(w)
	w.Reset()
	return w
}

func (w *Wall) ShapeName() string { return "wall" }

// SetBase sets the base polygon from its vertices.
func (w *Wall) SetBase(vertices []r2.Vec) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	poly, err := NewSimplePolygon(vertices)
	if err != nil {
		return fmt.Errorf("wall base: %w", err)
	}
	w.base = poly
	return nil
}

// SetZ sets the extrusion height.
func (w *Wall) SetZ(z float64) error {
	if err := w.checkUnlocked(); err != nil {
		return err
	}
	if !(z > 0) || math.IsInf(z, 1) {
		return fmt.Errorf("wall height %g: %w", z, ErrInvalidShape)
	}
	w.z = z
	return nil
}

func (w *Wall) Z() float64 { return w.z }

func (w *Wall) Base() *SimplePolygon { return w.base }

// Initialize reads the length z and the base vertices from the base.x and
// base.y length sequences, plus the common shape properties.
func (w *Wall) Initialize(p props.Properties) error {
	if err := w.InitializeBase(p); err != nil {
		return err
	}
	z, err := fetchPositiveLength(p, "z")
	if err != nil {
		return fmt.Errorf("wall: %w", err)
	}
	base := p.Sub("base.")
	xs, err := base.FetchQuantityVector("x", units.Length)
	if err != nil {
		return fmt.Errorf("wall base: %w", err)
	}
	ys, err := base.FetchQuantityVector("y", units.Length)
	if err != nil {
		return fmt.Errorf("wall base: %w", err)
	}
	if len(xs) != len(ys) {
		return fmt.Errorf("wall base: %d x and %d y coordinates: %w", len(xs), len(ys), ErrInvalidShape)
	}
	vs := make([]r2.Vec, len(xs))
	for i := range xs {
		vs[i] = r2.Vec{X: xs[i], Y: ys[i]}
	}
	if err := w.SetBase(vs); err != nil {
		return err
	}
	return w.SetZ(z)
}

func (w *Wall) IsValid() bool { return w.base != nil && w.z > 0 }

func (w *Wall) Lock() error {
	if !w.IsValid() {
		return fmt.Errorf("wall: base and height required: %w", ErrInvalidShape)
	}
	return w.LockBase()
}

func (w *Wall) Reset() {
	w.ResetBase()
	w.base = nil
	w.z = math.NaN()
}

func (w *Wall) IsInside(p r3.Vec, tol float64) bool {
	tol = w.Tolerance(tol)
	xy := d3.ToR2(p)
	return math.Abs(p.Z) < w.z/2-tol/2 && w.base.Contains(xy) && w.base.EdgeDistance(xy) > tol/2
}

func (w *Wall) IsOutside(p r3.Vec, tol float64) bool {
	tol = w.Tolerance(tol)
	if math.Abs(p.Z) > w.z/2+tol/2 {
		return true
	}
	xy := d3.ToR2(p)
	return !w.base.Contains(xy) && w.base.EdgeDistance(xy) > tol/2
}

// OnSurface checks the computed faces allowed by mask in SIDE, BOTTOM, TOP order.
func (w *Wall) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	tol = w.Tolerance(tol)
	for _, f := range w.ComputedFaces() {
		if !mask.allowsBit(f.ID.Bits()) {
			continue
		}
		if f.Surface.IsOnSurface(f.Positioning.MotherToChild(p), tol) {
			return f.ID
		}
	}
	return FaceInvalid()
}

func (w *Wall) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	for _, f := range w.ComputedFaces() {
		if face.HasFaceBit(f.ID.Bits()) {
			n := surfaceNormal(f.Surface, f.Positioning.MotherToChild(p), w.Tolerance(0))
			return f.Positioning.ChildToMotherDirection(n)
		}
	}
	return d3.NaN()
}

// FindIntercept returns the nearest intercept among all computed faces.
func (w *Wall) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	tol = w.Tolerance(tol)
	best := NoIntercept()
	dmin := math.Inf(1)
	for _, f := range w.ComputedFaces() {
		o := f.Positioning.MotherToChild(from)
		d := f.Positioning.MotherToChildDirection(dir)
		hit, ok := f.Surface.FindIntercept(o, d, tol)
		if !ok {
			continue
		}
		hit = f.Positioning.ChildToMother(hit)
		if dist := r3.Norm(r3.Sub(hit, from)); dist < dmin {
			dmin = dist
			best = FaceIntercept{Impact: hit, Face: f.ID}
		}
	}
	return best
}

func (w *Wall) MakeAnyFace() FaceID { return AnyFaceBits() }

func (w *Wall) Volume() float64 { return w.z * w.base.Area() }

func (w *Wall) SurfaceArea() float64 { return 2*w.base.Area() + w.z*w.base.Perimeter() }

func (w *Wall) BuildBoundingData() (BoundingData, bool) {
	if w.base == nil {
		return BoundingData{}, false
	}
	lo, hi := w.base.Bounds()
	return NewBoundingData(d3.FromR2(lo, -w.z/2), d3.FromR2(hi, w.z/2)), true
}

// ComputeFaces returns SIDE, a composite of one quadrangle per base edge,
// and BOTTOM and TOP, composites of the base triangles placed at -z/2 and
// +z/2. All faces are wound outward.
func (w *Wall) ComputeFaces() []FaceInfo {
	if w.base == nil {
		return nil
	}
	h := w.z / 2
	vs := w.base.Vertices()
	n := len(vs)
	side := &CompositeSurface{}
	for i := range vs {
		a, b := vs[i], vs[(i+1)%n]
		q := Quadrangle{V: [4]r3.Vec{
			d3.FromR2(a, -h), d3.FromR2(b, -h), d3.FromR2(b, h), d3.FromR2(a, h),
		}}
		if w.base.IsClockwise() {
			q.V[1], q.V[3] = q.V[3], q.V[1]
		}
		side.Add(q, Identity())
	}
	bottom := &CompositeSurface{}
	top := &CompositeSurface{}
	for _, t := range w.base.Triangles() {
		ccw := Triangle{V: [3]r3.Vec{d3.FromR2(t[0], 0), d3.FromR2(t[1], 0), d3.FromR2(t[2], 0)}}
		cw := Triangle{V: [3]r3.Vec{ccw.V[0], ccw.V[2], ccw.V[1]}}
		top.Add(ccw, Identity())
		bottom.Add(cw, Identity())
	}
	return []FaceInfo{
		{Surface: side, ID: FaceBits(WallFaceSide), Label: "side"},
		{Surface: bottom, Positioning: PlacementAt(r3.Vec{Z: -h}), ID: FaceBits(WallFaceBottom), Label: "bottom"},
		{Surface: top, Positioning: PlacementAt(r3.Vec{Z: h}), ID: FaceBits(WallFaceTop), Label: "top"},
	}
}

// GenerateWires draws the bottom and top outlines and the vertical edges.
func (w *Wall) GenerateWires(pl Placement, _ WireOption) Wires {
	h := w.z / 2
	vs := w.base.Vertices()
	bottom := make(Polyline, 0, len(vs)+1)
	top := make(Polyline, 0, len(vs)+1)
	var out Wires
	for _, v := range vs {
		bottom = append(bottom, d3.FromR2(v, -h))
		top = append(top, d3.FromR2(v, h))
		out = append(out, Polyline{d3.FromR2(v, -h), d3.FromR2(v, h)})
	}
	bottom = append(bottom, bottom[0])
	top = append(top, top[0])
	out = append(out, bottom, top)
	return placeWires(out, pl)
}
