package csg

import (
	"fmt"
	"math"

	"github.com/soypat/csg/internal/d3"
	"github.com/soypat/csg/props"
	"gonum.org/v1/gonum/spatial/r3"
)

// Box face bits.
const (
	BoxFaceBack   uint32 = 1 << iota // -x
	BoxFaceFront                     // +x
	BoxFaceLeft                      // -y
	BoxFaceRight                     // +y
	BoxFaceBottom                    // -z
	BoxFaceTop                       // +z
)

var boxFaceLabels = [6]string{"back", "front", "left", "right", "bottom", "top"}

// boxFace returns the axis and outward sign of face i (bit 1<<i).
func boxFace(i int) (axis int, sign float64) {
	sign = 1
	if i%2 == 0 {
		sign = -1
	}
	return i / 2, sign
}

// Box is a rectangular cuboid centered on the origin.
type Box struct {
	ShapeBase
	x, y, z float64
}

var _ Shape3 = (*Box)(nil)

// NewBox returns a locked box with the given full extents.
func NewBox(x, y, z float64) (*Box, error) {
	b := &Box{}
	b.InitBase(b)
	b.x, b.y, b.z = math.NaN(), math.NaN(), math.NaN()
	if err := b.SetDimensions(x, y, z); err != nil {
		return nil, err
	}
	if err := b.Lock(); err != nil {
		return nil, err
	}
	return b, nil
}

// NewBoxUnlocked returns a box with unset dimensions, to be configured with
// SetDimensions or Initialize before Lock.
func NewBoxUnlocked() *Box {
	b := &Box{}
	b.InitBase(b)
	b.Reset()
	return b
}

func (b *Box) ShapeName() string { return "box" }

// SetDimensions sets the full extents along each axis.
func (b *Box) SetDimensions(x, y, z float64) error {
	if err := b.checkUnlocked(); err != nil {
		return err
	}
	if !(x > 0 && y > 0 && z > 0) || math.IsInf(x+y+z, 0) {
		return fmt.Errorf("box dimensions (%g, %g, %g): %w", x, y, z, ErrInvalidShape)
	}
	b.x, b.y, b.z = x, y, z
	return nil
}

// Dimensions returns the full extents.
func (b *Box) Dimensions() r3.Vec { return r3.Vec{X: b.x, Y: b.y, Z: b.z} }

func (b *Box) half() r3.Vec { return r3.Scale(0.5, b.Dimensions()) }

// Initialize reads lengths x, y and z plus the common shape properties.
func (b *Box) Initialize(p props.Properties) error {
	if err := b.InitializeBase(p); err != nil {
		return err
	}
	var dims [3]float64
	for i, key := range [3]string{"x", "y", "z"} {
		v, err := fetchPositiveLength(p, key)
		if err != nil {
			return fmt.Errorf("box: %w", err)
		}
		dims[i] = v
	}
	return b.SetDimensions(dims[0], dims[1], dims[2])
}

func (b *Box) IsValid() bool {
	return b.x > 0 && b.y > 0 && b.z > 0
}

func (b *Box) Lock() error {
	if !b.IsValid() {
		return fmt.Errorf("box: %w", ErrInvalidShape)
	}
	return b.LockBase()
}

func (b *Box) Reset() {
	b.ResetBase()
	b.x, b.y, b.z = math.NaN(), math.NaN(), math.NaN()
}

func (b *Box) IsInside(p r3.Vec, tol float64) bool {
	tol = b.Tolerance(tol)
	q := r3.Sub(b.half(), d3.AbsElem(p))
	return d3.Min(q) > tol/2
}

func (b *Box) IsOutside(p r3.Vec, tol float64) bool {
	tol = b.Tolerance(tol)
	q := r3.Sub(d3.AbsElem(p), b.half())
	return d3.Max(q) > tol/2
}

// onFace reports whether p lies on face i, edges included.
func (b *Box) onFace(i int, p r3.Vec, tol float64) bool {
	axis, sign := boxFace(i)
	h := b.half()
	if !withinSkin(d3.Comp(p, axis)-sign*d3.Comp(h, axis), tol) {
		return false
	}
	for j := 0; j < 3; j++ {
		if j != axis && math.Abs(d3.Comp(p, j)) > d3.Comp(h, j)+tol/2 {
			return false
		}
	}
	return true
}

func (b *Box) OnSurface(p r3.Vec, mask FaceID, tol float64) FaceID {
	tol = b.Tolerance(tol)
	for i := 0; i < 6; i++ {
		bit := uint32(1) << i
		if mask.allowsBit(bit) && b.onFace(i, p, tol) {
			return FaceBits(bit)
		}
	}
	return FaceInvalid()
}

func (b *Box) NormalOnSurface(p r3.Vec, face FaceID) r3.Vec {
	for i := 0; i < 6; i++ {
		if face.HasFaceBit(uint32(1) << i) {
			axis, sign := boxFace(i)
			return d3.WithComp(r3.Vec{}, axis, sign)
		}
	}
	return d3.NaN()
}

func (b *Box) FindIntercept(from, dir r3.Vec, tol float64) FaceIntercept {
	tol = b.Tolerance(tol)
	h := b.half()
	best := NoIntercept()
	tmin := math.Inf(1)
	for i := 0; i < 6; i++ {
		axis, sign := boxFace(i)
		den := d3.Comp(dir, axis)
		if den == 0 {
			continue
		}
		t := (sign*d3.Comp(h, axis) - d3.Comp(from, axis)) / den
		if t <= 0 || t >= tmin {
			continue
		}
		impact := r3.Add(from, r3.Scale(t, dir))
		if b.onFace(i, impact, tol) {
			tmin = t
			best = FaceIntercept{Impact: impact, Face: FaceBits(uint32(1) << i)}
		}
	}
	return best
}

func (b *Box) MakeAnyFace() FaceID { return AnyFaceBits() }

func (b *Box) Volume() float64 { return b.x * b.y * b.z }

func (b *Box) SurfaceArea() float64 { return 2 * (b.x*b.y + b.y*b.z + b.z*b.x) }

func (b *Box) BuildBoundingData() (BoundingData, bool) {
	h := b.half()
	return NewBoundingData(r3.Scale(-1, h), h), true
}

// ComputeFaces returns the six faces as quadrangles wound outward.
func (b *Box) ComputeFaces() []FaceInfo {
	h := b.half()
	faces := make([]FaceInfo, 6)
	for i := range faces {
		axis, sign := boxFace(i)
		u, v := (axis+1)%3, (axis+2)%3
		corner := func(su, sv float64) r3.Vec {
			c := d3.WithComp(r3.Vec{}, axis, sign*d3.Comp(h, axis))
			c = d3.WithComp(c, u, su*d3.Comp(h, u))
			return d3.WithComp(c, v, sv*d3.Comp(h, v))
		}
		q := Quadrangle{V: [4]r3.Vec{corner(-1, -1), corner(1, -1), corner(1, 1), corner(-1, 1)}}
		if sign < 0 {
			q.V[1], q.V[3] = q.V[3], q.V[1]
		}
		faces[i] = FaceInfo{Surface: q, ID: FaceBits(uint32(1) << i), Label: boxFaceLabels[i]}
	}
	return faces
}

// GenerateWires draws the 12 edges.
func (b *Box) GenerateWires(pl Placement, opts WireOption) Wires {
	bd, _ := b.BuildBoundingData()
	return bd.GenerateWires(pl, opts)
}
