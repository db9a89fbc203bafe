package csg

import (
	"fmt"
	"math"

	"github.com/soypat/csg/internal/d3"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

// Ownership tells a composite whether it is responsible for an operand.
type Ownership uint8

const (
	// Borrowed operands are shared with other owners and left untouched by Reset.
	Borrowed Ownership = iota
	// Owned operands are reset together with the composite.
	Owned
)

func (o Ownership) String() string {
	if o == Owned {
		return "owned"
	}
	return "borrowed"
}

// Operand is a placed shape taking part in a boolean composite. Placement
// maps the operand frame into the composite frame.
type Operand struct {
	Shape     Shape3
	Placement Placement
	Ownership Ownership
}

// OwnedOperand returns an operand owned by the composite it is given to.
func OwnedOperand(s Shape3, pl Placement) Operand {
	return Operand{Shape: s, Placement: pl, Ownership: Owned}
}

// BorrowedOperand returns an operand referenced but not owned by its composite.
func BorrowedOperand(s Shape3, pl Placement) Operand {
	return Operand{Shape: s, Placement: pl, Ownership: Borrowed}
}

var partNames = [2]string{"first", "second"}

// keepFunc reports whether a surface point p of operand part, expressed in
// the composite frame, lies on the composite surface.
type keepFunc func(part int32, p r3.Vec, tol float64) bool

// composite holds the machinery shared by the boolean shapes.
type composite struct {
	ShapeBase
	name     string
	ops      [2]Operand
	maxSteps int
}

func (c *composite) initComposite(name string, bld Builder) {
	c.name = name
	c.maxSteps = DefaultMaxInterceptSteps
	c.InitBase(bld)
}

func (c *composite) ShapeName() string { return c.name }

// Operands returns the first and second operands.
func (c *composite) Operands() [2]Operand { return c.ops }

// SetOperands sets both operands. The composite must be unlocked.
func (c *composite) SetOperands(first, second Operand) error {
	if err := c.checkUnlocked(); err != nil {
		return err
	}
	c.ops = [2]Operand{first, second}
	return nil
}

// SetMaxInterceptSteps sets how many rejected candidates an operand
// intercept search may go through before failing. n <= 0 restores
// DefaultMaxInterceptSteps.
func (c *composite) SetMaxInterceptSteps(n int) error {
	if err := c.checkUnlocked(); err != nil {
		return err
	}
	if n <= 0 {
		n = DefaultMaxInterceptSteps
	}
	c.maxSteps = n
	return nil
}

func (c *composite) MaxInterceptSteps() int { return c.maxSteps }

// lockComposite validates the operands and locks the base.
func (c *composite) lockComposite() error {
	for i, op := range c.ops {
		if op.Shape == nil {
			return fmt.Errorf("%s: %s operand missing: %w", c.name, partNames[i], ErrInvalidOperand)
		}
		if !op.Shape.IsLocked() {
			return fmt.Errorf("%s: %s operand %s not locked: %w", c.name, partNames[i], op.Shape.ShapeName(), ErrInvalidOperand)
		}
	}
	return c.LockBase()
}

// resetComposite resets owned operands and forgets both operands.
func (c *composite) resetComposite() {
	for _, op := range c.ops {
		if op.Ownership == Owned && op.Shape != nil {
			op.Shape.Reset()
		}
	}
	c.ops = [2]Operand{}
	c.maxSteps = DefaultMaxInterceptSteps
	c.ResetBase()
}

func (c *composite) mustBeLocked() {
	if !c.locked {
		panic(fmt.Errorf("%s: %w", c.name, ErrNotLocked))
	}
}

func (c *composite) local(part int32, p r3.Vec) r3.Vec {
	return c.ops[part].Placement.MotherToChild(p)
}

func (c *composite) in(part int32, p r3.Vec, tol float64) bool {
	return c.ops[part].Shape.IsInside(c.local(part, p), tol)
}

func (c *composite) out(part int32, p r3.Vec, tol float64) bool {
	return c.ops[part].Shape.IsOutside(c.local(part, p), tol)
}

// MakeAnyFace returns the invalid face, which composites read as any face of any part.
func (c *composite) MakeAnyFace() FaceID { return FaceInvalid() }

// partMask normalizes a composite face mask. Masks without parts must be
// the invalid face or a wildcard.
func partMask(mask FaceID) FaceID {
	if mask.Depth() > 0 {
		return mask
	}
	if mask.IsValid() && !mask.IsAny() {
		panic(fmt.Errorf("%w: %v", ErrNoPartMask, mask))
	}
	return mask.PrependPart(PartAny)
}

func (c *composite) onSurface(p r3.Vec, mask FaceID, tol float64, keep keepFunc) FaceID {
	c.mustBeLocked()
	tol = c.Tolerance(tol)
	mask = partMask(mask)
	sub := mask.InheritParts(1)
	for i, op := range c.ops {
		part := int32(i)
		if !mask.MatchPart(0, part) || !keep(part, p, tol) {
			continue
		}
		if f := op.Shape.OnSurface(c.local(part, p), sub, tol); f.IsValid() {
			return f.PrependPart(part)
		}
	}
	return FaceInvalid()
}

// normal returns the operand normal at p rotated into the composite frame,
// negated for parts listed in flip. A face with a wildcard or missing part
// is first resolved against the surface.
func (c *composite) normal(p r3.Vec, face FaceID, flip [2]bool, keep keepFunc) r3.Vec {
	c.mustBeLocked()
	part := face.Part(0)
	if part != FirstPart && part != SecondPart {
		resolved := c.onSurface(p, face, 0, keep)
		part = resolved.Part(0)
		if part != FirstPart && part != SecondPart {
			return d3.NaN()
		}
		face = resolved
	}
	op := c.ops[part]
	n := op.Shape.NormalOnSurface(c.local(part, p), face.InheritParts(1))
	n = op.Placement.ChildToMotherDirection(n)
	if flip[part] {
		n = r3.Scale(-1, n)
	}
	return n
}

// findIntercept returns the nearest accepted candidate over both operands.
func (c *composite) findIntercept(from, dir r3.Vec, tol float64, keep keepFunc) FaceIntercept {
	c.mustBeLocked()
	tol = c.Tolerance(tol)
	if r3.Norm2(dir) == 0 {
		return NoIntercept()
	}
	dir = r3.Unit(dir)
	best := NoIntercept()
	dmin := math.Inf(1)
	for i := range c.ops {
		fi := c.searchPart(int32(i), from, dir, tol, keep)
		if !fi.IsOK() {
			continue
		}
		if d := r3.Norm(r3.Sub(fi.Impact, from)); d < dmin {
			dmin, best = d, fi
		}
	}
	return best
}

// searchPart walks the ray through operand part. Each rejected candidate
// restarts the search one tolerance past the rejected impact. It panics
// with *InterceptError when the step cap is exceeded.
func (c *composite) searchPart(part int32, from, dir r3.Vec, tol float64, keep keepFunc) FaceIntercept {
	op := c.ops[part]
	o := op.Placement.MotherToChild(from)
	d := op.Placement.MotherToChildDirection(dir)
	for steps := 0; ; steps++ {
		if steps >= c.maxSteps {
			err := &InterceptError{Shape: c.name, Part: part, Steps: steps}
			c.Logger().Error("intercept search exhausted",
				zap.String("part", partNames[part]), zap.Int("steps", steps),
				zap.Float64s("from", []float64{from.X, from.Y, from.Z}))
			c.observe(steps, err)
			panic(err)
		}
		fi := op.Shape.FindIntercept(o, d, tol)
		if !fi.IsOK() {
			c.observe(steps, nil)
			return NoIntercept()
		}
		impact := op.Placement.ChildToMother(fi.Impact)
		if keep(part, impact, tol) {
			c.observe(steps, nil)
			return FaceIntercept{Impact: impact, Face: fi.Face.PrependPart(part)}
		}
		if ce := c.Logger().Check(zap.DebugLevel, "intercept candidate rejected"); ce != nil {
			ce.Write(zap.String("part", partNames[part]), zap.Int("step", steps),
				zap.Float64s("impact", []float64{impact.X, impact.Y, impact.Z}))
		}
		o = r3.Add(fi.Impact, r3.Scale(tol, d))
	}
}

func (c *composite) observe(steps int, err error) {
	if c.observer != nil {
		c.observer.ObserveIntercept(c.name, steps, err)
	}
}

// operandBounds returns the bounding data of operand part in the composite frame.
func (c *composite) operandBounds(part int32) (BoundingData, bool) {
	op := c.ops[part]
	if op.Shape == nil {
		return BoundingData{}, false
	}
	bd, ok := op.Shape.BoundingData()
	if !ok {
		return BoundingData{}, false
	}
	return bd.Transformed(op.Placement), true
}

// FaceTrimmer is implemented by shapes whose computed faces extend beyond
// their surface. TrimFace reports whether point p of computed face lies on
// the surface, and whether the face must be flipped to point outward.
type FaceTrimmer interface {
	TrimFace(face FaceID, p r3.Vec, tol float64) (keep, flip bool)
}

func (c *composite) trimFace(face FaceID, p r3.Vec, tol float64, keep keepFunc, flip [2]bool) (bool, bool) {
	c.mustBeLocked()
	tol = c.Tolerance(tol)
	part := face.Part(0)
	if part != FirstPart && part != SecondPart {
		return false, false
	}
	if !keep(part, p, tol) {
		return false, false
	}
	op := c.ops[part]
	flipped := flip[part]
	if t, ok := op.Shape.(FaceTrimmer); ok {
		k, f := t.TrimFace(face.InheritParts(1), c.local(part, p), tol)
		if !k {
			return false, false
		}
		flipped = flipped != f
	}
	return true, flipped
}

// ComputeFaces lists the faces of both operands in the composite frame. The
// faces are not trimmed by the boolean operation.
func (c *composite) ComputeFaces() []FaceInfo {
	var out []FaceInfo
	for i, op := range c.ops {
		if op.Shape == nil {
			continue
		}
		for _, f := range op.Shape.ComputedFaces() {
			label := partNames[i]
			if f.Label != "" {
				label += "/" + f.Label
			}
			out = append(out, FaceInfo{
				Surface:     f.Surface,
				Positioning: op.Placement.Compose(f.Positioning),
				ID:          f.ID.PrependPart(int32(i)),
				Label:       label,
			})
		}
	}
	return out
}

// generateWires draws each selected operand and splits its wires against
// the other operand, keeping the runs whose domain is in keep[part].
// Operands that cannot draw themselves are drawn unsplit with a warning.
func (c *composite) generateWires(pl Placement, opts WireOption, keep [2]Domain) Wires {
	c.mustBeLocked()
	bd, hasBB := c.BoundingData()
	if opts&WireOnlyBB != 0 && hasBB {
		return bd.GenerateWires(pl, opts)
	}
	draw := [2]bool{true, true}
	if sel := opts & (WireDrawFirst | WireDrawSecond); sel != 0 {
		draw = [2]bool{sel&WireDrawFirst != 0, sel&WireDrawSecond != 0}
	}
	sub := opts &^ (WireDrawFirst | WireDrawSecond | WireBoundings)
	_, r0 := c.ops[0].Shape.(WireRenderer)
	_, r1 := c.ops[1].Shape.(WireRenderer)
	split := r0 && r1
	if !split {
		c.Logger().Warn("operand without wire rendering, drawing operands unsplit",
			zap.String("first", c.ops[0].Shape.ShapeName()),
			zap.String("second", c.ops[1].Shape.ShapeName()))
	}
	step := 1.0
	if hasBB {
		step = bd.MinDimension() / 100
		if opts&WireBoostSampling != 0 {
			step = bd.MinDimension() / 400
		}
	}
	var out Wires
	for i, op := range c.ops {
		if !draw[i] {
			continue
		}
		w, _ := GenerateWires(op.Shape, pl.Compose(op.Placement), sub)
		if split {
			other := c.ops[1-i]
			w = SplitSegments(w, other.Shape, pl.Compose(other.Placement), keep[i], step, c.Tolerance(0))
		}
		out = append(out, w...)
	}
	if opts&WireBoundings != 0 && hasBB {
		out = append(out, bd.GenerateWires(pl, opts)...)
	}
	return out
}
