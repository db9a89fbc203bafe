package csg

import (
	"math"

	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// BoundingData is an axis aligned box overapproximating a shape. Min and Max
// are expressed in the frame defined by Placement, itself relative to the
// shape's own frame.
type BoundingData struct {
	Min, Max  r3.Vec
	Placement Placement
}

// NewBoundingData returns the box with corners a and b in any order.
func NewBoundingData(a, b r3.Vec) BoundingData {
	box := d3.NewBox(a, b)
	return BoundingData{Min: box.Min, Max: box.Max}
}

// BoundingDataFromPoints returns the axis aligned box of pts. The result is
// invalid when pts is empty.
func BoundingDataFromPoints(pts ...r3.Vec) BoundingData {
	if len(pts) == 0 {
		return InvalidBoundingData()
	}
	box := d3.BoxOf(pts)
	return BoundingData{Min: box.Min, Max: box.Max}
}

// InvalidBoundingData returns bounding data with NaN extents.
func InvalidBoundingData() BoundingData {
	return BoundingData{Min: d3.NaN(), Max: d3.NaN()}
}

func (b BoundingData) box() d3.Box { return d3.Box{Min: b.Min, Max: b.Max} }

// IsValid reports whether all six extents are finite and ordered.
func (b BoundingData) IsValid() bool { return b.box().IsFinite() }

// Box returns the extents, ignoring placement.
func (b BoundingData) Box() r3.Box { return r3.Box(b.box()) }

// Contains reports whether p, in the shape frame, lies in the box grown by margin.
func (b BoundingData) Contains(p r3.Vec, margin float64) bool {
	return b.box().Enlarge(margin).Contains(b.Placement.MotherToChild(p))
}

// IsOutside reports whether p lies outside the box grown by margin.
func (b BoundingData) IsOutside(p r3.Vec, margin float64) bool {
	return !b.Contains(p, margin)
}

// Vertices returns the 8 corners in the shape frame.
func (b BoundingData) Vertices() []r3.Vec {
	vs := b.box().Vertices()
	for i := range vs {
		vs[i] = b.Placement.ChildToMother(vs[i])
	}
	return vs
}

// Size returns the box extents along each axis.
func (b BoundingData) Size() r3.Vec { return b.box().Size() }

// MinDimension returns the smallest box extent.
func (b BoundingData) MinDimension() float64 { return d3.Min(b.Size()) }

// Transformed returns the axis aligned box, in the mother frame of pl, of the
// eight corners mapped by pl. The result is never smaller than the original.
func (b BoundingData) Transformed(pl Placement) BoundingData {
	vs := b.Vertices()
	for i := range vs {
		vs[i] = pl.ChildToMother(vs[i])
	}
	return BoundingDataFromPoints(vs...)
}

// Extend returns the smallest axis aligned box enclosing b and o.
// Both are assumed to have no placement.
func (b BoundingData) Extend(o BoundingData) BoundingData {
	box := b.box().Extend(o.box())
	return BoundingData{Min: box.Min, Max: box.Max}
}

// Intersect returns the overlap of b and o, ok is false if they are disjoint.
func (b BoundingData) Intersect(o BoundingData) (BoundingData, bool) {
	box, ok := b.box().Intersect(o.box())
	return BoundingData{Min: box.Min, Max: box.Max}, ok
}

// Diagonal returns the length of the box diagonal.
func (b BoundingData) Diagonal() float64 {
	if !b.IsValid() {
		return math.NaN()
	}
	return r3.Norm(b.Size())
}

// GenerateWires returns the 12 box edges mapped by pl.
func (b BoundingData) GenerateWires(pl Placement, _ WireOption) Wires {
	vs := b.Vertices()
	box := b.box()
	w := make(Wires, 0, 12)
	for _, e := range box.Edges() {
		w = append(w, Polyline{pl.ChildToMother(vs[e[0]]), pl.ChildToMother(vs[e[1]])})
	}
	return w
}
