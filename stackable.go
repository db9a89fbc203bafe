package csg

import (
	"fmt"

	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// StackableData is the box used to pack shapes next to each other.
type StackableData struct {
	Min, Max r3.Vec
}

// IsValid reports whether all extents are finite and ordered.
func (s StackableData) IsValid() bool {
	return d3.Box{Min: s.Min, Max: s.Max}.IsFinite()
}

// SetStackableData enforces sd over the stackable data derived from the
// shape's bounding data.
func (b *ShapeBase) SetStackableData(sd StackableData) error {
	if err := b.checkUnlocked(); err != nil {
		return err
	}
	if !sd.IsValid() {
		return fmt.Errorf("%w: stackable data [%v, %v]", ErrInvalidShape, sd.Min, sd.Max)
	}
	b.stackable = sd
	b.hasStackable = true
	return nil
}

// HasEnforcedStackable reports whether stackable data was set explicitly.
func (b *ShapeBase) HasEnforcedStackable() bool { return b.hasStackable }

// Stackable returns the enforced stackable data if any, else the extents of
// the shape's bounding data.
func (b *ShapeBase) Stackable() (StackableData, bool) {
	if b.hasStackable {
		return b.stackable, true
	}
	bd, ok := b.BoundingData()
	if !ok {
		return StackableData{}, false
	}
	box := d3.BoxOf(bd.Vertices())
	return StackableData{Min: box.Min, Max: box.Max}, true
}
