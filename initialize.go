package csg

import (
	"fmt"

	"github.com/soypat/csg/props"
	"github.com/soypat/csg/units"
)

// Initializer is implemented by shapes configurable from a property bag.
type Initializer interface {
	Initialize(p props.Properties) error
}

// InitializeBase reads the properties common to every shape:
//
//	skin           length, default tolerance of the shape
//	forced_volume  volume overriding the computed one
func (b *ShapeBase) InitializeBase(p props.Properties) error {
	if p.Has("skin") {
		skin, err := p.FetchLength("skin")
		if err != nil {
			return err
		}
		if err := b.SetSkin(skin); err != nil {
			return err
		}
	}
	if p.Has("forced_volume") {
		v, err := p.FetchQuantity("forced_volume", units.Volume)
		if err != nil {
			return err
		}
		if err := b.SetForcedVolume(v); err != nil {
			return err
		}
	}
	return nil
}

// fetchPositiveLength reads a mandatory strictly positive length.
func fetchPositiveLength(p props.Properties, key string) (float64, error) {
	v, err := p.FetchLength(key)
	if err != nil {
		return 0, err
	}
	if !(v > 0) {
		return 0, fmt.Errorf("property %q: %w: must be positive, got %g", key, ErrInvalidShape, v)
	}
	return v, nil
}
