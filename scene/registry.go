package scene

import (
	"fmt"
	"sort"
	"sync"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/soypat/csg"
	"github.com/soypat/csg/props"
)

// Factory creates a locked shape from its property bag.
type Factory func(p props.Properties) (csg.Shape3, error)

// Registry maps shape types to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// DefaultRegistry holds the built-in primitives:
//
//	box           x, y, z
//	sphere        r
//	wall          z, base.x, base.y
//	sdf_box       x, y, z, round (sdfx rounded box)
//	sdf_cylinder  h, r, round (sdfx rounded cylinder along z)
//
// Every type also reads skin and forced_volume; sdf types read mesh_cells.
var DefaultRegistry = NewRegistry()

// NewRegistry returns a registry holding the built-in primitives.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	r.Register("box", initialized(csg.NewBoxUnlocked))
	r.Register("sphere", initialized(csg.NewSphereUnlocked))
	r.Register("wall", initialized(csg.NewWallUnlocked))
	r.Register("sdf_box", implicit(roundedBox))
	r.Register("sdf_cylinder", implicit(roundedCylinder))
	return r
}

// Register adds or replaces the factory of typ.
func (r *Registry) Register(typ string, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[typ] = f
}

// New creates a shape of type typ.
func (r *Registry) New(typ string, p props.Properties) (csg.Shape3, error) {
	r.mu.RLock()
	f, ok := r.factories[typ]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownType, typ)
	}
	return f(p)
}

// Types returns the registered types, sorted.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.factories)
}

type initializable interface {
	csg.Shape3
	csg.Initializer
}

func initialized[S initializable](newShape func() S) Factory {
	return func(p props.Properties) (csg.Shape3, error) {
		s := newShape()
		if err := s.Initialize(p); err != nil {
			return nil, err
		}
		if err := s.Lock(); err != nil {
			return nil, err
		}
		return s, nil
	}
}

func implicit(build func(p props.Properties) (sdf.SDF3, error)) Factory {
	return func(p props.Properties) (csg.Shape3, error) {
		s, err := build(p)
		if err != nil {
			return nil, err
		}
		im, err := csg.NewImplicit(s)
		if err != nil {
			return nil, err
		}
		im.Unlock()
		if err := im.InitializeBase(p); err != nil {
			return nil, err
		}
		if p.Has("mesh_cells") {
			n, err := p.FetchInt("mesh_cells")
			if err != nil {
				return nil, err
			}
			if err := im.SetMeshCells(n); err != nil {
				return nil, err
			}
		}
		if err := im.Lock(); err != nil {
			return nil, err
		}
		return im, nil
	}
}

func optionalLength(p props.Properties, key string) (float64, error) {
	if !p.Has(key) {
		return 0, nil
	}
	return p.FetchLength(key)
}

func lengths(p props.Properties, keys ...string) ([]float64, error) {
	out := make([]float64, len(keys))
	for i, k := range keys {
		v, err := p.FetchLength(k)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func roundedBox(p props.Properties) (sdf.SDF3, error) {
	xyz, err := lengths(p, "x", "y", "z")
	if err != nil {
		return nil, err
	}
	round, err := optionalLength(p, "round")
	if err != nil {
		return nil, err
	}
	return sdf.Box3D(v3.Vec{X: xyz[0], Y: xyz[1], Z: xyz[2]}, round)
}

func roundedCylinder(p props.Properties) (sdf.SDF3, error) {
	hr, err := lengths(p, "h", "r")
	if err != nil {
		return nil, err
	}
	round, err := optionalLength(p, "round")
	if err != nil {
		return nil, err
	}
	return sdf.Cylinder3D(hr[0], hr[1], round)
}
