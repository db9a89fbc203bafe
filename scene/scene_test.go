package scene

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/soypat/csg"
	"github.com/soypat/csg/props"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gonum.org/v1/gonum/spatial/r3"
)

const detector = `
length_unit: cm
shapes:
  block: {type: box, x: 4, y: 4, z: 4}
  hole: {type: sphere, r: "5 mm"}
  part:
    type: subtraction
    max_intercept_steps: 50
    first: {shape: block}
    second: {shape: hole, position: [1, 0, 0], owned: true}
  turned:
    type: union
    first: {shape: hole}
    second: {shape: hole, position: ["10 mm", 0, 0], rotation: {axis: [0, 0, 1], angle: 90}}
  rod: {type: sdf_cylinder, h: 1, r: 0.2, round: "0.5 mm", mesh_cells: 8}
volumes:
  world:
    shape: block
    daughters:
      - {name: cell, volume: cell, position: ["-10 mm", 0, 0], replica: {count: 2, step: ["20 mm", 0, 0]}}
  cell: {shape: hole}
world: world
`

func build(t *testing.T, doc string) (*Scene, error) {
	t.Helper()
	d, err := Parse([]byte(doc))
	require.NoError(t, err)
	return d.Build(Options{})
}

func TestBuild(t *testing.T) {
	sc, err := build(t, detector)
	require.NoError(t, err)
	assert.Equal(t, []string{"block", "hole", "part", "rod", "turned"}, sc.ShapeNames())

	block := sc.Shapes["block"].(*csg.Box)
	assert.Equal(t, r3.Vec{X: 40, Y: 40, Z: 40}, block.Dimensions())
	assert.Equal(t, 5.0, sc.Shapes["hole"].(*csg.Sphere).Radius())

	part := sc.Shapes["part"].(*csg.Subtraction)
	ops := part.Operands()
	assert.Equal(t, csg.Borrowed, ops[0].Ownership)
	assert.Equal(t, csg.Owned, ops[1].Ownership)
	assert.Equal(t, r3.Vec{X: 10}, ops[1].Placement.Translation)
	assert.Equal(t, 50, part.MaxInterceptSteps())
	assert.True(t, part.IsLocked())
	assert.Equal(t, csg.DomainInside, csg.WhereIs(part, r3.Vec{}, 0))
	assert.Equal(t, csg.DomainOutside, csg.WhereIs(part, r3.Vec{X: 9}, 0))

	turned := sc.Shapes["turned"].(*csg.Union)
	x := turned.Operands()[1].Placement.ChildToMotherDirection(r3.Vec{X: 1})
	assert.InDelta(t, 0, x.X, 1e-12)
	assert.InDelta(t, 1, x.Y, 1e-12)

	rod := sc.Shapes["rod"].(*csg.Implicit)
	assert.True(t, rod.IsInside(r3.Vec{}, 0))
	assert.True(t, rod.IsOutside(r3.Vec{X: 3}, 0))
	assert.True(t, rod.IsOutside(r3.Vec{Z: 6}, 0))

	require.NotNil(t, sc.World)
	assert.Same(t, sc.Volumes["world"], sc.World)
	loc := sc.World.Locate(r3.Vec{X: 10, Y: 1}, 0)
	assert.NotZero(t, loc.Domain&csg.DomainInsideDaughter)
	assert.Equal(t, csg.DomainInside, loc.Leaf)
	assert.Equal(t, []string{"cell[1]"}, loc.Path)
	loc = sc.World.Locate(r3.Vec{Y: 15}, 0)
	assert.Equal(t, csg.DomainInside, loc.Domain)
	assert.Empty(t, loc.Path)
}

func TestBuildObserved(t *testing.T) {
	d, err := Parse([]byte(detector))
	require.NoError(t, err)
	core, logs := observer.New(zap.DebugLevel)
	rec := &countingObserver{}
	sc, err := d.Build(Options{Logger: zap.New(core), Observer: rec})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterMessage("scene built").Len())
	assert.Equal(t, 5, logs.FilterMessage("shape built").Len())

	part := sc.Shapes["part"]
	fi, err := csg.FindIntercept(part, r3.Vec{X: 30}, r3.Vec{X: -1}, 0)
	require.NoError(t, err)
	require.True(t, fi.IsOK())
	assert.InDelta(t, 20, fi.Impact.X, 1e-9)
	assert.Equal(t, 2, rec.calls)
}

type countingObserver struct{ calls int }

func (c *countingObserver) ObserveIntercept(string, int, error) { c.calls++ }

func TestBuildErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		doc  string
		err  error
	}{
		{"unknown type", `shapes: {a: {type: torus}}`, ErrUnknownType},
		{"missing type", `shapes: {a: {x: 1}}`, csg.ErrMissingProperty},
		{"missing dimension", `shapes: {a: {type: box, x: 1, y: 1}}`, csg.ErrMissingProperty},
		{"bad dimension", `shapes: {a: {type: sphere, r: -1}}`, csg.ErrInvalidShape},
		{"undefined operand", `shapes: {a: {type: union, first: {shape: b}, second: {shape: b}}}`, ErrUndefined},
		{"shape cycle", `
shapes:
  a: {type: union, first: {shape: b}, second: {shape: b}}
  b: {type: intersection, first: {shape: a}, second: {shape: a}}`, ErrCycle},
		{"undefined world", `world: nowhere`, ErrUndefined},
		{"undefined volume", `
shapes: {s: {type: sphere, r: 1}}
volumes: {w: {shape: s, daughters: [{name: d, volume: x}]}}`, ErrUndefined},
		{"volume cycle", `
shapes: {s: {type: sphere, r: 1}}
volumes:
  a: {shape: s, daughters: [{name: b, volume: b}]}
  b: {shape: s, daughters: [{name: a, volume: a}]}`, csg.ErrInvalidVolume},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := build(t, tc.doc)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scene.yaml")
	require.NoError(t, os.WriteFile(path, []byte(detector), 0o644))
	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "cm", d.LengthUnit)
	assert.Equal(t, "world", d.World)
	assert.Len(t, d.Shapes, 5)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
	_, err = Parse([]byte("shapes: [1, 2"))
	assert.Error(t, err)
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []string{"box", "sdf_box", "sdf_cylinder", "sphere", "wall"}, r.Types())
	r.Register("cube", func(p props.Properties) (csg.Shape3, error) {
		side, err := p.FetchLength("side")
		if err != nil {
			return nil, err
		}
		return csg.NewBox(side, side, side)
	})
	d, err := Parse([]byte(`shapes: {c: {type: cube, side: "2 cm"}}`))
	require.NoError(t, err)
	sc, err := d.Build(Options{Registry: r})
	require.NoError(t, err)
	assert.Equal(t, r3.Vec{X: 20, Y: 20, Z: 20}, sc.Shapes["c"].(*csg.Box).Dimensions())

	_, err = d.Build(Options{})
	assert.ErrorIs(t, err, ErrUnknownType)
}
