// Package scene builds shapes, boolean composites and volume trees from a
// YAML description:
//
//	length_unit: cm
//	shapes:
//	  block: {type: box, x: 10, y: 10, z: 10}
//	  hole:  {type: sphere, r: "30 mm"}
//	  part:
//	    type: subtraction
//	    first:  {shape: block}
//	    second: {shape: hole, position: [1, 0, 0]}
//	volumes:
//	  world:
//	    shape: block
//	    daughters:
//	      - {name: det, volume: det, position: [0, 0, 2], replica: {count: 3, step: [2, 0, 0]}}
//	  det: {shape: hole}
//	world: world
//
// Shape entries are property bags: every key besides type and the operand
// maps is handed to the shape's Initialize method, with the document's unit
// entries inherited.
package scene

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/soypat/csg"
	"github.com/soypat/csg/props"
	"github.com/soypat/csg/units"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
	"gopkg.in/yaml.v3"
)

var (
	// ErrUnknownType is returned for shape entries of unregistered type.
	ErrUnknownType = errors.New("unknown shape type")
	// ErrUndefined is returned when a shape or volume references a missing entry.
	ErrUndefined = errors.New("undefined reference")
	// ErrCycle is returned when shape references form a cycle.
	ErrCycle = errors.New("reference cycle")
)

// Document is the decoded YAML scene.
type Document struct {
	LengthUnit string                    `yaml:"length_unit"`
	AngleUnit  string                    `yaml:"angle_unit"`
	Shapes     map[string]map[string]any `yaml:"shapes"`
	Volumes    map[string]VolumeSpec     `yaml:"volumes"`
	// World names the root volume.
	World string `yaml:"world"`
}

// VolumeSpec describes a logical volume and its placed daughters. Daughter
// entries hold name, volume, position, rotation.axis, rotation.angle,
// replica.count and replica.step.
type VolumeSpec struct {
	Shape     string           `yaml:"shape"`
	Daughters []map[string]any `yaml:"daughters"`
}

// Scene is a built document.
type Scene struct {
	Shapes  map[string]csg.Shape3
	Volumes map[string]*csg.LogicalVolume
	// World is nil when the document names no world volume.
	World *csg.LogicalVolume
}

// ShapeNames returns the sorted shape names.
func (s *Scene) ShapeNames() []string {
	names := make([]string, 0, len(s.Shapes))
	for name := range s.Shapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse decodes a YAML scene.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing scene: %w", err)
	}
	return &doc, nil
}

// Load reads a YAML scene file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// Options configures Build.
type Options struct {
	Logger *zap.Logger
	// Observer is attached to every composite.
	Observer csg.Observer
	// Registry resolves primitive types. Nil means DefaultRegistry.
	Registry *Registry
}

type builder struct {
	doc     *Document
	opts    Options
	log     *zap.Logger
	shapes  map[string]csg.Shape3
	volumes map[string]*csg.LogicalVolume
	// visiting marks shapes on the current resolution path.
	visiting map[string]bool
}

// Build creates every shape and volume of the document.
func (doc *Document) Build(opts Options) (*Scene, error) {
	if opts.Registry == nil {
		opts.Registry = DefaultRegistry
	}
	b := &builder{
		doc:      doc,
		opts:     opts,
		log:      opts.Logger,
		shapes:   make(map[string]csg.Shape3),
		volumes:  make(map[string]*csg.LogicalVolume),
		visiting: make(map[string]bool),
	}
	if b.log == nil {
		b.log = zap.NewNop()
	}
	for _, name := range sortedKeys(doc.Shapes) {
		if _, err := b.shape(name); err != nil {
			return nil, err
		}
	}
	for _, name := range sortedKeys(doc.Volumes) {
		if err := b.volume(name); err != nil {
			return nil, err
		}
	}
	sc := &Scene{Shapes: b.shapes, Volumes: b.volumes}
	if doc.World != "" {
		w, ok := b.volumes[doc.World]
		if !ok {
			return nil, fmt.Errorf("world volume %q: %w", doc.World, ErrUndefined)
		}
		sc.World = w
	}
	b.log.Info("scene built", zap.Int("shapes", len(sc.Shapes)), zap.Int("volumes", len(sc.Volumes)))
	return sc, nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bag returns m as properties inheriting the document units.
func (b *builder) bag(m map[string]any) props.Properties {
	p := props.FromMap(m)
	if b.doc.LengthUnit != "" && !p.Has("length_unit") {
		p.Set("length_unit", b.doc.LengthUnit)
	}
	if b.doc.AngleUnit != "" && !p.Has("angle_unit") {
		p.Set("angle_unit", b.doc.AngleUnit)
	}
	return p
}

func (b *builder) shape(name string) (csg.Shape3, error) {
	if s, ok := b.shapes[name]; ok {
		return s, nil
	}
	entry, ok := b.doc.Shapes[name]
	if !ok {
		return nil, fmt.Errorf("shape %q: %w", name, ErrUndefined)
	}
	if b.visiting[name] {
		return nil, fmt.Errorf("shape %q: %w", name, ErrCycle)
	}
	b.visiting[name] = true
	defer delete(b.visiting, name)

	p := b.bag(entry)
	typ, err := p.FetchString("type")
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", name, err)
	}
	var s csg.Shape3
	if newComposite, ok := composites[typ]; ok {
		s, err = b.composite(newComposite(), p)
	} else {
		s, err = b.opts.Registry.New(typ, p)
	}
	if err != nil {
		return nil, fmt.Errorf("shape %q: %w", name, err)
	}
	csg.SetLogger(s, b.log.With(zap.String("shape", name)))
	b.shapes[name] = s
	b.log.Debug("shape built", zap.String("name", name), zap.String("type", typ))
	return s, nil
}

type compositeShape interface {
	csg.Shape3
	InitializeBase(p props.Properties) error
	SetOperands(first, second csg.Operand) error
	SetMaxInterceptSteps(n int) error
	SetObserver(o csg.Observer)
}

var composites = map[string]func() compositeShape{
	"subtraction":  func() compositeShape { return csg.NewSubtractionUnlocked() },
	"union":        func() compositeShape { return csg.NewUnionUnlocked() },
	"intersection": func() compositeShape { return csg.NewIntersectionUnlocked() },
}

// composite reads the first and second operand maps and the optional
// max_intercept_steps.
func (b *builder) composite(c compositeShape, p props.Properties) (csg.Shape3, error) {
	if err := c.InitializeBase(p); err != nil {
		return nil, err
	}
	var ops [2]csg.Operand
	for i, key := range []string{"first", "second"} {
		op, err := b.operand(p.Sub(key + "."))
		if err != nil {
			return nil, fmt.Errorf("%s operand: %w", key, err)
		}
		ops[i] = op
	}
	if err := c.SetOperands(ops[0], ops[1]); err != nil {
		return nil, err
	}
	if p.Has("max_intercept_steps") {
		n, err := p.FetchInt("max_intercept_steps")
		if err != nil {
			return nil, err
		}
		if err := c.SetMaxInterceptSteps(n); err != nil {
			return nil, err
		}
	}
	if b.opts.Observer != nil {
		c.SetObserver(b.opts.Observer)
	}
	if err := c.Lock(); err != nil {
		return nil, err
	}
	return c, nil
}

// operand reads shape, owned and the placement keys. Operands are borrowed
// unless owned is set, since scene shapes may be shared.
func (b *builder) operand(p props.Properties) (csg.Operand, error) {
	ref, err := p.FetchString("shape")
	if err != nil {
		return csg.Operand{}, err
	}
	s, err := b.shape(ref)
	if err != nil {
		return csg.Operand{}, err
	}
	pl, err := placement(p)
	if err != nil {
		return csg.Operand{}, err
	}
	op := csg.BorrowedOperand(s, pl)
	if p.Has("owned") {
		owned, err := p.FetchBool("owned")
		if err != nil {
			return csg.Operand{}, err
		}
		if owned {
			op.Ownership = csg.Owned
		}
	}
	return op, nil
}

// placement reads position (lengths) and rotation.axis, rotation.angle.
func placement(p props.Properties) (csg.Placement, error) {
	var t r3.Vec
	if p.Has("position") {
		v, err := fetchVec(p, "position", units.Length)
		if err != nil {
			return csg.Placement{}, err
		}
		t = v
	}
	if !p.Has("rotation.axis") && !p.Has("rotation.angle") {
		return csg.PlacementAt(t), nil
	}
	axis, err := fetchVec(p, "rotation.axis", units.Dimensionless)
	if err != nil {
		return csg.Placement{}, err
	}
	angle, err := p.FetchAngle("rotation.angle")
	if err != nil {
		return csg.Placement{}, err
	}
	return csg.NewPlacement(t, axis, angle), nil
}

func fetchVec(p props.Properties, key string, dim units.Dimension) (r3.Vec, error) {
	xs, err := p.FetchQuantityVector(key, dim)
	if err != nil {
		return r3.Vec{}, err
	}
	if len(xs) != 3 {
		return r3.Vec{}, fmt.Errorf("property %q: %w: want 3 components, got %d", key, props.ErrType, len(xs))
	}
	return r3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

func (b *builder) volume(name string) error {
	if _, ok := b.volumes[name]; ok {
		return nil
	}
	spec := b.doc.Volumes[name]
	s, err := b.shape(spec.Shape)
	if err != nil {
		return fmt.Errorf("volume %q: %w", name, err)
	}
	lv := csg.NewLogicalVolume(name, s)
	b.volumes[name] = lv
	for i, entry := range spec.Daughters {
		pv, err := b.daughter(b.bag(entry))
		if err != nil {
			return fmt.Errorf("volume %q daughter %d: %w", name, i, err)
		}
		if err := lv.AddDaughter(pv); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) daughter(p props.Properties) (*csg.PhysicalVolume, error) {
	name, err := p.FetchString("name")
	if err != nil {
		return nil, err
	}
	ref, err := p.FetchString("volume")
	if err != nil {
		return nil, err
	}
	if _, ok := b.doc.Volumes[ref]; !ok {
		return nil, fmt.Errorf("volume %q: %w", ref, ErrUndefined)
	}
	// A volume still being built is linked as is; AddDaughter rejects the cycle.
	if _, ok := b.volumes[ref]; !ok {
		if err := b.volume(ref); err != nil {
			return nil, err
		}
	}
	pl, err := placement(p)
	if err != nil {
		return nil, err
	}
	pv := &csg.PhysicalVolume{Name: name, Logical: b.volumes[ref], Placement: pl}
	if p.Has("replica.count") {
		if pv.Replica.Count, err = p.FetchInt("replica.count"); err != nil {
			return nil, err
		}
		if pv.Replica.Step, err = fetchVec(p, "replica.step", units.Length); err != nil {
			return nil, err
		}
	}
	return pv, nil
}
