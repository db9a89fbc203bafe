package csg

import (
	"fmt"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/spatial/r3"
)

// Replica repeats a physical volume Count times, copy i shifted by i*Step
// in the mother frame. A Count below 2 means a single copy.
type Replica struct {
	Count int
	Step  r3.Vec
}

// PhysicalVolume is a logical volume placed in a mother volume.
type PhysicalVolume struct {
	Name      string
	Logical   *LogicalVolume
	Placement Placement
	Replica   Replica
}

// Placements returns the placement of every copy.
func (pv *PhysicalVolume) Placements() []Placement {
	n := max(1, pv.Replica.Count)
	out := make([]Placement, n)
	for i := range out {
		out[i] = pv.Placement.Translated(r3.Scale(float64(i), pv.Replica.Step))
	}
	return out
}

func (pv *PhysicalVolume) copyName(i int) string {
	if pv.Replica.Count < 2 {
		return pv.Name
	}
	return pv.Name + "[" + strconv.Itoa(i) + "]"
}

// LogicalVolume is a shape with named daughter volumes placed inside it.
// Daughters are assumed not to overlap each other.
type LogicalVolume struct {
	Name      string
	Shape     Shape3
	daughters map[string]*PhysicalVolume
}

// NewLogicalVolume returns a volume of shape s without daughters.
func NewLogicalVolume(name string, s Shape3) *LogicalVolume {
	return &LogicalVolume{Name: name, Shape: s, daughters: make(map[string]*PhysicalVolume)}
}

// AddDaughter places pv in lv. Names must be unique within lv and the
// volume tree must stay acyclic.
func (lv *LogicalVolume) AddDaughter(pv *PhysicalVolume) error {
	switch {
	case pv == nil || pv.Logical == nil || pv.Logical.Shape == nil:
		return fmt.Errorf("volume %s: daughter without shape: %w", lv.Name, ErrInvalidVolume)
	case pv.Name == "":
		return fmt.Errorf("volume %s: unnamed daughter: %w", lv.Name, ErrInvalidVolume)
	case pv.Logical.contains(lv):
		return fmt.Errorf("volume %s: daughter %s would contain its mother: %w", lv.Name, pv.Name, ErrInvalidVolume)
	}
	if lv.daughters == nil {
		lv.daughters = make(map[string]*PhysicalVolume)
	}
	if _, dup := lv.daughters[pv.Name]; dup {
		return fmt.Errorf("volume %s: duplicate daughter %s: %w", lv.Name, pv.Name, ErrInvalidVolume)
	}
	lv.daughters[pv.Name] = pv
	return nil
}

func (lv *LogicalVolume) contains(target *LogicalVolume) bool {
	if lv == target {
		return true
	}
	for _, d := range lv.daughters {
		if d.Logical.contains(target) {
			return true
		}
	}
	return false
}

// Daughter returns the daughter called name.
func (lv *LogicalVolume) Daughter(name string) (*PhysicalVolume, bool) {
	pv, ok := lv.daughters[name]
	return pv, ok
}

// Daughters returns the daughters sorted by name.
func (lv *LogicalVolume) Daughters() []*PhysicalVolume {
	out := make([]*PhysicalVolume, 0, len(lv.daughters))
	for _, d := range lv.daughters {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Location is the result of locating a point in a volume tree.
type Location struct {
	// Domain classifies the point against the mother shape, with
	// DomainInsideDaughter or DomainDaughterSurface added when a daughter
	// holds it.
	Domain Domain
	// Leaf classifies the point in the deepest volume holding it.
	Leaf Domain
	// Path lists the daughters traversed, replicas suffixed by their index.
	Path []string
}

// Locate classifies p, in the frame of lv, and descends into the daughter
// containing it.
func (lv *LogicalVolume) Locate(p r3.Vec, tol float64) Location {
	d := WhereIs(lv.Shape, p, tol)
	loc := Location{Domain: d, Leaf: d}
	if d != DomainInside {
		return loc
	}
	for _, pv := range lv.Daughters() {
		for i, pl := range pv.Placements() {
			q := pl.MotherToChild(p)
			switch WhereIs(pv.Logical.Shape, q, tol) {
			case DomainSurface:
				loc.Domain |= DomainDaughterSurface
				loc.Leaf = DomainSurface
				loc.Path = []string{pv.copyName(i)}
				return loc
			case DomainInside:
				sub := pv.Logical.Locate(q, tol)
				loc.Domain |= DomainInsideDaughter
				loc.Leaf = sub.Leaf
				loc.Path = append([]string{pv.copyName(i)}, sub.Path...)
				return loc
			}
		}
	}
	return loc
}
