package csg

import (
	"errors"
	"fmt"
	"math"

	"github.com/soypat/csg/internal/d2"
	"gonum.org/v1/gonum/spatial/r2"
)

// SimplePolygon is a non self-intersecting polygon in the XY plane.
type SimplePolygon struct {
	vertices  []r2.Vec
	clockwise bool
	// triangles index vertices, each wound anticlockwise.
	triangles [][3]int
	area      float64
	bounds    d2.Box
}

var errDegeneratePolygon = errors.New("degenerate polygon")

// NewSimplePolygon builds and triangulates a polygon from its vertices in
// order. The closing edge from the last to the first vertex is implicit.
func NewSimplePolygon(vertices []r2.Vec) (*SimplePolygon, error) {
	if len(vertices) < 3 {
		return nil, fmt.Errorf("%w: %d vertices", errDegeneratePolygon, len(vertices))
	}
	p := &SimplePolygon{vertices: append([]r2.Vec(nil), vertices...)}
	n := len(p.vertices)
	for i := range p.vertices {
		if d2.EqualWithin(p.vertices[i], p.vertices[(i+1)%n], 0) {
			return nil, fmt.Errorf("%w: repeated vertex %d", errDegeneratePolygon, i)
		}
	}
	for i := 0; i < n; i++ {
		for j := i + 2; j < n; j++ {
			if i == 0 && j == n-1 {
				continue
			}
			if d2.SegmentsIntersect(p.vertices[i], p.vertices[(i+1)%n], p.vertices[j], p.vertices[(j+1)%n]) {
				return nil, fmt.Errorf("edges %d and %d intersect: polygon is not simple", i, j)
			}
		}
	}
	turn := p.turning()
	if math.Abs(math.Abs(turn)-2*math.Pi) > 1e-6 {
		return nil, fmt.Errorf("%w: total turning angle %g", errDegeneratePolygon, turn)
	}
	p.clockwise = turn < 0
	if err := p.triangulate(); err != nil {
		return nil, err
	}
	for _, t := range p.triangles {
		p.area += 0.5 * d2.Orient(p.vertices[t[0]], p.vertices[t[1]], p.vertices[t[2]])
	}
	p.bounds = d2.BoxOf(p.vertices)
	return p, nil
}

// turning returns the sum of signed exterior angles, +2pi for an
// anticlockwise polygon and -2pi for a clockwise one.
func (p *SimplePolygon) turning() float64 {
	n := len(p.vertices)
	var sum float64
	for i := 0; i < n; i++ {
		a := p.vertices[(i+n-1)%n]
		b := p.vertices[i]
		c := p.vertices[(i+1)%n]
		e1 := r2.Sub(b, a)
		e2 := r2.Sub(c, b)
		sum += math.Atan2(d2.Cross(e1, e2), r2.Dot(e1, e2))
	}
	return sum
}

// triangulate runs ear clipping over the anticlockwise vertex order.
func (p *SimplePolygon) triangulate() error {
	n := len(p.vertices)
	idx := make([]int, n)
	for i := range idx {
		if p.clockwise {
			idx[i] = n - 1 - i
		} else {
			idx[i] = i
		}
	}
	for len(idx) > 3 {
		clipped := false
		for k := range idx {
			ia, ib, ic := idx[(k+len(idx)-1)%len(idx)], idx[k], idx[(k+1)%len(idx)]
			if !p.isEar(ia, ib, ic, idx) {
				continue
			}
			p.triangles = append(p.triangles, [3]int{ia, ib, ic})
			idx = append(idx[:k], idx[k+1:]...)
			clipped = true
			break
		}
		if !clipped {
			return fmt.Errorf("%w: no ear found with %d vertices left", errDegeneratePolygon, len(idx))
		}
	}
	if d2.Orient(p.vertices[idx[0]], p.vertices[idx[1]], p.vertices[idx[2]]) <= 0 {
		return fmt.Errorf("%w: last triangle is reversed or flat", errDegeneratePolygon)
	}
	p.triangles = append(p.triangles, [3]int{idx[0], idx[1], idx[2]})
	return nil
}

// isEar reports whether triangle abc is convex and holds no other remaining vertex.
func (p *SimplePolygon) isEar(ia, ib, ic int, remaining []int) bool {
	a, b, c := p.vertices[ia], p.vertices[ib], p.vertices[ic]
	if d2.Orient(a, b, c) <= 0 {
		return false
	}
	for _, j := range remaining {
		if j == ia || j == ib || j == ic {
			continue
		}
		v := p.vertices[j]
		if d2.EqualWithin(v, a, 0) || d2.EqualWithin(v, b, 0) || d2.EqualWithin(v, c, 0) {
			return false
		}
		if d2.Orient(a, b, v) >= 0 && d2.Orient(b, c, v) >= 0 && d2.Orient(c, a, v) >= 0 {
			return false
		}
	}
	return true
}

// Vertices returns the polygon vertices in their original order.
func (p *SimplePolygon) Vertices() []r2.Vec { return p.vertices }

func (p *SimplePolygon) IsClockwise() bool { return p.clockwise }

// Area returns the unsigned area.
func (p *SimplePolygon) Area() float64 { return p.area }

// Perimeter returns the total edge length.
func (p *SimplePolygon) Perimeter() float64 {
	var l float64
	n := len(p.vertices)
	for i := range p.vertices {
		l += r2.Norm(r2.Sub(p.vertices[(i+1)%n], p.vertices[i]))
	}
	return l
}

// Bounds returns the polygon's bounding rectangle.
func (p *SimplePolygon) Bounds() (min, max r2.Vec) { return p.bounds.Min, p.bounds.Max }

// Triangles returns the triangulation, each wound anticlockwise.
func (p *SimplePolygon) Triangles() [][3]r2.Vec {
	out := make([][3]r2.Vec, len(p.triangles))
	for i, t := range p.triangles {
		out[i] = [3]r2.Vec{p.vertices[t[0]], p.vertices[t[1]], p.vertices[t[2]]}
	}
	return out
}

// Contains reports whether v lies strictly inside the polygon by ray crossing.
func (p *SimplePolygon) Contains(v r2.Vec) bool {
	if !p.bounds.Contains(v, 0) {
		return false
	}
	inside := false
	n := len(p.vertices)
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := p.vertices[i], p.vertices[j]
		if (a.Y > v.Y) != (b.Y > v.Y) {
			x := a.X + (v.Y-a.Y)*(b.X-a.X)/(b.Y-a.Y)
			if v.X < x {
				inside = !inside
			}
		}
	}
	return inside
}

// EdgeDistance returns the distance from v to the polygon boundary.
func (p *SimplePolygon) EdgeDistance(v r2.Vec) float64 {
	d := math.Inf(1)
	n := len(p.vertices)
	for i := range p.vertices {
		d = math.Min(d, d2.SegmentDistance(v, p.vertices[i], p.vertices[(i+1)%n]))
	}
	return d
}

// SignedDistance returns the distance to the boundary, negative inside.
func (p *SimplePolygon) SignedDistance(v r2.Vec) float64 {
	d := p.EdgeDistance(v)
	if p.Contains(v) {
		return -d
	}
	return d
}
