package csg

import (
	"math"

	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Surface is a 2D manifold embedded in its own local frame.
type Surface interface {
	// IsOnSurface reports whether p lies within tol/2 of the surface.
	IsOnSurface(p r3.Vec, tol float64) bool
	// Normal returns the unit normal at p, assumed on the surface.
	Normal(p r3.Vec) r3.Vec
	// FindIntercept returns the nearest point with t>0 where the ray crosses the surface.
	FindIntercept(from, dir r3.Vec, tol float64) (impact r3.Vec, ok bool)
	Area() float64
	// Triangles approximates the surface, vertices wound so that the
	// right-hand normal points along Normal.
	Triangles() []Triangle
}

// FaceInfo is a named face of a shape: a surface placed in the shape frame.
type FaceInfo struct {
	Surface     Surface
	Positioning Placement
	ID          FaceID
	Label       string
}

// Triangle is a planar triangle.
type Triangle struct {
	V [3]r3.Vec
}

// Normal returns the right-hand unit normal of the triangle.
func (t Triangle) Normal(_ r3.Vec) r3.Vec {
	return r3.Unit(r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0])))
}

func (t Triangle) Area() float64 {
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(t.V[1], t.V[0]), r3.Sub(t.V[2], t.V[0])))
}

func (t Triangle) Triangles() []Triangle { return []Triangle{t} }

// IsOnSurface reports whether p is within tol/2 of the triangle's plane and
// within tol/2 of its interior.
func (t Triangle) IsOnSurface(p r3.Vec, tol float64) bool {
	n := t.Normal(p)
	d := r3.Dot(r3.Sub(p, t.V[0]), n)
	if !withinSkin(d, tol) {
		return false
	}
	q := r3.Sub(p, r3.Scale(d, n))
	return t.edgeDistance(q, n) <= tol/2
}

// edgeDistance returns 0 for points of the plane inside the triangle and the
// distance to the closest edge otherwise.
func (t Triangle) edgeDistance(q, n r3.Vec) float64 {
	inside := true
	for i := 0; i < 3; i++ {
		a, b := t.V[i], t.V[(i+1)%3]
		if r3.Dot(r3.Cross(r3.Sub(b, a), r3.Sub(q, a)), n) < 0 {
			inside = false
			break
		}
	}
	if inside {
		return 0
	}
	dmin := math.Inf(1)
	for i := 0; i < 3; i++ {
		dmin = math.Min(dmin, segmentDistance(q, t.V[i], t.V[(i+1)%3]))
	}
	return dmin
}

// FindIntercept intersects the ray with the triangle's plane and accepts the
// impact if it lies on the triangle.
func (t Triangle) FindIntercept(from, dir r3.Vec, tol float64) (r3.Vec, bool) {
	n := t.Normal(from)
	den := r3.Dot(dir, n)
	if den == 0 {
		return d3.NaN(), false
	}
	s := r3.Dot(r3.Sub(t.V[0], from), n) / den
	if s <= 0 {
		return d3.NaN(), false
	}
	impact := r3.Add(from, r3.Scale(s, dir))
	if !t.IsOnSurface(impact, tol) {
		return d3.NaN(), false
	}
	return impact, true
}

func segmentDistance(p, a, b r3.Vec) float64 {
	ab := r3.Sub(b, a)
	l2 := r3.Norm2(ab)
	if l2 == 0 {
		return r3.Norm(r3.Sub(p, a))
	}
	s := math.Max(0, math.Min(1, r3.Dot(r3.Sub(p, a), ab)/l2))
	return r3.Norm(r3.Sub(p, r3.Add(a, r3.Scale(s, ab))))
}

// Quadrangle is a planar convex quadrilateral with vertices in winding order.
type Quadrangle struct {
	V [4]r3.Vec
}

func (q Quadrangle) halves() [2]Triangle {
	return [2]Triangle{
		{V: [3]r3.Vec{q.V[0], q.V[1], q.V[2]}},
		{V: [3]r3.Vec{q.V[0], q.V[2], q.V[3]}},
	}
}

func (q Quadrangle) Normal(p r3.Vec) r3.Vec { return q.halves()[0].Normal(p) }

func (q Quadrangle) Area() float64 {
	h := q.halves()
	return h[0].Area() + h[1].Area()
}

func (q Quadrangle) Triangles() []Triangle {
	h := q.halves()
	return h[:]
}

func (q Quadrangle) IsOnSurface(p r3.Vec, tol float64) bool {
	h := q.halves()
	return h[0].IsOnSurface(p, tol) || h[1].IsOnSurface(p, tol)
}

func (q Quadrangle) FindIntercept(from, dir r3.Vec, tol float64) (r3.Vec, bool) {
	h := q.halves()
	if impact, ok := h[0].FindIntercept(from, dir, tol); ok {
		return impact, true
	}
	return h[1].FindIntercept(from, dir, tol)
}

// CompositeSurface is a surface made of placed elementary faces.
type CompositeSurface struct {
	Faces []FaceInfo
}

// Add appends a face at placement pl.
func (c *CompositeSurface) Add(s Surface, pl Placement) {
	c.Faces = append(c.Faces, FaceInfo{Surface: s, Positioning: pl, ID: FaceIndex(int32(len(c.Faces)))})
}

// Locate returns the index of the first face containing p, or -1.
func (c *CompositeSurface) Locate(p r3.Vec, tol float64) int {
	for i, f := range c.Faces {
		if f.Surface.IsOnSurface(f.Positioning.MotherToChild(p), tol) {
			return i
		}
	}
	return -1
}

func (c *CompositeSurface) IsOnSurface(p r3.Vec, tol float64) bool {
	return c.Locate(p, tol) >= 0
}

// Normal returns the normal of the first face containing p within the
// default tolerance.
func (c *CompositeSurface) Normal(p r3.Vec) r3.Vec {
	return c.NormalWithin(p, DefaultTolerance)
}

// NormalWithin returns the normal of the first face containing p within tol,
// retrying with a thousandfold band before giving up with a NaN vector.
func (c *CompositeSurface) NormalWithin(p r3.Vec, tol float64) r3.Vec {
	i := c.Locate(p, tol)
	if i < 0 {
		i = c.Locate(p, 1e3*tol)
	}
	if i < 0 {
		return d3.NaN()
	}
	f := c.Faces[i]
	return f.Positioning.ChildToMotherDirection(f.Surface.Normal(f.Positioning.MotherToChild(p)))
}

// surfaceNormal is Surface.Normal with composites located within tol.
func surfaceNormal(s Surface, p r3.Vec, tol float64) r3.Vec {
	if c, ok := s.(*CompositeSurface); ok {
		return c.NormalWithin(p, tol)
	}
	return s.Normal(p)
}

func (c *CompositeSurface) FindIntercept(from, dir r3.Vec, tol float64) (r3.Vec, bool) {
	_, impact, ok := c.nearest(from, dir, tol)
	return impact, ok
}

func (c *CompositeSurface) nearest(from, dir r3.Vec, tol float64) (idx int, impact r3.Vec, ok bool) {
	idx = -1
	best := math.Inf(1)
	impact = d3.NaN()
	for i, f := range c.Faces {
		o := f.Positioning.MotherToChild(from)
		d := f.Positioning.MotherToChildDirection(dir)
		hit, found := f.Surface.FindIntercept(o, d, tol)
		if !found {
			continue
		}
		hit = f.Positioning.ChildToMother(hit)
		if dist := r3.Norm(r3.Sub(hit, from)); dist < best {
			best, idx, impact, ok = dist, i, hit, true
		}
	}
	return idx, impact, ok
}

func (c *CompositeSurface) Area() float64 {
	var a float64
	for _, f := range c.Faces {
		a += f.Surface.Area()
	}
	return a
}

func (c *CompositeSurface) Triangles() []Triangle {
	var out []Triangle
	for _, f := range c.Faces {
		for _, t := range f.Surface.Triangles() {
			for j := range t.V {
				t.V[j] = f.Positioning.ChildToMother(t.V[j])
			}
			out = append(out, t)
		}
	}
	return out
}
