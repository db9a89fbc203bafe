// Package render tessellates shapes into triangle meshes, exports them as
// binary STL and plots wireframe projections.
package render

import (
	"io"

	"github.com/soypat/csg"
	"gonum.org/v1/gonum/spatial/r3"
)

// Renderer streams triangles. ReadTriangles fills t and returns io.EOF once
// no triangles are left.
type Renderer interface {
	ReadTriangles(t []csg.Triangle) (int, error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like io.ReadAll.
func RenderAll(r Renderer) ([]csg.Triangle, error) {
	var err error
	var nt int
	result := make([]csg.Triangle, 0, 1<<10)
	buf := make([]csg.Triangle, 1024)
	for {
		nt, err = r.ReadTriangles(buf)
		result = append(result, buf[:nt]...)
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// MeshRenderer serves triangles from a slice.
type MeshRenderer struct {
	buf []csg.Triangle
}

var _ Renderer = (*MeshRenderer)(nil)

func NewMeshRenderer(model []csg.Triangle) *MeshRenderer {
	return &MeshRenderer{buf: model}
}

func (m *MeshRenderer) ReadTriangles(t []csg.Triangle) (int, error) {
	if len(m.buf) == 0 {
		return 0, io.EOF
	}
	n := copy(t, m.buf)
	m.buf = m.buf[n:]
	return n, nil
}

// Len returns the number of triangles left.
func (m *MeshRenderer) Len() int { return len(m.buf) }

// Tessellate returns the triangles of the computed faces of s, mapped by pl.
// Faces of composites are trimmed triangle by triangle: a triangle is kept
// whole when its centroid lies on the composite surface, and flipped where
// the composite turns an operand face inside out.
func Tessellate(s csg.Shape3, pl csg.Placement) []csg.Triangle {
	trimmer, trims := s.(csg.FaceTrimmer)
	tol := s.Tolerance(0)
	var out []csg.Triangle
	for _, f := range s.ComputedFaces() {
		for _, t := range f.Surface.Triangles() {
			for i := range t.V {
				t.V[i] = f.Positioning.ChildToMother(t.V[i])
			}
			if trims {
				keep, flip := trimmer.TrimFace(f.ID, centroid(t), tol)
				if !keep {
					continue
				}
				if flip {
					t.V[1], t.V[2] = t.V[2], t.V[1]
				}
			}
			for i := range t.V {
				t.V[i] = pl.ChildToMother(t.V[i])
			}
			out = append(out, t)
		}
	}
	return out
}

func centroid(t csg.Triangle) r3.Vec {
	return r3.Scale(1.0/3, r3.Add(t.V[0], r3.Add(t.V[1], t.V[2])))
}
