package csg

import (
	"math"

	"github.com/soypat/csg/internal/d3"
	"gonum.org/v1/gonum/spatial/r3"
)

// Polyline is a sequence of points joined by straight segments.
type Polyline []r3.Vec

// Wires is a wireframe made of polylines.
type Wires []Polyline

// WireOption selects what a wire renderer draws.
type WireOption uint32

const (
	// WireOnlyBB draws the bounding box instead of the shape.
	WireOnlyBB WireOption = 1 << iota
	// WireDrawFirst restricts a composite to its first operand's contribution.
	WireDrawFirst
	// WireDrawSecond restricts a composite to its second operand's contribution.
	WireDrawSecond
	// WireBoostSampling refines sampling of curved edges and segment splitting.
	WireBoostSampling
	// WireBoundings adds the bounding box edges to the wires.
	WireBoundings
)

// WireRenderer is implemented by shapes that can draw their wireframe.
// Placement pl maps the shape frame into the frame of the returned wires.
type WireRenderer interface {
	GenerateWires(pl Placement, opts WireOption) Wires
}

// GenerateWires draws s if it is a WireRenderer. Otherwise it draws its
// bounding box and returns false.
func GenerateWires(s Shape3, pl Placement, opts WireOption) (Wires, bool) {
	if wr, ok := s.(WireRenderer); ok {
		return wr.GenerateWires(pl, opts), true
	}
	if bd, ok := s.BoundingData(); ok {
		return bd.GenerateWires(pl, opts), false
	}
	return nil, false
}

// Len returns the number of segments in w.
func (w Wires) Len() int {
	n := 0
	for _, l := range w {
		if len(l) > 1 {
			n += len(l) - 1
		}
	}
	return n
}

// SplitSegments walks every segment of w and keeps the runs whose domain,
// relative to s placed at sp in the wires frame, is in keep. Segments are
// sampled every step and domain changes are refined by bisection down to tol.
func SplitSegments(w Wires, s Shape3, sp Placement, keep Domain, step, tol float64) Wires {
	tol = s.Tolerance(tol)
	if !(step > 0) {
		step = 1
	}
	where := func(p r3.Vec) Domain {
		return WhereIs(s, sp.MotherToChild(p), tol)
	}
	var out Wires
	var cur Polyline
	flush := func() {
		if len(cur) >= 2 {
			out = append(out, cur)
		}
		cur = nil
	}
	for _, line := range w {
		for i := 1; i < len(line); i++ {
			for _, piece := range splitSegment(line[i-1], line[i], where, step, tol) {
				if piece.domain&keep == 0 {
					flush()
					continue
				}
				if len(cur) > 0 && cur[len(cur)-1] == piece.a {
					cur = append(cur, piece.b)
				} else {
					flush()
					cur = Polyline{piece.a, piece.b}
				}
			}
		}
		flush()
	}
	return out
}

type segmentPiece struct {
	a, b   r3.Vec
	domain Domain
}

const maxSegmentSamples = 1 << 16

func splitSegment(a, b r3.Vec, where func(r3.Vec) Domain, step, tol float64) []segmentPiece {
	length := r3.Norm(r3.Sub(b, a))
	if length == 0 {
		return nil
	}
	n := int(math.Ceil(length / step))
	n = max(1, min(n, maxSegmentSamples))
	at := func(t float64) r3.Vec {
		switch t {
		case 0:
			return a
		case 1:
			return b
		}
		return d3.Lerp(a, b, t)
	}
	bisect := func(lo, hi float64, dlo Domain) float64 {
		for i := 0; i < 64 && (hi-lo)*length > tol/4; i++ {
			mid := 0.5 * (lo + hi)
			if where(at(mid)) == dlo {
				lo = mid
			} else {
				hi = mid
			}
		}
		return 0.5 * (lo + hi)
	}
	ts := []float64{0}
	prevT, prevD := 0.0, where(a)
	for k := 1; k <= n; k++ {
		t := float64(k) / float64(n)
		d := where(at(t))
		if d != prevD {
			ts = append(ts, bisect(prevT, t, prevD))
		}
		prevT, prevD = t, d
	}
	ts = append(ts, 1)
	pieces := make([]segmentPiece, 0, len(ts)-1)
	for j := 1; j < len(ts); j++ {
		ta, tb := ts[j-1], ts[j]
		if tb <= ta {
			continue
		}
		pieces = append(pieces, segmentPiece{
			a:      at(ta),
			b:      at(tb),
			domain: where(at(0.5 * (ta + tb))),
		})
	}
	return pieces
}

// circle returns a closed polyline of n segments of radius r in the plane
// spanned by u and v around c.
func circle(c, u, v r3.Vec, r float64, n int) Polyline {
	pl := make(Polyline, n+1)
	for i := 0; i <= n; i++ {
		s, co := math.Sincos(2 * math.Pi * float64(i) / float64(n))
		pl[i] = r3.Add(c, r3.Add(r3.Scale(r*co, u), r3.Scale(r*s, v)))
	}
	return pl
}

// placeWires maps every point of w by pl.
func placeWires(w Wires, pl Placement) Wires {
	for _, line := range w {
		for i := range line {
			line[i] = pl.ChildToMother(line[i])
		}
	}
	return w
}
