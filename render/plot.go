package render

import (
	"errors"
	"fmt"
	"image/color"
	"io"

	"github.com/soypat/csg"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// Projection selects the plane wires are projected on.
type Projection uint8

const (
	ProjectXY Projection = iota
	ProjectXZ
	ProjectYZ
)

func (p Projection) String() string {
	switch p {
	case ProjectXY:
		return "xy"
	case ProjectXZ:
		return "xz"
	case ProjectYZ:
		return "yz"
	}
	return fmt.Sprintf("Projection(%d)", uint8(p))
}

// ParseProjection parses "xy", "xz" or "yz".
func ParseProjection(s string) (Projection, error) {
	for _, p := range []Projection{ProjectXY, ProjectXZ, ProjectYZ} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown projection %q", s)
}

func (p Projection) project(v r3.Vec) plotter.XY {
	switch p {
	case ProjectXZ:
		return plotter.XY{X: v.X, Y: v.Z}
	case ProjectYZ:
		return plotter.XY{X: v.Y, Y: v.Z}
	}
	return plotter.XY{X: v.X, Y: v.Y}
}

func (p Projection) axes() (string, string) {
	s := p.String()
	return s[:1], s[1:]
}

// PlotOptions configures wireframe plots.
type PlotOptions struct {
	Title      string
	Projection Projection
	// Size is the side of the square image. Zero means 12cm.
	Size vg.Length
	// Color of the wires. Nil means black.
	Color color.Color
}

// PlotWires draws the projection of w.
func PlotWires(w csg.Wires, opts PlotOptions) (*plot.Plot, error) {
	if len(w) == 0 {
		return nil, errors.New("no wires to plot")
	}
	p := plot.New()
	p.Title.Text = opts.Title
	xl, yl := opts.Projection.axes()
	p.X.Label.Text = xl
	p.Y.Label.Text = yl
	c := opts.Color
	if c == nil {
		c = color.Black
	}
	for _, pl := range w {
		if len(pl) < 2 {
			continue
		}
		xys := make(plotter.XYs, len(pl))
		for i, v := range pl {
			xys[i] = opts.Projection.project(v)
		}
		line, err := plotter.NewLine(xys)
		if err != nil {
			return nil, err
		}
		line.Color = c
		line.Width = vg.Points(0.5)
		p.Add(line)
	}
	return p, nil
}

// WritePlot plots w and encodes the image in format (svg, png, pdf...).
func WritePlot(dst io.Writer, w csg.Wires, format string, opts PlotOptions) error {
	p, err := PlotWires(w, opts)
	if err != nil {
		return err
	}
	size := opts.Size
	if size == 0 {
		size = 12 * vg.Centimeter
	}
	wt, err := p.WriterTo(size, size, format)
	if err != nil {
		return err
	}
	_, err = wt.WriteTo(dst)
	return err
}

// SavePlot plots w into file, the format taken from its extension.
func SavePlot(file string, w csg.Wires, opts PlotOptions) error {
	p, err := PlotWires(w, opts)
	if err != nil {
		return err
	}
	size := opts.Size
	if size == 0 {
		size = 12 * vg.Centimeter
	}
	return p.Save(size, size, file)
}
