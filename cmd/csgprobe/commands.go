package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strings"

	"github.com/soypat/csg"
	"github.com/soypat/csg/render"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

type shapeInfo struct {
	Name   string   `json:"name"`
	Type   string   `json:"type"`
	Volume *float64 `json:"volume,omitempty"`
	Min    *vec     `json:"min,omitempty"`
	Max    *vec     `json:"max,omitempty"`
}

func (p *probe) cmdShapes(args []string) error {
	p.flags("shapes")
	if err := p.setup(args); err != nil {
		return err
	}
	var infos []shapeInfo
	for _, name := range p.scene.ShapeNames() {
		s := p.scene.Shapes[name]
		info := shapeInfo{Name: name, Type: s.ShapeName()}
		if v := csg.EffectiveVolume(s); !math.IsNaN(v) {
			info.Volume = &v
		}
		if bd, ok := s.BoundingData(); ok {
			lo, hi := toVec(bd.Min), toVec(bd.Max)
			info.Min, info.Max = &lo, &hi
		}
		infos = append(infos, info)
	}
	err := p.print(infos, func(w io.Writer) {
		for _, info := range infos {
			fmt.Fprintf(w, "%-16s %-12s", info.Name, info.Type)
			if info.Volume != nil {
				fmt.Fprintf(w, " volume=%g", *info.Volume)
			}
			if info.Min != nil {
				fmt.Fprintf(w, " bounds=%v..%v", *info.Min, *info.Max)
			}
			fmt.Fprintln(w)
		}
	})
	if err != nil {
		return err
	}
	return p.finish()
}

type locateResult struct {
	Point  vec      `json:"point"`
	Domain string   `json:"domain"`
	Leaf   string   `json:"leaf,omitempty"`
	Path   []string `json:"path,omitempty"`
}

func (p *probe) cmdLocate(args []string) error {
	p.flags("locate")
	if err := p.setup(args); err != nil {
		return err
	}
	pts, err := vecArgs(p.fs.Args(), 1)
	if err != nil {
		return err
	}
	pt := pts[0]
	res := locateResult{Point: toVec(pt)}
	if p.shapeName == "" {
		if p.scene.World == nil {
			return errors.New("scene has no world volume, use -shape")
		}
		loc := p.scene.World.Locate(pt, p.cfg.Query.Tolerance)
		p.collector.ObserveLocate(loc.Leaf)
		res.Domain, res.Leaf, res.Path = loc.Domain.String(), loc.Leaf.String(), loc.Path
	} else {
		s, err := p.shape()
		if err != nil {
			return err
		}
		d := csg.WhereIs(s, pt, p.cfg.Query.Tolerance)
		p.collector.ObserveLocate(d)
		res.Domain = d.String()
	}
	err = p.print(res, func(w io.Writer) {
		fmt.Fprintf(w, "%v %s", res.Point, res.Domain)
		if len(res.Path) > 0 {
			fmt.Fprintf(w, " in %s (%s)", strings.Join(res.Path, "/"), res.Leaf)
		}
		fmt.Fprintln(w)
	})
	if err != nil {
		return err
	}
	return p.finish()
}

type rayResult struct {
	From     vec     `json:"from"`
	Dir      vec     `json:"dir"`
	Hit      bool    `json:"hit"`
	Impact   *vec    `json:"impact,omitempty"`
	Distance float64 `json:"distance,omitempty"`
	Face     string  `json:"face,omitempty"`
	Normal   *vec    `json:"normal,omitempty"`
}

func (p *probe) cmdRay(args []string) error {
	p.flags("ray")
	if err := p.setup(args); err != nil {
		return err
	}
	s, err := p.shape()
	if err != nil {
		return err
	}
	vs, err := vecArgs(p.fs.Args(), 2)
	if err != nil {
		return err
	}
	from, dir := vs[0], vs[1]
	fi, err := csg.FindIntercept(s, from, dir, p.cfg.Query.Tolerance)
	if err != nil {
		p.log.Error("ray failed", zap.String("shape", p.shapeName), zap.Error(err))
		p.finish()
		return err
	}
	res := rayResult{From: toVec(from), Dir: toVec(dir), Hit: fi.IsOK()}
	if res.Hit {
		impact := toVec(fi.Impact)
		res.Impact = &impact
		res.Distance = r3.Norm(r3.Sub(fi.Impact, from))
		res.Face = fi.Face.String()
		if n := s.NormalOnSurface(fi.Impact, fi.Face); finite(n) {
			nv := toVec(n)
			res.Normal = &nv
		}
	}
	err = p.print(res, func(w io.Writer) {
		if !res.Hit {
			fmt.Fprintln(w, "no intercept")
			return
		}
		fmt.Fprintf(w, "impact %v at %g on face %s", *res.Impact, res.Distance, res.Face)
		if res.Normal != nil {
			fmt.Fprintf(w, " normal %v", *res.Normal)
		}
		fmt.Fprintln(w)
	})
	if err != nil {
		return err
	}
	return p.finish()
}

type scanResult struct {
	Points int            `json:"points"`
	Counts map[string]int `json:"counts"`
}

func (p *probe) cmdScan(args []string) error {
	fs := p.flags("scan")
	minStr := fs.String("min", "", "Grid corner x,y,z")
	maxStr := fs.String("max", "", "Opposite grid corner x,y,z")
	n := fs.Int("n", 10, "Points per axis")
	if err := p.setup(args); err != nil {
		return err
	}
	s, err := p.shape()
	if err != nil {
		return err
	}
	lo, hi, err := p.scanBounds(s, *minStr, *maxStr)
	if err != nil {
		return err
	}
	if *n < 1 {
		return fmt.Errorf("-n must be positive, got %d", *n)
	}
	res := scanResult{Counts: make(map[string]int)}
	for _, pt := range grid(lo, hi, *n) {
		d := csg.WhereIs(s, pt, p.cfg.Query.Tolerance)
		p.collector.ObserveLocate(d)
		res.Counts[d.String()]++
		res.Points++
	}
	p.log.Info("scan done", zap.String("shape", p.shapeName), zap.Int("points", res.Points))
	err = p.print(res, func(w io.Writer) {
		for _, d := range []csg.Domain{csg.DomainInside, csg.DomainSurface, csg.DomainOutside, csg.DomainNone} {
			if c := res.Counts[d.String()]; c > 0 {
				fmt.Fprintf(w, "%-8s %d\n", d, c)
			}
		}
	})
	if err != nil {
		return err
	}
	return p.finish()
}

// scanBounds parses the grid corners, defaulting to the shape bounding box.
func (p *probe) scanBounds(s csg.Shape3, minStr, maxStr string) (lo, hi r3.Vec, err error) {
	if minStr == "" && maxStr == "" {
		bd, ok := s.BoundingData()
		if !ok {
			return lo, hi, errors.New("shape has no bounding box, use -min and -max")
		}
		return bd.Min, bd.Max, nil
	}
	if lo, err = parseVec(minStr); err != nil {
		return lo, hi, fmt.Errorf("-min: %w", err)
	}
	if hi, err = parseVec(maxStr); err != nil {
		return lo, hi, fmt.Errorf("-max: %w", err)
	}
	return lo, hi, nil
}

// grid returns n points per axis spanning [lo, hi], the center when n is 1.
func grid(lo, hi r3.Vec, n int) []r3.Vec {
	at := func(a, b float64, i int) float64 {
		if n == 1 {
			return (a + b) / 2
		}
		return a + (b-a)*float64(i)/float64(n-1)
	}
	out := make([]r3.Vec, 0, n*n*n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				out = append(out, r3.Vec{X: at(lo.X, hi.X, i), Y: at(lo.Y, hi.Y, j), Z: at(lo.Z, hi.Z, k)})
			}
		}
	}
	return out
}

func (p *probe) cmdWires(args []string) error {
	fs := p.flags("wires")
	out := fs.String("o", "", "Output image, svg to stdout when empty")
	plane := fs.String("plane", "xy", "Projection plane (xy|xz|yz)")
	boost := fs.Bool("boost", false, "Boost sampling")
	bb := fs.Bool("bb", false, "Draw bounding boxes")
	if err := p.setup(args); err != nil {
		return err
	}
	s, err := p.shape()
	if err != nil {
		return err
	}
	proj, err := render.ParseProjection(*plane)
	if err != nil {
		return err
	}
	var opts csg.WireOption
	if *boost {
		opts |= csg.WireBoostSampling
	}
	if *bb {
		opts |= csg.WireBoundings
	}
	w, ok := csg.GenerateWires(s, csg.Identity(), opts)
	if !ok {
		return fmt.Errorf("shape %q cannot draw wires", p.shapeName)
	}
	popts := render.PlotOptions{Title: p.shapeName, Projection: proj}
	if *out == "" {
		err = render.WritePlot(p.stdout, w, "svg", popts)
	} else {
		err = render.SavePlot(*out, w, popts)
	}
	if err != nil {
		return err
	}
	p.log.Info("wires plotted", zap.String("shape", p.shapeName), zap.Int("polylines", len(w)), zap.Int("segments", w.Len()))
	return p.finish()
}

func (p *probe) cmdSTL(args []string) error {
	fs := p.flags("stl")
	out := fs.String("o", "", "Output STL file")
	if err := p.setup(args); err != nil {
		return err
	}
	s, err := p.shape()
	if err != nil {
		return err
	}
	if *out == "" {
		*out = p.shapeName + ".stl"
	}
	if ext := filepath.Ext(*out); !strings.EqualFold(ext, ".stl") {
		return fmt.Errorf("output %q: want .stl extension", *out)
	}
	tris := render.Tessellate(s, csg.Identity())
	if err := render.CreateSTL(*out, render.NewMeshRenderer(tris)); err != nil {
		return err
	}
	if !p.cfg.Output.JSON {
		fmt.Fprintf(p.stdout, "wrote %d triangles to %s\n", len(tris), *out)
	} else if err := p.print(map[string]any{"file": *out, "triangles": len(tris)}, nil); err != nil {
		return err
	}
	return p.finish()
}
