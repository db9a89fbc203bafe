// csgprobe queries the shapes of a YAML scene: point classification, ray
// intercepts, grid scans, wireframe plots and STL export.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/encoding/json"
	"github.com/soypat/csg"
	"github.com/soypat/csg/internal/metrics"
	"github.com/soypat/csg/logging"
	"github.com/soypat/csg/scene"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"
)

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const usage = `csgprobe - query the shapes of a scene

Usage:
  csgprobe <command> [options] [arguments]

Commands:
  shapes -scene f                          List shapes with volume and bounds
  locate -scene f [-shape s] x y z         Classify a point (world volume without -shape)
  ray    -scene f -shape s x y z dx dy dz  Cast a ray, print the first intercept
  scan   -scene f -shape s -min x,y,z -max x,y,z [-n 10]
                                           Classify a grid of points
  wires  -scene f -shape s [-o out.svg] [-plane xy] [-boost]
                                           Plot the wireframe projection
  stl    -scene f -shape s -o out.stl      Tessellate and write binary STL

Common options:
  -config f     YAML configuration file
  -json         Print results as JSON
  -tol t        Query tolerance, 0 for the shape skin
  -log-level l  debug, info, warn or error
  -metrics f    Write Prometheus metrics to a textfile`

var commands = map[string]func(*probe, []string) error{
	"shapes": (*probe).cmdShapes,
	"locate": (*probe).cmdLocate,
	"ray":    (*probe).cmdRay,
	"scan":   (*probe).cmdScan,
	"wires":  (*probe).cmdWires,
	"stl":    (*probe).cmdSTL,
}

func run(args []string, stdout, stderr io.Writer) error {
	if len(args) < 1 {
		fmt.Fprintln(stderr, usage)
		return flag.ErrHelp
	}
	command, args := args[0], args[1:]
	switch command {
	case "help", "-h", "--help":
		fmt.Fprintln(stdout, usage)
		return nil
	}
	cmd, ok := commands[command]
	if !ok {
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	p := &probe{stdout: stdout, stderr: stderr}
	return cmd(p, args)
}

// probe holds the state of one command invocation.
type probe struct {
	stdout, stderr io.Writer

	fs        *flag.FlagSet
	cfgPath   string
	scenePath string
	shapeName string
	logLevel  string
	metrics   string
	json      bool
	tol       float64

	cfg       *Config
	log       *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
	scene     *scene.Scene
}

func (p *probe) flags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(p.stderr)
	fs.StringVar(&p.cfgPath, "config", "", "YAML configuration file")
	fs.StringVar(&p.scenePath, "scene", "", "YAML scene file")
	fs.StringVar(&p.shapeName, "shape", "", "Shape name")
	fs.StringVar(&p.logLevel, "log-level", "", "Log level (debug|info|warn|error)")
	fs.StringVar(&p.metrics, "metrics", "", "Prometheus textfile output")
	fs.BoolVar(&p.json, "json", false, "Print results as JSON")
	fs.Float64Var(&p.tol, "tol", 0, "Query tolerance")
	p.fs = fs
	return fs
}

// setup parses args, loads the configuration and builds the scene.
func (p *probe) setup(args []string) error {
	if err := p.fs.Parse(args); err != nil {
		return err
	}
	cfg, err := LoadConfig(p.cfgPath)
	if err != nil {
		return err
	}
	// Flags have the highest priority.
	if p.logLevel != "" {
		cfg.Logging.Level = p.logLevel
	}
	if p.metrics != "" {
		cfg.Metrics.File = p.metrics
	}
	if p.json {
		cfg.Output.JSON = true
	}
	if p.tol > 0 {
		cfg.Query.Tolerance = p.tol
	}
	p.cfg = cfg
	if cfg.Logging.Output == nil {
		cfg.Logging.Output = p.stderr
	}
	if p.log, err = logging.New(cfg.Logging); err != nil {
		return err
	}
	p.registry = prometheus.NewRegistry()
	p.collector = metrics.NewCollector(p.registry)

	if p.scenePath == "" {
		return errors.New("missing -scene")
	}
	doc, err := scene.Load(p.scenePath)
	if err != nil {
		return err
	}
	p.scene, err = doc.Build(scene.Options{Logger: p.log, Observer: p.collector})
	if err != nil {
		return err
	}
	if n := cfg.Query.MaxInterceptSteps; n > 0 {
		for _, name := range p.scene.ShapeNames() {
			if err := setMaxSteps(p.scene.Shapes[name], n); err != nil {
				return fmt.Errorf("shape %q: %w", name, err)
			}
		}
	}
	return nil
}

type stepCapper interface {
	SetMaxInterceptSteps(n int) error
}

func setMaxSteps(s csg.Shape3, n int) error {
	c, ok := s.(stepCapper)
	if !ok {
		return nil
	}
	s.Unlock()
	if err := c.SetMaxInterceptSteps(n); err != nil {
		return err
	}
	return s.Lock()
}

// finish writes the metrics textfile when configured.
func (p *probe) finish() error {
	defer p.log.Sync()
	if p.cfg.Metrics.File == "" {
		return nil
	}
	return prometheus.WriteToTextfile(p.cfg.Metrics.File, p.registry)
}

func (p *probe) shape() (csg.Shape3, error) {
	if p.shapeName == "" {
		return nil, errors.New("missing -shape")
	}
	s, ok := p.scene.Shapes[p.shapeName]
	if !ok {
		return nil, fmt.Errorf("shape %q not in scene", p.shapeName)
	}
	return s, nil
}

// print writes v as JSON or through the text formatter.
func (p *probe) print(v any, text func(w io.Writer)) error {
	if p.cfg.Output.JSON {
		enc := json.NewEncoder(p.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	text(p.stdout)
	return nil
}

type vec [3]float64

func toVec(v r3.Vec) vec { return vec{v.X, v.Y, v.Z} }

func (v vec) String() string { return fmt.Sprintf("(%g, %g, %g)", v[0], v[1], v[2]) }

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X+v.Y+v.Z) && !math.IsInf(v.X+v.Y+v.Z, 0)
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		x, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
		if err != nil {
			return nil, fmt.Errorf("argument %d: %w", i+1, err)
		}
		out[i] = x
	}
	return out, nil
}

func parseVec(s string) (r3.Vec, error) {
	xs, err := parseFloats(strings.Split(s, ","))
	if err != nil {
		return r3.Vec{}, err
	}
	if len(xs) != 3 {
		return r3.Vec{}, fmt.Errorf("vector %q: want 3 components", s)
	}
	return r3.Vec{X: xs[0], Y: xs[1], Z: xs[2]}, nil
}

func vecArgs(args []string, n int) ([]r3.Vec, error) {
	if len(args) != 3*n {
		return nil, fmt.Errorf("want %d coordinates, got %d", 3*n, len(args))
	}
	xs, err := parseFloats(args)
	if err != nil {
		return nil, err
	}
	out := make([]r3.Vec, n)
	for i := range out {
		out[i] = r3.Vec{X: xs[3*i], Y: xs[3*i+1], Z: xs[3*i+2]}
	}
	return out, nil
}
