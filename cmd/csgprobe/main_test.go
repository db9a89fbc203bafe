package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/soypat/csg"
	"github.com/soypat/csg/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probeScene = `
shapes:
  block: {type: box, x: 2, y: 2, z: 2}
  ball: {type: sphere, r: 0.5}
  part:
    type: subtraction
    first: {shape: block}
    second: {shape: ball, position: [1, 0, 0]}
volumes:
  world: {shape: block, daughters: [{name: core, volume: core}]}
  core: {shape: ball}
world: world
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func probeRun(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), err
}

func TestLocate(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)

	out, err := probeRun(t, "locate", "-scene", sc, "-json", "0", "0", "0")
	require.NoError(t, err)
	var res locateResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "inside|inside_daughter", res.Domain)
	assert.Equal(t, "inside", res.Leaf)
	assert.Equal(t, []string{"core"}, res.Path)

	out, err = probeRun(t, "locate", "-scene", sc, "-shape", "part", "0.9", "0", "0")
	require.NoError(t, err)
	assert.Equal(t, "(0.9, 0, 0) outside\n", out)

	_, err = probeRun(t, "locate", "-scene", sc, "-shape", "nothing", "0", "0", "0")
	assert.Error(t, err)
	_, err = probeRun(t, "locate", "-scene", sc, "1", "2")
	assert.Error(t, err)
}

func TestRay(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)
	out, err := probeRun(t, "ray", "-scene", sc, "-shape", "part", "-json", "5", "0", "0", "-1", "0", "0")
	require.NoError(t, err)
	var res rayResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.True(t, res.Hit)
	require.NotNil(t, res.Impact)
	assert.InDelta(t, 0.5, res.Impact[0], 1e-9)
	assert.InDelta(t, 4.5, res.Distance, 1e-9)
	require.NotNil(t, res.Normal)
	assert.InDelta(t, 1, res.Normal[0], 1e-9)
	face, err := csg.ParseFaceID(res.Face)
	require.NoError(t, err)
	assert.Equal(t, csg.SecondPart, face.Part(0))

	out, err = probeRun(t, "ray", "-scene", sc, "-shape", "ball", "5", "5", "0", "1", "0", "0")
	require.NoError(t, err)
	assert.Equal(t, "no intercept\n", out)
}

func TestRayStepCap(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)
	cfg := writeFile(t, "config.yaml", "query:\n  max_intercept_steps: 1\nlogging:\n  console: false\n")
	_, err := probeRun(t, "ray", "-config", cfg, "-scene", sc, "-shape", "part", "5", "0", "0", "-1", "0", "0")
	var ie *csg.InterceptError
	require.ErrorAs(t, err, &ie)
	assert.Equal(t, 1, ie.Steps)
}

func TestScanMetrics(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)
	metricsFile := filepath.Join(t.TempDir(), "csg.prom")
	out, err := probeRun(t, "scan", "-scene", sc, "-shape", "block", "-n", "3", "-json", "-metrics", metricsFile)
	require.NoError(t, err)
	var res scanResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 27, res.Points)
	assert.Equal(t, map[string]int{"inside": 1, "surface": 26}, res.Counts)

	prom, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `csg_locate_total{domain="surface"} 26`)

	out, err = probeRun(t, "scan", "-scene", sc, "-shape", "ball", "-n", "1", "-min", "0,0,0", "-max", "1,0,0")
	require.NoError(t, err)
	assert.Equal(t, "surface  1\n", out)
	_, err = probeRun(t, "scan", "-scene", sc, "-shape", "ball", "-min", "0,0")
	assert.Error(t, err)
}

func TestWiresAndSTL(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)
	out, err := probeRun(t, "wires", "-scene", sc, "-shape", "part", "-plane", "xz")
	require.NoError(t, err)
	assert.Contains(t, out, "<svg")

	png := filepath.Join(t.TempDir(), "block.png")
	_, err = probeRun(t, "wires", "-scene", sc, "-shape", "block", "-bb", "-o", png)
	require.NoError(t, err)
	assert.FileExists(t, png)
	_, err = probeRun(t, "wires", "-scene", sc, "-shape", "block", "-plane", "uv")
	assert.Error(t, err)

	stl := filepath.Join(t.TempDir(), "block.stl")
	out, err = probeRun(t, "stl", "-scene", sc, "-shape", "block", "-o", stl)
	require.NoError(t, err)
	assert.Equal(t, "wrote 12 triangles to "+stl+"\n", out)
	f, err := os.Open(stl)
	require.NoError(t, err)
	defer f.Close()
	tris, err := render.ReadSTL(f)
	require.NoError(t, err)
	assert.Len(t, tris, 12)

	_, err = probeRun(t, "stl", "-scene", sc, "-shape", "block", "-o", "block.obj")
	assert.Error(t, err)
}

func TestShapes(t *testing.T) {
	sc := writeFile(t, "scene.yaml", probeScene)
	out, err := probeRun(t, "shapes", "-scene", sc, "-json")
	require.NoError(t, err)
	var infos []shapeInfo
	require.NoError(t, json.Unmarshal([]byte(out), &infos))
	require.Len(t, infos, 3)
	assert.Equal(t, "ball", infos[0].Name)
	assert.Equal(t, "block", infos[1].Name)
	require.NotNil(t, infos[1].Volume)
	assert.Equal(t, 8.0, *infos[1].Volume)
	assert.Equal(t, "subtraction", infos[2].Type)
	assert.Nil(t, infos[2].Volume)
	require.NotNil(t, infos[2].Max)
	assert.Equal(t, vec{1, 1, 1}, *infos[2].Max)
}

func TestConfig(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Output.JSON)

	path := writeFile(t, "config.yaml", `
logging:
  level: debug
  console: false
query:
  tolerance: 0.000001
output:
  json: true
`)
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Console)
	assert.Equal(t, 1e-6, cfg.Query.Tolerance)
	assert.True(t, cfg.Output.JSON)

	// The file asks for JSON output without the flag.
	sc := writeFile(t, "scene.yaml", probeScene)
	out, err := probeRun(t, "locate", "-config", path, "-scene", sc, "-shape", "ball", "0", "0", "0")
	require.NoError(t, err)
	assert.JSONEq(t, `{"point": [0, 0, 0], "domain": "inside"}`, out)

	_, err = LoadConfig(writeFile(t, "bad.yaml", "query: [1"))
	assert.Error(t, err)
	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRunErrors(t *testing.T) {
	_, err := probeRun(t)
	assert.Error(t, err)
	_, err = probeRun(t, "explode")
	assert.Error(t, err)
	_, err = probeRun(t, "locate", "0", "0", "0")
	assert.ErrorContains(t, err, "missing -scene")
	out, err := probeRun(t, "help")
	require.NoError(t, err)
	assert.Contains(t, out, "Commands:")
}
