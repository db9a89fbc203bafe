// Package props implements a property bag: a flat map of dotted keys to
// typed values, loaded from YAML, with explicit unit annotations.
//
// Quantities are written either as bare numbers, scaled by the bag's
// "length_unit" (or "angle_unit", "area_unit", "volume_unit") entry, or as
// strings carrying their unit:
//
//	z: 10 cm
//	length_unit: mm
//	base:
//	  x: [0, 10, 0]
//	  y: [0, 0, 10]
package props

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/soypat/csg/units"
	"gopkg.in/yaml.v3"
)

var (
	// ErrMissing is returned when fetching an absent key.
	ErrMissing = errors.New("missing property")
	// ErrType is returned when a value cannot be converted to the requested type.
	ErrType = errors.New("wrong property type")
)

// Properties is a key/value store. The zero value is an empty, read-only bag;
// use New for a writable one.
type Properties struct {
	m map[string]any
}

// New returns an empty bag.
func New() Properties { return Properties{m: make(map[string]any)} }

// FromMap returns a bag holding m, with nested maps flattened to dotted keys.
func FromMap(m map[string]any) Properties {
	p := New()
	flatten(p.m, "", m)
	return p
}

func flatten(dst map[string]any, prefix string, src map[string]any) {
	for k, v := range src {
		key := prefix + k
		if sub, ok := v.(map[string]any); ok {
			flatten(dst, key+".", sub)
			continue
		}
		dst[key] = v
	}
}

// Parse decodes a YAML mapping into a bag.
func Parse(data []byte) (Properties, error) {
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Properties{}, fmt.Errorf("parsing properties: %w", err)
	}
	return FromMap(m), nil
}

// Load reads a YAML property file.
func Load(path string) (Properties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Properties{}, err
	}
	p, err := Parse(data)
	if err != nil {
		return Properties{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Set stores v under key. It panics on the zero value bag.
func (p Properties) Set(key string, v any) { p.m[key] = v }

// Has reports whether key is present.
func (p Properties) Has(key string) bool {
	_, ok := p.m[key]
	return ok
}

// Len returns the number of keys.
func (p Properties) Len() int { return len(p.m) }

// Keys returns the sorted keys.
func (p Properties) Keys() []string {
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Properties) get(key string) (any, error) {
	v, ok := p.m[key]
	if !ok {
		return nil, fmt.Errorf("property %q: %w", key, ErrMissing)
	}
	return v, nil
}

func typeErr(key string, v any, want string) error {
	return fmt.Errorf("property %q: %w: have %T, want %s", key, ErrType, v, want)
}

func (p Properties) FetchString(key string) (string, error) {
	v, err := p.get(key)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeErr(key, v, "string")
	}
	return s, nil
}

func (p Properties) FetchBool(key string) (bool, error) {
	v, err := p.get(key)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeErr(key, v, "bool")
	}
	return b, nil
}

func (p Properties) FetchInt(key string) (int, error) {
	v, err := p.get(key)
	if err != nil {
		return 0, err
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	}
	return 0, typeErr(key, v, "integer")
}

// FetchReal returns a dimensionless number.
func (p Properties) FetchReal(key string) (float64, error) {
	v, err := p.get(key)
	if err != nil {
		return 0, err
	}
	x, ok := toFloat(v)
	if !ok {
		return 0, typeErr(key, v, "real")
	}
	return x, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

var unitKeys = map[units.Dimension]string{
	units.Length: "length_unit",
	units.Angle:  "angle_unit",
	units.Area:   "area_unit",
	units.Volume: "volume_unit",
}

// DefaultUnit returns the scale applied to bare numbers of dimension dim:
// the bag's unit entry if present, else units.DefaultUnit.
func (p Properties) DefaultUnit(dim units.Dimension) (float64, error) {
	key, ok := unitKeys[dim]
	if !ok || !p.Has(key) {
		return units.DefaultUnit(dim), nil
	}
	sym, err := p.FetchString(key)
	if err != nil {
		return 0, err
	}
	v, err := units.Value(sym, dim)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", key, err)
	}
	return v, nil
}

// FetchQuantity returns a value of dimension dim in internal units.
func (p Properties) FetchQuantity(key string, dim units.Dimension) (float64, error) {
	v, err := p.get(key)
	if err != nil {
		return 0, err
	}
	def, err := p.DefaultUnit(dim)
	if err != nil {
		return 0, err
	}
	return quantity(key, v, dim, def)
}

func quantity(key string, v any, dim units.Dimension, def float64) (float64, error) {
	if x, ok := toFloat(v); ok {
		return x * def, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, typeErr(key, v, dim.String())
	}
	x, err := units.ParseAs(s, dim, def)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", key, err)
	}
	return x, nil
}

// FetchLength returns a length in millimetres.
func (p Properties) FetchLength(key string) (float64, error) {
	return p.FetchQuantity(key, units.Length)
}

// FetchAngle returns an angle in radians. Bare numbers default to degrees.
func (p Properties) FetchAngle(key string) (float64, error) {
	return p.FetchQuantity(key, units.Angle)
}

// FetchRealVector returns a sequence of dimensionless numbers.
func (p Properties) FetchRealVector(key string) ([]float64, error) {
	return p.FetchQuantityVector(key, units.Dimensionless)
}

// FetchQuantityVector returns a sequence of values of dimension dim.
func (p Properties) FetchQuantityVector(key string, dim units.Dimension) ([]float64, error) {
	v, err := p.get(key)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, typeErr(key, v, "sequence")
	}
	def, err := p.DefaultUnit(dim)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(seq))
	for i, e := range seq {
		elemKey := fmt.Sprintf("%s[%d]", key, i)
		if dim == units.Dimensionless {
			x, ok := toFloat(e)
			if !ok {
				return nil, typeErr(elemKey, e, "real")
			}
			out[i] = x
			continue
		}
		if out[i], err = quantity(elemKey, e, dim, def); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// FetchStringVector returns a sequence of strings.
func (p Properties) FetchStringVector(key string) ([]string, error) {
	v, err := p.get(key)
	if err != nil {
		return nil, err
	}
	seq, ok := v.([]any)
	if !ok {
		return nil, typeErr(key, v, "sequence")
	}
	out := make([]string, len(seq))
	for i, e := range seq {
		s, ok := e.(string)
		if !ok {
			return nil, typeErr(fmt.Sprintf("%s[%d]", key, i), e, "string")
		}
		out[i] = s
	}
	return out, nil
}

// ExportStartingWith returns the entries whose key starts with prefix, keys unchanged.
func (p Properties) ExportStartingWith(prefix string) Properties {
	out := New()
	for k, v := range p.m {
		if strings.HasPrefix(k, prefix) {
			out.m[k] = v
		}
	}
	return out
}

// Sub returns the entries under prefix with the prefix removed. Unit entries
// of p are inherited when the subset does not define its own.
func (p Properties) Sub(prefix string) Properties {
	out := New()
	for k, v := range p.m {
		if rest, ok := strings.CutPrefix(k, prefix); ok && rest != "" {
			out.m[rest] = v
		}
	}
	for _, uk := range unitKeys {
		if v, ok := p.m[uk]; ok && !out.Has(uk) {
			out.m[uk] = v
		}
	}
	return out
}
