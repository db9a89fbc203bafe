// Package units maps unit symbols to scale factors in internal units.
// Lengths are stored in millimetres and angles in radians.
package units

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Dimension is the physical dimension of a unit.
type Dimension uint8

const (
	Dimensionless Dimension = iota
	Length
	Angle
	Area
	Volume
)

func (d Dimension) String() string {
	switch d {
	case Length:
		return "length"
	case Angle:
		return "angle"
	case Area:
		return "area"
	case Volume:
		return "volume"
	}
	return "dimensionless"
}

const (
	Millimetre = 1.0
	Nanometre  = 1e-6 * Millimetre
	Micrometre = 1e-3 * Millimetre
	Centimetre = 10 * Millimetre
	Metre      = 1000 * Millimetre
	Kilometre  = 1000 * Metre
	// Inch is millimetres per inch (25.4).
	Inch = 25.4 * Millimetre
	Foot = 12 * Inch
	// Mil is millimetres per 1/1000 of an inch.
	Mil = Inch / 1000

	Radian      = 1.0
	Milliradian = 1e-3 * Radian
	Degree      = math.Pi / 180 * Radian
)

type unit struct {
	dim   Dimension
	value float64
}

var table = map[string]unit{
	"nm":         {Length, Nanometre},
	"nanometer":  {Length, Nanometre},
	"um":         {Length, Micrometre},
	"micrometer": {Length, Micrometre},
	"mm":         {Length, Millimetre},
	"millimeter": {Length, Millimetre},
	"cm":         {Length, Centimetre},
	"centimeter": {Length, Centimetre},
	"m":          {Length, Metre},
	"meter":      {Length, Metre},
	"km":         {Length, Kilometre},
	"kilometer":  {Length, Kilometre},
	"in":         {Length, Inch},
	"inch":       {Length, Inch},
	"ft":         {Length, Foot},
	"foot":       {Length, Foot},
	"mil":        {Length, Mil},

	"rad":         {Angle, Radian},
	"radian":      {Angle, Radian},
	"mrad":        {Angle, Milliradian},
	"milliradian": {Angle, Milliradian},
	"deg":         {Angle, Degree},
	"degree":      {Angle, Degree},

	"mm2": {Area, Millimetre * Millimetre},
	"cm2": {Area, Centimetre * Centimetre},
	"m2":  {Area, Metre * Metre},

	"mm3": {Volume, Millimetre * Millimetre * Millimetre},
	"cm3": {Volume, Centimetre * Centimetre * Centimetre},
	"m3":  {Volume, Metre * Metre * Metre},
	"L":   {Volume, 1e6 * Millimetre * Millimetre * Millimetre},
}

// ErrUnknownUnit is returned for symbols missing from the unit table.
var ErrUnknownUnit = errors.New("unknown unit")

// Lookup returns the scale factor and dimension of symbol.
func Lookup(symbol string) (float64, Dimension, error) {
	u, ok := table[symbol]
	if !ok {
		// Accept plural long names such as "meters".
		u, ok = table[strings.TrimSuffix(symbol, "s")]
	}
	if !ok {
		return 0, Dimensionless, fmt.Errorf("%w: %q", ErrUnknownUnit, symbol)
	}
	return u.value, u.dim, nil
}

// Value returns the scale factor of symbol, checking its dimension.
func Value(symbol string, want Dimension) (float64, error) {
	v, dim, err := Lookup(symbol)
	if err != nil {
		return 0, err
	}
	if dim != want {
		return 0, fmt.Errorf("unit %q is a %s, not a %s", symbol, dim, want)
	}
	return v, nil
}

// Parse reads a quantity such as "10 cm", "2.5mm" or "30 degree" and returns
// it in internal units. A bare number parses as dimensionless.
func Parse(s string) (float64, Dimension, error) {
	s = strings.TrimSpace(s)
	i := len(s)
	for i > 0 {
		c := s[i-1]
		if (c >= '0' && c <= '9') || c == '.' {
			break
		}
		i--
	}
	num := strings.TrimSpace(s[:i])
	sym := strings.TrimSpace(s[i:])
	// Symbols ending in a digit, such as mm3, are left in the number part.
	if j := strings.LastIndexByte(num, ' '); j >= 0 && sym == "" {
		num, sym = num[:j], num[j+1:]
	}
	x, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0, Dimensionless, fmt.Errorf("quantity %q: %w", s, err)
	}
	if sym == "" {
		return x, Dimensionless, nil
	}
	v, dim, err := Lookup(sym)
	if err != nil {
		return 0, Dimensionless, fmt.Errorf("quantity %q: %w", s, err)
	}
	return x * v, dim, nil
}

// ParseAs parses s and checks its dimension. A bare number is scaled by
// defaultUnit.
func ParseAs(s string, want Dimension, defaultUnit float64) (float64, error) {
	x, dim, err := Parse(s)
	if err != nil {
		return 0, err
	}
	if dim == Dimensionless {
		return x * defaultUnit, nil
	}
	if dim != want {
		return 0, fmt.Errorf("quantity %q is a %s, not a %s", s, dim, want)
	}
	return x, nil
}

// DefaultUnit returns the unit assumed for bare numbers: degree for angles,
// the internal unit otherwise.
func DefaultUnit(d Dimension) float64 {
	switch d {
	case Angle:
		return Degree
	}
	return 1
}
