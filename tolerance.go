package csg

import "math"

const (
	// DefaultTolerance is the skin used when neither a query nor a shape
	// provides one, in millimetres.
	DefaultTolerance = 1e-7

	// DefaultMaxInterceptSteps bounds the retry loop of composite intercept searches.
	DefaultMaxInterceptSteps = 1000
)

// ResolveTolerance returns tol if it is a usable tolerance, else skin,
// else DefaultTolerance.
func ResolveTolerance(tol, skin float64) float64 {
	if validTolerance(tol) {
		return tol
	}
	if validTolerance(skin) {
		return skin
	}
	return DefaultTolerance
}

func validTolerance(t float64) bool {
	return t > 0 && !math.IsInf(t, 1)
}

// withinSkin reports whether d lies in the surface band [-tol/2, tol/2].
func withinSkin(d, tol float64) bool {
	return math.Abs(d) <= tol/2
}
