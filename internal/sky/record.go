// Package sky holds equatorial coordinates and the angle arithmetic the
// matcher needs: parsing decimal and sexagesimal values, formatting them
// back, and great-circle separation.
package sky

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/unit"
)

// Record is one position on the sky. RA and Dec are always degrees,
// with RA in [0,360) and Dec in [-90,90].
type Record struct {
	ID  string  `json:"id"`
	RA  float64 `json:"ra"`
	Dec float64 `json:"dec"`
}

// NormalizeRA folds a finite right ascension into [0,360).
func NormalizeRA(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	// -1e-17 + 360 rounds to exactly 360.
	if deg >= 360 {
		deg = 0
	}
	return deg
}

// ValidDec reports whether deg is a finite declination in [-90,90].
func ValidDec(deg float64) bool {
	return !math.IsNaN(deg) && deg >= -90 && deg <= 90
}

// UnitVector returns r as a point on the unit sphere.
func UnitVector(r Record) coord.Cart {
	sr, cr := unit.AngleFromDeg(r.RA).Sincos()
	sd, cd := unit.AngleFromDeg(r.Dec).Sincos()
	return coord.Cart{X: cd * cr, Y: cd * sr, Z: sd}
}
