package sky

import (
	"math"

	"github.com/soniakeys/coord"
	"github.com/soniakeys/meeus/v3/angle"
	"github.com/soniakeys/unit"
)

// Below this the haversine form loses digits to the cancellation in
// 1-cos, so the chord between unit vectors is used instead (about 20").
const smallAngle = unit.Angle(1e-4)

// Separation returns the great-circle distance between a and b in arcseconds.
func Separation(a, b Record) float64 {
	return separation(a, b).Sec()
}

func separation(a, b Record) unit.Angle {
	s := angle.SepHav(
		unit.AngleFromDeg(a.RA), unit.AngleFromDeg(a.Dec),
		unit.AngleFromDeg(b.RA), unit.AngleFromDeg(b.Dec),
	)
	if s >= smallAngle {
		return s
	}
	return ChordAngle(ChordSquared(UnitVector(a), UnitVector(b)))
}

// ChordSquared is the squared straight-line distance between two unit vectors.
// It increases monotonically with their angular separation.
func ChordSquared(u, v coord.Cart) float64 {
	dx, dy, dz := u.X-v.X, u.Y-v.Y, u.Z-v.Z
	return dx*dx + dy*dy + dz*dz
}

// ChordAngle converts a squared chord length back to an angle.
func ChordAngle(c2 float64) unit.Angle {
	c := math.Sqrt(c2) / 2
	if c > 1 {
		c = 1
	}
	return unit.Angle(2 * math.Asin(c))
}
