package sky

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeparation_Self(t *testing.T) {
	for _, r := range []Record{
		{RA: 10, Dec: 20},
		{RA: 0, Dec: 90},
		{RA: 359.999, Dec: -89.5},
	} {
		assert.Equal(t, 0.0, Separation(r, r))
	}
}

func TestSeparation_Symmetric(t *testing.T) {
	pairs := [][2]Record{
		{{RA: 10, Dec: 20}, {RA: 10.0002, Dec: 20.0001}},
		{{RA: 359.9999, Dec: 0}, {RA: 0.0001, Dec: 0}},
		{{RA: 45, Dec: -30}, {RA: 225, Dec: 30}},
		{{RA: 120, Dec: 89.9}, {RA: 300, Dec: 89.9}},
	}
	for _, p := range pairs {
		assert.Equal(t, Separation(p[0], p[1]), Separation(p[1], p[0]))
	}
}

func TestSeparation_Scenario(t *testing.T) {
	// cos(20°) * 0.0002° and 0.0001° combine to about 0.766".
	sep := Separation(Record{RA: 10, Dec: 20}, Record{RA: 10.0002, Dec: 20.0001})
	assert.InDelta(t, 0.7664, sep, 0.001)
}

func TestSeparation_RAWrap(t *testing.T) {
	sep := Separation(Record{RA: 359.9999, Dec: 0}, Record{RA: 0.0001, Dec: 0})
	assert.InDelta(t, 0.72, sep, 1e-6)
}

func TestSeparation_LargeAngles(t *testing.T) {
	// antipodal points on the equator
	sep := Separation(Record{RA: 0, Dec: 0}, Record{RA: 180, Dec: 0})
	assert.InDelta(t, 180*3600, sep, 1e-6)

	// pole to equator
	sep = Separation(Record{RA: 0, Dec: 90}, Record{RA: 77, Dec: 0})
	assert.InDelta(t, 90*3600, sep, 1e-6)
}

func TestSeparation_NearPole(t *testing.T) {
	// Across the pole along a meridian: 0.01° + 0.01°.
	sep := Separation(Record{RA: 0, Dec: 89.99}, Record{RA: 180, Dec: 89.99})
	assert.InDelta(t, 72, sep, 1e-6)
}

func TestChordSquared_Monotonic(t *testing.T) {
	origin := UnitVector(Record{RA: 0, Dec: 0})
	prev := -1.0
	for _, d := range []float64{0, 0.0001, 0.01, 1, 45, 90, 179} {
		c2 := ChordSquared(origin, UnitVector(Record{RA: d, Dec: 0}))
		assert.Greater(t, c2, prev)
		prev = c2
		assert.InDelta(t, d, ChordAngle(c2).Deg(), 1e-9)
	}
}

func TestUnitVector(t *testing.T) {
	v := UnitVector(Record{RA: 90, Dec: 0})
	assert.InDelta(t, 0, v.X, 1e-15)
	assert.InDelta(t, 1, v.Y, 1e-15)
	assert.InDelta(t, 0, v.Z, 1e-15)

	v = UnitVector(Record{RA: 123, Dec: -90})
	assert.InDelta(t, -1, v.Z, 1e-15)
	assert.InDelta(t, 1, math.Sqrt(v.X*v.X+v.Y*v.Y+v.Z*v.Z), 1e-15)
}
