package sky

import (
	"fmt"
	"math"

	sexa "github.com/soniakeys/sexagesimal"
	"github.com/soniakeys/unit"
)

// FormatRA renders decimal degrees as "HH:MM:SS.ssss" hours.
func FormatRA(deg float64) string {
	// tenths of milliseconds of time
	const perHour = 3600 * 10000
	t := int64(math.Round(NormalizeRA(deg) / 15 * perHour))
	t %= 24 * perHour
	h := t / perHour
	t -= h * perHour
	m := t / (60 * 10000)
	t -= m * 60 * 10000
	return fmt.Sprintf("%02d:%02d:%07.4f", h, m, float64(t)/10000)
}

// FormatDec renders decimal degrees as "±DD:MM:SS.sss".
func FormatDec(deg float64) string {
	sign := '+'
	if deg < 0 {
		sign = '-'
		deg = -deg
	}
	// milliarcseconds
	const perDeg = 3600 * 1000
	t := int64(math.Round(deg * perDeg))
	if t == 0 {
		sign = '+'
	}
	d := t / perDeg
	t -= d * perDeg
	m := t / (60 * 1000)
	t -= m * 60 * 1000
	return fmt.Sprintf("%c%02d:%02d:%06.3f", sign, d, m, float64(t)/1000)
}

// SexaRA is the symbol-decorated form used for display ("10ʰ20ᵐ30.50ˢ").
func SexaRA(deg float64) string {
	return fmt.Sprintf("%.2s", sexa.FmtRA(unit.RAFromDeg(deg)))
}

// SexaDec is the symbol-decorated form used for display ("-5°30′0.0″").
func SexaDec(deg float64) string {
	return fmt.Sprintf("%.1s", sexa.FmtAngle(unit.AngleFromDeg(deg)))
}
