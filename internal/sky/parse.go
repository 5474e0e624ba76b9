package sky

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/soniakeys/unit"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// sexaMarkers separate sexagesimal groups in addition to spaces and colons.
const sexaMarkers = "hHmMsSdD°'\"′″ʰᵐˢ"

// ParseRA parses a right ascension given either as decimal degrees or as
// sexagesimal hours ("10 20 30.5", "10:20:30.5", "10h20m30.5s").
// The result is in [0,360).
func ParseRA(s string) (float64, error) {
	neg, groups, err := split(s)
	if err != nil {
		return 0, errors.NewValueFormat("ra", s, err.Error())
	}

	if len(groups) == 1 {
		deg, err := decimal(neg, groups[0])
		if err != nil {
			return 0, errors.NewValueFormat("ra", s, err.Error())
		}
		return NormalizeRA(deg), nil
	}

	if neg {
		return 0, errors.NewValueFormat("ra", s, "sexagesimal right ascension cannot be negative")
	}
	h, m, sec, err := components(groups)
	if err != nil {
		return 0, errors.NewValueFormat("ra", s, err.Error())
	}
	if h >= 24 {
		return 0, errors.NewValueFormat("ra", s, "hours out of range [0,24)")
	}
	return NormalizeRA(unit.NewRA(h, m, sec).Deg()), nil
}

// ParseDec parses a declination given either as decimal degrees or as
// sexagesimal degrees ("-05 30 00", "+20:10:05.2"). The sign applies to the
// whole value, so "-00 30 00" is -0.5.
func ParseDec(s string) (float64, error) {
	neg, groups, err := split(s)
	if err != nil {
		return 0, errors.NewValueFormat("dec", s, err.Error())
	}

	var deg float64
	if len(groups) == 1 {
		deg, err = decimal(neg, groups[0])
		if err != nil {
			return 0, errors.NewValueFormat("dec", s, err.Error())
		}
	} else {
		d, m, sec, err := components(groups)
		if err != nil {
			return 0, errors.NewValueFormat("dec", s, err.Error())
		}
		var sign byte
		if neg {
			sign = '-'
		}
		deg = unit.NewAngle(sign, d, m, sec).Deg()
	}

	if !ValidDec(deg) {
		return 0, errors.NewValueFormat("dec", s, "declination out of range [-90,90]")
	}
	return deg, nil
}

type parseError string

func (e parseError) Error() string { return string(e) }

// split strips the leading sign and breaks s into 1 to 3 groups.
// A single group is only returned when s carries no sexagesimal markers.
func split(s string) (neg bool, groups []string, err error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return false, nil, parseError("empty value")
	}
	switch {
	case strings.HasPrefix(s, "-"):
		neg, s = true, s[1:]
	case strings.HasPrefix(s, "−"):
		neg, s = true, strings.TrimPrefix(s, "−")
	case strings.HasPrefix(s, "+"):
		s = s[1:]
	}

	marked := false
	groups = strings.FieldsFunc(s, func(r rune) bool {
		if r == ':' || unicode.IsSpace(r) {
			return true
		}
		if strings.ContainsRune(sexaMarkers, r) {
			marked = true
			return true
		}
		return false
	})

	switch {
	case len(groups) == 0:
		return false, nil, parseError("no digits")
	case len(groups) == 1 && marked:
		return false, nil, parseError("sexagesimal value needs 2 or 3 groups")
	case len(groups) > 3:
		return false, nil, parseError("too many groups for a sexagesimal value")
	}
	return neg, groups, nil
}

// decimal parses a signless decimal number. A lone comma with no dot is
// read as a decimal separator ("10,5").
func decimal(neg bool, g string) (float64, error) {
	if strings.Count(g, ",") == 1 && !strings.Contains(g, ".") {
		g = strings.Replace(g, ",", ".", 1)
	}
	if strings.HasPrefix(g, "-") || strings.HasPrefix(g, "+") {
		return 0, parseError("misplaced sign")
	}
	v, err := strconv.ParseFloat(g, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, parseError("not a number")
	}
	if neg {
		v = -v
	}
	return v, nil
}

// maxLeadingGroup bounds the hours or degrees group before it is converted
// to int; callers apply the tighter per-axis range.
const maxLeadingGroup = 360

// components converts 2 or 3 sexagesimal groups into whole units, whole
// minutes and seconds. The last group may be fractional; earlier groups
// must be whole. A fractional minute in a 2-group value becomes seconds.
func components(groups []string) (whole, min int, sec float64, err error) {
	vals := make([]float64, len(groups))
	for i, g := range groups {
		v, err := decimal(false, g)
		if err != nil {
			return 0, 0, 0, err
		}
		if i < len(groups)-1 && v != math.Trunc(v) {
			return 0, 0, 0, parseError("only the last sexagesimal group may be fractional")
		}
		vals[i] = v
	}

	if vals[0] >= maxLeadingGroup {
		return 0, 0, 0, parseError("leading group out of range")
	}
	whole = int(vals[0])
	if vals[1] >= 60 {
		return 0, 0, 0, parseError("minutes out of range [0,60)")
	}
	if len(vals) == 2 {
		min = int(vals[1])
		sec = (vals[1] - float64(min)) * 60
		return whole, min, sec, nil
	}
	min = int(vals[1])
	sec = vals[2]
	if sec >= 60 {
		return 0, 0, 0, parseError("seconds out of range [0,60)")
	}
	return whole, min, sec, nil
}
