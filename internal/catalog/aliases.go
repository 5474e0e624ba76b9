package catalog

import (
	"regexp"
	"strings"
)

// Field is a canonical catalog column.
type Field string

const (
	FieldRA  Field = "ra"
	FieldDec Field = "dec"
	FieldID  Field = "id"
)

// resolveOrder fixes which field claims a column first when aliases overlap.
var resolveOrder = []Field{FieldRA, FieldDec, FieldID}

// Aliases lists, per canonical field and in priority order, the normalized
// header names accepted for it.
var Aliases = map[Field][]string{
	FieldRA: {
		"ra", "ra_deg", "radeg", "raj2000", "ra_j2000", "ra_degj2000", "ra_icrs",
		"alfa", "alpha", "alfa_j2000", "alpha_j2000", "right_ascension",
	},
	FieldDec: {
		"dec", "dec_deg", "decdeg", "dej2000", "decj2000", "dec_j2000", "dec_degj2000",
		"dec_icrs", "de_icrs", "delta", "delta_j2000", "declination",
	},
	FieldID: {
		"id", "name", "id_star", "name_star", "star", "source", "source_id",
		"obj", "object", "objid", "designation",
	},
}

// PrefixAliases are tried only after no exact alias matched.
var PrefixAliases = map[Field][]string{
	FieldRA:  {"ra_", "alfa_", "alpha_"},
	FieldDec: {"dec_", "de_", "delta_"},
}

// Prefix matches never claim uncertainty columns such as "ra_err".
var uncertaintySuffixes = []string{"_err", "_error", "_e", "_sig", "_sigma", "_unc"}

var (
	bracketed = regexp.MustCompile(`\([^)]*\)|\[[^\]]*\]`)
	nonAlnum  = regexp.MustCompile(`[^a-z0-9]+`)
)

// NormalizeHeader lowercases h, drops bracketed units ("RA (deg)" -> "ra")
// and collapses everything else that is not a letter or digit to "_".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = bracketed.ReplaceAllString(h, " ")
	h = nonAlnum.ReplaceAllString(h, "_")
	return strings.Trim(h, "_")
}

// resolveColumns maps each canonical field to a header index, or -1.
func resolveColumns(header []string) map[Field]int {
	norm := make([]string, len(header))
	for i, h := range header {
		norm[i] = NormalizeHeader(h)
	}

	claimed := make(map[int]bool)
	out := map[Field]int{FieldRA: -1, FieldDec: -1, FieldID: -1}

	claim := func(f Field, match func(string) bool) bool {
		for i, n := range norm {
			if !claimed[i] && match(n) {
				claimed[i] = true
				out[f] = i
				return true
			}
		}
		return false
	}

	for _, f := range resolveOrder {
		for _, alias := range Aliases[f] {
			if claim(f, func(n string) bool { return n == alias }) {
				break
			}
		}
	}

	for _, f := range resolveOrder {
		if out[f] >= 0 {
			continue
		}
		for _, prefix := range PrefixAliases[f] {
			if claim(f, func(n string) bool { return strings.HasPrefix(n, prefix) && !isUncertainty(n) }) {
				break
			}
		}
	}

	return out
}

func isUncertainty(n string) bool {
	for _, s := range uncertaintySuffixes {
		if strings.HasSuffix(n, s) {
			return true
		}
	}
	return false
}
