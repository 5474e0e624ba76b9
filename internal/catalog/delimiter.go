package catalog

import (
	"strings"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// Auto asks Normalize to sniff the delimiter from the header line.
const Auto rune = 0

var delimiterLabels = map[string]rune{
	"":             Auto,
	"auto":         Auto,
	",":            ',',
	"comma":        ',',
	"csv":          ',',
	"csv (coma)":   ',',
	"\t":           '\t',
	`\t`:           '\t',
	"tab":          '\t',
	"tsv":          '\t',
	"tsv (tab)":    '\t',
	";":            ';',
	"semicolon":    ';',
	"punto y coma": ';',
}

// ParseDelimiter maps a user-facing delimiter label to a rune.
func ParseDelimiter(label string) (rune, error) {
	key := label
	if key != "\t" {
		key = strings.ToLower(strings.TrimSpace(label))
	}
	if d, ok := delimiterLabels[key]; ok {
		return d, nil
	}
	return 0, errors.NewInvalidRequest("unknown delimiter " + `"` + label + `"` + "; use comma, tab, semicolon or auto")
}

// DelimiterName is the inverse of ParseDelimiter for display.
func DelimiterName(d rune) string {
	switch d {
	case ',':
		return "comma"
	case '\t':
		return "tab"
	case ';':
		return "semicolon"
	}
	return "auto"
}

// sniff picks the candidate that splits the header line into the most fields.
// Ties keep the earlier candidate; no candidate at all means comma.
func sniff(headerLine string) rune {
	best, bestCount := ',', 0
	for _, c := range []rune{',', '\t', ';'} {
		if n := strings.Count(headerLine, string(c)); n > bestCount {
			best, bestCount = c, n
		}
	}
	return best
}
