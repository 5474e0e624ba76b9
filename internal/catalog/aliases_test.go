package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeHeader(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"RA", "ra"},
		{"  Dec  ", "dec"},
		{"RA (deg)", "ra"},
		{"DEC [J2000]", "dec"},
		{"RA_degJ2000", "ra_degj2000"},
		{"Right Ascension", "right_ascension"},
		{"source-id", "source_id"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, NormalizeHeader(tt.input), "input %q", tt.input)
	}
}

func TestResolveColumns(t *testing.T) {
	tests := []struct {
		name   string
		header []string
		ra     int
		dec    int
		id     int
	}{
		{name: "canonical", header: []string{"id", "ra", "dec"}, ra: 1, dec: 2, id: 0},
		{name: "spanish", header: []string{"ALFA", "DELTA", "Nombre"}, ra: 0, dec: 1, id: -1},
		{name: "exact alias beats prefix", header: []string{"ra_err", "ra_icrs", "ra", "dec"}, ra: 2, dec: 3, id: -1},
		{name: "prefix fallback", header: []string{"RA_hms", "DEC_dms"}, ra: 0, dec: 1, id: -1},
		{name: "id priority", header: []string{"object", "name", "ra", "dec"}, ra: 2, dec: 3, id: 1},
		{name: "first of duplicates", header: []string{"ra", "RA", "dec"}, ra: 0, dec: 2, id: -1},
		{name: "missing", header: []string{"x", "y"}, ra: -1, dec: -1, id: -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := resolveColumns(tt.header)
			assert.Equal(t, tt.ra, got[FieldRA])
			assert.Equal(t, tt.dec, got[FieldDec])
			assert.Equal(t, tt.id, got[FieldID])
		})
	}
}

func TestParseDelimiter(t *testing.T) {
	tests := []struct {
		label string
		want  rune
	}{
		{"", Auto},
		{"auto", Auto},
		{",", ','},
		{"Comma", ','},
		{"CSV (coma)", ','},
		{"\t", '\t'},
		{`\t`, '\t'},
		{"tsv", '\t'},
		{";", ';'},
		{"Punto y coma", ';'},
	}
	for _, tt := range tests {
		got, err := ParseDelimiter(tt.label)
		assert.NoError(t, err, "label %q", tt.label)
		assert.Equal(t, tt.want, got, "label %q", tt.label)
	}

	_, err := ParseDelimiter("pipe")
	assert.Error(t, err)
}

func TestSniff(t *testing.T) {
	assert.Equal(t, ',', sniff("id,ra,dec"))
	assert.Equal(t, '\t', sniff("id\tra\tdec"))
	assert.Equal(t, ';', sniff("id;ra;dec"))
	assert.Equal(t, ',', sniff("ra"))
}
