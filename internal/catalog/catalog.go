// Package catalog turns an uploaded reference catalog into a table of
// (id, ra, dec) rows in degrees, keeping every other column alongside.
package catalog

import (
	"github.com/hpungsan/carbonmatch/internal/charset"
	"github.com/hpungsan/carbonmatch/internal/sky"
)

// Options controls Normalize.
type Options struct {
	// Name identifies the upload in error messages.
	Name string
	// Delimiter is ',', '\t', ';' or Auto.
	Delimiter rune
}

// Row is one accepted catalog row.
type Row struct {
	sky.Record
	Index int      `json:"index"` // zero-based data row index
	Line  int      `json:"line"`  // physical line in the file
	Extra []string `json:"extra,omitempty"`
}

// RowError describes a data row excluded from the table.
type RowError struct {
	Index  int    `json:"index"`
	Line   int    `json:"line"`
	Column string `json:"column,omitempty"`
	Value  string `json:"value,omitempty"`
	Reason string `json:"reason"`
}

// Table is a normalized catalog. It is not modified after Normalize returns.
type Table struct {
	Name      string           `json:"name"`
	Encoding  charset.Encoding `json:"encoding"`
	Delimiter string           `json:"delimiter"`
	RAColumn  string           `json:"ra_column"`
	DecColumn string           `json:"dec_column"`
	IDColumn  string           `json:"id_column,omitempty"` // empty when ids were synthesized
	Columns   []string         `json:"columns,omitempty"`   // passthrough columns, in file order
	Rows      []Row            `json:"rows"`
	Rejected  []RowError       `json:"rejected,omitempty"`
}

// Records returns the coordinate part of every row, in order.
func (t *Table) Records() []sky.Record {
	out := make([]sky.Record, len(t.Rows))
	for i, r := range t.Rows {
		out[i] = r.Record
	}
	return out
}
