// Package export writes result tables as CSV or XLSX.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Table is a named grid of strings with a header row.
type Table struct {
	Name   string
	Header []string
	Rows   [][]string
	// Numeric names the columns written as numbers in XLSX.
	Numeric []string
}

// numericColumns maps header positions to whether the column is numeric.
func (t Table) numericColumns() []bool {
	cols := make([]bool, len(t.Header))
	for i, h := range t.Header {
		cols[i] = slices.Contains(t.Numeric, h)
	}
	return cols
}

// WriteCSV writes t with a header row.
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return fmt.Errorf("write rows: %w", err)
	}
	return nil
}

// WriteXLSX writes one sheet per table, in order. The first table's sheet
// is the active one.
func WriteXLSX(w io.Writer, tables ...Table) error {
	if len(tables) == 0 {
		return fmt.Errorf("no tables to write")
	}

	f := excelize.NewFile()
	defer f.Close()

	for i, t := range tables {
		name := sheetName(t.Name, i)
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return err
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return err
		}

		// Use Stream Writer for large result sets
		sw, err := f.NewStreamWriter(name)
		if err != nil {
			return err
		}
		if err := sw.SetRow("A1", toCells(t.Header, nil)); err != nil {
			return err
		}
		numeric := t.numericColumns()
		for r, row := range t.Rows {
			cell, err := excelize.CoordinatesToCellName(1, r+2)
			if err != nil {
				return err
			}
			if err := sw.SetRow(cell, toCells(row, numeric)); err != nil {
				return err
			}
		}
		if err := sw.Flush(); err != nil {
			return err
		}
	}

	f.SetActiveSheet(0)
	return f.Write(w)
}

// toCells converts a row for the stream writer. Numeric columns become
// float64; an empty numeric value is left blank.
func toCells(row []string, numeric []bool) []interface{} {
	cells := make([]interface{}, len(row))
	for i, v := range row {
		cells[i] = v
		if i >= len(numeric) || !numeric[i] {
			continue
		}
		if v == "" {
			cells[i] = nil
		} else if f, err := strconv.ParseFloat(v, 64); err == nil {
			cells[i] = f
		}
	}
	return cells
}

// sheetName trims to Excel's 31 character limit and fills in blanks.
func sheetName(name string, i int) string {
	if name == "" {
		name = fmt.Sprintf("Sheet%d", i+1)
	}
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	return name
}
