package export

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sample() Table {
	return Table{
		Name:   "matches",
		Header: []string{"catalog_id", "asc_id", "separation_arcsec"},
		Rows: [][]string{
			{"1", "obs.asc#2", "0.7664"},
			{"NGC 1, core", "obs.asc#7", "1.2000"},
		},
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sample()))

	want := "catalog_id,asc_id,separation_arcsec\n" +
		"1,obs.asc#2,0.7664\n" +
		"\"NGC 1, core\",obs.asc#7,1.2000\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_HeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, Table{Header: []string{"id", "ra", "dec"}}))
	assert.Equal(t, "id,ra,dec\n", buf.String())
}

func TestWriteXLSX(t *testing.T) {
	catalog := Table{Name: "catalog", Header: []string{"id", "ra", "dec"}, Rows: [][]string{{"1", "10", "20"}}}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sample(), catalog))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"matches", "catalog"}, f.GetSheetList())

	rows, err := f.GetRows("matches")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"catalog_id", "asc_id", "separation_arcsec"}, rows[0])
	assert.Equal(t, "NGC 1, core", rows[2][0])

	rows, err = f.GetRows("catalog")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "10", "20"}, rows[1])
}

func TestWriteXLSX_NumericColumns(t *testing.T) {
	table := Table{
		Name:    "matches",
		Header:  []string{"catalog_id", "separation_arcsec", "asc_ra"},
		Rows:    [][]string{{"007", "0.7664", ""}},
		Numeric: []string{"separation_arcsec", "asc_ra"},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, table))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	numberTypes := []excelize.CellType{excelize.CellTypeUnset, excelize.CellTypeNumber}

	typ, err := f.GetCellType("matches", "B2")
	require.NoError(t, err)
	assert.Contains(t, numberTypes, typ)
	raw, err := f.GetCellValue("matches", "B2", excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "0.7664", raw)

	typ, err = f.GetCellType("matches", "A2")
	require.NoError(t, err)
	assert.NotContains(t, numberTypes, typ)
	id, err := f.GetCellValue("matches", "A2")
	require.NoError(t, err)
	assert.Equal(t, "007", id)

	blank, err := f.GetCellValue("matches", "C2")
	require.NoError(t, err)
	assert.Empty(t, blank)
}

func TestToCells(t *testing.T) {
	cells := toCells([]string{"a", "1.5", "", "x"}, []bool{false, true, true, true})
	assert.Equal(t, []interface{}{"a", 1.5, nil, "x"}, cells)
}

func TestWriteXLSX_NoTables(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, WriteXLSX(&buf))
}

func TestSheetName(t *testing.T) {
	assert.Equal(t, "Sheet3", sheetName("", 2))
	assert.Len(t, []rune(sheetName("a very long sheet name that Excel rejects", 0)), 31)
}
