package asc

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_CommentAndMalformedLine(t *testing.T) {
	set := Parse([]File{{Name: "obs.asc", Data: []byte("# header\n10.0 20.0\nabc def\n")}})

	require.Len(t, set.Points, 1)
	assert.Equal(t, "obs.asc#2", set.Points[0].ID)
	assert.InDelta(t, 10.0, set.Points[0].RA, 1e-12)
	assert.InDelta(t, 20.0, set.Points[0].Dec, 1e-12)
	assert.Equal(t, "obs.asc", set.Points[0].File)

	require.Len(t, set.Files, 1)
	assert.Equal(t, 1, set.Files[0].Points)
	assert.Equal(t, 1, set.Files[0].Skipped)
	assert.Equal(t, []int{3}, set.Files[0].SkippedLines)
	assert.Equal(t, 1, set.Skipped())
}

func TestParse_Delimiters(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		delim string
	}{
		{name: "whitespace", data: "  10.5   -3.25   17.2\n", delim: "whitespace"},
		{name: "tab", data: "10.5\t-3.25\tx\n", delim: "tab"},
		{name: "comma", data: "10.5,-3.25,x\n", delim: "comma"},
		{name: "comma with spaces", data: "10.5, -3.25\n", delim: "comma"},
		{name: "empty fields", data: "10.5,,-3.25\n", delim: "comma"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := Parse([]File{{Name: "a.asc", Data: []byte(tt.data)}})
			require.Len(t, set.Points, 1)
			assert.InDelta(t, 10.5, set.Points[0].RA, 1e-12)
			assert.InDelta(t, -3.25, set.Points[0].Dec, 1e-12)
			assert.Equal(t, tt.delim, set.Files[0].Delimiter)
		})
	}
}

func TestParse_FirstTwoNumericTokens(t *testing.T) {
	set := Parse([]File{{Name: "a.asc", Data: []byte("src1 10.0 n/a 20.0 99.0\n")}})
	require.Len(t, set.Points, 1)
	assert.InDelta(t, 10.0, set.Points[0].RA, 1e-12)
	assert.InDelta(t, 20.0, set.Points[0].Dec, 1e-12)
}

func TestParse_SkipsAndCounts(t *testing.T) {
	data := "# comment\n" +
		"\n" +
		"1.0 2.0\n" +
		"3.0\n" +
		"4.0 95.0\n" +
		"   # indented comment\n" +
		"5.0 -6.0 7.0\n" +
		"NaN 1.0\n"

	set := Parse([]File{{Name: "b.asc", Data: []byte(data)}})

	require.Len(t, set.Points, 2)
	assert.Equal(t, "b.asc#3", set.Points[0].ID)
	assert.Equal(t, "b.asc#7", set.Points[1].ID)
	assert.Equal(t, 3, set.Files[0].Skipped)
	assert.Equal(t, []int{4, 5, 8}, set.Files[0].SkippedLines)
}

func TestParse_OverlongLineSkipped(t *testing.T) {
	data := "10.0 20.0\n" + strings.Repeat("x", 2*maxLineBytes) + "\n11.0 21.0\n12.0 22.0"

	set := Parse([]File{{Name: "long.asc", Data: []byte(data)}})

	require.Len(t, set.Points, 3)
	assert.Equal(t, "long.asc#1", set.Points[0].ID)
	assert.Equal(t, "long.asc#3", set.Points[1].ID)
	assert.Equal(t, "long.asc#4", set.Points[2].ID)
	assert.Equal(t, 1, set.Files[0].Skipped)
	assert.Equal(t, []int{2}, set.Files[0].SkippedLines)
}

func TestParse_RANormalized(t *testing.T) {
	set := Parse([]File{{Name: "c.asc", Data: []byte("360.0 1.0\n-0.5 1.0\n")}})
	require.Len(t, set.Points, 2)
	assert.Equal(t, 0.0, set.Points[0].RA)
	assert.InDelta(t, 359.5, set.Points[1].RA, 1e-12)
}

func TestParse_MultipleFilesConcatenated(t *testing.T) {
	set := Parse([]File{
		{Name: "one.asc", Data: []byte("1 1\n2 2\n")},
		{Name: "empty.asc", Data: []byte("# nothing here\n")},
		{Name: "two.asc", Data: []byte("3\t3\n")},
	})

	require.Len(t, set.Points, 3)
	assert.Equal(t, []string{"one.asc#1", "one.asc#2", "two.asc#1"},
		[]string{set.Points[0].ID, set.Points[1].ID, set.Points[2].ID})

	require.Len(t, set.Files, 3)
	assert.Equal(t, 0, set.Files[1].Points)
	assert.Equal(t, 0, set.Files[1].Skipped)
	assert.Empty(t, set.Files[1].Delimiter)

	recs := set.Records()
	require.Len(t, recs, 3)
	assert.Equal(t, "two.asc#1", recs[2].ID)
}

func TestParse_UnnamedFile(t *testing.T) {
	set := Parse([]File{{Data: []byte("1 2\n")}})
	require.Len(t, set.Points, 1)
	assert.Equal(t, "file1.asc#1", set.Points[0].ID)
}

func TestParse_CRLF(t *testing.T) {
	set := Parse([]File{{Name: "w.asc", Data: []byte("# win\r\n1.5 2.5\r\n")}})
	require.Len(t, set.Points, 1)
	assert.InDelta(t, 2.5, set.Points[0].Dec, 1e-12)
}

func TestParse_NoFiles(t *testing.T) {
	set := Parse(nil)
	assert.Empty(t, set.Points)
	assert.Empty(t, set.Files)
}
