// Package asc reads the plain-text coordinate lists produced by the
// telescope pipeline: one position per line, RA and Dec in degrees as the
// first two numeric tokens, "#" comments and blank lines ignored.
package asc

import (
	"bufio"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/charset"
	"github.com/hpungsan/carbonmatch/internal/sky"
)

// maxSkippedLines bounds how many skipped line numbers are kept per file.
const maxSkippedLines = 20

// maxLineBytes is the longest line that is parsed; longer lines are skipped.
const maxLineBytes = 1024 * 1024

// File is one uploaded .asc buffer.
type File struct {
	Name string
	Data []byte
}

// Point is a parsed position with its origin.
type Point struct {
	sky.Record
	File string `json:"file"`
	Line int    `json:"line"`
}

// FileStats summarizes one file.
type FileStats struct {
	Name         string           `json:"name"`
	Encoding     charset.Encoding `json:"encoding"`
	Delimiter    string           `json:"delimiter"`
	Points       int              `json:"points"`
	Skipped      int              `json:"skipped"`
	SkippedLines []int            `json:"skipped_lines,omitempty"` // first few only
}

// PointSet is the concatenation of every file's points, in upload order.
type PointSet struct {
	Points []Point     `json:"points"`
	Files  []FileStats `json:"files"`
}

// Records returns the coordinate part of every point, in order.
func (s *PointSet) Records() []sky.Record {
	out := make([]sky.Record, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Record
	}
	return out
}

// Skipped is the total number of skipped lines across files.
func (s *PointSet) Skipped() int {
	n := 0
	for _, f := range s.Files {
		n += f.Skipped
	}
	return n
}

// Parse reads every file. Malformed lines are skipped and counted; a file
// that yields no points still gets a FileStats entry.
func Parse(files []File) *PointSet {
	set := &PointSet{Points: []Point{}, Files: make([]FileStats, 0, len(files))}
	for i, f := range files {
		if f.Name == "" {
			f.Name = fmt.Sprintf("file%d.asc", i+1)
		}
		points, stats := ParseFile(f)
		set.Points = append(set.Points, points...)
		set.Files = append(set.Files, stats)
	}
	return set
}

// ParseFile reads a single file.
func ParseFile(f File) ([]Point, FileStats) {
	text, enc := charset.Decode(f.Data)
	stats := FileStats{Name: f.Name, Encoding: enc}

	var (
		points []Point
		delim  *delimiter
	)

	skip := func(lineNo int) {
		stats.Skipped++
		if len(stats.SkippedLines) < maxSkippedLines {
			stats.SkippedLines = append(stats.SkippedLines, lineNo)
		}
	}

	br := bufio.NewReader(strings.NewReader(text))
	lineNo := 0
	for {
		raw, err := br.ReadString('\n')
		if raw == "" && err != nil {
			break
		}
		lineNo++
		if len(raw) > maxLineBytes {
			skip(lineNo)
			continue
		}
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if delim == nil {
			delim = detect(line)
			stats.Delimiter = delim.name
		}

		ra, dec, ok := coordinates(delim.split(line))
		if !ok {
			skip(lineNo)
			continue
		}
		points = append(points, Point{
			Record: sky.Record{ID: fmt.Sprintf("%s#%d", f.Name, lineNo), RA: ra, Dec: dec},
			File:   f.Name,
			Line:   lineNo,
		})
	}

	stats.Points = len(points)
	return points, stats
}

// coordinates takes the first two numeric tokens as RA and Dec.
func coordinates(tokens []string) (ra, dec float64, ok bool) {
	nums := make([]float64, 0, 2)
	for _, tok := range tokens {
		if v, ok := number(tok); ok {
			nums = append(nums, v)
			if len(nums) == 2 {
				break
			}
		}
	}
	if len(nums) < 2 || !sky.ValidDec(nums[1]) {
		return 0, 0, false
	}
	return sky.NormalizeRA(nums[0]), nums[1], true
}

func number(tok string) (float64, bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(tok), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

type delimiter struct {
	name  string
	split func(string) []string
}

func splitOn(sep string) func(string) []string {
	return func(s string) []string {
		parts := strings.Split(s, sep)
		out := parts[:0]
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
}

// candidates are tried in order against the first data line.
var candidates = []*delimiter{
	{name: "tab", split: splitOn("\t")},
	{name: "comma", split: splitOn(",")},
	{name: "whitespace", split: strings.Fields},
}

// detect returns the first candidate that yields two numeric tokens,
// falling back to whitespace.
func detect(line string) *delimiter {
	for _, d := range candidates {
		n := 0
		for _, tok := range d.split(line) {
			if _, ok := number(tok); ok {
				n++
			}
		}
		if n >= 2 {
			return d
		}
	}
	return candidates[len(candidates)-1]
}
