package ops

import (
	"context"
	stderrors "errors"
	"slices"
	"strconv"
	"time"

	"github.com/hpungsan/carbonmatch/internal/asc"
	"github.com/hpungsan/carbonmatch/internal/catalog"
	"github.com/hpungsan/carbonmatch/internal/config"
	"github.com/hpungsan/carbonmatch/internal/db"
	"github.com/hpungsan/carbonmatch/internal/errors"
	"github.com/hpungsan/carbonmatch/internal/export"
	"github.com/hpungsan/carbonmatch/internal/match"
)

// MatchInput contains parameters for the Match operation.
type MatchInput struct {
	CatalogName     string
	Catalog         []byte
	Delimiter       rune // catalog.Auto to sniff
	ASCFiles        []asc.File
	ThresholdArcsec float64 // 0 means cfg.DefaultThresholdArcsec
	KeepUnmatched   bool
	Index           string // "" means cfg.MatchIndex
}

// MatchOutput is one completed run. Pairs hold the nearest candidate for
// every catalog row regardless of threshold, so Rows can re-filter at any θ
// without searching again.
type MatchOutput struct {
	ID              string         `json:"id"`
	CreatedAt       int64          `json:"created_at"`
	Catalog         *catalog.Table `json:"-"`
	Points          *asc.PointSet  `json:"-"`
	Pairs           []match.Pair   `json:"-"`
	Index           match.Strategy `json:"index"`
	ThresholdArcsec float64        `json:"threshold_arcsec"`
	KeepUnmatched   bool           `json:"keep_unmatched"`
	Elapsed         time.Duration  `json:"-"`
	Warnings        []Warning      `json:"warnings"`
}

// Summary is the count view of a run at one threshold.
type Summary struct {
	ID              string        `json:"id"`
	CatalogName     string        `json:"catalog_name"`
	CatalogRows     int           `json:"catalog_rows"`
	RejectedRows    int           `json:"rejected_rows"`
	ASCFiles        []string      `json:"asc_files"`
	ASCPoints       int           `json:"asc_points"`
	SkippedLines    int           `json:"skipped_lines"`
	ThresholdArcsec float64       `json:"threshold_arcsec"`
	KeepUnmatched   bool          `json:"keep_unmatched"`
	Matched         int           `json:"matched"`
	Index           string        `json:"index"`
	ElapsedMS       int64         `json:"elapsed_ms"`
	Files           []FileSummary `json:"files"`
}

// FileSummary counts one ASC file: points found and catalog rows whose
// nearest candidate within θ came from it.
type FileSummary struct {
	Name      string `json:"name"`
	Encoding  string `json:"encoding"`
	Delimiter string `json:"delimiter,omitempty"`
	Points    int    `json:"points"`
	Skipped   int    `json:"skipped"`
	Matched   int    `json:"matched"`
}

// MatchRecord is one exported row.
type MatchRecord struct {
	CatalogID        string   `json:"catalog_id"`
	ASCID            string   `json:"asc_id,omitempty"`
	SeparationArcsec *float64 `json:"separation_arcsec,omitempty"`
	WithinThreshold  bool     `json:"within_threshold"`
	CatalogRA        float64  `json:"catalog_ra"`
	CatalogDec       float64  `json:"catalog_dec"`
	ASCRA            *float64 `json:"asc_ra,omitempty"`
	ASCDec           *float64 `json:"asc_dec,omitempty"`
	ASCFile          string   `json:"asc_file,omitempty"`
	Extra            []string `json:"extra,omitempty"`
}

// Match runs normalize, parse and nearest-neighbour search on in-memory
// uploads. Nothing is persisted; see RecordRun.
func Match(ctx context.Context, cfg *config.Config, input MatchInput) (*MatchOutput, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	theta := input.ThresholdArcsec
	if theta == 0 {
		theta = cfg.DefaultThresholdArcsec
	}
	if err := match.ValidateThreshold(theta); err != nil {
		return nil, err
	}

	indexName := input.Index
	if indexName == "" {
		indexName = cfg.MatchIndex
	}
	strategy, err := match.ParseStrategy(indexName)
	if err != nil {
		return nil, err
	}

	cat, err := Normalize(NormalizeInput{Name: input.CatalogName, Data: input.Catalog, Delimiter: input.Delimiter})
	if err != nil {
		return nil, err
	}
	pts, err := ParseASC(input.ASCFiles)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pairs, used, err := match.Nearest(ctx, cat.Table.Records(), pts.Points.Records(), match.Options{
		Strategy:       strategy,
		KDTreeMinPairs: cfg.KDTreeMinPairs,
	})
	if err != nil {
		if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
			return nil, errors.NewCancelled("match")
		}
		return nil, errors.NewInternal(err)
	}
	elapsed := time.Since(start)

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	return &MatchOutput{
		ID:              id,
		CreatedAt:       time.Now().Unix(),
		Catalog:         cat.Table,
		Points:          pts.Points,
		Pairs:           pairs,
		Index:           used,
		ThresholdArcsec: theta,
		KeepUnmatched:   input.KeepUnmatched,
		Elapsed:         elapsed,
		Warnings:        append(cat.Warnings, pts.Warnings...),
	}, nil
}

// Rows filters the stored pairs at theta.
func (o *MatchOutput) Rows(theta float64, keepUnmatched bool) []match.Pair {
	return match.Filter(o.Pairs, theta, keepUnmatched)
}

// Summary counts the run at theta.
func (o *MatchOutput) Summary(theta float64, keepUnmatched bool) Summary {
	files := make([]string, len(o.Points.Files))
	for i, f := range o.Points.Files {
		files[i] = f.Name
	}
	matched := match.Filter(o.Pairs, theta, false)
	return Summary{
		ID:              o.ID,
		CatalogName:     o.Catalog.Name,
		CatalogRows:     len(o.Catalog.Rows),
		RejectedRows:    len(o.Catalog.Rejected),
		ASCFiles:        files,
		ASCPoints:       len(o.Points.Points),
		SkippedLines:    o.Points.Skipped(),
		ThresholdArcsec: theta,
		KeepUnmatched:   keepUnmatched,
		Matched:         len(matched),
		Index:           string(o.Index),
		ElapsedMS:       o.Elapsed.Milliseconds(),
		Files:           o.fileSummaries(matched),
	}
}

// fileOf returns a lookup from candidate index to file index. Points are
// stored file by file, so a candidate falls in exactly one file's range.
func (o *MatchOutput) fileOf() func(candidate int) int {
	ends := make([]int, len(o.Points.Files))
	n := 0
	for i, f := range o.Points.Files {
		n += f.Points
		ends[i] = n
	}
	return func(candidate int) int {
		i, _ := slices.BinarySearch(ends, candidate+1)
		return i
	}
}

func (o *MatchOutput) fileSummaries(matched []match.Pair) []FileSummary {
	fileOf := o.fileOf()
	counts := make([]int, len(o.Points.Files))
	for _, p := range matched {
		if i := fileOf(p.Candidate); i < len(counts) {
			counts[i]++
		}
	}

	out := make([]FileSummary, len(o.Points.Files))
	for i, f := range o.Points.Files {
		out[i] = FileSummary{
			Name:      f.Name,
			Encoding:  string(f.Encoding),
			Delimiter: f.Delimiter,
			Points:    f.Points,
			Skipped:   f.Skipped,
			Matched:   counts[i],
		}
	}
	return out
}

// Records resolves the filtered pairs at theta into exportable rows.
func (o *MatchOutput) Records(theta float64, keepUnmatched bool) []MatchRecord {
	pairs := o.Rows(theta, keepUnmatched)
	out := make([]MatchRecord, len(pairs))
	for i, p := range pairs {
		out[i] = o.record(p)
	}
	return out
}

// FileRecords groups the rows within theta by the ASC file of their
// candidate, in upload order.
func (o *MatchOutput) FileRecords(theta float64) [][]MatchRecord {
	fileOf := o.fileOf()
	out := make([][]MatchRecord, len(o.Points.Files))
	for _, p := range o.Rows(theta, false) {
		if i := fileOf(p.Candidate); i < len(out) {
			out[i] = append(out[i], o.record(p))
		}
	}
	return out
}

func (o *MatchOutput) record(p match.Pair) MatchRecord {
	row := o.Catalog.Rows[p.Catalog]
	rec := MatchRecord{
		CatalogID:       row.ID,
		WithinThreshold: p.WithinThreshold,
		CatalogRA:       row.RA,
		CatalogDec:      row.Dec,
		Extra:           row.Extra,
	}
	if p.HasCandidate() {
		pt := o.Points.Points[p.Candidate]
		sep := p.SeparationArcsec
		rec.ASCID = pt.ID
		rec.SeparationArcsec = &sep
		rec.ASCRA = &pt.RA
		rec.ASCDec = &pt.Dec
		rec.ASCFile = pt.File
	}
	return rec
}

// MatchTable is the match export at theta. The within_threshold column is
// present only when unmatched rows are kept.
func (o *MatchOutput) MatchTable(theta float64, keepUnmatched bool) export.Table {
	header := []string{"catalog_id", "asc_id", "separation_arcsec"}
	if keepUnmatched {
		header = append(header, "within_threshold")
	}
	header = append(header, "catalog_ra", "catalog_dec", "asc_ra", "asc_dec", "asc_file")
	header = append(header, o.Catalog.Columns...)

	records := o.Records(theta, keepUnmatched)
	rows := make([][]string, len(records))
	for i, r := range records {
		row := make([]string, 0, len(header))
		row = append(row, r.CatalogID, r.ASCID, formatOptional(r.SeparationArcsec, match.SeparationDecimals))
		if keepUnmatched {
			row = append(row, strconv.FormatBool(r.WithinThreshold))
		}
		row = append(row,
			formatFloat(r.CatalogRA, 8), formatFloat(r.CatalogDec, 8),
			formatOptional(r.ASCRA, 8), formatOptional(r.ASCDec, 8),
			r.ASCFile,
		)
		row = append(row, padExtra(r.Extra, len(o.Catalog.Columns))...)
		rows[i] = row
	}
	return export.Table{
		Name:    "matches",
		Header:  header,
		Rows:    rows,
		Numeric: []string{"separation_arcsec", "catalog_ra", "catalog_dec", "asc_ra", "asc_dec"},
	}
}

// CatalogTable is the normalized catalog export.
func (o *MatchOutput) CatalogTable() export.Table {
	return NormalizedTable(o.Catalog)
}

// NormalizedTable renders a normalized catalog as id, ra, dec plus the
// passthrough columns.
func NormalizedTable(t *catalog.Table) export.Table {
	header := append([]string{"id", "ra", "dec"}, t.Columns...)
	rows := make([][]string, len(t.Rows))
	for i, r := range t.Rows {
		row := make([]string, 0, len(header))
		row = append(row, r.ID, formatFloat(r.RA, 8), formatFloat(r.Dec, 8))
		row = append(row, padExtra(r.Extra, len(t.Columns))...)
		rows[i] = row
	}
	return export.Table{Name: "catalog", Header: header, Rows: rows, Numeric: []string{"ra", "dec"}}
}

// Run converts the output into a ledger row at the run's own threshold.
func (o *MatchOutput) Run() *db.Run {
	s := o.Summary(o.ThresholdArcsec, o.KeepUnmatched)
	return &db.Run{
		ID:              o.ID,
		CatalogName:     s.CatalogName,
		ASCFiles:        s.ASCFiles,
		ThresholdArcsec: s.ThresholdArcsec,
		CatalogRows:     s.CatalogRows,
		RejectedRows:    s.RejectedRows,
		ASCPoints:       s.ASCPoints,
		SkippedLines:    s.SkippedLines,
		Matched:         s.Matched,
		IndexKind:       s.Index,
		CreatedAt:       o.CreatedAt,
	}
}

func formatFloat(v float64, prec int) string {
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func formatOptional(v *float64, prec int) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v, prec)
}

// padExtra returns extra sized to n columns.
func padExtra(extra []string, n int) []string {
	if len(extra) == n {
		return extra
	}
	out := make([]string, n)
	copy(out, extra)
	return out
}
