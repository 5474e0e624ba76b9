package db

import (
	"database/sql"
	"encoding/json"
	"strings"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// Run is one ledger row: what was matched and how many rows came out.
// Coordinate tables are never stored.
type Run struct {
	ID              string   `json:"id"`
	CatalogName     string   `json:"catalog_name"`
	ASCFiles        []string `json:"asc_files"`
	ThresholdArcsec float64  `json:"threshold_arcsec"`
	CatalogRows     int      `json:"catalog_rows"`
	RejectedRows    int      `json:"rejected_rows"`
	ASCPoints       int      `json:"asc_points"`
	SkippedLines    int      `json:"skipped_lines"`
	Matched         int      `json:"matched"`
	IndexKind       string   `json:"index_kind"`
	CreatedAt       int64    `json:"created_at"`
}

// ErrDuplicateRun is returned when a run ID is inserted twice.
var ErrDuplicateRun = &errors.CarbonError{
	Code:    "DUPLICATE_RUN",
	Status:  409,
	Message: "run already recorded",
}

const runColumns = `id, catalog_name, asc_files_json, threshold_arcsec,
	catalog_rows, rejected_rows, asc_points, skipped_lines, matched,
	index_kind, created_at`

// InsertRun stores a run.
func InsertRun(db *sql.DB, r *Run) error {
	files := r.ASCFiles
	if files == nil {
		files = []string{}
	}
	filesJSON, err := json.Marshal(files)
	if err != nil {
		return errors.NewInternal(err)
	}

	_, err = db.Exec(`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CatalogName, string(filesJSON), r.ThresholdArcsec,
		r.CatalogRows, r.RejectedRows, r.ASCPoints, r.SkippedLines, r.Matched,
		r.IndexKind, r.CreatedAt,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return ErrDuplicateRun
		}
		return errors.NewInternal(err)
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	// SQLite reports primary key collisions as "UNIQUE constraint failed: ..."
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// GetRun retrieves a run by its ULID.
func GetRun(db *sql.DB, id string) (*Run, error) {
	row := db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound(id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return r, nil
}

// ListRuns returns runs newest first, plus the total count.
func ListRuns(db *sql.DB, limit, offset int) ([]Run, int, error) {
	var total int
	if err := db.QueryRow(`SELECT COUNT(*) FROM runs`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	rows, err := db.Query(`SELECT `+runColumns+` FROM runs
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, 0, errors.NewInternal(err)
		}
		runs = append(runs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	return runs, total, nil
}

// PurgeRuns deletes runs created before cutoff (Unix seconds).
// A nil cutoff deletes every run. Returns the number removed.
func PurgeRuns(db *sql.DB, cutoff *int64) (int, error) {
	var (
		res sql.Result
		err error
	)
	if cutoff == nil {
		res, err = db.Exec(`DELETE FROM runs`)
	} else {
		res, err = db.Exec(`DELETE FROM runs WHERE created_at < ?`, *cutoff)
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return int(n), nil
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun scans a single row into a Run.
func scanRun(row scanner) (*Run, error) {
	var (
		r         Run
		filesJSON string
	)
	err := row.Scan(
		&r.ID, &r.CatalogName, &filesJSON, &r.ThresholdArcsec,
		&r.CatalogRows, &r.RejectedRows, &r.ASCPoints, &r.SkippedLines, &r.Matched,
		&r.IndexKind, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if filesJSON != "" {
		if err := json.Unmarshal([]byte(filesJSON), &r.ASCFiles); err != nil {
			return nil, err
		}
	}
	return &r, nil
}
