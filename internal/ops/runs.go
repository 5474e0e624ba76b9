package ops

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/hpungsan/carbonmatch/internal/db"
	"github.com/hpungsan/carbonmatch/internal/errors"
)

// RecordRun writes the run's metadata to the ledger.
func RecordRun(database *sql.DB, out *MatchOutput) error {
	if database == nil {
		return nil
	}
	return db.InsertRun(database, out.Run())
}

// ListRunsInput contains parameters for the ListRuns operation.
type ListRunsInput struct {
	Limit  int // default: 20, max: 100
	Offset int // default: 0
}

// ListRunsOutput contains the result of the ListRuns operation.
type ListRunsOutput struct {
	Items      []db.Run   `json:"items"`
	Pagination Pagination `json:"pagination"`
	Sort       string     `json:"sort"`
}

// ListRuns retrieves ledger rows newest first with pagination.
func ListRuns(database *sql.DB, input ListRunsInput) (*ListRunsOutput, error) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if limit > MaxListLimit {
		limit = MaxListLimit
	}
	offset := max(input.Offset, 0)

	runs, total, err := db.ListRuns(database, limit, offset)
	if err != nil {
		return nil, err
	}
	if runs == nil {
		runs = []db.Run{}
	}

	return &ListRunsOutput{
		Items: runs,
		Pagination: Pagination{
			Limit:   limit,
			Offset:  offset,
			HasMore: offset+len(runs) < total,
			Total:   total,
		},
		Sort: "created_at_desc",
	}, nil
}

// FetchRun retrieves one ledger row.
func FetchRun(database *sql.DB, id string) (*db.Run, error) {
	if !ValidRunID(id) {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid run id %q", id))
	}
	return db.GetRun(database, id)
}

// PurgeRunsInput contains parameters for the PurgeRuns operation.
type PurgeRunsInput struct {
	OlderThanDays *int // optional, only purge runs created more than N days ago
}

// PurgeRunsOutput contains the result of the PurgeRuns operation.
type PurgeRunsOutput struct {
	Purged  int    `json:"purged"`
	Message string `json:"message"`
}

// PurgeRuns permanently deletes ledger rows.
func PurgeRuns(database *sql.DB, input PurgeRunsInput) (*PurgeRunsOutput, error) {
	var cutoff *int64
	if input.OlderThanDays != nil {
		if *input.OlderThanDays < 0 {
			return nil, errors.NewInvalidRequest("older_than_days must not be negative")
		}
		c := time.Now().Add(-time.Duration(*input.OlderThanDays) * 24 * time.Hour).Unix()
		cutoff = &c
	}

	count, err := db.PurgeRuns(database, cutoff)
	if err != nil {
		return nil, err
	}

	return &PurgeRunsOutput{
		Purged:  count,
		Message: formatPurgeMessage(count, input.OlderThanDays),
	}, nil
}

// formatPurgeMessage creates a human-readable message for the purge result.
func formatPurgeMessage(count int, olderThanDays *int) string {
	if count == 0 {
		return "No runs to purge"
	}

	msg := fmt.Sprintf("Permanently deleted %d %s", count, plural(count, "run", "runs"))
	if olderThanDays != nil {
		msg += fmt.Sprintf(" (recorded more than %d days ago)", *olderThanDays)
	}
	return msg
}
