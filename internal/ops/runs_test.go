package ops

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/hpungsan/carbonmatch/internal/db"
	"github.com/hpungsan/carbonmatch/internal/errors"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func intPtr(i int) *int {
	return &i
}

func TestRecordRun_NilDatabase(t *testing.T) {
	out, err := Match(context.Background(), nil, scenarioInput(5))
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if err := RecordRun(nil, out); err != nil {
		t.Errorf("RecordRun(nil) = %v, want nil", err)
	}
}

func TestListRuns_Defaults(t *testing.T) {
	database := openTestDB(t)

	out, err := ListRuns(database, ListRunsInput{})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if out.Items == nil {
		t.Error("Items = nil, want empty slice")
	}
	if out.Pagination.Limit != DefaultListLimit {
		t.Errorf("Limit = %d, want %d", out.Pagination.Limit, DefaultListLimit)
	}
	if out.Sort != "created_at_desc" {
		t.Errorf("Sort = %q", out.Sort)
	}
}

func TestListRuns_LimitClampedAndHasMore(t *testing.T) {
	database := openTestDB(t)

	for i := 0; i < 3; i++ {
		out, err := Match(context.Background(), nil, scenarioInput(5))
		if err != nil {
			t.Fatalf("Match failed: %v", err)
		}
		if err := RecordRun(database, out); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	out, err := ListRuns(database, ListRunsInput{Limit: 2, Offset: -5})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(out.Items) != 2 || !out.Pagination.HasMore || out.Pagination.Total != 3 {
		t.Errorf("page = %d items, has_more=%v, total=%d", len(out.Items), out.Pagination.HasMore, out.Pagination.Total)
	}
	if out.Pagination.Offset != 0 {
		t.Errorf("Offset = %d, want 0", out.Pagination.Offset)
	}

	out, err = ListRuns(database, ListRunsInput{Limit: 1000})
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if out.Pagination.Limit != MaxListLimit {
		t.Errorf("Limit = %d, want %d", out.Pagination.Limit, MaxListLimit)
	}
}

func TestFetchRun_InvalidID(t *testing.T) {
	database := openTestDB(t)

	_, err := FetchRun(database, "not-a-ulid")
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("FetchRun error = %v, want INVALID_REQUEST", err)
	}
}

func TestPurgeRuns_OlderThanDays(t *testing.T) {
	database := openTestDB(t)

	old := &db.Run{ID: "01OLD", CatalogName: "c.csv", IndexKind: "brute", CreatedAt: time.Now().Add(-10 * 24 * time.Hour).Unix()}
	recent := &db.Run{ID: "01NEW", CatalogName: "c.csv", IndexKind: "brute", CreatedAt: time.Now().Unix()}
	for _, r := range []*db.Run{old, recent} {
		if err := db.InsertRun(database, r); err != nil {
			t.Fatalf("InsertRun failed: %v", err)
		}
	}

	out, err := PurgeRuns(database, PurgeRunsInput{OlderThanDays: intPtr(7)})
	if err != nil {
		t.Fatalf("PurgeRuns failed: %v", err)
	}
	if out.Purged != 1 {
		t.Errorf("Purged = %d, want 1", out.Purged)
	}
	if out.Message != "Permanently deleted 1 run (recorded more than 7 days ago)" {
		t.Errorf("Message = %q", out.Message)
	}

	out, err = PurgeRuns(database, PurgeRunsInput{})
	if err != nil {
		t.Fatalf("PurgeRuns failed: %v", err)
	}
	if out.Purged != 1 {
		t.Errorf("Purged = %d, want 1", out.Purged)
	}

	out, err = PurgeRuns(database, PurgeRunsInput{})
	if err != nil {
		t.Fatalf("PurgeRuns failed: %v", err)
	}
	if out.Message != "No runs to purge" {
		t.Errorf("Message = %q", out.Message)
	}
}

func TestPurgeRuns_NegativeDays(t *testing.T) {
	database := openTestDB(t)

	_, err := PurgeRuns(database, PurgeRunsInput{OlderThanDays: intPtr(-1)})
	if !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("PurgeRuns error = %v, want INVALID_REQUEST", err)
	}
}
