package db

import (
	"testing"

	"github.com/hpungsan/carbonmatch/internal/errors"
)

// newTestRun creates a run with default values for testing.
func newTestRun(id string, createdAt int64) *Run {
	return &Run{
		ID:              id,
		CatalogName:     "catalog.csv",
		ASCFiles:        []string{"a.asc", "b.asc"},
		ThresholdArcsec: 5,
		CatalogRows:     10,
		RejectedRows:    1,
		ASCPoints:       20,
		SkippedLines:    2,
		Matched:         7,
		IndexKind:       "brute",
		CreatedAt:       createdAt,
	}
}

func TestInsertAndGetRun(t *testing.T) {
	db := openTestDB(t)

	r := newTestRun("01RUN1", 1000)
	if err := InsertRun(db, r); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}

	got, err := GetRun(db, "01RUN1")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.CatalogName != "catalog.csv" {
		t.Errorf("CatalogName = %q, want catalog.csv", got.CatalogName)
	}
	if len(got.ASCFiles) != 2 || got.ASCFiles[1] != "b.asc" {
		t.Errorf("ASCFiles = %v, want [a.asc b.asc]", got.ASCFiles)
	}
	if got.ThresholdArcsec != 5 || got.Matched != 7 || got.SkippedLines != 2 {
		t.Errorf("counts = %+v", got)
	}
	if got.CreatedAt != 1000 {
		t.Errorf("CreatedAt = %d, want 1000", got.CreatedAt)
	}
}

func TestInsertRun_Duplicate(t *testing.T) {
	db := openTestDB(t)

	if err := InsertRun(db, newTestRun("01DUP", 1)); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	err := InsertRun(db, newTestRun("01DUP", 2))
	if err != ErrDuplicateRun {
		t.Errorf("second InsertRun error = %v, want ErrDuplicateRun", err)
	}
}

func TestInsertRun_NilFiles(t *testing.T) {
	db := openTestDB(t)

	r := newTestRun("01NIL", 1)
	r.ASCFiles = nil
	if err := InsertRun(db, r); err != nil {
		t.Fatalf("InsertRun failed: %v", err)
	}
	got, err := GetRun(db, "01NIL")
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if len(got.ASCFiles) != 0 {
		t.Errorf("ASCFiles = %v, want empty", got.ASCFiles)
	}
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)

	_, err := GetRun(db, "missing")
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("GetRun error = %v, want NOT_FOUND", err)
	}
}

func TestListRuns_NewestFirst(t *testing.T) {
	db := openTestDB(t)

	for i, id := range []string{"01A", "01B", "01C"} {
		if err := InsertRun(db, newTestRun(id, int64(100+i))); err != nil {
			t.Fatalf("InsertRun(%s) failed: %v", id, err)
		}
	}

	runs, total, err := ListRuns(db, 2, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(runs) != 2 {
		t.Fatalf("len(runs) = %d, want 2", len(runs))
	}
	if runs[0].ID != "01C" || runs[1].ID != "01B" {
		t.Errorf("order = %s,%s want 01C,01B", runs[0].ID, runs[1].ID)
	}

	runs, _, err = ListRuns(db, 2, 2)
	if err != nil {
		t.Fatalf("ListRuns offset failed: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "01A" {
		t.Errorf("page 2 = %+v, want [01A]", runs)
	}
}

func TestPurgeRuns(t *testing.T) {
	db := openTestDB(t)

	for i, id := range []string{"01A", "01B", "01C"} {
		if err := InsertRun(db, newTestRun(id, int64(100+i))); err != nil {
			t.Fatalf("InsertRun(%s) failed: %v", id, err)
		}
	}

	cutoff := int64(102)
	n, err := PurgeRuns(db, &cutoff)
	if err != nil {
		t.Fatalf("PurgeRuns failed: %v", err)
	}
	if n != 2 {
		t.Errorf("purged = %d, want 2", n)
	}

	n, err = PurgeRuns(db, nil)
	if err != nil {
		t.Fatalf("PurgeRuns(nil) failed: %v", err)
	}
	if n != 1 {
		t.Errorf("purged = %d, want 1", n)
	}

	_, total, err := ListRuns(db, 10, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if total != 0 {
		t.Errorf("total after purge = %d, want 0", total)
	}
}
