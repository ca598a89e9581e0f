package stats

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"assetstore/internal/db"
	"assetstore/internal/metrics"
	"assetstore/internal/models"
	"assetstore/internal/store"
)

func newTestTracker(t *testing.T) (*Tracker, *store.Store) {
	t.Helper()
	gormDB, err := db.Open(db.Config{
		Backend:    db.BackendSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "stats.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st := store.New(gormDB)
	t.Cleanup(func() { _ = st.Close() })

	tr, err := New(context.Background(), st, metrics.New())
	if err != nil {
		t.Fatalf("new tracker: %v", err)
	}
	return tr, st
}

func TestRecordInvariants(t *testing.T) {
	tr, _ := newTestTracker(t)

	tr.Record(true, models.CategoryDocument, 2000, 10*time.Millisecond)
	tr.Record(true, models.CategoryImage, 500, 5*time.Millisecond)
	tr.Record(false, models.CategoryVideo, 0, time.Millisecond)
	tr.Close()

	snap := tr.Snapshot()
	if snap.Total != 3 {
		t.Fatalf("total = %d, want 3", snap.Total)
	}
	if snap.Successful+snap.Failed != snap.Total {
		t.Fatalf("invariant broken: %d+%d != %d", snap.Successful, snap.Failed, snap.Total)
	}
	var catSum int64
	for _, cs := range snap.Categories {
		catSum += cs.Count
	}
	if catSum != snap.Successful {
		t.Fatalf("category counts sum to %d, want %d", catSum, snap.Successful)
	}
	if snap.TotalBytes != 2500 {
		t.Fatalf("bytes = %d, want 2500", snap.TotalBytes)
	}
	if cs := snap.Categories[models.CategoryDocument]; cs.Count != 1 || cs.Bytes != 2000 {
		t.Fatalf("documents = %+v", cs)
	}
}

func TestDayBucketCreatedLazily(t *testing.T) {
	tr, _ := newTestTracker(t)
	tr.now = func() time.Time { return time.Date(2024, 3, 10, 23, 0, 0, 0, time.Local) }

	if len(tr.Snapshot().Days) != 0 {
		t.Fatal("no day buckets expected before first record")
	}
	tr.Record(true, models.CategoryDocument, 100, time.Millisecond)
	tr.Close()

	snap := tr.Snapshot()
	day, ok := snap.Days["2024-03-10"]
	if !ok {
		t.Fatalf("day bucket missing, have %v", snap.Days)
	}
	if day.Uploads != 1 || day.Successes != 1 || day.Bytes != 100 {
		t.Fatalf("day bucket = %+v", day)
	}
}

func TestPersistenceSurvivesReload(t *testing.T) {
	tr, st := newTestTracker(t)
	tr.Record(true, models.CategoryDocument, 42, time.Millisecond)
	tr.Record(false, models.CategoryDocument, 0, time.Millisecond)
	tr.Close()

	reloaded, err := New(context.Background(), st, metrics.New())
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	defer reloaded.Close()

	snap := reloaded.Snapshot()
	if snap.Total != 2 || snap.Successful != 1 || snap.Failed != 1 || snap.TotalBytes != 42 {
		t.Fatalf("reloaded snapshot = %+v", snap)
	}
}
