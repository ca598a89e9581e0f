package mirror

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"assetstore/internal/db"
	"assetstore/internal/models"
	"assetstore/internal/store"
)

func newTestMirror(t *testing.T, disabled bool) (*Mirror, string) {
	t.Helper()
	root := t.TempDir()
	gormDB, err := db.Open(db.Config{
		Backend:    db.BackendSQLite,
		SQLitePath: filepath.Join(root, "ledger.db"),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	st := store.New(gormDB)
	t.Cleanup(func() { _ = st.Close() })
	return New(root, disabled, st), root
}

func TestBackupWritesDeterministicName(t *testing.T) {
	m, root := newTestMirror(t, false)
	m.now = func() time.Time { return time.Date(2024, 3, 10, 9, 30, 0, 0, time.UTC) }

	res := m.Backup([]byte("pdf bytes"), "resume.pdf", "documents/resume_123_abcd.pdf", models.CategoryDocument, "")
	if !res.Success || res.Skipped {
		t.Fatalf("backup failed: %+v", res)
	}
	if filepath.Dir(res.Path) != filepath.Join(root, "documents") {
		t.Fatalf("backup landed in %s", res.Path)
	}
	if !strings.HasPrefix(res.Filename, "resume_") || !strings.HasSuffix(res.Filename, ".pdf") {
		t.Fatalf("unexpected filename %q", res.Filename)
	}
	if !strings.Contains(res.Filename, "20240310T093000") {
		t.Fatalf("filename %q missing timestamp", res.Filename)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read backup: %v", err)
	}
	if string(data) != "pdf bytes" {
		t.Fatalf("backup content mismatch")
	}

	// Same name, different remote id: distinct backup file.
	res2 := m.Backup([]byte("other"), "resume.pdf", "documents/resume_456_efgh.pdf", models.CategoryDocument, "")
	if res2.Filename == res.Filename {
		t.Fatalf("backup filenames collide: %q", res.Filename)
	}
}

func TestBackupRespectsPresetFolder(t *testing.T) {
	m, root := newTestMirror(t, false)
	res := m.Backup([]byte("img"), "me.png", "avatars/me_1.png", models.CategoryImage, "avatars")
	if !res.Success {
		t.Fatalf("backup failed: %+v", res)
	}
	if filepath.Dir(res.Path) != filepath.Join(root, "avatars") {
		t.Fatalf("avatar backup landed in %s", res.Path)
	}
}

func TestBackupDisabledSkips(t *testing.T) {
	m, root := newTestMirror(t, true)
	res := m.Backup([]byte("x"), "a.pdf", "documents/a_1.pdf", models.CategoryDocument, "")
	if !res.Success || !res.Skipped {
		t.Fatalf("disabled mirror must skip, got %+v", res)
	}
	if res.Path != "" {
		t.Fatalf("skip should not produce a path, got %q", res.Path)
	}
	entries, _ := os.ReadDir(filepath.Join(root, "documents"))
	if len(entries) != 0 {
		t.Fatalf("disabled mirror wrote %d files", len(entries))
	}
}

func TestLedgerRemoveDeletesBackup(t *testing.T) {
	m, _ := newTestMirror(t, false)
	ctx := context.Background()

	res := m.Backup([]byte("x"), "a.pdf", "documents/a_1.pdf", models.CategoryDocument, "")
	if !res.Success {
		t.Fatalf("backup: %+v", res)
	}
	if err := m.LedgerPut(ctx, models.FileRecord{
		RemoteID:     "documents/a_1.pdf",
		OriginalName: "a.pdf",
		Category:     models.CategoryDocument,
		BackupPath:   res.Path,
		Size:         1,
		UploadedAt:   time.Now(),
	}); err != nil {
		t.Fatalf("ledger put: %v", err)
	}

	if err := m.LedgerRemove(ctx, "documents/a_1.pdf"); err != nil {
		t.Fatalf("ledger remove: %v", err)
	}
	if _, err := os.Stat(res.Path); !os.IsNotExist(err) {
		t.Fatalf("backup file should be gone, stat err = %v", err)
	}
	rec, err := m.LedgerLookup(ctx, "documents/a_1.pdf")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if rec != nil {
		t.Fatalf("ledger entry should be gone, got %+v", rec)
	}

	// Removing an unknown identifier is a no-op.
	if err := m.LedgerRemove(ctx, "never-there"); err != nil {
		t.Fatalf("remove of unknown id: %v", err)
	}
}
