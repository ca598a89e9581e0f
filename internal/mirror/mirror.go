package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"assetstore/internal/logging"
	"assetstore/internal/models"
	"assetstore/internal/store"
)

// Mirror writes a local backup copy of every uploaded buffer and keeps the
// ledger mapping remote identifiers to backup metadata. The ledger itself
// lives in the shared store.
type Mirror struct {
	root     string
	disabled bool
	store    *store.Store

	now func() time.Time
}

// BackupResult distinguishes "skipped" (mirroring disabled) from "failed".
// Callers must treat the two differently: a skip is a success.
type BackupResult struct {
	Success  bool
	Skipped  bool
	Path     string
	Filename string
	Error    string
}

func New(root string, disabled bool, st *store.Store) *Mirror {
	return &Mirror{
		root:     root,
		disabled: disabled,
		store:    st,
		now:      time.Now,
	}
}

// Backup writes the buffer under the category (or preset folder)
// subdirectory. The backup filename is deterministic (original base name,
// an 8-character hash of the remote identifier, and a timestamp), so an
// operator can correlate a backup with its remote object without the
// ledger, and repeated uploads of same-named files never collide.
func (m *Mirror) Backup(buf []byte, originalName, remoteID string, category models.FileCategory, folder string) BackupResult {
	if m.disabled {
		return BackupResult{Success: true, Skipped: true}
	}

	if folder == "" {
		folder = defaultFolder(category)
	}
	filename := backupFilename(originalName, remoteID, m.now())
	dir := filepath.Join(m.root, folder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return BackupResult{Error: fmt.Sprintf("create backup dir: %v", err)}
	}

	path := filepath.Join(dir, filename)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return BackupResult{Error: fmt.Sprintf("write backup: %v", err)}
	}

	return BackupResult{Success: true, Path: path, Filename: filename}
}

// LedgerPut records a successful upload.
func (m *Mirror) LedgerPut(ctx context.Context, rec models.FileRecord) error {
	return m.store.PutFileRecord(ctx, rec)
}

// LedgerLookup returns the record for a remote identifier, or nil when the
// identifier is unknown.
func (m *Mirror) LedgerLookup(ctx context.Context, remoteID string) (*models.FileRecord, error) {
	rec, err := m.store.GetFileRecord(ctx, remoteID)
	if err != nil {
		if errors.Is(err, store.ErrFileRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}

// LedgerRemove deletes the ledger entry and, best-effort, the backup file
// it points at. A missing entry is not an error.
func (m *Mirror) LedgerRemove(ctx context.Context, remoteID string) error {
	rec, err := m.LedgerLookup(ctx, remoteID)
	if err != nil {
		return err
	}
	if rec != nil && rec.BackupPath != "" {
		if err := os.Remove(rec.BackupPath); err != nil && !os.IsNotExist(err) {
			logging.Warnf("remove backup %s: %v", rec.BackupPath, err)
		}
	}
	return m.store.DeleteFileRecord(ctx, remoteID)
}

// List returns ledger records matching the filter.
func (m *Mirror) List(ctx context.Context, filter store.FileFilter) ([]models.FileRecord, error) {
	return m.store.ListFileRecords(ctx, filter)
}

// Disabled reports whether mirroring is globally off.
func (m *Mirror) Disabled() bool {
	return m.disabled
}

func defaultFolder(category models.FileCategory) string {
	switch category {
	case models.CategoryImage:
		return "images"
	case models.CategoryVideo:
		return "videos"
	default:
		return "documents"
	}
}

func backupFilename(originalName, remoteID string, now time.Time) string {
	base := filepath.Base(originalName)
	ext := filepath.Ext(base)
	base = strings.TrimSuffix(base, ext)
	if base == "" {
		base = "file"
	}

	sum := sha256.Sum256([]byte(remoteID))
	short := hex.EncodeToString(sum[:4])
	stamp := now.UTC().Format("20060102T150405")

	return fmt.Sprintf("%s_%s_%s%s", base, short, stamp, strings.ToLower(ext))
}
