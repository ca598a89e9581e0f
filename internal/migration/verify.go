package migration

import (
	"context"
	"os"

	"assetstore/internal/mirror"
	"assetstore/internal/models"
	"assetstore/internal/store"
)

// VerifyBackups walks the ledger and checks that every recorded backup file
// still exists on disk. Records without a backup path (skipped or disabled
// backups) are counted separately, not flagged.
func (e *Engine) VerifyBackups(ctx context.Context, mir *mirror.Mirror) (*models.BackupVerification, error) {
	records, err := mir.List(ctx, store.FileFilter{})
	if err != nil {
		return nil, err
	}

	result := &models.BackupVerification{CheckedAt: e.now()}
	for _, rec := range records {
		if rec.BackupPath == "" {
			result.Skipped++
			continue
		}
		result.Checked++
		if _, err := os.Stat(rec.BackupPath); err != nil {
			result.Missing = append(result.Missing, rec.RemoteID)
		}
	}
	return result, nil
}
