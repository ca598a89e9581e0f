package store

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"assetstore/internal/models"
)

var ErrFileRecordNotFound = errors.New("file record not found")

// FileFilter narrows ListFileRecords. From/To bound the upload timestamp
// inclusively.
type FileFilter struct {
	Category *models.FileCategory
	From     *time.Time
	To       *time.Time
}

// PutFileRecord inserts or replaces the ledger entry for a remote
// identifier.
func (s *Store) PutFileRecord(ctx context.Context, rec models.FileRecord) error {
	if strings.TrimSpace(rec.RemoteID) == "" {
		return errors.New("remote id is required")
	}
	if rec.UploadedAt.IsZero() {
		rec.UploadedAt = time.Now()
	}
	row := fileRecordRow{
		RemoteID:     rec.RemoteID,
		OriginalName: rec.OriginalName,
		Category:     string(rec.Category),
		BackupPath:   nonEmptyPtr(rec.BackupPath),
		Size:         rec.Size,
		UploadedAt:   formatTime(rec.UploadedAt),
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "remote_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"original_name", "category", "backup_path", "size", "uploaded_at"}),
	}).Create(&row).Error
}

// GetFileRecord looks a ledger entry up by remote identifier.
func (s *Store) GetFileRecord(ctx context.Context, remoteID string) (models.FileRecord, error) {
	var row fileRecordRow
	err := s.db.WithContext(ctx).
		Where("remote_id = ?", remoteID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.FileRecord{}, ErrFileRecordNotFound
		}
		return models.FileRecord{}, err
	}
	return fileRecordFromRow(row), nil
}

// DeleteFileRecord removes a ledger entry. Deleting a missing entry is not
// an error.
func (s *Store) DeleteFileRecord(ctx context.Context, remoteID string) error {
	return s.db.WithContext(ctx).
		Where("remote_id = ?", remoteID).
		Delete(&fileRecordRow{}).Error
}

// ListFileRecords returns ledger entries matching the filter, newest first.
func (s *Store) ListFileRecords(ctx context.Context, filter FileFilter) ([]models.FileRecord, error) {
	query := s.db.WithContext(ctx).Model(&fileRecordRow{})
	if filter.Category != nil {
		query = query.Where("category = ?", string(*filter.Category))
	}
	if filter.From != nil {
		query = query.Where("uploaded_at >= ?", formatTime(*filter.From))
	}
	if filter.To != nil {
		query = query.Where("uploaded_at <= ?", formatTime(*filter.To))
	}

	var rows []fileRecordRow
	if err := query.Order("uploaded_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]models.FileRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, fileRecordFromRow(row))
	}
	return out, nil
}

func fileRecordFromRow(row fileRecordRow) models.FileRecord {
	rec := models.FileRecord{
		RemoteID:     row.RemoteID,
		OriginalName: row.OriginalName,
		Category:     models.FileCategory(row.Category),
		Size:         row.Size,
		UploadedAt:   parseTime(row.UploadedAt),
	}
	if row.BackupPath != nil {
		rec.BackupPath = *row.BackupPath
	}
	return rec
}
