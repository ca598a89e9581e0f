package store

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Store wraps the ledger database. All timestamps are stored as
// RFC3339Nano UTC text, matching the wire representation.
type Store struct {
	db *gorm.DB
}

func New(gormDB *gorm.DB) *Store {
	return &Store{db: gormDB}
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type fileRecordRow struct {
	RemoteID     string  `gorm:"column:remote_id;primaryKey"`
	OriginalName string  `gorm:"column:original_name"`
	Category     string  `gorm:"column:category"`
	BackupPath   *string `gorm:"column:backup_path"`
	Size         int64   `gorm:"column:size"`
	UploadedAt   string  `gorm:"column:uploaded_at"`
}

func (fileRecordRow) TableName() string { return "file_records" }

type statsTotalsRow struct {
	ID         int   `gorm:"column:id;primaryKey"`
	Total      int64 `gorm:"column:total"`
	Successful int64 `gorm:"column:successful"`
	Failed     int64 `gorm:"column:failed"`
	TotalBytes int64 `gorm:"column:total_bytes"`
}

func (statsTotalsRow) TableName() string { return "stats_totals" }

type statsCategoryRow struct {
	Category string `gorm:"column:category;primaryKey"`
	Count    int64  `gorm:"column:count"`
	Bytes    int64  `gorm:"column:bytes"`
}

func (statsCategoryRow) TableName() string { return "stats_categories" }

type statsDayRow struct {
	Day       string `gorm:"column:day;primaryKey"`
	Uploads   int64  `gorm:"column:uploads"`
	Successes int64  `gorm:"column:successes"`
	Failures  int64  `gorm:"column:failures"`
	Bytes     int64  `gorm:"column:bytes"`
}

func (statsDayRow) TableName() string { return "stats_days" }

type migrationRunRow struct {
	ID        string `gorm:"column:id;primaryKey"`
	State     string `gorm:"column:state"`
	PlanPath  string `gorm:"column:plan_path"`
	CreatedAt string `gorm:"column:created_at"`
	UpdatedAt string `gorm:"column:updated_at"`
}

func (migrationRunRow) TableName() string { return "migration_runs" }

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}

func nonEmptyPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
