package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"assetstore/internal/models"
)

var ErrMigrationRunNotFound = errors.New("migration run not found")

// MigrationRun is the registry entry for one migration. The full plan lives
// in the plan file on disk; the registry exists for auditing and resume
// discovery.
type MigrationRun struct {
	ID        string
	State     models.MigrationState
	PlanPath  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (s *Store) CreateMigrationRun(ctx context.Context, id, planPath string, state models.MigrationState) error {
	now := formatTime(time.Now())
	row := migrationRunRow{
		ID:        id,
		State:     string(state),
		PlanPath:  planPath,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) UpdateMigrationRunState(ctx context.Context, id string, state models.MigrationState) error {
	return s.db.WithContext(ctx).Model(&migrationRunRow{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"state":      string(state),
			"updated_at": formatTime(time.Now()),
		}).Error
}

func (s *Store) GetMigrationRun(ctx context.Context, id string) (MigrationRun, error) {
	var row migrationRunRow
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return MigrationRun{}, ErrMigrationRunNotFound
		}
		return MigrationRun{}, err
	}
	return migrationRunFromRow(row), nil
}

func (s *Store) ListMigrationRuns(ctx context.Context) ([]MigrationRun, error) {
	var rows []migrationRunRow
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]MigrationRun, 0, len(rows))
	for _, row := range rows {
		out = append(out, migrationRunFromRow(row))
	}
	return out, nil
}

func migrationRunFromRow(row migrationRunRow) MigrationRun {
	return MigrationRun{
		ID:        row.ID,
		State:     models.MigrationState(row.State),
		PlanPath:  row.PlanPath,
		CreatedAt: parseTime(row.CreatedAt),
		UpdatedAt: parseTime(row.UpdatedAt),
	}
}
