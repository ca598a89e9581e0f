package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"assetstore/internal/models"
)

// RecordUpload applies one upload attempt to the aggregate, per-category
// and per-day counters in a single transaction. Bytes and category counts
// only move on success.
func (s *Store) RecordUpload(ctx context.Context, success bool, category models.FileCategory, bytes int64, day string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).Create(&statsTotalsRow{ID: 1}).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"total": gorm.Expr("total + 1"),
		}
		if success {
			updates["successful"] = gorm.Expr("successful + 1")
			updates["total_bytes"] = gorm.Expr("total_bytes + ?", bytes)
		} else {
			updates["failed"] = gorm.Expr("failed + 1")
		}
		if err := tx.Model(&statsTotalsRow{}).Where("id = ?", 1).Updates(updates).Error; err != nil {
			return err
		}

		if success {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "category"}},
				DoNothing: true,
			}).Create(&statsCategoryRow{Category: string(category)}).Error; err != nil {
				return err
			}
			if err := tx.Model(&statsCategoryRow{}).
				Where("category = ?", string(category)).
				Updates(map[string]any{
					"count": gorm.Expr("count + 1"),
					"bytes": gorm.Expr("bytes + ?", bytes),
				}).Error; err != nil {
				return err
			}
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "day"}},
			DoNothing: true,
		}).Create(&statsDayRow{Day: day}).Error; err != nil {
			return err
		}
		dayUpdates := map[string]any{
			"uploads": gorm.Expr("uploads + 1"),
		}
		if success {
			dayUpdates["successes"] = gorm.Expr("successes + 1")
			dayUpdates["bytes"] = gorm.Expr("bytes + ?", bytes)
		} else {
			dayUpdates["failures"] = gorm.Expr("failures + 1")
		}
		return tx.Model(&statsDayRow{}).Where("day = ?", day).Updates(dayUpdates).Error
	})
}

// StatisticsSnapshot reads all counters into one snapshot value.
func (s *Store) StatisticsSnapshot(ctx context.Context) (models.StatisticsSnapshot, error) {
	snap := models.StatisticsSnapshot{
		Categories: make(map[models.FileCategory]models.CategoryStats),
		Days:       make(map[string]models.DayStats),
	}

	var totals statsTotalsRow
	err := s.db.WithContext(ctx).Where("id = ?", 1).Take(&totals).Error
	if err == nil {
		snap.Total = totals.Total
		snap.Successful = totals.Successful
		snap.Failed = totals.Failed
		snap.TotalBytes = totals.TotalBytes
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.StatisticsSnapshot{}, err
	}

	var categories []statsCategoryRow
	if err := s.db.WithContext(ctx).Find(&categories).Error; err != nil {
		return models.StatisticsSnapshot{}, err
	}
	for _, row := range categories {
		snap.Categories[models.FileCategory(row.Category)] = models.CategoryStats{
			Count: row.Count,
			Bytes: row.Bytes,
		}
	}

	var days []statsDayRow
	if err := s.db.WithContext(ctx).Find(&days).Error; err != nil {
		return models.StatisticsSnapshot{}, err
	}
	for _, row := range days {
		snap.Days[row.Day] = models.DayStats{
			Uploads:   row.Uploads,
			Successes: row.Successes,
			Failures:  row.Failures,
			Bytes:     row.Bytes,
		}
	}

	return snap, nil
}
