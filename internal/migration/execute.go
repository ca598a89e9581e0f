package migration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"assetstore/internal/events"
	"assetstore/internal/logging"
	"assetstore/internal/models"
	"assetstore/internal/storage"
)

// Execute runs every pending item of a plan in category-grouped, fixed-size
// batches. Completed items are never re-attempted, so calling Execute on a
// partially finished plan resumes it. Per-item failures are recorded on the
// item and never abort the run; the plan file is rewritten after every batch.
func (e *Engine) Execute(ctx context.Context, plan *models.MigrationPlan) (*models.MigrationReport, error) {
	switch plan.State {
	case models.MigrationPlanGenerated, models.MigrationExecuting:
	default:
		return nil, fmt.Errorf("plan %s is %s, not executable", plan.RunID, plan.State)
	}
	if err := e.setState(ctx, plan, models.MigrationExecuting); err != nil {
		return nil, err
	}

	pending := pendingByCategory(plan.Items)
	total := len(plan.Items)
	done := total - countPending(plan.Items)

	for _, category := range []models.FileCategory{models.CategoryDocument, models.CategoryImage, models.CategoryVideo} {
		items := pending[category]
		for start := 0; start < len(items); start += plan.Strategy.BatchSize {
			end := start + plan.Strategy.BatchSize
			if end > len(items) {
				end = len(items)
			}
			batch := items[start:end]

			e.runBatch(ctx, plan, batch)
			done += len(batch)
			e.metrics.IncMigrationBatch()

			if err := e.SavePlan(plan); err != nil {
				logging.Warnf("migration %s: persisting progress: %v", plan.RunID, err)
			}
			e.hub.Publish(events.Event{
				Type:  events.TypeMigrationProgress,
				RunID: plan.RunID,
				Payload: map[string]any{
					"category":  category,
					"processed": done,
					"total":     total,
				},
			})

			if ctx.Err() != nil {
				// Interrupted mid-run: leave the plan executing so a
				// later Execute call resumes the remaining items.
				return nil, ctx.Err()
			}
			if done < total {
				delay := time.Duration(plan.Strategy.InterBatchDelayMs) * time.Millisecond
				if err := e.sleep(ctx, delay); err != nil {
					return nil, err
				}
			}
		}
	}

	if err := e.setState(ctx, plan, models.MigrationCompleted); err != nil {
		return nil, err
	}

	report := e.BuildReport(plan)
	if err := e.SaveReport(report); err != nil {
		logging.Warnf("migration %s: saving report: %v", plan.RunID, err)
	}
	if err := e.WriteCSV(plan); err != nil {
		logging.Warnf("migration %s: writing export: %v", plan.RunID, err)
	}
	return report, nil
}

// runBatch uploads one batch with bounded concurrency. Item status updates
// are serialized through mu so the plan snapshot written afterwards is
// consistent.
func (e *Engine) runBatch(ctx context.Context, plan *models.MigrationPlan, batch []*models.MigrationItem) {
	sem := make(chan struct{}, plan.Strategy.ConcurrentUploads)
	var wg sync.WaitGroup
	var mu sync.Mutex

	for _, item := range batch {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(item *models.MigrationItem) {
			defer wg.Done()
			defer func() { <-sem }()

			e.metrics.AddMigrationInFlight(1)
			defer e.metrics.AddMigrationInFlight(-1)

			status, remoteID, url, errMsg := e.migrateOne(ctx, plan, item)

			mu.Lock()
			item.Status = status
			item.RemoteID = remoteID
			item.URL = url
			item.Error = errMsg
			now := e.now()
			item.CompletedAt = &now
			mu.Unlock()

			e.metrics.IncMigrationItem(string(status))
		}(item)
	}
	wg.Wait()
}

func (e *Engine) migrateOne(ctx context.Context, plan *models.MigrationPlan, item *models.MigrationItem) (models.MigrationItemStatus, string, string, string) {
	buf, err := os.ReadFile(item.AbsolutePath)
	if err != nil {
		return models.MigrationItemFailed, "", "", fmt.Sprintf("read: %v", err)
	}

	res := e.svc.Upload(ctx, buf, filepath.Base(item.AbsolutePath), storage.Options{
		Folder:         item.TargetFolder,
		PresetOverride: item.TargetPreset,
		Tags:           []string{"migrated", "run:" + plan.RunID},
		SkipBackup:     !plan.Strategy.KeepBackup,
	})
	if !res.Success {
		return models.MigrationItemFailed, "", "", res.Error
	}
	return models.MigrationItemCompleted, res.Remote.ID, res.Remote.SecureURL, ""
}

func pendingByCategory(items []*models.MigrationItem) map[models.FileCategory][]*models.MigrationItem {
	grouped := make(map[models.FileCategory][]*models.MigrationItem)
	for _, item := range items {
		if item.Status != models.MigrationItemPending {
			continue
		}
		grouped[item.Category] = append(grouped[item.Category], item)
	}
	return grouped
}

func countPending(items []*models.MigrationItem) int {
	n := 0
	for _, item := range items {
		if item.Status == models.MigrationItemPending {
			n++
		}
	}
	return n
}
