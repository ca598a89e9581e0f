package migration

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"

	"assetstore/internal/classifier"
	"assetstore/internal/logging"
	"assetstore/internal/models"
)

// assumedThroughput is the fixed rate behind time estimates. Estimates are
// operator visibility only, never contractual.
const assumedThroughput = 2 << 20 // bytes per second

// Plan scans the given directories and turns the inventory into a durable
// migration plan. The run moves Scanning -> PlanGenerated; a scan that
// yields nothing but errors fails the run.
func (e *Engine) Plan(ctx context.Context, dirs []string, strategy models.MigrationStrategy) (*models.MigrationPlan, error) {
	strategy = normalizeStrategy(strategy)

	plan := &models.MigrationPlan{
		RunID:      uuid.New().String(),
		CreatedAt:  e.now(),
		State:      models.MigrationScanning,
		Strategy:   strategy,
		SourceDirs: dirs,
	}
	if err := e.store.CreateMigrationRun(ctx, plan.RunID, e.planPath(plan.RunID), models.MigrationScanning); err != nil {
		return nil, fmt.Errorf("register migration run: %w", err)
	}
	if err := e.SavePlan(plan); err != nil {
		return nil, err
	}

	inventory, scanErrors := Scan(dirs)
	plan.ScanErrors = scanErrors
	for _, msg := range scanErrors {
		logging.Warnf("migration %s scan: %s", plan.RunID, msg)
	}
	if len(inventory) == 0 && len(scanErrors) > 0 {
		_ = e.setState(ctx, plan, models.MigrationFailed)
		return nil, fmt.Errorf("scan produced no files (%d errors)", len(scanErrors))
	}

	var totalSize int64
	items := make([]*models.MigrationItem, 0, len(inventory))
	for _, entry := range inventory {
		preset := classifier.PresetForCategory(entry.Category)
		items = append(items, &models.MigrationItem{
			ID:           ulid.Make().String(),
			AbsolutePath: entry.AbsolutePath,
			RelativePath: entry.RelativePath,
			Size:         entry.Size,
			Extension:    entry.Extension,
			Category:     entry.Category,
			TargetFolder: targetFolder(entry, strategy),
			TargetPreset: preset.Name,
			Status:       models.MigrationItemPending,
		})
		totalSize += entry.Size
	}

	plan.Items = items
	plan.Estimate = models.MigrationEstimate{
		TotalFiles:      len(items),
		TotalSize:       totalSize,
		EstimatedTimeMs: totalSize / assumedThroughput * 1000,
		Assumption:      "2 MiB/s sustained upload throughput",
	}

	if err := e.setState(ctx, plan, models.MigrationPlanGenerated); err != nil {
		return nil, err
	}
	return plan, nil
}

func normalizeStrategy(s models.MigrationStrategy) models.MigrationStrategy {
	def := DefaultStrategy()
	if s.BatchSize <= 0 {
		s.BatchSize = def.BatchSize
	}
	if s.ConcurrentUploads <= 0 {
		s.ConcurrentUploads = def.ConcurrentUploads
	}
	if s.ConcurrentUploads > s.BatchSize {
		s.ConcurrentUploads = s.BatchSize
	}
	if s.InterBatchDelayMs < 0 {
		s.InterBatchDelayMs = 0
	}
	return s
}

// targetFolder picks either the fixed migrated/{category} bucket or a
// sanitized mirror of the file's original relative directory.
func targetFolder(entry models.InventoryEntry, strategy models.MigrationStrategy) string {
	if !strategy.PreserveStructure {
		return "migrated/" + categoryBucket(entry.Category)
	}
	dir := path.Dir(entry.RelativePath)
	if dir == "." || dir == "/" {
		return "migrated"
	}
	parts := strings.Split(dir, "/")
	for i, part := range parts {
		parts[i] = sanitizeFolderPart(part)
	}
	return "migrated/" + strings.Join(parts, "/")
}

func categoryBucket(category models.FileCategory) string {
	switch category {
	case models.CategoryImage:
		return "images"
	case models.CategoryVideo:
		return "videos"
	default:
		return "documents"
	}
}

func sanitizeFolderPart(part string) string {
	part = strings.ToLower(part)
	var b strings.Builder
	for _, r := range part {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	out := strings.Trim(b.String(), "-")
	if out == "" {
		return "dir"
	}
	return out
}
