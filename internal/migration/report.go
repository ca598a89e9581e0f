package migration

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"assetstore/internal/models"
)

const largeFileThreshold = 50 << 20

// BuildReport summarizes a plan's current item states. It can be generated
// from an interrupted run as well; remaining pending items show up as
// skipped.
func (e *Engine) BuildReport(plan *models.MigrationPlan) *models.MigrationReport {
	report := &models.MigrationReport{
		RunID:         plan.RunID,
		GeneratedAt:   e.now(),
		CategoryUsage: make(map[models.FileCategory]models.CategoryStats),
	}

	largeFailures := 0
	for _, item := range plan.Items {
		switch item.Status {
		case models.MigrationItemCompleted:
			report.Succeeded++
			usage := report.CategoryUsage[item.Category]
			usage.Count++
			usage.Bytes += item.Size
			report.CategoryUsage[item.Category] = usage
		case models.MigrationItemFailed:
			report.Failed++
			report.Failures = append(report.Failures, models.MigrationFailure{
				Path:  item.AbsolutePath,
				Error: item.Error,
			})
			if item.Size > largeFileThreshold {
				largeFailures++
			}
		default:
			report.Skipped++
		}
	}

	attempted := report.Succeeded + report.Failed
	if attempted > 0 {
		report.SuccessRate = float64(report.Succeeded) / float64(attempted)
	}

	if largeFailures > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d failed files exceed 50 MiB; retry those individually off peak hours", largeFailures))
	}
	if report.Failed > 0 {
		report.Recommendations = append(report.Recommendations,
			"re-run the migration to retry failed items after fixing the causes below")
	}
	if report.Skipped > 0 {
		report.Recommendations = append(report.Recommendations,
			fmt.Sprintf("%d items were not attempted; resume the run to process them", report.Skipped))
	}
	return report
}

// SaveReport writes the report JSON next to the plan.
func (e *Engine) SaveReport(report *models.MigrationReport) error {
	path := e.reportPath(report.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadReport reads a persisted report by run identifier.
func (e *Engine) LoadReport(runID string) (*models.MigrationReport, error) {
	data, err := os.ReadFile(e.reportPath(runID))
	if err != nil {
		return nil, fmt.Errorf("load report %s: %w", runID, err)
	}
	var report models.MigrationReport
	if err := json.Unmarshal(data, &report); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", runID, err)
	}
	return &report, nil
}

// WriteCSV exports one row per plan item for spreadsheet review.
func (e *Engine) WriteCSV(plan *models.MigrationPlan) error {
	path := e.exportPath(plan.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"status", "category", "path", "remote_id", "url", "size", "error"}); err != nil {
		return err
	}
	for _, item := range plan.Items {
		row := []string{
			string(item.Status),
			string(item.Category),
			item.AbsolutePath,
			item.RemoteID,
			item.URL,
			strconv.FormatInt(item.Size, 10),
			item.Error,
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
