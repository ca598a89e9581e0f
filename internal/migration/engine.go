package migration

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"assetstore/internal/events"
	"assetstore/internal/metrics"
	"assetstore/internal/models"
	"assetstore/internal/storage"
	"assetstore/internal/store"
)

// Engine bulk-migrates legacy upload directories into the remote store by
// driving the storage service at volume. Runs are durable: the plan file is
// rewritten after every batch, so an interrupted run resumes from the last
// persisted progress.
type Engine struct {
	svc     *storage.Service
	store   *store.Store
	metrics *metrics.Metrics
	hub     *events.Hub
	root    string

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func New(svc *storage.Service, st *store.Store, m *metrics.Metrics, hub *events.Hub, root string) *Engine {
	return &Engine{
		svc:     svc,
		store:   st,
		metrics: m,
		hub:     hub,
		root:    root,
		now:     time.Now,
		sleep:   sleepWithContext,
	}
}

// DefaultStrategy matches the operational profile the migration was tuned
// for: small batches, light concurrency, a breather between batches.
func DefaultStrategy() models.MigrationStrategy {
	return models.MigrationStrategy{
		BatchSize:         10,
		ConcurrentUploads: 3,
		PreserveStructure: false,
		KeepBackup:        true,
		InterBatchDelayMs: 1000,
	}
}

func (e *Engine) planPath(runID string) string {
	return filepath.Join(e.root, "plans", runID+".json")
}

func (e *Engine) reportPath(runID string) string {
	return filepath.Join(e.root, "reports", runID+".json")
}

func (e *Engine) exportPath(runID string) string {
	return filepath.Join(e.root, "exports", runID+".csv")
}

// SavePlan rewrites the plan file. Write-then-rename keeps the previous
// snapshot intact if the process dies mid-write.
func (e *Engine) SavePlan(plan *models.MigrationPlan) error {
	path := e.planPath(plan.RunID)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(plan, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadPlan reads a persisted plan by run identifier.
func (e *Engine) LoadPlan(runID string) (*models.MigrationPlan, error) {
	data, err := os.ReadFile(e.planPath(runID))
	if err != nil {
		return nil, fmt.Errorf("load plan %s: %w", runID, err)
	}
	var plan models.MigrationPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", runID, err)
	}
	return &plan, nil
}

func (e *Engine) setState(ctx context.Context, plan *models.MigrationPlan, state models.MigrationState) error {
	plan.State = state
	if err := e.store.UpdateMigrationRunState(ctx, plan.RunID, state); err != nil {
		return err
	}
	e.hub.Publish(events.Event{
		Type:    events.TypeMigrationState,
		RunID:   plan.RunID,
		Payload: map[string]any{"state": state},
	})
	return e.SavePlan(plan)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
