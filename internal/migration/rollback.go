package migration

import (
	"fmt"

	"assetstore/internal/models"
)

// Rollback derives the manual undo plan for a run: the remote identifiers
// uploaded by it and the operator steps to revert. Nothing here deletes
// anything; reverting is always an explicit operator action.
func (e *Engine) Rollback(plan *models.MigrationPlan) *models.RollbackPlan {
	rb := &models.RollbackPlan{
		RunID:       plan.RunID,
		GeneratedAt: e.now(),
	}
	for _, item := range plan.Items {
		if item.Status == models.MigrationItemCompleted && item.RemoteID != "" {
			rb.RemoteIDs = append(rb.RemoteIDs, item.RemoteID)
		}
	}

	rb.Steps = []string{
		fmt.Sprintf("stop any application traffic that references objects from run %s", plan.RunID),
		fmt.Sprintf("delete the %d listed remote objects (each delete is confirmed against the remote)", len(rb.RemoteIDs)),
		"remove the corresponding ledger entries and local backups",
		"restore application configuration to the pre-migration storage paths",
	}
	return rb
}
