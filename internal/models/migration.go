package models

import "time"

// MigrationItemStatus tracks one plan item through execution.
type MigrationItemStatus string

const (
	MigrationItemPending   MigrationItemStatus = "pending"
	MigrationItemCompleted MigrationItemStatus = "completed"
	MigrationItemFailed    MigrationItemStatus = "failed"
)

// MigrationState is the run-level state machine:
// Scanning -> PlanGenerated -> Executing -> Completed, or Failed if scanning
// or plan generation errors out. No state is skipped.
type MigrationState string

const (
	MigrationScanning      MigrationState = "scanning"
	MigrationPlanGenerated MigrationState = "plan_generated"
	MigrationExecuting     MigrationState = "executing"
	MigrationCompleted     MigrationState = "completed"
	MigrationFailed        MigrationState = "failed"
)

// InventoryEntry is one file discovered during a legacy-directory scan.
type InventoryEntry struct {
	AbsolutePath string       `json:"absolutePath"`
	RelativePath string       `json:"relativePath"`
	Size         int64        `json:"size"`
	Extension    string       `json:"extension"`
	Category     FileCategory `json:"category"`
	ModifiedAt   time.Time    `json:"modifiedAt"`
}

// MigrationItem is one planned upload. Status starts pending and moves to
// completed or failed exactly once; completed items are never re-processed
// on resume.
type MigrationItem struct {
	ID           string              `json:"id"`
	AbsolutePath string              `json:"absolutePath"`
	RelativePath string              `json:"relativePath"`
	Size         int64               `json:"size"`
	Extension    string              `json:"extension"`
	Category     FileCategory        `json:"category"`
	TargetFolder string              `json:"targetFolder"`
	TargetPreset string              `json:"targetPreset"`
	Status       MigrationItemStatus `json:"status"`

	RemoteID    string     `json:"remoteId,omitempty"`
	URL         string     `json:"url,omitempty"`
	Error       string     `json:"error,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MigrationStrategy controls batching and folder layout for a run.
type MigrationStrategy struct {
	BatchSize         int  `json:"batchSize"`
	ConcurrentUploads int  `json:"concurrentUploads"`
	PreserveStructure bool `json:"preserveStructure"`
	KeepBackup        bool `json:"keepBackup"`
	// InterBatchDelayMs is a pause between batches to stay under remote
	// rate limits.
	InterBatchDelayMs int `json:"interBatchDelayMs"`
}

// MigrationEstimate is operator-facing sizing only, not contractual.
type MigrationEstimate struct {
	TotalFiles      int    `json:"totalFiles"`
	TotalSize       int64  `json:"totalSize"`
	EstimatedTimeMs int64  `json:"estimatedTimeMs"`
	Assumption      string `json:"assumption,omitempty"`
}

// MigrationPlan is the durable unit of a migration run. It is persisted
// after every executed batch so an interrupted run can resume.
type MigrationPlan struct {
	RunID      string            `json:"runId"`
	CreatedAt  time.Time         `json:"createdAt"`
	State      MigrationState    `json:"state"`
	Strategy   MigrationStrategy `json:"strategy"`
	Items      []*MigrationItem  `json:"items"`
	Estimate   MigrationEstimate `json:"estimate"`
	ScanErrors []string          `json:"scanErrors,omitempty"`
	SourceDirs []string          `json:"sourceDirs"`
}

// MigrationFailure is one failed item in a report.
type MigrationFailure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

// MigrationReport summarizes a finished (or interrupted) run. Immutable
// once generated.
type MigrationReport struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`

	Succeeded   int     `json:"succeeded"`
	Failed      int     `json:"failed"`
	Skipped     int     `json:"skipped"`
	SuccessRate float64 `json:"successRate"`

	CategoryUsage   map[FileCategory]CategoryStats `json:"categoryUsage"`
	Failures        []MigrationFailure             `json:"failures,omitempty"`
	Recommendations []string                       `json:"recommendations,omitempty"`
}

// RollbackPlan lists the manual steps to undo a completed run. It is never
// executed automatically; reverting production references needs coordination
// outside this subsystem.
type RollbackPlan struct {
	RunID       string    `json:"runId"`
	GeneratedAt time.Time `json:"generatedAt"`
	Steps       []string  `json:"steps"`
	RemoteIDs   []string  `json:"remoteIds"`
}

// BackupVerification reports ledger entries whose backup file is gone.
type BackupVerification struct {
	CheckedAt time.Time `json:"checkedAt"`
	Checked   int       `json:"checked"`
	Missing   []string  `json:"missing,omitempty"`
	Skipped   int       `json:"skipped"`
}
