package models

import "time"

// FileCategory is the coarse classification every ingested file receives.
type FileCategory string

const (
	CategoryDocument FileCategory = "document"
	CategoryImage    FileCategory = "image"
	CategoryVideo    FileCategory = "video"
)

func (c FileCategory) Valid() bool {
	switch c {
	case CategoryDocument, CategoryImage, CategoryVideo:
		return true
	default:
		return false
	}
}

// ResourceKind is the remote store's resource classification. Documents are
// stored as opaque binary ("raw"); images and videos get media handling.
type ResourceKind string

const (
	ResourceRaw   ResourceKind = "raw"
	ResourceImage ResourceKind = "image"
	ResourceVideo ResourceKind = "video"
	// ResourceAuto asks the remote API to detect the kind itself. Used for
	// deletes when no ledger hint is available.
	ResourceAuto ResourceKind = "auto"
)

// FileRecord is one ledger entry, keyed by remote identifier. A record
// exists exactly while a successful upload has not been deleted.
type FileRecord struct {
	RemoteID     string       `json:"remoteId"`
	OriginalName string       `json:"originalName"`
	Category     FileCategory `json:"category"`
	BackupPath   string       `json:"backupPath,omitempty"`
	Size         int64        `json:"size"`
	UploadedAt   time.Time    `json:"uploadedAt"`
}

// RemoteDescriptor is what the remote store reports for a stored object.
type RemoteDescriptor struct {
	ID           string       `json:"id"`
	SecureURL    string       `json:"secureUrl"`
	URL          string       `json:"url"`
	Format       string       `json:"format,omitempty"`
	ResourceKind ResourceKind `json:"resourceKind"`
	Bytes        int64        `json:"bytes"`
	CreatedAt    time.Time    `json:"createdAt"`
	Tags         []string     `json:"tags,omitempty"`
}

// BackupInfo describes the local mirror copy of an upload.
type BackupInfo struct {
	Path     string `json:"path"`
	Filename string `json:"filename"`
}

// UploadResult is the unified outcome of one upload attempt.
type UploadResult struct {
	Success bool `json:"success"`

	Remote *RemoteDescriptor `json:"remote,omitempty"`
	Backup *BackupInfo       `json:"backup,omitempty"`

	DownloadURL   string `json:"downloadUrl,omitempty"`
	ViewURL       string `json:"viewUrl,omitempty"`
	BackupCreated bool   `json:"backupCreated"`

	// Diagnostics, populated on failure.
	Error       string    `json:"error,omitempty"`
	Filename    string    `json:"filename,omitempty"`
	Size        int64     `json:"size,omitempty"`
	AttemptedAt time.Time `json:"attemptedAt,omitempty"`
}

// DeleteResult reports a remote delete. Success requires the remote API to
// explicitly confirm the object is gone.
type DeleteResult struct {
	Success bool   `json:"success"`
	Raw     string `json:"raw,omitempty"`
	Error   string `json:"error,omitempty"`
}

// CategoryStats is a per-category counter pair.
type CategoryStats struct {
	Count int64 `json:"count"`
	Bytes int64 `json:"bytes"`
}

// DayStats accumulates one calendar day's upload activity.
type DayStats struct {
	Uploads   int64 `json:"uploads"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
	Bytes     int64 `json:"bytes"`
}

// StatisticsSnapshot is a point-in-time copy of the upload counters.
// Invariants: Successful+Failed == Total; category counts sum to Successful.
type StatisticsSnapshot struct {
	Total      int64 `json:"total"`
	Successful int64 `json:"successful"`
	Failed     int64 `json:"failed"`
	TotalBytes int64 `json:"totalBytes"`

	Categories map[FileCategory]CategoryStats `json:"categories"`
	// Days is keyed by calendar date (2006-01-02) in local time.
	Days map[string]DayStats `json:"days"`
}
