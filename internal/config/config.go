package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds everything the storage subsystem needs at startup. It is
// populated from flags and environment by cmd/storagectl.
type Config struct {
	// Remote store credentials. All three of Bucket, AccessKey and
	// SecretKey are required for uploads; without them the service starts
	// in a degraded "not configured" mode.
	Bucket    string
	AccessKey string
	SecretKey string
	Endpoint  string
	Region    string

	// BaseFolder is the root prefix for all uploaded objects.
	BaseFolder string

	BackupRoot    string
	MigrationRoot string
	// BackupsDisabled turns the local mirror into a no-op; uploads then
	// report skipped backups, not failed ones. Static, decided at startup.
	BackupsDisabled bool

	DBBackend   string
	DatabaseURL string

	Addr      string
	LogFormat string

	ConcurrentUploads int
	BatchSize         int
	InterBatchDelay   time.Duration
}

// CategorySizeLimits are the ingestion-layer per-category caps. They are
// configuration constants, not contracts of the classifier.
const (
	MaxDocumentBytes = 100 << 20
	MaxImageBytes    = 20 << 20
	MaxVideoBytes    = 200 << 20
)

// BackupSubdirs is the fixed layout under BackupRoot.
var BackupSubdirs = []string{"documents", "images", "videos", "avatars", "covers"}

// MigrationSubdirs is the fixed layout under MigrationRoot.
var MigrationSubdirs = []string{"exports", "reports", "plans", "temp"}

// CredentialsPresent reports whether all required remote credentials are set.
func (c Config) CredentialsPresent() bool {
	return strings.TrimSpace(c.Bucket) != "" &&
		strings.TrimSpace(c.AccessKey) != "" &&
		strings.TrimSpace(c.SecretKey) != ""
}

// MissingCredentials lists the unset required credential variables.
func (c Config) MissingCredentials() []string {
	var missing []string
	if strings.TrimSpace(c.Bucket) == "" {
		missing = append(missing, "STORAGE_BUCKET")
	}
	if strings.TrimSpace(c.AccessKey) == "" {
		missing = append(missing, "STORAGE_ACCESS_KEY")
	}
	if strings.TrimSpace(c.SecretKey) == "" {
		missing = append(missing, "STORAGE_SECRET_KEY")
	}
	return missing
}

// EnsureDirs creates the backup and migration directory layouts.
func (c Config) EnsureDirs() error {
	for _, sub := range BackupSubdirs {
		if err := os.MkdirAll(filepath.Join(c.BackupRoot, sub), 0o755); err != nil {
			return fmt.Errorf("create backup dir %s: %w", sub, err)
		}
	}
	for _, sub := range MigrationSubdirs {
		if err := os.MkdirAll(filepath.Join(c.MigrationRoot, sub), 0o755); err != nil {
			return fmt.Errorf("create migration dir %s: %w", sub, err)
		}
	}
	return nil
}

// EnvTemplate is the .env skeleton emitted by the operator tool.
func EnvTemplate() string {
	return strings.Join([]string{
		"# Remote object storage credentials (required)",
		"STORAGE_BUCKET=",
		"STORAGE_ACCESS_KEY=",
		"STORAGE_SECRET_KEY=",
		"",
		"# Optional: custom endpoint (MinIO etc.) and region",
		"STORAGE_ENDPOINT=",
		"STORAGE_REGION=us-east-1",
		"",
		"# Local mirror",
		"BACKUP_ROOT=./data/backups",
		"BACKUPS_DISABLED=false",
		"",
		"# Migration engine",
		"MIGRATION_ROOT=./data/migration",
		"MIGRATION_BATCH_SIZE=10",
		"MIGRATION_CONCURRENT_UPLOADS=3",
		"",
		"# Ledger database (sqlite or postgres)",
		"DB_BACKEND=sqlite",
		"DATABASE_URL=",
		"",
	}, "\n")
}
