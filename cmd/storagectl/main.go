// storagectl is the operator tool for the storage subsystem: setup and
// connectivity checks, the migration workflow, and the diagnostics server.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"assetstore/internal/config"
	"assetstore/internal/logging"
)

func main() {
	// A missing .env is fine; environment variables win over file values
	// either way.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "verify":
		err = cmdVerify(args)
	case "test-upload":
		err = cmdTestUpload(args)
	case "setup-dirs":
		err = cmdSetupDirs(args)
	case "full-setup":
		err = cmdFullSetup(args)
	case "env-template":
		fmt.Print(config.EnvTemplate())
	case "migrate":
		err = cmdMigrate(args)
	case "serve":
		err = cmdServe(args)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		logging.Errorf("%s: %v", cmd, err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: storagectl <command> [flags]

commands:
  verify          check credentials and remote connectivity
  test-upload     upload a small probe file, then delete it
  setup-dirs      create the backup and migration directory layout
  full-setup      setup-dirs + verify + test-upload in one pass
  env-template    print a .env skeleton to stdout
  migrate         migration workflow (see 'storagectl migrate -h')
  serve           run the diagnostics HTTP server

Run 'storagectl <command> -h' for command flags.
`)
}

// baseFlags registers the flags shared by every command that touches the
// remote store or the ledger.
func baseFlags(fs *flag.FlagSet) *config.Config {
	cfg := &config.Config{}
	fs.StringVar(&cfg.Bucket, "bucket", getEnv("STORAGE_BUCKET", ""), "remote bucket name")
	fs.StringVar(&cfg.AccessKey, "access-key", getEnv("STORAGE_ACCESS_KEY", ""), "remote access key")
	fs.StringVar(&cfg.SecretKey, "secret-key", getEnv("STORAGE_SECRET_KEY", ""), "remote secret key")
	fs.StringVar(&cfg.Endpoint, "endpoint", getEnv("STORAGE_ENDPOINT", ""), "custom endpoint URL (MinIO etc.)")
	fs.StringVar(&cfg.Region, "region", getEnv("STORAGE_REGION", ""), "remote region")
	fs.StringVar(&cfg.BaseFolder, "base-folder", getEnv("STORAGE_BASE_FOLDER", "uploads"), "root prefix for uploaded objects")
	fs.StringVar(&cfg.BackupRoot, "backup-root", getEnv("BACKUP_ROOT", "./data/backups"), "local mirror root directory")
	fs.StringVar(&cfg.MigrationRoot, "migration-root", getEnv("MIGRATION_ROOT", "./data/migration"), "migration state directory")
	fs.BoolVar(&cfg.BackupsDisabled, "backups-disabled", getEnvBool("BACKUPS_DISABLED", false), "disable local mirror copies")
	fs.StringVar(&cfg.DBBackend, "db-backend", getEnv("DB_BACKEND", "sqlite"), "ledger database backend (sqlite or postgres)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", getEnv("DATABASE_URL", ""), "postgres connection string (required when db-backend=postgres)")
	fs.StringVar(&cfg.Addr, "addr", getEnv("ADDR", "127.0.0.1:8080"), "diagnostics server listen address")
	fs.StringVar(&cfg.LogFormat, "log-format", getEnv("LOG_FORMAT", "text"), "log format (text or json)")
	fs.IntVar(&cfg.ConcurrentUploads, "concurrent-uploads", getEnvInt("MIGRATION_CONCURRENT_UPLOADS", 3), "concurrent uploads within a migration batch")
	fs.IntVar(&cfg.BatchSize, "batch-size", getEnvInt("MIGRATION_BATCH_SIZE", 10), "migration batch size")
	fs.DurationVar(&cfg.InterBatchDelay, "inter-batch-delay", getEnvDuration("MIGRATION_INTER_BATCH_DELAY", time.Second), "pause between migration batches")
	return cfg
}

func parseFlags(fs *flag.FlagSet, cfg *config.Config, args []string) error {
	if err := fs.Parse(args); err != nil {
		return err
	}
	if _, err := logging.Setup(cfg.LogFormat); err != nil {
		log.Fatalf("invalid LOG_FORMAT %q: %v", cfg.LogFormat, err)
	}
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func ledgerPath(cfg *config.Config) string {
	return filepath.Join(filepath.Dir(cfg.BackupRoot), "ledger.db")
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvInt(key string, def int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
	}
	return def
}
