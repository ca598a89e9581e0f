package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"assetstore/internal/app"
	"assetstore/internal/logging"
	"assetstore/internal/models"
)

func cmdMigrate(args []string) error {
	if len(args) < 1 {
		migrateUsage()
		return fmt.Errorf("missing migrate subcommand")
	}

	sub := args[0]
	rest := args[1:]

	switch sub {
	case "plan":
		return migratePlan(rest)
	case "execute":
		return migrateExecute(rest)
	case "report":
		return migrateReport(rest)
	case "rollback-plan":
		return migrateRollbackPlan(rest)
	case "verify-backups":
		return migrateVerifyBackups(rest)
	case "runs":
		return migrateListRuns(rest)
	case "-h", "--help", "help":
		migrateUsage()
		return nil
	default:
		migrateUsage()
		return fmt.Errorf("unknown migrate subcommand %q", sub)
	}
}

func migrateUsage() {
	fmt.Fprint(os.Stderr, `usage: storagectl migrate <subcommand> [flags]

subcommands:
  plan            scan legacy directories and generate a migration plan
  execute         execute (or resume) a plan by run id
  report          print the report for a finished run
  rollback-plan   print the manual rollback steps for a run
  verify-backups  check every ledger backup file still exists
  runs            list known migration runs
`)
}

type migrateEnv struct {
	app *app.App
	ctx context.Context
}

func buildMigrateEnv(fs *flag.FlagSet, args []string) (*migrateEnv, func(), error) {
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return nil, nil, err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, err
	}

	ctx, stop := signalContext()
	a, err := app.Build(ctx, *cfg, ledgerPath(cfg))
	if err != nil {
		stop()
		return nil, nil, err
	}
	cleanup := func() {
		a.Close()
		stop()
	}
	return &migrateEnv{app: a, ctx: ctx}, cleanup, nil
}

func migratePlan(args []string) error {
	fs := flag.NewFlagSet("migrate plan", flag.ExitOnError)
	dirs := fs.String("dirs", "", "comma-separated legacy directories to scan (required)")
	preserve := fs.Bool("preserve-structure", false, "mirror the source directory layout under migrated/")
	keepBackup := fs.Bool("keep-backup", true, "create local mirror copies during migration")

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	var sources []string
	for _, dir := range strings.Split(*dirs, ",") {
		if dir = strings.TrimSpace(dir); dir != "" {
			sources = append(sources, dir)
		}
	}
	if len(sources) == 0 {
		return fmt.Errorf("-dirs is required")
	}

	cfg := env.app.Config
	strategy := models.MigrationStrategy{
		BatchSize:         cfg.BatchSize,
		ConcurrentUploads: cfg.ConcurrentUploads,
		PreserveStructure: *preserve,
		KeepBackup:        *keepBackup,
		InterBatchDelayMs: int(cfg.InterBatchDelay / time.Millisecond),
	}

	plan, err := env.app.Engine.Plan(env.ctx, sources, strategy)
	if err != nil {
		return err
	}

	logging.Infof("plan %s: %d files, %s total, estimated %s",
		plan.RunID, plan.Estimate.TotalFiles,
		humanBytes(plan.Estimate.TotalSize),
		time.Duration(plan.Estimate.EstimatedTimeMs)*time.Millisecond)
	for _, msg := range plan.ScanErrors {
		logging.Warnf("scan: %s", msg)
	}
	fmt.Println(plan.RunID)
	return nil
}

// migrateExecute runs a plan. Re-running it on a partially executed plan
// resumes: completed items are never re-attempted.
func migrateExecute(args []string) error {
	fs := flag.NewFlagSet("migrate execute", flag.ExitOnError)
	runID := fs.String("run", "", "run id from 'migrate plan' (required)")

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	if *runID == "" {
		return fmt.Errorf("-run is required")
	}
	plan, err := env.app.Engine.LoadPlan(*runID)
	if err != nil {
		return err
	}

	report, err := env.app.Engine.Execute(env.ctx, plan)
	if err != nil {
		return err
	}

	logging.Infof("run %s finished: %d succeeded, %d failed, %d skipped (%.1f%% success)",
		report.RunID, report.Succeeded, report.Failed, report.Skipped, report.SuccessRate*100)
	for _, rec := range report.Recommendations {
		logging.Infof("recommendation: %s", rec)
	}
	return nil
}

func migrateReport(args []string) error {
	fs := flag.NewFlagSet("migrate report", flag.ExitOnError)
	runID := fs.String("run", "", "run id (required)")

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	if *runID == "" {
		return fmt.Errorf("-run is required")
	}
	report, err := env.app.Engine.LoadReport(*runID)
	if err != nil {
		return err
	}
	return printJSON(report)
}

func migrateRollbackPlan(args []string) error {
	fs := flag.NewFlagSet("migrate rollback-plan", flag.ExitOnError)
	runID := fs.String("run", "", "run id (required)")

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	if *runID == "" {
		return fmt.Errorf("-run is required")
	}
	plan, err := env.app.Engine.LoadPlan(*runID)
	if err != nil {
		return err
	}
	return printJSON(env.app.Engine.Rollback(plan))
}

func migrateVerifyBackups(args []string) error {
	fs := flag.NewFlagSet("migrate verify-backups", flag.ExitOnError)

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	result, err := env.app.Engine.VerifyBackups(env.ctx, env.app.Mirror)
	if err != nil {
		return err
	}
	if len(result.Missing) > 0 {
		if printErr := printJSON(result); printErr != nil {
			return printErr
		}
		return fmt.Errorf("%d of %d backups missing", len(result.Missing), result.Checked)
	}
	logging.Infof("all %d backups present (%d records without backups)", result.Checked, result.Skipped)
	return nil
}

func migrateListRuns(args []string) error {
	fs := flag.NewFlagSet("migrate runs", flag.ExitOnError)

	env, cleanup, err := buildMigrateEnv(fs, args)
	if err != nil {
		return err
	}
	defer cleanup()

	runs, err := env.app.Store.ListMigrationRuns(env.ctx)
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Printf("%s  %-15s  %s\n", run.ID, run.State, run.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func humanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
