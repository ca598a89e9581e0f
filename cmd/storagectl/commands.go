package main

import (
	"flag"
	"fmt"

	"assetstore/internal/app"
	"assetstore/internal/logging"
	"assetstore/internal/storage"
)

func cmdVerify(args []string) error {
	fs := flag.NewFlagSet("verify", flag.ExitOnError)
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("missing credentials: %v", missing)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.Build(ctx, *cfg, ledgerPath(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Gateway.Verify(ctx); err != nil {
		return err
	}
	if err := a.Store.Ping(ctx); err != nil {
		return fmt.Errorf("ledger database: %w", err)
	}
	logging.Infof("credentials, remote connectivity and ledger database OK")
	return nil
}

// cmdTestUpload runs a full round trip: upload a probe document, confirm
// the ledger entry, then delete it with remote confirmation.
func cmdTestUpload(args []string) error {
	fs := flag.NewFlagSet("test-upload", flag.ExitOnError)
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.Build(ctx, *cfg, ledgerPath(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	probe := []byte("storage connectivity probe\n")
	res := a.Service.Upload(ctx, probe, "connectivity-probe.txt", storage.Options{
		MimeType: "text/plain",
		Tags:     []string{"probe"},
	})
	if !res.Success {
		return fmt.Errorf("probe upload failed: %s", res.Error)
	}
	logging.Infof("probe uploaded as %s", res.Remote.ID)

	rec, err := a.Service.Lookup(ctx, res.Remote.ID)
	if err != nil || rec == nil {
		return fmt.Errorf("probe ledger entry missing: %v", err)
	}

	del := a.Service.Delete(ctx, res.Remote.ID)
	if !del.Success {
		return fmt.Errorf("probe delete failed: %s (%s)", del.Error, del.Raw)
	}
	logging.Infof("probe deleted and confirmed gone; round trip OK")
	return nil
}

func cmdSetupDirs(args []string) error {
	fs := flag.NewFlagSet("setup-dirs", flag.ExitOnError)
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	logging.Infof("directory layout ready under %s and %s", cfg.BackupRoot, cfg.MigrationRoot)
	return nil
}

func cmdFullSetup(args []string) error {
	fs := flag.NewFlagSet("full-setup", flag.ExitOnError)
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	logging.Infof("directories created")

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		return fmt.Errorf("missing credentials: %v", missing)
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.Build(ctx, *cfg, ledgerPath(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Gateway.Verify(ctx); err != nil {
		return err
	}
	logging.Infof("remote connectivity OK")

	probe := []byte("storage connectivity probe\n")
	res := a.Service.Upload(ctx, probe, "connectivity-probe.txt", storage.Options{MimeType: "text/plain"})
	if !res.Success {
		return fmt.Errorf("probe upload failed: %s", res.Error)
	}
	if del := a.Service.Delete(ctx, res.Remote.ID); !del.Success {
		return fmt.Errorf("probe delete failed: %s", del.Error)
	}
	logging.Infof("full setup complete")
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	cfg := baseFlags(fs)
	if err := parseFlags(fs, cfg, args); err != nil {
		return err
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	ctx, stop := signalContext()
	defer stop()

	a, err := app.Build(ctx, *cfg, ledgerPath(cfg))
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.Gateway.Configured() {
		logging.Warnf("remote credentials missing (%v); uploads will fail until provided", cfg.MissingCredentials())
	}
	return a.Serve(ctx)
}
