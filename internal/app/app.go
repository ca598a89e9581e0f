// Package app wires the storage subsystem together: database, ledger,
// statistics, gateway, mirror, migration engine and the diagnostics server.
package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"assetstore/internal/config"
	"assetstore/internal/db"
	"assetstore/internal/diag"
	"assetstore/internal/events"
	"assetstore/internal/gateway"
	"assetstore/internal/logging"
	"assetstore/internal/metrics"
	"assetstore/internal/migration"
	"assetstore/internal/mirror"
	"assetstore/internal/stats"
	"assetstore/internal/storage"
	"assetstore/internal/store"
)

// App is the assembled subsystem. Close releases the tracker and the
// database; callers own everything in between.
type App struct {
	Config  config.Config
	Store   *store.Store
	Gateway *gateway.Gateway
	Mirror  *mirror.Mirror
	Tracker *stats.Tracker
	Metrics *metrics.Metrics
	Hub     *events.Hub
	Service *storage.Service
	Engine  *migration.Engine
}

// Build assembles every component from configuration. Missing credentials
// do not fail the build; the gateway starts unconfigured and remote calls
// fail fast until credentials are provided.
func Build(ctx context.Context, cfg config.Config, sqlitePath string) (*App, error) {
	backend, err := db.ParseBackend(cfg.DBBackend)
	if err != nil {
		return nil, err
	}
	gormDB, err := db.Open(db.Config{
		Backend:     backend,
		SQLitePath:  sqlitePath,
		DatabaseURL: cfg.DatabaseURL,
	})
	if err != nil {
		return nil, err
	}
	st := store.New(gormDB)

	m := metrics.New()
	tracker, err := stats.New(ctx, st, m)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	gw, err := gateway.New(ctx, cfg)
	if err != nil {
		tracker.Close()
		_ = st.Close()
		return nil, err
	}

	hub := events.NewHub()
	mir := mirror.New(cfg.BackupRoot, cfg.BackupsDisabled, st)
	svc := storage.New(gw, mir, tracker, m, hub)
	eng := migration.New(svc, st, m, hub, cfg.MigrationRoot)

	return &App{
		Config:  cfg,
		Store:   st,
		Gateway: gw,
		Mirror:  mir,
		Tracker: tracker,
		Metrics: m,
		Hub:     hub,
		Service: svc,
		Engine:  eng,
	}, nil
}

func (a *App) Close() {
	a.Tracker.Close()
	if err := a.Store.Close(); err != nil {
		logging.Warnf("closing store: %v", err)
	}
}

// Serve runs the diagnostics HTTP server until the context is cancelled,
// then shuts it down gracefully.
func (a *App) Serve(ctx context.Context) error {
	handler := diag.New(diag.Dependencies{
		Service: a.Service,
		Store:   a.Store,
		Metrics: a.Metrics,
		Hub:     a.Hub,
	})

	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Infof("diagnostics server listening on %s", a.Config.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logging.Infof("diagnostics server stopped")
	return nil
}
