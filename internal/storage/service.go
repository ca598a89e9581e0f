package storage

import (
	"context"
	"fmt"
	"time"

	"assetstore/internal/classifier"
	"assetstore/internal/events"
	"assetstore/internal/gateway"
	"assetstore/internal/logging"
	"assetstore/internal/metrics"
	"assetstore/internal/mirror"
	"assetstore/internal/models"
	"assetstore/internal/stats"
	"assetstore/internal/store"
)

// Service is the single public entry point for ingestion: it classifies,
// uploads through the gateway, mirrors locally, updates statistics and
// returns one unified result. Dependencies are injected so tests can build
// isolated instances.
type Service struct {
	gateway *gateway.Gateway
	mirror  *mirror.Mirror
	tracker *stats.Tracker
	metrics *metrics.Metrics
	hub     *events.Hub

	now func() time.Time
}

// Options is the caller-facing upload option set. Every recognized option
// is an explicit field; zero values mean preset defaults.
type Options struct {
	// MimeType is the client-supplied content type; it may be absent or
	// generic and is only a classification hint.
	MimeType string
	// Folder overrides the preset target folder.
	Folder string
	Tags   []string
	// Context is free-form caller metadata stored with the remote object.
	Context map[string]string
	// Transformations are extra remote-side transformation hints.
	Transformations []string
	// PresetOverride routes into a named preset (for example "avatars")
	// instead of the classified default.
	PresetOverride string
	// SkipBackup suppresses the local mirror copy for this upload. The
	// ledger entry is still written.
	SkipBackup bool
}

func New(gw *gateway.Gateway, mir *mirror.Mirror, tracker *stats.Tracker, m *metrics.Metrics, hub *events.Hub) *Service {
	return &Service{
		gateway: gw,
		mirror:  mir,
		tracker: tracker,
		metrics: m,
		hub:     hub,
		now:     time.Now,
	}
}

// Upload ingests one buffer. Remote failure returns immediately with a
// failure result (no backup, statistics record a failure). A failed local
// backup never masks a successful remote upload; it only clears
// BackupCreated.
func (s *Service) Upload(ctx context.Context, buf []byte, filename string, opts Options) models.UploadResult {
	start := s.now()

	cls := classifier.Classify(filename, opts.MimeType)
	preset := cls.Preset
	if opts.PresetOverride != "" {
		if p, ok := classifier.PresetByName(opts.PresetOverride); ok {
			preset = p
		} else {
			logging.Warnf("unknown preset override %q for %s, using %q", opts.PresetOverride, filename, preset.Name)
		}
	}

	if int64(len(buf)) > preset.MaxBytes {
		res := models.UploadResult{
			Success:     false,
			Error:       fmt.Sprintf("%s exceeds the %s size limit (%d > %d bytes)", filename, preset.Name, len(buf), preset.MaxBytes),
			Filename:    filename,
			Size:        int64(len(buf)),
			AttemptedAt: start,
		}
		s.recordFailure(cls.Category, start, res)
		return res
	}

	folder := opts.Folder
	if folder == "" {
		folder = preset.Folder
	}
	gwOpts := gateway.UploadOptions{
		Folder:          folder,
		Tags:            opts.Tags,
		Context:         opts.Context,
		Transformations: opts.Transformations,
	}

	var res models.UploadResult
	if cls.Category == models.CategoryDocument {
		res = s.gateway.UploadDocument(ctx, buf, filename, gwOpts)
	} else {
		res = s.gateway.UploadMedia(ctx, buf, filename, cls.ResourceKind, gwOpts)
	}

	if !res.Success {
		s.recordFailure(cls.Category, start, res)
		return res
	}

	var backup mirror.BackupResult
	if opts.SkipBackup {
		backup = mirror.BackupResult{Success: true, Skipped: true}
	} else {
		backup = s.mirror.Backup(buf, filename, res.Remote.ID, cls.Category, preset.Folder)
	}
	switch {
	case backup.Skipped:
		s.metrics.IncBackup("skipped")
	case backup.Success:
		s.metrics.IncBackup("success")
		res.Backup = &models.BackupInfo{Path: backup.Path, Filename: backup.Filename}
		res.BackupCreated = true
	default:
		// The remote copy is authoritative; a backup failure is only a
		// metadata flag on an otherwise successful upload.
		s.metrics.IncBackup("failure")
		logging.Warnf("local backup for %s failed: %s", res.Remote.ID, backup.Error)
	}

	rec := models.FileRecord{
		RemoteID:     res.Remote.ID,
		OriginalName: filename,
		Category:     cls.Category,
		BackupPath:   backup.Path,
		Size:         int64(len(buf)),
		UploadedAt:   res.Remote.CreatedAt,
	}
	if err := s.mirror.LedgerPut(ctx, rec); err != nil {
		logging.Warnf("ledger entry for %s: %v", res.Remote.ID, err)
	}

	res.DownloadURL = s.gateway.DownloadURL(ctx, res.Remote, filename)
	res.ViewURL = s.gateway.ViewURL(res.Remote)

	s.tracker.Record(true, cls.Category, int64(len(buf)), s.now().Sub(start))
	s.hub.Publish(events.Event{
		Type: events.TypeUploadCompleted,
		Payload: map[string]any{
			"remoteId": res.Remote.ID,
			"category": cls.Category,
			"size":     len(buf),
		},
	})
	return res
}

func (s *Service) recordFailure(category models.FileCategory, start time.Time, res models.UploadResult) {
	s.tracker.Record(false, category, 0, s.now().Sub(start))
	s.metrics.IncUploadError("upload_failed")
	s.hub.Publish(events.Event{
		Type: events.TypeUploadFailed,
		Payload: map[string]any{
			"filename": res.Filename,
			"error":    res.Error,
		},
	})
}

// Delete removes the remote object and cleans up the local side. A missing
// ledger entry is not an error: deletion proceeds with an auto-detected
// resource kind. Local cleanup failure after a confirmed remote delete is
// logged but does not fail the operation: the authoritative copy is gone.
func (s *Service) Delete(ctx context.Context, remoteID string) models.DeleteResult {
	kind := models.ResourceAuto
	rec, err := s.mirror.LedgerLookup(ctx, remoteID)
	if err != nil {
		logging.Warnf("ledger lookup for %s: %v", remoteID, err)
	} else if rec != nil {
		kind = resourceKindFor(rec.Category)
	}

	res := s.gateway.Delete(ctx, remoteID, kind)
	s.metrics.IncDelete(res.Success)
	if !res.Success {
		return res
	}

	if err := s.mirror.LedgerRemove(ctx, remoteID); err != nil {
		logging.Warnf("ledger cleanup for %s after delete: %v", remoteID, err)
	}
	s.hub.Publish(events.Event{
		Type:    events.TypeDeleteCompleted,
		Payload: map[string]any{"remoteId": remoteID},
	})
	return res
}

// Statistics returns the current counter snapshot.
func (s *Service) Statistics() models.StatisticsSnapshot {
	return s.tracker.Snapshot()
}

// Lookup returns the ledger record for an identifier, or nil when unknown.
func (s *Service) Lookup(ctx context.Context, remoteID string) (*models.FileRecord, error) {
	return s.mirror.LedgerLookup(ctx, remoteID)
}

// List returns ledger records filtered by category and upload-date range.
// It reads only the ledger, never the remote store.
func (s *Service) List(ctx context.Context, filter store.FileFilter) ([]models.FileRecord, error) {
	return s.mirror.List(ctx, filter)
}

func resourceKindFor(category models.FileCategory) models.ResourceKind {
	switch category {
	case models.CategoryImage:
		return models.ResourceImage
	case models.CategoryVideo:
		return models.ResourceVideo
	default:
		return models.ResourceRaw
	}
}
