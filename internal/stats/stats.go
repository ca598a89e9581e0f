package stats

import (
	"context"
	"sync"
	"time"

	"assetstore/internal/logging"
	"assetstore/internal/metrics"
	"assetstore/internal/models"
	"assetstore/internal/store"
)

const persistQueueCapacity = 256

type persistRequest struct {
	success  bool
	category models.FileCategory
	bytes    int64
	day      string
}

// Tracker keeps the upload counters in memory and persists them to the
// store asynchronously. A crash loses at most the updates still queued,
// which is acceptable for a non-critical observability feature.
type Tracker struct {
	mu   sync.Mutex
	snap models.StatisticsSnapshot

	store   *store.Store
	metrics *metrics.Metrics

	queue chan persistRequest
	done  chan struct{}

	now func() time.Time
}

// New loads the persisted counters and starts the persistence worker.
func New(ctx context.Context, st *store.Store, m *metrics.Metrics) (*Tracker, error) {
	snap, err := st.StatisticsSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	t := &Tracker{
		snap:    snap,
		store:   st,
		metrics: m,
		queue:   make(chan persistRequest, persistQueueCapacity),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go t.persistLoop()
	return t, nil
}

// Record applies one upload attempt. The total always moves; bytes and the
// per-category counters only move on success. The per-day bucket (local
// calendar date) is created lazily.
func (t *Tracker) Record(success bool, category models.FileCategory, bytes int64, duration time.Duration) {
	day := t.now().Format("2006-01-02")

	t.mu.Lock()
	t.snap.Total++
	if success {
		t.snap.Successful++
		t.snap.TotalBytes += bytes
		if t.snap.Categories == nil {
			t.snap.Categories = make(map[models.FileCategory]models.CategoryStats)
		}
		cs := t.snap.Categories[category]
		cs.Count++
		cs.Bytes += bytes
		t.snap.Categories[category] = cs
	} else {
		t.snap.Failed++
	}
	if t.snap.Days == nil {
		t.snap.Days = make(map[string]models.DayStats)
	}
	ds := t.snap.Days[day]
	ds.Uploads++
	if success {
		ds.Successes++
		ds.Bytes += bytes
	} else {
		ds.Failures++
	}
	t.snap.Days[day] = ds
	t.mu.Unlock()

	t.metrics.ObserveUpload(string(category), success, bytes, duration)

	select {
	case t.queue <- persistRequest{success: success, category: category, bytes: bytes, day: day}:
	default:
		logging.Warnf("statistics persistence queue full, dropping one update")
	}
}

// Snapshot returns a deep copy of the current counters.
func (t *Tracker) Snapshot() models.StatisticsSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := models.StatisticsSnapshot{
		Total:      t.snap.Total,
		Successful: t.snap.Successful,
		Failed:     t.snap.Failed,
		TotalBytes: t.snap.TotalBytes,
		Categories: make(map[models.FileCategory]models.CategoryStats, len(t.snap.Categories)),
		Days:       make(map[string]models.DayStats, len(t.snap.Days)),
	}
	for k, v := range t.snap.Categories {
		out.Categories[k] = v
	}
	for k, v := range t.snap.Days {
		out.Days[k] = v
	}
	return out
}

// Close drains the persistence queue and stops the worker.
func (t *Tracker) Close() {
	close(t.queue)
	<-t.done
}

func (t *Tracker) persistLoop() {
	defer close(t.done)
	for req := range t.queue {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := t.store.RecordUpload(ctx, req.success, req.category, req.bytes, req.day)
		cancel()
		if err != nil {
			logging.Warnf("persist statistics update: %v", err)
		}
	}
}
