package diag

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"assetstore/internal/models"
	"assetstore/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"error": map[string]string{"code": code, "message": message},
	})
}

func (s *server) handleStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Statistics())
}

// handleListFiles supports ?category= and inclusive ?from=/=to= date bounds
// (YYYY-MM-DD).
func (s *server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	var filter store.FileFilter

	if raw := r.URL.Query().Get("category"); raw != "" {
		category := models.FileCategory(raw)
		if !category.Valid() {
			writeError(w, http.StatusBadRequest, "invalid_category", "category must be document, image or video")
			return
		}
		filter.Category = &category
	}
	if raw := r.URL.Query().Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_from", "from must be YYYY-MM-DD")
			return
		}
		filter.From = &t
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_to", "to must be YYYY-MM-DD")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}

	records, err := s.svc.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"files": records, "count": len(records)})
}

func (s *server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	remoteID := chi.URLParam(r, "*")
	rec, err := s.svc.Lookup(r.Context(), remoteID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	if rec == nil {
		writeError(w, http.StatusNotFound, "not_found", "no ledger entry for "+remoteID)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListMigrationRuns(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"runs": runs, "count": len(runs)})
}

func (s *server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	runID := chi.URLParam(r, "runID")
	run, err := s.store.GetMigrationRun(r.Context(), runID)
	if err != nil {
		if errors.Is(err, store.ErrMigrationRunNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "no migration run "+runID)
			return
		}
		writeError(w, http.StatusInternalServerError, "lookup_failed", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, run)
}
