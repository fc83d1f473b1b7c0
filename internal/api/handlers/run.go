package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/wonny/vaxtrack/internal/storage"
	"github.com/wonny/vaxtrack/pkg/logger"
)

// RunStore reads persisted runs
type RunStore interface {
	GetLatestRun(ctx context.Context) (*storage.Run, error)
	GetTop(ctx context.Context, runID uuid.UUID, n int) ([]storage.Record, error)
	Counts(ctx context.Context) (storage.Counts, error)
}

// RunHandler serves persisted snapshots
type RunHandler struct {
	store  RunStore
	logger *logger.Logger
}

// NewRunHandler creates a new run handler
func NewRunHandler(store RunStore, log *logger.Logger) *RunHandler {
	return &RunHandler{store: store, logger: log}
}

// GetLatestRun returns the newest run with its top records
// GET /api/runs/latest?n=10
func (h *RunHandler) GetLatestRun(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	n := DefaultTopN
	if s := r.URL.Query().Get("n"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 && v <= MaxTopN {
			n = v
		}
	}

	run, err := h.store.GetLatestRun(ctx)
	if errors.Is(err, storage.ErrNoRuns) {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest run")
		respondError(w, http.StatusInternalServerError, "Failed to get latest run")
		return
	}

	top, err := h.store.GetTop(ctx, run.ID, n)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", run.ID.String()).Error("Failed to get top records")
		respondError(w, http.StatusInternalServerError, "Failed to get top records")
		return
	}

	counts, err := h.store.Counts(ctx)
	if err != nil {
		h.logger.WithError(err).Error("Failed to count snapshots")
		respondError(w, http.StatusInternalServerError, "Failed to count snapshots")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"run":    run,
			"top":    top,
			"counts": counts,
		},
	})
}
