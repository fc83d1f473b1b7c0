package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/pkg/logger"
	"github.com/wonny/vaxtrack/pkg/redis"
)

// ReportHandler serves report summaries
// ⭐ SSOT: report API handlers live in this struct only
type ReportHandler struct {
	source  report.Source
	builder *report.Builder
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewReportHandler creates a new report handler
func NewReportHandler(source report.Source, builder *report.Builder, cache *redis.Cache, log *logger.Logger) *ReportHandler {
	return &ReportHandler{
		source:  source,
		builder: builder,
		cache:   cache,
		logger:  log,
	}
}

// ReportInfo is one entry of the report list
type ReportInfo struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Outputs []string `json:"outputs"`
}

// ListReports returns the report definitions
// GET /api/reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	defs := h.builder.Definitions()

	out := make([]ReportInfo, 0, len(defs.Reports))
	for _, def := range defs.Reports {
		out = append(out, ReportInfo{ID: def.ID, Title: def.Title, Outputs: def.Outputs})
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    out,
	})
}

// GetReport builds one report and returns its summary
// GET /api/reports/{id}
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	if _, err := h.builder.Definitions().Get(id); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}

	var raw json.RawMessage
	err := h.cache.GetOrSet(ctx, redis.ReportKey(id), &raw, redis.TTLMedium, func() (interface{}, error) {
		table, err := h.source.Load(ctx, false)
		if err != nil {
			return nil, err
		}
		res, err := h.builder.Build(id, table)
		if err != nil {
			return nil, err
		}
		return res.Summary(), nil
	})
	if err != nil {
		h.logger.WithError(err).WithField("report", id).Error("Failed to build report")
		status := http.StatusInternalServerError
		if errors.Is(err, report.ErrNoWorld) {
			status = http.StatusServiceUnavailable
		}
		if errors.Is(err, contracts.ErrUnknownReport) {
			status = http.StatusNotFound
		}
		respondError(w, status, "Failed to build report")
		return
	}

	respondData(w, raw)
}
