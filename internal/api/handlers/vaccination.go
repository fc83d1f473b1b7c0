package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/wonny/vaxtrack/internal/aggregate"
	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/pkg/logger"
	"github.com/wonny/vaxtrack/pkg/redis"
)

// DefaultTopN is the ranking size when n is not given
const DefaultTopN = 10

// MaxTopN bounds the ranking size of one request
const MaxTopN = 300

var errNotFound = errors.New("not found")

// VaccinationHandler serves rankings and latest records
type VaccinationHandler struct {
	source  report.Source
	builder *report.Builder
	cache   *redis.Cache
	logger  *logger.Logger
}

// NewVaccinationHandler creates a new vaccination handler
func NewVaccinationHandler(source report.Source, builder *report.Builder, cache *redis.Cache, log *logger.Logger) *VaccinationHandler {
	return &VaccinationHandler{
		source:  source,
		builder: builder,
		cache:   cache,
		logger:  log,
	}
}

// GetTop returns the n entities with the highest share vaccinated
// GET /api/vaccination/top?n=10&mode=max-date
func (h *VaccinationHandler) GetTop(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	n := DefaultTopN
	if s := q.Get("n"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = v
	}
	if n < 1 || n > MaxTopN {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("n must be between 1 and %d", MaxTopN))
		return
	}

	// Without ?mode= the configured definition decides
	builder := h.builder
	modeKey := "configured"
	if s := q.Get("mode"); s != "" {
		mode, err := aggregate.ParseMode(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
		builder = report.NewBuilder(h.builder.Definitions(), nil, report.WithMode(mode))
		modeKey = mode.String()
	}

	var raw json.RawMessage
	err := h.cache.GetOrSet(ctx, redis.TopKey(n, modeKey), &raw, redis.TTLMedium, func() (interface{}, error) {
		table, err := h.source.Load(ctx, false)
		if err != nil {
			return nil, err
		}
		return builder.Ranking(table, n)
	})
	if err != nil {
		h.logger.WithError(err).WithField("n", n).Error("Failed to rank entities")
		respondError(w, http.StatusInternalServerError, "Failed to rank entities")
		return
	}

	respondData(w, raw)
}

// GetLatest returns one entity's latest record
// GET /api/vaccination/latest/{iso}
func (h *VaccinationHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	iso := strings.ToUpper(mux.Vars(r)["iso"])

	if iso == "" {
		respondError(w, http.StatusBadRequest, "iso code is required")
		return
	}

	var raw json.RawMessage
	err := h.cache.GetOrSet(ctx, redis.LatestKey(iso), &raw, redis.TTLMedium, func() (interface{}, error) {
		table, err := h.source.Load(ctx, false)
		if err != nil {
			return nil, err
		}
		snap, _, err := h.builder.Snapshot(contracts.ReportVaccinationMap, table)
		if err != nil {
			return nil, err
		}
		rec, ok := snap.Get(iso)
		if !ok {
			return nil, errNotFound
		}
		return rec, nil
	})
	if errors.Is(err, errNotFound) {
		respondError(w, http.StatusNotFound, "no record for "+iso)
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("iso_code", iso).Error("Failed to get latest record")
		respondError(w, http.StatusInternalServerError, "Failed to get latest record")
		return
	}

	respondData(w, raw)
}
