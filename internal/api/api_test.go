package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vaxtrack/internal/aggregate"
	"github.com/wonny/vaxtrack/internal/api/handlers"
	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/geo"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/report"
	"github.com/wonny/vaxtrack/internal/reportconfig"
	"github.com/wonny/vaxtrack/internal/storage"
	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/logger"
	"github.com/wonny/vaxtrack/pkg/redis"
)

type fakeRunStore struct {
	run *storage.Run
	err error
}

func (f *fakeRunStore) GetLatestRun(context.Context) (*storage.Run, error) {
	return f.run, f.err
}

func (f *fakeRunStore) GetTop(_ context.Context, _ uuid.UUID, n int) ([]storage.Record, error) {
	ratio := 99.5
	return []storage.Record{{Entity: "ARE", Ratio: &ratio}}[:min(n, 1)], nil
}

func (f *fakeRunStore) Counts(context.Context) (storage.Counts, error) {
	return storage.Counts{Runs: 1, Records: 4}, nil
}

func newTestRouter(t *testing.T, runs handlers.RunStore) http.Handler {
	t.Helper()
	return newRouterWith(t, reportconfig.Default(), "../owid/testdata/owid-sample.csv", runs)
}

func newRouterWith(t *testing.T, defs *reportconfig.Config, dataset string, runs handlers.RunStore) http.Handler {
	t.Helper()

	world, err := geo.LoadWorldFile("../geo/testdata/world-sample.geojson")
	require.NoError(t, err)

	log := logger.Nop()
	source := report.NewCachedSource(owid.NewLoader(nil, dataset, log), time.Hour)
	builder := report.NewBuilder(defs, world)
	cache := redis.NewCache(redis.Disabled(), "vaxtrack")

	h := Handlers{
		Report:      handlers.NewReportHandler(source, builder, cache, log),
		Vaccination: handlers.NewVaccinationHandler(source, builder, cache, log),
	}
	if runs != nil {
		h.Run = handlers.NewRunHandler(runs, log)
	}
	return NewRouter(h, log)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func get(t *testing.T, h http.Handler, path string) (int, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var body envelope
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	}
	return rec.Code, body
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestListReports(t *testing.T) {
	code, body := get(t, newTestRouter(t, nil), "/api/reports")
	require.Equal(t, http.StatusOK, code)

	var reports []handlers.ReportInfo
	require.NoError(t, json.Unmarshal(body.Data, &reports))
	assert.Len(t, reports, 4)
	assert.Equal(t, "top_vaccinated", reports[0].ID)
}

func TestGetReport(t *testing.T) {
	router := newTestRouter(t, nil)

	code, body := get(t, router, "/api/reports/top_vaccinated")
	require.Equal(t, http.StatusOK, code)
	assert.True(t, body.Success)

	var summary struct {
		ID  string `json:"id"`
		Top []struct {
			Rank   int     `json:"rank"`
			Entity string  `json:"entity"`
			Ratio  float64 `json:"ratio"`
		} `json:"top"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &summary))
	assert.Equal(t, "top_vaccinated", summary.ID)
	require.Len(t, summary.Top, 3)
	assert.Equal(t, "ARE", summary.Top[0].Entity)
	assert.Equal(t, 1, summary.Top[0].Rank)

	code, body = get(t, router, "/api/reports/gdp_map")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), "OWID_WRL", "unmatched entities listed")

	code, _ = get(t, router, "/api/reports/deaths")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestGetTop(t *testing.T) {
	router := newTestRouter(t, nil)

	code, body := get(t, router, "/api/vaccination/top?n=2&mode=last-seen")
	require.Equal(t, http.StatusOK, code)

	var top []struct {
		Rank   int    `json:"rank"`
		Entity string `json:"entity"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &top))
	require.Len(t, top, 2)
	assert.Equal(t, "ARE", top[0].Entity)
	assert.Equal(t, "NOR", top[1].Entity)

	code, body = get(t, router, "/api/vaccination/top?n=300")
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(body.Data, &top))
	assert.Len(t, top, 3)

	tests := []struct {
		name string
		path string
	}{
		{"non numeric n", "/api/vaccination/top?n=ten"},
		{"zero n", "/api/vaccination/top?n=0"},
		{"negative n", "/api/vaccination/top?n=-1"},
		{"n above max", "/api/vaccination/top?n=301"},
		{"unknown mode", "/api/vaccination/top?mode=first"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := get(t, router, tt.path)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.NotEmpty(t, body.Error)
		})
	}
}

// NOR's newest row comes first in the file, so the two modes disagree
const unsortedDataset = `iso_code,continent,location,date,total_cases,total_vaccinations,people_vaccinated,people_fully_vaccinated,new_vaccinations,population,gdp_per_capita
NOR,Europe,Norway,2021-11-30,252400,8540000,4282365,4000000,20000,5465629,64800.057
NOR,Europe,Norway,2021-11-28,250000,8500000,100000,3980000,20000,5465629,64800.057
FRA,Europe,France,2021-11-30,7630000,110300000,52100000,50100000,300000,67422000,38605.671
`

func TestGetTopUsesConfiguredMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owid.csv")
	require.NoError(t, os.WriteFile(path, []byte(unsortedDataset), 0o644))

	defs := reportconfig.Default()
	def, err := defs.Get(contracts.ReportTopVaccinated)
	require.NoError(t, err)
	require.NoError(t, defs.Replace(def.WithMode(aggregate.ModeLastSeen)))

	router := newRouterWith(t, defs, path, nil)

	entities := func(path string) []string {
		code, body := get(t, router, path)
		require.Equal(t, http.StatusOK, code)
		var top []struct {
			Entity string `json:"entity"`
		}
		require.NoError(t, json.Unmarshal(body.Data, &top))
		out := make([]string, len(top))
		for i, e := range top {
			out[i] = e.Entity
		}
		return out
	}

	// last_seen picks NOR's 2021-11-28 row: 1.83% against France's 77.27%
	assert.Equal(t, []string{"FRA", "NOR"}, entities("/api/vaccination/top?n=2"))
	assert.Equal(t, []string{"NOR", "FRA"}, entities("/api/vaccination/top?n=2&mode=max_date"))
	assert.Equal(t, []string{"FRA", "NOR"}, entities("/api/vaccination/top?n=2&mode=last_seen"))
}

func TestGetLatest(t *testing.T) {
	router := newTestRouter(t, nil)

	code, body := get(t, router, "/api/vaccination/latest/nor")
	require.Equal(t, http.StatusOK, code)

	var rec struct {
		Entity string  `json:"entity"`
		Date   string  `json:"date"`
		Ratio  float64 `json:"ratio"`
	}
	require.NoError(t, json.Unmarshal(body.Data, &rec))
	assert.Equal(t, "NOR", rec.Entity)
	assert.Equal(t, "2021-11-30", rec.Date)
	assert.InDelta(t, 78.35, rec.Ratio, 0.01)

	code, _ = get(t, router, "/api/vaccination/latest/ZZZ")
	assert.Equal(t, http.StatusNotFound, code)

	// excluded by the map's post-filters
	code, _ = get(t, router, "/api/vaccination/latest/OWID_WRL")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestLatestRun(t *testing.T) {
	run := &storage.Run{ID: uuid.New(), Source: "test", Mode: "max_date", EntityCount: 4}

	code, body := get(t, newTestRouter(t, &fakeRunStore{run: run}), "/api/runs/latest")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(body.Data), run.ID.String())
	assert.Contains(t, string(body.Data), `"records":4`)

	code, _ = get(t, newTestRouter(t, &fakeRunStore{err: storage.ErrNoRuns}), "/api/runs/latest")
	assert.Equal(t, http.StatusNotFound, code)

	// route absent without persistence
	rec := httptest.NewRecorder()
	newTestRouter(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestServerAddr(t *testing.T) {
	s := New(&config.Config{Port: "9999"}, logger.Nop(), http.NotFoundHandler())
	assert.Equal(t, ":9999", s.Addr())
}
