package owid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/httputil"
	"github.com/wonny/vaxtrack/pkg/logger"
)

const samplePath = "testdata/owid-sample.csv"

func TestLoadFileProjectsAndFills(t *testing.T) {
	table, err := LoadFile(samplePath)
	require.NoError(t, err)

	require.Equal(t, 9, table.Len())
	assert.Equal(t, []string{"NOR", "FRA", "ARE", "MCO", "OWID_WRL", "TKM"}, table.Entities())

	first := table.Rows[0]
	assert.Equal(t, 0, first.Seq)
	assert.Equal(t, "Norway", first.Strings[contracts.FieldLocation])
	assert.Equal(t, 4270000.0, first.Numbers[contracts.FieldPeopleVaccinated])
	assert.Equal(t, 64800.057, first.Numbers[contracts.FieldGDPPerCapita])

	// non-projected columns are dropped
	assert.False(t, first.Has("new_cases"))
	assert.False(t, first.Has("human_development_index"))

	// blank numerics become 0
	assert.Equal(t, 0.0, table.Rows[1].Numbers[contracts.FieldPeopleVaccinated])
	assert.Equal(t, 0.0, table.Rows[6].Numbers[contracts.FieldGDPPerCapita])

	// blank text becomes ""
	world := table.Rows[7]
	assert.Equal(t, "", world.Strings[contracts.FieldContinent])
	assert.Equal(t, "World", world.Strings[contracts.FieldLocation])

	for _, row := range table.Rows {
		for _, c := range Columns() {
			assert.True(t, row.Has(c), "row %d lacks %s", row.Seq, c)
		}
	}
}

func TestParseMissingColumn(t *testing.T) {
	csv := "iso_code,continent,location,date,total_cases\nNOR,Europe,Norway,2021-11-30,1\n"

	_, err := Parse(strings.NewReader(csv), "inline")
	require.Error(t, err)

	var se *contracts.SchemaError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, -1, se.Row)
	assert.Equal(t, contracts.FieldTotalVaccinations, se.Field)
}

func TestColumns(t *testing.T) {
	cols := Columns()
	assert.Len(t, cols, 11)
	assert.Equal(t, contracts.FieldISOCode, cols[0])
	assert.Equal(t, contracts.FieldGDPPerCapita, cols[10])
}

func testClient(url string) *Client {
	cfg := &config.Config{
		Dataset: config.DatasetConfig{Timeout: 5 * time.Second, RequestsPerSec: 1000},
	}
	hc := httputil.New(cfg, logger.Nop()).WithRetry(1, time.Millisecond)
	return NewClient(hc, url, logger.Nop())
}

func serveSample(t *testing.T) *httptest.Server {
	t.Helper()
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)

	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = w.Write(data)
	}))
}

func TestDownloadAtomic(t *testing.T) {
	server := serveSample(t)
	defer server.Close()

	dest := filepath.Join(t.TempDir(), "cache", "owid.csv")
	n, err := testClient(server.URL).Download(context.Background(), dest)
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp file must not be left behind")
	assert.Equal(t, "owid.csv", entries[0].Name())

	table, err := LoadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, 9, table.Len())
}

func TestFetchStatusError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	_, err := testClient(server.URL).Fetch(context.Background())
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
}

func TestLoaderDownloadsWhenMissing(t *testing.T) {
	var hits int32
	data, err := os.ReadFile(samplePath)
	require.NoError(t, err)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(data)
	}))
	defer server.Close()

	cache := filepath.Join(t.TempDir(), "owid.csv")
	loader := NewLoader(testClient(server.URL), cache, logger.Nop())

	table, err := loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 9, table.Len())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// cached copy is reused
	_, err = loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	// refresh forces a download
	_, err = loader.Load(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestLoaderCacheOnly(t *testing.T) {
	loader := NewLoader(nil, filepath.Join(t.TempDir(), "absent.csv"), logger.Nop())
	_, err := loader.Load(context.Background(), false)
	assert.Error(t, err)

	loader = NewLoader(nil, samplePath, logger.Nop())
	table, err := loader.Load(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 9, table.Len())
}
