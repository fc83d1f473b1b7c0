package export

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	t := Table{Name: "top_vaccinated", Columns: []string{"rank", "iso_code", "ratio", "date"}}
	t.Append(1, "ARE", 98.5, time.Date(2021, 9, 1, 0, 0, 0, 0, time.UTC))
	t.Append(2, "MCO", math.Inf(1), time.Date(2021, 8, 30, 0, 0, 0, 0, time.UTC))
	return t
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, ""},
		{"string", "Norway", "Norway"},
		{"float", 12.5, "12.5"},
		{"whole float", 5e6, "5000000"},
		{"nan", math.NaN(), ""},
		{"inf", math.Inf(-1), ""},
		{"int", 7, "7"},
		{"bool", true, "true"},
		{"date", time.Date(2021, 1, 2, 15, 0, 0, 0, time.UTC), "2021-01-02"},
		{"unsupported", struct{}{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatValue(tt.in))
		})
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleTable()))

	want := "rank,iso_code,ratio,date\n" +
		"1,ARE,98.5,2021-09-01\n" +
		"2,MCO,,2021-08-30\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSVRaggedRow(t *testing.T) {
	tbl := Table{Columns: []string{"a", "b"}}
	tbl.Append("only one")

	err := WriteCSV(&bytes.Buffer{}, tbl)
	assert.Error(t, err)
}

func TestWriteXLSX(t *testing.T) {
	second := Table{Name: "gdp_correlation", Columns: []string{"iso_code", "gdp_per_capita"}}
	second.Append("NOR", 64800.057)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, sampleTable(), second))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"top_vaccinated", "gdp_correlation"}, f.GetSheetList())

	rows, err := f.GetRows("top_vaccinated")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"rank", "iso_code", "ratio", "date"}, rows[0])
	assert.Equal(t, "ARE", rows[1][1])
	assert.Equal(t, "2021-09-01", rows[1][3])

	v, err := f.GetCellValue("gdp_correlation", "A2")
	require.NoError(t, err)
	assert.Equal(t, "NOR", v)
}

func TestWriteXLSXNoTables(t *testing.T) {
	assert.Error(t, WriteXLSX(&bytes.Buffer{}))
}

func TestWriteGeoJSON(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	f := geojson.NewFeature(orb.Point{10, 60})
	f.Properties["iso_a3"] = "NOR"
	f.Properties["value"] = math.NaN()
	fc.Append(f)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, fc))

	var decoded struct {
		Type     string `json:"type"`
		Features []struct {
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "FeatureCollection", decoded.Type)
	require.Len(t, decoded.Features, 1)
	assert.Equal(t, "NOR", decoded.Features[0].Properties["iso_a3"])
	assert.Nil(t, decoded.Features[0].Properties["value"])

	// source collection untouched
	assert.True(t, math.IsNaN(f.Properties["value"].(float64)))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "top.csv")

	require.NoError(t, CSVFile(path, sampleTable()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "ARE")

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file removed")
}

func TestWriteFileFailureKeepsOld(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "top.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))

	err := WriteFile(path, func(w io.Writer) error {
		_, _ = w.Write([]byte("partial"))
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}
