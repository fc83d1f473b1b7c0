package geo

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vaxtrack/internal/contracts"
)

func loadSample(t *testing.T) *World {
	t.Helper()
	w, err := LoadWorldFile("testdata/world-sample.geojson")
	require.NoError(t, err)
	return w
}

func TestLoadWorldAppliesOverridesByName(t *testing.T) {
	w := loadSample(t)
	require.Len(t, w.Countries, 6)

	tests := []struct {
		code string
		name string
	}{
		{"NOR", "Norway"},
		{"FRA", "France"},
		{"OWID_KOS", "Kosovo"},
		{"ARE", "United Arab Emirates"},
	}
	for _, tt := range tests {
		c, ok := w.Lookup(tt.code)
		require.True(t, ok, tt.code)
		assert.Equal(t, tt.name, c.Name)
	}

	_, ok := w.Lookup(MissingCode)
	assert.False(t, ok, "-99 is never indexed")
	assert.Equal(t, []string{"ARE", "ATA", "FRA", "NOR", "OWID_KOS", "TKM"}, w.Codes())
}

func TestCodeOverridesTable(t *testing.T) {
	assert.Equal(t, map[string]string{
		"Norway":     "NOR",
		"France":     "FRA",
		"N. Cyprus":  "OWID_NCY",
		"Somaliland": "SOM",
		"Kosovo":     "OWID_KOS",
	}, CodeOverrides)
	assert.Equal(t, 6966.64, SupplementalGDP["TKM"])
}

func TestLoadWorldInvalid(t *testing.T) {
	_, err := LoadWorld(strings.NewReader(`{"type": "nope"`))
	assert.Error(t, err)

	_, err = LoadWorldFile("testdata/absent.geojson")
	assert.Error(t, err)
}

func TestWorldBound(t *testing.T) {
	b := loadSample(t).Bound()
	assert.Equal(t, -180.0, b.Min[0])
	assert.Equal(t, -90.0, b.Min[1])
	assert.Equal(t, 180.0, b.Max[0])
	assert.Equal(t, 71.0, b.Max[1])
}

func TestJoinLeftFromData(t *testing.T) {
	w := loadSample(t)

	j := Join(w, []contracts.GeoValue{
		{Entity: "NOR", Value: 78.3},
		{Entity: "OWID_KOS", Value: 40.1},
		{Entity: "GIB", Name: "Gibraltar", Value: 120.4},
	})

	require.Len(t, j.Rows, 3)
	assert.True(t, j.Rows[0].Value.Matched)
	assert.Equal(t, "Norway", j.Rows[0].Value.Name)
	assert.False(t, j.Rows[2].Value.Matched)
	assert.Equal(t, "Gibraltar", j.Rows[2].Value.Name)
	assert.Equal(t, []string{"GIB"}, j.Unmatched)
	assert.Len(t, j.Matched(), 2)
	assert.Same(t, w, j.World())

	fc := j.FeatureCollection()
	require.Len(t, fc.Features, 2)
	assert.Equal(t, "NOR", fc.Features[0].Properties[PropCode])
	assert.Equal(t, 78.3, fc.Features[0].Properties[PropValue])
}

func TestWithSupplemental(t *testing.T) {
	values := []contracts.GeoValue{{Entity: "NOR", Value: 64800}}

	out := WithSupplemental(values, SupplementalGDP)
	require.Len(t, out, 2)
	assert.Equal(t, "TKM", out[1].Entity)
	assert.Equal(t, 6966.64, out[1].Value)
	assert.Len(t, values, 1, "input slice is not modified")

	// an entity already present is not duplicated
	again := WithSupplemental(out, SupplementalGDP)
	assert.Len(t, again, 2)

	// a zero value counts as missing, a real one wins
	filled := WithSupplemental([]contracts.GeoValue{{Entity: "TKM", Value: 0}}, SupplementalGDP)
	require.Len(t, filled, 1)
	assert.Equal(t, 6966.64, filled[0].Value)

	kept := WithSupplemental([]contracts.GeoValue{{Entity: "TKM", Value: 7100}}, SupplementalGDP)
	assert.Equal(t, 7100.0, kept[0].Value)
}
