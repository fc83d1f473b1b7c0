package contracts

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() Row {
	return Row{
		Seq: 7,
		Strings: map[string]string{
			FieldISOCode:  "NOR",
			FieldLocation: "Norway",
			FieldDate:     "2021-11-30",
		},
		Numbers: map[string]float64{
			FieldPopulation:       5465629,
			FieldPeopleVaccinated: 4282365,
		},
	}
}

func TestRowAccessors(t *testing.T) {
	row := sampleRow()

	iso, err := row.Text(FieldISOCode)
	require.NoError(t, err)
	assert.Equal(t, "NOR", iso)

	pop, err := row.Number(FieldPopulation)
	require.NoError(t, err)
	assert.Equal(t, 5465629.0, pop)

	day, err := row.Date(FieldDate)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC), day)

	assert.True(t, row.Has(FieldPopulation))
	assert.True(t, row.Has(FieldLocation))
	assert.False(t, row.Has(FieldGDPPerCapita))
	assert.Equal(t, "x", row.TextOr(FieldContinent, "x"))
	assert.Equal(t, 3.0, row.NumberOr(FieldGDPPerCapita, 3))
}

func TestRowMissingFieldIsSchemaError(t *testing.T) {
	row := sampleRow()

	tests := []struct {
		name  string
		call  func() error
		field string
	}{
		{"text", func() error { _, err := row.Text(FieldContinent); return err }, FieldContinent},
		{"number", func() error { _, err := row.Number(FieldGDPPerCapita); return err }, FieldGDPPerCapita},
		{"date", func() error { _, err := row.Date("last_updated"); return err }, "last_updated"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.call()
			require.Error(t, err)

			var se *SchemaError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.field, se.Field)
			assert.Equal(t, 7, se.Row)
			assert.Contains(t, err.Error(), tt.field)
			assert.True(t, IsSchemaError(err))
		})
	}
}

func TestRowInvalidDate(t *testing.T) {
	row := sampleRow()
	row.Strings[FieldDate] = "30/11/2021"

	_, err := row.Date(FieldDate)
	var se *SchemaError
	require.ErrorAs(t, err, &se)
	assert.Contains(t, se.Reason, "invalid date")
}

func TestSchemaErrorTableLevel(t *testing.T) {
	err := &SchemaError{Field: FieldPopulation, Row: -1}
	assert.Equal(t, `schema: field "population": missing`, err.Error())
}

func TestLatestFinite(t *testing.T) {
	tests := []struct {
		ratio float64
		want  bool
	}{
		{50, true},
		{0, true},
		{math.Inf(1), false},
		{math.Inf(-1), false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Latest{Ratio: tt.ratio}.Finite(), "ratio %v", tt.ratio)
	}
}

func TestLatestMarshalJSONNonFinite(t *testing.T) {
	rec := Latest{
		Row:    sampleRow(),
		Entity: "NOR",
		Date:   time.Date(2021, 11, 30, 0, 0, 0, 0, time.UTC),
		Ratio:  math.Inf(1),
	}

	data, err := json.Marshal(rec)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Nil(t, got["ratio"])
	assert.Equal(t, "Norway", got["location"])
	assert.Equal(t, "2021-11-30", got["date"])
}

func TestRankedEntityMarshalJSON(t *testing.T) {
	data, err := json.Marshal(RankedEntity{Rank: 2, Latest: Latest{Entity: "GIB", Ratio: 120.5}})
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, float64(2), got["rank"])
	assert.Equal(t, 120.5, got["ratio"])
	assert.Equal(t, "GIB", got["entity"])
}

func TestSnapshot(t *testing.T) {
	snap := NewSnapshot([]Latest{
		{Entity: "NOR", Ratio: 1},
		{Entity: "FRA", Ratio: 2},
		{Entity: "NOR", Ratio: 3},
	})

	assert.Equal(t, 2, snap.Len())
	assert.Equal(t, []string{"NOR", "FRA"}, snap.Entities())

	nor, ok := snap.Get("NOR")
	require.True(t, ok)
	assert.Equal(t, 3.0, nor.Ratio)

	_, ok = snap.Get("SWE")
	assert.False(t, ok)

	byEntity := snap.ByEntity()
	assert.Len(t, byEntity, 2)
	assert.Equal(t, 2.0, byEntity["FRA"].Ratio)

	records := snap.Records()
	records[0].Ratio = 99
	again, _ := snap.Get("NOR")
	assert.Equal(t, 3.0, again.Ratio, "Records must return a copy")
}

func TestNilSnapshot(t *testing.T) {
	var snap *Snapshot
	assert.Zero(t, snap.Len())
	assert.Nil(t, snap.Entities())
	assert.Empty(t, snap.ByEntity())
	_, ok := snap.Get("NOR")
	assert.False(t, ok)
}
