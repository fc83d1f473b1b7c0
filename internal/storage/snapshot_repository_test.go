package storage

import (
	"context"
	"math"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/pkg/config"
	"github.com/wonny/vaxtrack/pkg/database"
)

func latest(entity string, ratio float64) contracts.Latest {
	return contracts.Latest{
		Row: contracts.Row{
			Strings: map[string]string{
				contracts.FieldISOCode:   entity,
				contracts.FieldLocation:  "Place " + entity,
				contracts.FieldContinent: "Europe",
			},
			Numbers: map[string]float64{
				contracts.FieldPopulation:        1000,
				contracts.FieldTotalVaccinations: 800,
				contracts.FieldPeopleVaccinated:  0,
				contracts.FieldGDPPerCapita:      42,
			},
		},
		Entity:      entity,
		Date:        time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC),
		Primary:     800,
		Substituted: true,
		Denominator: 1000,
		Ratio:       ratio,
	}
}

func TestRecordFromLatest(t *testing.T) {
	rec := RecordFromLatest(latest("NOR", 80))

	assert.Equal(t, "NOR", rec.Entity)
	assert.Equal(t, "Place NOR", rec.Location)
	assert.Equal(t, "Europe", rec.Continent)
	assert.Equal(t, 1000.0, rec.Population)
	assert.Equal(t, 800.0, rec.TotalVaccinations)
	assert.Equal(t, 0.0, rec.PeopleVaccinated, "raw column, not the substituted primary")
	assert.Equal(t, 42.0, rec.GDPPerCapita)
	assert.True(t, rec.Substituted)
	require.NotNil(t, rec.Ratio)
	assert.Equal(t, 80.0, *rec.Ratio)
}

func TestRecordFromLatestNonFinite(t *testing.T) {
	for _, r := range []float64{math.Inf(1), math.NaN()} {
		rec := RecordFromLatest(latest("ATA", r))
		assert.Nil(t, rec.Ratio)
	}
}

func TestRecordFromLatestMissingPassthrough(t *testing.T) {
	l := contracts.Latest{Entity: "XKX", Denominator: 1800000, Ratio: 10}
	rec := RecordFromLatest(l)

	assert.Equal(t, "XKX", rec.Location)
	assert.Equal(t, 1800000.0, rec.Population)
	assert.Empty(t, rec.Continent)
}

func TestIntegrationSnapshotRoundTrip(t *testing.T) {
	if os.Getenv("DATABASE_URL") == "" {
		t.Skip("DATABASE_URL not set, skipping integration test")
	}

	cfg, err := config.Load()
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, cfg)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate(ctx))

	repo := NewSnapshotRepository(db.Pool)

	now := time.Now().UTC().Truncate(time.Millisecond)
	run := Run{
		ID:          uuid.New(),
		Source:      "test",
		Mode:        "max_date",
		RowCount:    3,
		EntityCount: 3,
		StartedAt:   now,
		FinishedAt:  now.Add(time.Hour * 24 * 365 * 50), // newest
	}
	records := []contracts.Latest{latest("AAA", 10), latest("BBB", math.Inf(1)), latest("CCC", 90)}

	require.NoError(t, repo.SaveSnapshot(ctx, run, records))
	defer db.Pool.Exec(ctx, "DELETE FROM report_runs WHERE run_id = $1", run.ID) //nolint:errcheck

	got, err := repo.GetLatestRun(ctx)
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)

	top, err := repo.GetTop(ctx, run.ID, 5)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "CCC", top[0].Entity)
	assert.Equal(t, "AAA", top[1].Entity)
	assert.Nil(t, top[2].Ratio)

	counts, err := repo.Counts(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, counts.Records, int64(3))
}

func TestGetTopNonPositive(t *testing.T) {
	repo := NewSnapshotRepository(nil)
	top, err := repo.GetTop(context.Background(), uuid.New(), 0)
	require.NoError(t, err)
	assert.Empty(t, top)
}
