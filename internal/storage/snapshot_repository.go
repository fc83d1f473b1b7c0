package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// ErrNoRuns is returned when nothing has been persisted yet
var ErrNoRuns = errors.New("no report runs stored")

// Run is one persisted aggregation
type Run struct {
	ID          uuid.UUID `json:"run_id"`
	Source      string    `json:"source"`
	Mode        string    `json:"mode"`
	RowCount    int       `json:"row_count"`
	EntityCount int       `json:"entity_count"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// Record is one latest_records row
type Record struct {
	Entity            string    `json:"iso_code"`
	Location          string    `json:"location"`
	Continent         string    `json:"continent"`
	Date              time.Time `json:"date"`
	Population        float64   `json:"population"`
	TotalVaccinations float64   `json:"total_vaccinations"`
	PeopleVaccinated  float64   `json:"people_vaccinated"`
	GDPPerCapita      float64   `json:"gdp_per_capita"`
	Ratio             *float64  `json:"ratio"` // nil when not finite
	Substituted       bool      `json:"substituted"`
}

// Counts summarises what is stored
type Counts struct {
	Runs    int64 `json:"runs"`
	Records int64 `json:"records"`
}

// RecordFromLatest flattens an aggregator record into its stored form
func RecordFromLatest(l contracts.Latest) Record {
	rec := Record{
		Entity:            l.Entity,
		Location:          l.Location(),
		Continent:         l.Row.TextOr(contracts.FieldContinent, ""),
		Date:              l.Date,
		Population:        l.Row.NumberOr(contracts.FieldPopulation, l.Denominator),
		TotalVaccinations: l.Row.NumberOr(contracts.FieldTotalVaccinations, 0),
		PeopleVaccinated:  l.Row.NumberOr(contracts.FieldPeopleVaccinated, 0),
		GDPPerCapita:      l.Row.NumberOr(contracts.FieldGDPPerCapita, 0),
		Substituted:       l.Substituted,
	}
	if l.Finite() {
		r := l.Ratio
		rec.Ratio = &r
	}
	return rec
}

// execer is satisfied by both *pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// SnapshotRepository persists aggregator snapshots
// ⭐ SSOT: report_runs and latest_records are written here only
type SnapshotRepository struct {
	pool *pgxpool.Pool
}

// NewSnapshotRepository creates a new snapshot repository
func NewSnapshotRepository(pool *pgxpool.Pool) *SnapshotRepository {
	return &SnapshotRepository{pool: pool}
}

const insertRun = `
	INSERT INTO report_runs (run_id, source, mode, row_count, entity_count, started_at, finished_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (run_id) DO UPDATE SET
		row_count = EXCLUDED.row_count,
		entity_count = EXCLUDED.entity_count,
		finished_at = EXCLUDED.finished_at`

const upsertRecord = `
	INSERT INTO latest_records
		(run_id, iso_code, location, continent, record_date, population,
		 total_vaccinations, people_vaccinated, gdp_per_capita, ratio, substituted)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	ON CONFLICT (run_id, iso_code) DO UPDATE SET
		location = EXCLUDED.location,
		continent = EXCLUDED.continent,
		record_date = EXCLUDED.record_date,
		population = EXCLUDED.population,
		total_vaccinations = EXCLUDED.total_vaccinations,
		people_vaccinated = EXCLUDED.people_vaccinated,
		gdp_per_capita = EXCLUDED.gdp_per_capita,
		ratio = EXCLUDED.ratio,
		substituted = EXCLUDED.substituted`

// SaveRun stores the run header
func (r *SnapshotRepository) SaveRun(ctx context.Context, run Run) error {
	return saveRun(ctx, r.pool, run)
}

// SaveLatest stores every record of a run in one batch
func (r *SnapshotRepository) SaveLatest(ctx context.Context, runID uuid.UUID, records []contracts.Latest) error {
	return saveLatest(ctx, r.pool, runID, records)
}

// SaveSnapshot stores the run and its records in one transaction
func (r *SnapshotRepository) SaveSnapshot(ctx context.Context, run Run, records []contracts.Latest) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	if err := saveRun(ctx, tx, run); err != nil {
		return err
	}
	if err := saveLatest(ctx, tx, run.ID, records); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func saveRun(ctx context.Context, db execer, run Run) error {
	_, err := db.Exec(ctx, insertRun,
		run.ID, run.Source, run.Mode, run.RowCount, run.EntityCount, run.StartedAt, run.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("save run %s: %w", run.ID, err)
	}
	return nil
}

func saveLatest(ctx context.Context, db execer, runID uuid.UUID, records []contracts.Latest) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, l := range records {
		rec := RecordFromLatest(l)
		batch.Queue(upsertRecord, runID, rec.Entity, rec.Location, rec.Continent, rec.Date,
			rec.Population, rec.TotalVaccinations, rec.PeopleVaccinated, rec.GDPPerCapita,
			rec.Ratio, rec.Substituted)
	}

	br := db.SendBatch(ctx, batch)
	defer br.Close()

	for _, l := range records {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("save latest %s: %w", l.Entity, err)
		}
	}
	return nil
}

// GetLatestRun returns the most recently finished run
func (r *SnapshotRepository) GetLatestRun(ctx context.Context) (*Run, error) {
	query := `
		SELECT run_id, source, mode, row_count, entity_count, started_at, finished_at
		FROM report_runs
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run Run
	err := r.pool.QueryRow(ctx, query).Scan(
		&run.ID, &run.Source, &run.Mode, &run.RowCount, &run.EntityCount, &run.StartedAt, &run.FinishedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuns
	}
	if err != nil {
		return nil, fmt.Errorf("get latest run: %w", err)
	}
	return &run, nil
}

// GetTop returns the n highest ratios of a run, non-finite last
func (r *SnapshotRepository) GetTop(ctx context.Context, runID uuid.UUID, n int) ([]Record, error) {
	if n <= 0 {
		return []Record{}, nil
	}

	query := `
		SELECT iso_code, location, continent, record_date, population,
		       total_vaccinations, people_vaccinated, gdp_per_capita, ratio, substituted
		FROM latest_records
		WHERE run_id = $1
		ORDER BY ratio DESC NULLS LAST, iso_code
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, runID, n)
	if err != nil {
		return nil, fmt.Errorf("get top %d: %w", n, err)
	}
	defer rows.Close()

	out := make([]Record, 0, n)
	for rows.Next() {
		var rec Record
		if err := rows.Scan(
			&rec.Entity, &rec.Location, &rec.Continent, &rec.Date, &rec.Population,
			&rec.TotalVaccinations, &rec.PeopleVaccinated, &rec.GDPPerCapita, &rec.Ratio, &rec.Substituted,
		); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Counts returns the number of stored runs and records
func (r *SnapshotRepository) Counts(ctx context.Context) (Counts, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM report_runs),
			(SELECT COUNT(*) FROM latest_records)
	`

	var c Counts
	if err := r.pool.QueryRow(ctx, query).Scan(&c.Runs, &c.Records); err != nil {
		return Counts{}, fmt.Errorf("count snapshots: %w", err)
	}
	return c, nil
}
