package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/export"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/reportconfig"
	"github.com/wonny/vaxtrack/internal/storage"
	"github.com/wonny/vaxtrack/pkg/logger"
)

// Source provides the dataset
type Source interface {
	Load(ctx context.Context, refresh bool) (*owid.Table, error)
}

// SnapshotStore persists the snapshot of a run
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, run storage.Run, records []contracts.Latest) error
}

// DefaultParallelism bounds concurrent artefact writers
const DefaultParallelism = 4

// RunOptions selects what a run does
type RunOptions struct {
	IDs     []string // empty or "all" runs every defined report
	Refresh bool     // download the dataset even when cached
}

// RunSummary describes one completed run
type RunSummary struct {
	RunID      uuid.UUID `json:"run_id"`
	Source     string    `json:"source"`
	ConfigHash string    `json:"config_hash"`
	Rows       int       `json:"rows"`
	Reports    []Summary `json:"reports"`
	Persisted  bool      `json:"persisted"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
}

// Duration returns how long the run took
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Runner loads the dataset, builds reports and writes their artefacts
type Runner struct {
	source      Source
	builder     *Builder
	outDir      string
	store       SnapshotStore
	logger      *logger.Logger
	parallelism int
}

// NewRunner creates a runner writing artefacts under outDir
func NewRunner(source Source, builder *Builder, outDir string, log *logger.Logger) *Runner {
	return &Runner{
		source:      source,
		builder:     builder,
		outDir:      outDir,
		logger:      log.Module("report"),
		parallelism: DefaultParallelism,
	}
}

// WithStore enables snapshot persistence
func (r *Runner) WithStore(store SnapshotStore) *Runner {
	r.store = store
	return r
}

// WithParallelism sets the number of concurrent artefact writers
func (r *Runner) WithParallelism(n int) *Runner {
	if n > 0 {
		r.parallelism = n
	}
	return r
}

// Resolve expands "all" and checks every id against the definitions
func (r *Runner) Resolve(ids []string) ([]string, error) {
	defs := r.builder.Definitions()
	if len(ids) == 0 || (len(ids) == 1 && ids[0] == "all") {
		return defs.IDs(), nil
	}
	for _, id := range ids {
		if _, err := defs.Get(id); err != nil {
			return nil, err
		}
	}
	return ids, nil
}

// Run builds the selected reports and writes their artefacts
func (r *Runner) Run(ctx context.Context, opts RunOptions) (*RunSummary, error) {
	started := time.Now()

	ids, err := r.Resolve(opts.IDs)
	if err != nil {
		return nil, err
	}

	hash, err := reportconfig.Hash(r.builder.Definitions())
	if err != nil {
		return nil, fmt.Errorf("hash report config: %w", err)
	}

	summary := &RunSummary{
		RunID:      uuid.New(),
		ConfigHash: hash,
		StartedAt:  started,
	}
	log := r.logger.WithField("run_id", summary.RunID.String())

	// 1. Dataset
	table, err := r.source.Load(ctx, opts.Refresh)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	summary.Source = table.Source
	summary.Rows = table.Len()

	// 2. Build
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		res, err := r.builder.Build(id, table)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", id, err)
		}
		results = append(results, res)
	}

	// 3. Artefacts
	written, err := r.writeArtefacts(ctx, results)
	if err != nil {
		return nil, err
	}

	for i, res := range results {
		s := res.Summary()
		s.Artefacts = written[i]
		summary.Reports = append(summary.Reports, s)

		log.WithFields(map[string]interface{}{
			"report":    s.ID,
			"entities":  s.Stats.Entities,
			"excluded":  s.Stats.Excluded,
			"artefacts": len(s.Artefacts),
		}).Info("Report built")
	}

	// 4. Persistence
	if r.store != nil {
		if err := r.persist(ctx, summary, table, results); err != nil {
			return nil, err
		}
	}

	summary.FinishedAt = time.Now()

	log.WithFields(map[string]interface{}{
		"reports":   len(summary.Reports),
		"rows":      summary.Rows,
		"persisted": summary.Persisted,
		"duration":  summary.Duration().String(),
	}).Info("Report run completed")

	return summary, nil
}

// writeArtefacts writes every artefact concurrently and returns paths per result
func (r *Runner) writeArtefacts(ctx context.Context, results []Result) ([][]string, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.parallelism)

	written := make([][]string, len(results))
	for i, res := range results {
		artefacts := res.Artefacts(r.outDir)
		written[i] = make([]string, len(artefacts))

		for j, a := range artefacts {
			written[i][j] = a.Path
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				if err := export.WriteFile(a.Path, a.Write); err != nil {
					return fmt.Errorf("write %s: %w", a.Path, err)
				}
				return nil
			})
		}
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return written, nil
}

// persist stores the snapshot with the widest coverage among the results
func (r *Runner) persist(ctx context.Context, summary *RunSummary, table *owid.Table, results []Result) error {
	snap, mode := persistable(results)
	if snap == nil {
		r.logger.Debug("No aggregated snapshot in run, nothing persisted")
		return nil
	}

	run := storage.Run{
		ID:          summary.RunID,
		Source:      table.Source,
		Mode:        mode,
		RowCount:    table.Len(),
		EntityCount: snap.Len(),
		StartedAt:   summary.StartedAt,
		FinishedAt:  time.Now(),
	}
	if err := r.store.SaveSnapshot(ctx, run, snap.Records()); err != nil {
		return fmt.Errorf("persist snapshot: %w", err)
	}
	summary.Persisted = true
	return nil
}

// persistable prefers the map snapshot (every entity with data) over rankings
func persistable(results []Result) (*contracts.Snapshot, string) {
	var (
		best *contracts.Snapshot
		mode string
	)
	for _, res := range results {
		var snap *contracts.Snapshot
		var m string
		switch v := res.(type) {
		case *VaccinationMapResult:
			return v.Snapshot, v.Mode
		case *TopVaccinatedResult:
			snap, m = v.Snapshot, v.Mode
		case *GDPCorrelationResult:
			snap, m = v.Snapshot, v.Mode
		}
		if snap != nil && (best == nil || snap.Len() > best.Len()) {
			best, mode = snap, m
		}
	}
	return best, mode
}
