package report

import (
	"errors"
	"fmt"

	"github.com/wonny/vaxtrack/internal/aggregate"
	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/filter"
	"github.com/wonny/vaxtrack/internal/geo"
	"github.com/wonny/vaxtrack/internal/owid"
	"github.com/wonny/vaxtrack/internal/reportconfig"
)

// ErrNoWorld is returned by map reports when no world shapes are loaded
var ErrNoWorld = errors.New("world geometry not loaded")

// reasonNotFinite counts records dropped from charts for a non-finite ratio
const reasonNotFinite = "ratio not finite"

// Stats counts what a report kept and dropped
type Stats struct {
	Rows     int            `json:"rows"`
	KeptRows int            `json:"kept_rows"`
	Entities int            `json:"entities"`
	Excluded map[string]int `json:"excluded"`
}

func (s *Stats) exclude(counts map[string]int) {
	if s.Excluded == nil {
		s.Excluded = make(map[string]int)
	}
	for reason, n := range counts {
		s.Excluded[reason] += n
	}
}

// Builder turns the dataset into report results.
// Every method is pure: same table and definitions, same result.
type Builder struct {
	defs  *reportconfig.Config
	world *geo.World
	mode  *aggregate.Mode
}

// Option configures a Builder
type Option func(*Builder)

// WithMode overrides the aggregation mode of every definition
func WithMode(mode aggregate.Mode) Option {
	return func(b *Builder) {
		b.mode = &mode
	}
}

// NewBuilder creates a builder. world may be nil when no map report is built.
func NewBuilder(defs *reportconfig.Config, world *geo.World, opts ...Option) *Builder {
	b := &Builder{defs: defs, world: world}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Definitions returns the report definitions in use
func (b *Builder) Definitions() *reportconfig.Config {
	return b.defs
}

// Build dispatches on report id
func (b *Builder) Build(id string, table *owid.Table) (Result, error) {
	switch id {
	case contracts.ReportTopVaccinated:
		return b.TopVaccinated(table)
	case contracts.ReportVaccinationMap:
		return b.VaccinationMap(table)
	case contracts.ReportGDPCorrelation:
		return b.GDPCorrelation(table)
	case contracts.ReportGDPMap:
		return b.GDPMap(table)
	default:
		return nil, fmt.Errorf("%w: %s", contracts.ErrUnknownReport, id)
	}
}

func (b *Builder) definition(id string) (reportconfig.Report, error) {
	def, err := b.defs.Get(id)
	if err != nil {
		return reportconfig.Report{}, err
	}
	if b.mode != nil {
		def = def.WithMode(*b.mode)
	}
	return def, nil
}

// aggregation is the filtered aggregator output of one definition
type aggregation struct {
	spec  aggregate.Spec
	snap  *contracts.Snapshot
	kept  []contracts.Row // rows that survived the pre-filters
	stats Stats
}

// latest runs pre-filters, the aggregator and post-filters
func latest(def reportconfig.Report, rows []contracts.Row) (aggregation, error) {
	agg := aggregation{stats: Stats{Rows: len(rows), Excluded: make(map[string]int)}}

	spec, err := def.Spec()
	if err != nil {
		return agg, err
	}
	agg.spec = spec

	pre, post, err := def.Rules()
	if err != nil {
		return agg, err
	}

	// 1. Pre-filters on rows
	kept, err := filter.Rows(rows, pre...)
	if err != nil {
		return agg, fmt.Errorf("%s pre-filters: %w", def.ID, err)
	}
	agg.kept = kept.Kept
	agg.stats.KeptRows = len(kept.Kept)
	agg.stats.exclude(kept.Excluded)

	// 2. One record per entity
	snap, err := aggregate.Latest(kept.Kept, spec)
	if err != nil {
		return agg, fmt.Errorf("%s: %w", def.ID, err)
	}

	// 3. Post-filters on chosen rows
	snap, excluded, err := filter.Snapshot(snap, post...)
	if err != nil {
		return agg, fmt.Errorf("%s post-filters: %w", def.ID, err)
	}
	agg.stats.exclude(excluded)
	agg.stats.Entities = snap.Len()
	agg.snap = snap

	return agg, nil
}

// Snapshot returns the filtered aggregator output of an aggregating report
func (b *Builder) Snapshot(id string, table *owid.Table) (*contracts.Snapshot, Stats, error) {
	def, err := b.definition(id)
	if err != nil {
		return nil, Stats{}, err
	}
	if !def.Aggregates() {
		return nil, Stats{}, fmt.Errorf("%s does not aggregate latest records", id)
	}
	agg, err := latest(def, table.Rows)
	if err != nil {
		return nil, agg.stats, err
	}
	return agg.snap, agg.stats, nil
}

// Ranking is the top_vaccinated ranking cut at n instead of the defined top_n
func (b *Builder) Ranking(table *owid.Table, n int) ([]contracts.RankedEntity, error) {
	snap, _, err := b.Snapshot(contracts.ReportTopVaccinated, table)
	if err != nil {
		return nil, err
	}
	return aggregate.TopN(snap, n), nil
}

// TopVaccinated ranks entities by ratio and returns the daily series of the top N
func (b *Builder) TopVaccinated(table *owid.Table) (*TopVaccinatedResult, error) {
	def, err := b.definition(contracts.ReportTopVaccinated)
	if err != nil {
		return nil, err
	}

	agg, err := latest(def, table.Rows)
	if err != nil {
		return nil, err
	}

	ranked := aggregate.TopN(agg.snap, def.TopN)

	series, err := aggregate.Series(agg.kept, agg.spec, aggregate.Entities(ranked))
	if err != nil {
		return nil, fmt.Errorf("%s series: %w", def.ID, err)
	}

	return &TopVaccinatedResult{
		Def:      def,
		Mode:     agg.spec.Mode.String(),
		Snapshot: agg.snap,
		Ranked:   ranked,
		Series:   series,
		Stats:    agg.stats,
	}, nil
}

// VaccinationMap joins every entity's latest ratio onto the world shapes
func (b *Builder) VaccinationMap(table *owid.Table) (*VaccinationMapResult, error) {
	def, err := b.definition(contracts.ReportVaccinationMap)
	if err != nil {
		return nil, err
	}
	if b.world == nil {
		return nil, fmt.Errorf("%s: %w", def.ID, ErrNoWorld)
	}

	agg, err := latest(def, table.Rows)
	if err != nil {
		return nil, err
	}
	stats := agg.stats

	values := make([]contracts.GeoValue, 0, agg.snap.Len())
	for _, rec := range agg.snap.Records() {
		if !rec.Finite() {
			stats.exclude(map[string]int{reasonNotFinite: 1})
			continue
		}
		values = append(values, contracts.GeoValue{
			Entity: rec.Entity,
			Name:   rec.Location(),
			Value:  rec.Ratio,
		})
	}

	return &VaccinationMapResult{
		Def:      def,
		Mode:     agg.spec.Mode.String(),
		Snapshot: agg.snap,
		Joined:   geo.Join(b.world, values),
		Stats:    stats,
	}, nil
}

// CorrelationPoint pairs an entity's ratio with its secondary value
type CorrelationPoint struct {
	Entity   string  `json:"entity"`
	Location string  `json:"location"`
	Value    float64 `json:"value"`
	Ratio    float64 `json:"ratio"`
}

// GDPCorrelation pairs each entity's latest ratio with the definition's value field
func (b *Builder) GDPCorrelation(table *owid.Table) (*GDPCorrelationResult, error) {
	def, err := b.definition(contracts.ReportGDPCorrelation)
	if err != nil {
		return nil, err
	}

	agg, err := latest(def, table.Rows)
	if err != nil {
		return nil, err
	}
	stats := agg.stats

	points := make([]CorrelationPoint, 0, agg.snap.Len())
	for _, rec := range agg.snap.Records() {
		value, err := rec.Row.Number(def.Fields.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.ID, err)
		}
		if !rec.Finite() {
			stats.exclude(map[string]int{reasonNotFinite: 1})
			continue
		}
		points = append(points, CorrelationPoint{
			Entity:   rec.Entity,
			Location: rec.Location(),
			Value:    value,
			Ratio:    rec.Ratio,
		})
	}

	return &GDPCorrelationResult{
		Def:      def,
		Mode:     agg.spec.Mode.String(),
		Snapshot: agg.snap,
		Points:   points,
		Stats:    stats,
	}, nil
}

// GDPMap joins the per-entity maximum of the value field onto the world shapes
func (b *Builder) GDPMap(table *owid.Table) (*GDPMapResult, error) {
	def, err := b.definition(contracts.ReportGDPMap)
	if err != nil {
		return nil, err
	}
	if b.world == nil {
		return nil, fmt.Errorf("%s: %w", def.ID, ErrNoWorld)
	}

	pre, post, err := def.Rules()
	if err != nil {
		return nil, err
	}

	stats := Stats{Rows: table.Len(), Excluded: make(map[string]int)}

	kept, err := filter.Rows(table.Rows, pre...)
	if err != nil {
		return nil, fmt.Errorf("%s pre-filters: %w", def.ID, err)
	}
	stats.KeptRows = len(kept.Kept)
	stats.exclude(kept.Excluded)

	groups, err := aggregate.GroupMax(kept.Kept, def.Fields.GroupKey, def.Fields.Value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", def.ID, err)
	}

	values := make([]contracts.GeoValue, len(groups))
	for i, g := range groups {
		values[i] = contracts.GeoValue{Entity: g.Entity, Name: g.Location, Value: g.Value}
	}
	if def.SupplementalGDP {
		values = geo.WithSupplemental(values, geo.SupplementalGDP)
	}

	// Post-filters see each reduced value as a one-field row
	rows := make([]contracts.Row, len(values))
	for i, v := range values {
		rows[i] = contracts.Row{
			Seq: i,
			Strings: map[string]string{
				def.Fields.GroupKey:     v.Entity,
				contracts.FieldLocation: v.Name,
			},
			Numbers: map[string]float64{def.Fields.Value: v.Value},
		}
	}
	res, err := filter.Rows(rows, post...)
	if err != nil {
		return nil, fmt.Errorf("%s post-filters: %w", def.ID, err)
	}
	stats.exclude(res.Excluded)

	out := make([]contracts.GeoValue, len(res.Kept))
	for i, row := range res.Kept {
		out[i] = values[row.Seq]
	}
	stats.Entities = len(out)

	return &GDPMapResult{
		Def:    def,
		Joined: geo.Join(b.world, out),
		Stats:  stats,
	}, nil
}
