package report

import (
	"io"
	"path/filepath"

	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/export"
	"github.com/wonny/vaxtrack/internal/geo"
	"github.com/wonny/vaxtrack/internal/render"
	"github.com/wonny/vaxtrack/internal/reportconfig"
)

// Result is a built report
type Result interface {
	ID() string
	Summary() Summary
	// Artefacts lists the files the report's outputs produce under dir
	Artefacts(dir string) []Artefact
}

// Artefact is one output file and how to write it
type Artefact struct {
	Path  string
	Write func(w io.Writer) error
}

// Summary is the JSON view of a report
type Summary struct {
	ID        string                   `json:"id"`
	Title     string                   `json:"title"`
	Mode      string                   `json:"mode,omitempty"`
	Stats     Stats                    `json:"stats"`
	Top       []contracts.RankedEntity `json:"top,omitempty"`
	Unmatched []string                 `json:"unmatched,omitempty"`
	Artefacts []string                 `json:"artefacts,omitempty"`
}

const percentLabel = "% of population vaccinated"

func artefactPath(dir, id, suffix, ext string) string {
	return filepath.Join(dir, id+suffix+"."+ext)
}

// ============================================================================
// top_vaccinated
// ============================================================================

// TopVaccinatedResult is the ranking and the daily series of its entities
type TopVaccinatedResult struct {
	Def      reportconfig.Report
	Mode     string
	Snapshot *contracts.Snapshot
	Ranked   []contracts.RankedEntity
	Series   []contracts.SeriesPoint
	Stats    Stats
}

func (r *TopVaccinatedResult) ID() string { return r.Def.ID }

func (r *TopVaccinatedResult) Summary() Summary {
	return Summary{ID: r.Def.ID, Title: r.Def.Title, Mode: r.Mode, Stats: r.Stats, Top: r.Ranked}
}

// RankingTable is the ranking as rows
func (r *TopVaccinatedResult) RankingTable() export.Table {
	t := export.Table{
		Name: r.Def.ID,
		Columns: []string{
			"rank", contracts.FieldISOCode, contracts.FieldLocation, contracts.FieldDate,
			"vaccinated", "substituted", contracts.FieldPopulation, "percent_vaccinated",
		},
	}
	for _, e := range r.Ranked {
		t.Append(e.Rank, e.Entity, e.Location(), e.Date, e.Primary, e.Substituted, e.Denominator, e.Ratio)
	}
	return t
}

// SeriesTable is the daily series as rows
func (r *TopVaccinatedResult) SeriesTable() export.Table {
	t := export.Table{
		Name: "series",
		Columns: []string{
			contracts.FieldISOCode, contracts.FieldLocation, contracts.FieldDate,
			"vaccinated", "percent_vaccinated",
		},
	}
	for _, p := range r.Series {
		t.Append(p.Entity, p.Location, p.Date, p.Primary, p.Ratio)
	}
	return t
}

func (r *TopVaccinatedResult) Artefacts(dir string) []Artefact {
	var out []Artefact
	if r.Def.Wants(reportconfig.OutputPNG) {
		out = append(out, Artefact{
			Path: artefactPath(dir, r.Def.ID, "", reportconfig.OutputPNG),
			Write: func(w io.Writer) error {
				return render.LineChart(w, r.Def.Title, percentLabel, r.Series)
			},
		})
	}
	if r.Def.Wants(reportconfig.OutputCSV) {
		out = append(out, csvArtefact(dir, r.Def.ID, r.RankingTable()))
	}
	if r.Def.Wants(reportconfig.OutputXLSX) {
		out = append(out, xlsxArtefact(dir, r.Def.ID, r.RankingTable(), r.SeriesTable()))
	}
	return out
}

// ============================================================================
// vaccination_map
// ============================================================================

// VaccinationMapResult is every entity's latest ratio joined to world shapes
type VaccinationMapResult struct {
	Def      reportconfig.Report
	Mode     string
	Snapshot *contracts.Snapshot
	Joined   *geo.Joined
	Stats    Stats
}

func (r *VaccinationMapResult) ID() string { return r.Def.ID }

func (r *VaccinationMapResult) Summary() Summary {
	return Summary{ID: r.Def.ID, Title: r.Def.Title, Mode: r.Mode, Stats: r.Stats, Unmatched: r.Joined.Unmatched}
}

func (r *VaccinationMapResult) Artefacts(dir string) []Artefact {
	return mapArtefacts(dir, r.Def, r.Joined, percentLabel, "percent_vaccinated")
}

// ============================================================================
// gdp_correlation
// ============================================================================

// GDPCorrelationResult is each entity's ratio against its GDP per capita
type GDPCorrelationResult struct {
	Def      reportconfig.Report
	Mode     string
	Snapshot *contracts.Snapshot
	Points   []CorrelationPoint
	Stats    Stats
}

func (r *GDPCorrelationResult) ID() string { return r.Def.ID }

func (r *GDPCorrelationResult) Summary() Summary {
	return Summary{ID: r.Def.ID, Title: r.Def.Title, Mode: r.Mode, Stats: r.Stats}
}

// Table is the scatter data as rows
func (r *GDPCorrelationResult) Table() export.Table {
	t := export.Table{
		Name:    r.Def.ID,
		Columns: []string{contracts.FieldISOCode, contracts.FieldLocation, r.Def.Fields.Value, "percent_vaccinated"},
	}
	for _, p := range r.Points {
		t.Append(p.Entity, p.Location, p.Value, p.Ratio)
	}
	return t
}

func (r *GDPCorrelationResult) scatterPoints() []render.ScatterPoint {
	out := make([]render.ScatterPoint, len(r.Points))
	for i, p := range r.Points {
		out[i] = render.ScatterPoint{Label: p.Entity, X: p.Value, Y: p.Ratio}
	}
	return out
}

func (r *GDPCorrelationResult) Artefacts(dir string) []Artefact {
	var out []Artefact
	if r.Def.Wants(reportconfig.OutputPNG) {
		for _, logLog := range []bool{false, true} {
			opts := render.ScatterOptions{
				Title:  r.Def.Title,
				XName:  r.Def.Fields.Value,
				YName:  percentLabel,
				LogLog: logLog,
			}
			suffix := ""
			if logLog {
				suffix = "_loglog"
			}
			out = append(out, Artefact{
				Path: artefactPath(dir, r.Def.ID, suffix, reportconfig.OutputPNG),
				Write: func(w io.Writer) error {
					return render.Scatter(w, opts, r.scatterPoints())
				},
			})
		}
	}
	if r.Def.Wants(reportconfig.OutputCSV) {
		out = append(out, csvArtefact(dir, r.Def.ID, r.Table()))
	}
	if r.Def.Wants(reportconfig.OutputXLSX) {
		out = append(out, xlsxArtefact(dir, r.Def.ID, r.Table()))
	}
	return out
}

// ============================================================================
// gdp_map
// ============================================================================

// GDPMapResult is the per-entity GDP per capita joined to world shapes
type GDPMapResult struct {
	Def    reportconfig.Report
	Joined *geo.Joined
	Stats  Stats
}

func (r *GDPMapResult) ID() string { return r.Def.ID }

func (r *GDPMapResult) Summary() Summary {
	return Summary{ID: r.Def.ID, Title: r.Def.Title, Stats: r.Stats, Unmatched: r.Joined.Unmatched}
}

func (r *GDPMapResult) Artefacts(dir string) []Artefact {
	return mapArtefacts(dir, r.Def, r.Joined, r.Def.Fields.Value, r.Def.Fields.Value)
}

// ============================================================================
// shared writers
// ============================================================================

// JoinedTable lists every joined value, matched or not
func JoinedTable(name, valueColumn string, joined *geo.Joined) export.Table {
	t := export.Table{
		Name:    name,
		Columns: []string{contracts.FieldISOCode, geo.PropName, valueColumn, "matched"},
	}
	for _, r := range joined.Rows {
		t.Append(r.Value.Entity, r.Value.Name, r.Value.Value, r.Value.Matched)
	}
	return t
}

func mapArtefacts(dir string, def reportconfig.Report, joined *geo.Joined, label, valueColumn string) []Artefact {
	var out []Artefact
	if def.Wants(reportconfig.OutputPNG) {
		out = append(out, Artefact{
			Path: artefactPath(dir, def.ID, "", reportconfig.OutputPNG),
			Write: func(w io.Writer) error {
				return render.Choropleth(w, render.MapOptions{Title: def.Title, Label: label}, joined)
			},
		})
	}
	if def.Wants(reportconfig.OutputGeoJSON) {
		out = append(out, Artefact{
			Path: artefactPath(dir, def.ID, "", reportconfig.OutputGeoJSON),
			Write: func(w io.Writer) error {
				return export.WriteGeoJSON(w, joined.FeatureCollection())
			},
		})
	}
	if def.Wants(reportconfig.OutputCSV) {
		out = append(out, csvArtefact(dir, def.ID, JoinedTable(def.ID, valueColumn, joined)))
	}
	if def.Wants(reportconfig.OutputXLSX) {
		out = append(out, xlsxArtefact(dir, def.ID, JoinedTable(def.ID, valueColumn, joined)))
	}
	return out
}

func csvArtefact(dir, id string, t export.Table) Artefact {
	return Artefact{
		Path:  artefactPath(dir, id, "", reportconfig.OutputCSV),
		Write: func(w io.Writer) error { return export.WriteCSV(w, t) },
	}
}

func xlsxArtefact(dir, id string, tables ...export.Table) Artefact {
	return Artefact{
		Path:  artefactPath(dir, id, "", reportconfig.OutputXLSX),
		Write: func(w io.Writer) error { return export.WriteXLSX(w, tables...) },
	}
}
