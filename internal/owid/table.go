package owid

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/go-gota/gota/dataframe"
	"github.com/go-gota/gota/series"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// TextColumns are the projected string columns
var TextColumns = []string{
	contracts.FieldISOCode,
	contracts.FieldContinent,
	contracts.FieldLocation,
	contracts.FieldDate,
}

// NumberColumns are the projected numeric columns
var NumberColumns = []string{
	contracts.FieldTotalCases,
	contracts.FieldTotalVaccinations,
	contracts.FieldPeopleVaccinated,
	contracts.FieldPeopleFullyVaccinated,
	contracts.FieldNewVaccinations,
	contracts.FieldPopulation,
	contracts.FieldGDPPerCapita,
}

// Columns is the projection applied to the raw dataset, in output order
func Columns() []string {
	cols := make([]string, 0, len(TextColumns)+len(NumberColumns))
	cols = append(cols, TextColumns...)
	cols = append(cols, NumberColumns...)
	return cols
}

// Table is the projected dataset held in memory
type Table struct {
	Rows     []contracts.Row
	Source   string
	LoadedAt time.Time
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Entities returns the distinct iso codes in first-appearance order
func (t *Table) Entities() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, r := range t.Rows {
		iso := r.Strings[contracts.FieldISOCode]
		if _, ok := seen[iso]; ok {
			continue
		}
		seen[iso] = struct{}{}
		out = append(out, iso)
	}
	return out
}

// Parse reads an OWID CSV, projects Columns and fills missing numerics with 0.
// A projected column absent from the header is a *contracts.SchemaError.
func Parse(r io.Reader, source string) (*Table, error) {
	types := make(map[string]series.Type, len(NumberColumns))
	for _, c := range NumberColumns {
		types[c] = series.Float
	}

	df := dataframe.ReadCSV(r,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.DefaultType(series.String),
		dataframe.WithTypes(types),
		dataframe.NaNValues([]string{"", "NA", "NaN"}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("read csv %s: %w", source, df.Err)
	}

	// 1. Every projected column must exist
	present := make(map[string]struct{}, df.Ncol())
	for _, name := range df.Names() {
		present[name] = struct{}{}
	}
	for _, c := range Columns() {
		if _, ok := present[c]; !ok {
			return nil, &contracts.SchemaError{Field: c, Row: -1, Reason: "column missing from " + source}
		}
	}

	// 2. Project
	df = df.Select(Columns())
	if df.Err != nil {
		return nil, fmt.Errorf("project columns: %w", df.Err)
	}

	// 3. Materialise rows column by column
	n := df.Nrow()
	rows := make([]contracts.Row, n)
	for i := range rows {
		rows[i] = contracts.Row{
			Seq:     i,
			Strings: make(map[string]string, len(TextColumns)),
			Numbers: make(map[string]float64, len(NumberColumns)),
		}
	}

	for _, c := range TextColumns {
		col := df.Col(c)
		for i := 0; i < n; i++ {
			e := col.Elem(i)
			if e.IsNA() {
				rows[i].Strings[c] = ""
				continue
			}
			rows[i].Strings[c] = e.String()
		}
	}

	for _, c := range NumberColumns {
		values := df.Col(c).Float()
		for i, v := range values {
			if math.IsNaN(v) {
				v = 0
			}
			rows[i].Numbers[c] = v
		}
	}

	return &Table{
		Rows:     rows,
		Source:   source,
		LoadedAt: time.Now(),
	}, nil
}

// LoadFile parses a CSV file from disk
func LoadFile(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return Parse(f, path)
}
