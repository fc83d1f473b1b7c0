package contracts

import (
	"time"
)

// Projected OWID column names
const (
	FieldISOCode               = "iso_code"
	FieldContinent             = "continent"
	FieldLocation              = "location"
	FieldDate                  = "date"
	FieldTotalCases            = "total_cases"
	FieldTotalVaccinations     = "total_vaccinations"
	FieldPeopleVaccinated      = "people_vaccinated"
	FieldPeopleFullyVaccinated = "people_fully_vaccinated"
	FieldNewVaccinations       = "new_vaccinations"
	FieldPopulation            = "population"
	FieldGDPPerCapita          = "gdp_per_capita"
)

// DateLayout is the day format used by the dataset
const DateLayout = "2006-01-02"

// Row is one dataset line after projection.
// Missing numerics were filled with 0 at load time.
type Row struct {
	Seq     int                `json:"seq"` // 0-based position in the source
	Strings map[string]string  `json:"strings"`
	Numbers map[string]float64 `json:"numbers"`
}

// Text returns a string field
func (r Row) Text(name string) (string, error) {
	v, ok := r.Strings[name]
	if !ok {
		return "", &SchemaError{Field: name, Row: r.Seq, Reason: "missing"}
	}
	return v, nil
}

// Number returns a numeric field
func (r Row) Number(name string) (float64, error) {
	v, ok := r.Numbers[name]
	if !ok {
		return 0, &SchemaError{Field: name, Row: r.Seq, Reason: "missing"}
	}
	return v, nil
}

// Date parses a string field as a calendar day
func (r Row) Date(name string) (time.Time, error) {
	s, err := r.Text(name)
	if err != nil {
		return time.Time{}, err
	}
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, &SchemaError{Field: name, Row: r.Seq, Reason: "invalid date " + s}
	}
	return d, nil
}

// Has reports whether the row carries the field under either kind
func (r Row) Has(name string) bool {
	if _, ok := r.Strings[name]; ok {
		return true
	}
	_, ok := r.Numbers[name]
	return ok
}

// TextOr returns a string field or def when absent.
// Only for passthrough attributes, never for aggregation keys.
func (r Row) TextOr(name, def string) string {
	if v, ok := r.Strings[name]; ok {
		return v
	}
	return def
}

// NumberOr returns a numeric field or def when absent
func (r Row) NumberOr(name string, def float64) float64 {
	if v, ok := r.Numbers[name]; ok {
		return v
	}
	return def
}
