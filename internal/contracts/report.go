package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// Report identifiers
const (
	ReportTopVaccinated  = "top_vaccinated"
	ReportVaccinationMap = "vaccination_map"
	ReportGDPCorrelation = "gdp_correlation"
	ReportGDPMap         = "gdp_map"
)

// AllReports lists every report in run order
var AllReports = []string{
	ReportTopVaccinated,
	ReportVaccinationMap,
	ReportGDPCorrelation,
	ReportGDPMap,
}

// RankedEntity is one position of a Top-N ranking
type RankedEntity struct {
	Rank int `json:"rank"` // 1-based
	Latest
}

// MarshalJSON keeps the rank next to the flattened record
func (r RankedEntity) MarshalJSON() ([]byte, error) {
	inner, err := r.Latest.MarshalJSON()
	if err != nil {
		return nil, err
	}
	var m map[string]interface{}
	if err := json.Unmarshal(inner, &m); err != nil {
		return nil, err
	}
	m["rank"] = r.Rank
	return json.Marshal(m)
}

// SeriesPoint is one day of an entity's ratio series
type SeriesPoint struct {
	Entity   string    `json:"entity"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`
	Primary  float64   `json:"primary"`
	Ratio    float64   `json:"ratio"`
}

// Finite reports whether Ratio is a usable number
func (p SeriesPoint) Finite() bool {
	return !math.IsInf(p.Ratio, 0) && !math.IsNaN(p.Ratio)
}

// GeoValue is a value to be joined onto a world geometry
type GeoValue struct {
	Entity  string  `json:"entity"`
	Name    string  `json:"name"`
	Value   float64 `json:"value"`
	Matched bool    `json:"matched"`
}
