package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// Latest is the most recent record of one entity with its derived ratio
// ⭐ SSOT: aggregator output consumed by rankings, charts, maps and storage
type Latest struct {
	Row         Row       // chosen source row, passthrough attributes intact
	Entity      string    // group key value
	Date        time.Time // order key of the chosen row
	Primary     float64   // after fallback substitution
	Substituted bool      // Primary came from the fallback field
	Denominator float64
	Ratio       float64 // Primary / Denominator * 100, may be ±Inf or NaN
}

// Finite reports whether Ratio is a usable number.
// A zero denominator yields Inf or NaN, which is kept as data.
func (l Latest) Finite() bool {
	return !math.IsInf(l.Ratio, 0) && !math.IsNaN(l.Ratio)
}

// Location returns the display name passthrough attribute
func (l Latest) Location() string {
	return l.Row.TextOr(FieldLocation, l.Entity)
}

// MarshalJSON renders non-finite ratios as null
func (l Latest) MarshalJSON() ([]byte, error) {
	var ratio *float64
	if l.Finite() {
		r := l.Ratio
		ratio = &r
	}
	return json.Marshal(struct {
		Entity      string             `json:"entity"`
		Location    string             `json:"location"`
		Continent   string             `json:"continent,omitempty"`
		Date        string             `json:"date"`
		Primary     float64            `json:"primary"`
		Substituted bool               `json:"substituted"`
		Denominator float64            `json:"denominator"`
		Ratio       *float64           `json:"ratio"`
		Numbers     map[string]float64 `json:"numbers,omitempty"`
	}{
		Entity:      l.Entity,
		Location:    l.Location(),
		Continent:   l.Row.TextOr(FieldContinent, ""),
		Date:        l.Date.Format(DateLayout),
		Primary:     l.Primary,
		Substituted: l.Substituted,
		Denominator: l.Denominator,
		Ratio:       ratio,
		Numbers:     finiteNumbers(l.Row.Numbers),
	})
}

func finiteNumbers(in map[string]float64) map[string]float64 {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if math.IsInf(v, 0) || math.IsNaN(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Snapshot is the aggregator output: one Latest per entity in
// first-appearance order, indexed by entity id
type Snapshot struct {
	records []Latest
	index   map[string]int
}

// NewSnapshot builds a snapshot. A later record for an already seen
// entity replaces the earlier one in place.
func NewSnapshot(records []Latest) *Snapshot {
	s := &Snapshot{
		records: make([]Latest, 0, len(records)),
		index:   make(map[string]int, len(records)),
	}
	for _, rec := range records {
		if i, ok := s.index[rec.Entity]; ok {
			s.records[i] = rec
			continue
		}
		s.index[rec.Entity] = len(s.records)
		s.records = append(s.records, rec)
	}
	return s
}

// Get returns the record of one entity
func (s *Snapshot) Get(entity string) (Latest, bool) {
	if s == nil {
		return Latest{}, false
	}
	i, ok := s.index[entity]
	if !ok {
		return Latest{}, false
	}
	return s.records[i], true
}

// Len returns the number of entities
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.records)
}

// Entities returns entity ids in first-appearance order
func (s *Snapshot) Entities() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.records))
	for i, rec := range s.records {
		out[i] = rec.Entity
	}
	return out
}

// Records returns a copy of the records in first-appearance order
func (s *Snapshot) Records() []Latest {
	if s == nil {
		return nil
	}
	out := make([]Latest, len(s.records))
	copy(out, s.records)
	return out
}

// ByEntity returns the records keyed by entity id
func (s *Snapshot) ByEntity() map[string]Latest {
	out := make(map[string]Latest, s.Len())
	for _, rec := range s.Records() {
		out[rec.Entity] = rec
	}
	return out
}
