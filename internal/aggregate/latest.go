package aggregate

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// Mode selects which row of a partition counts as the most recent
type Mode int

const (
	// ModeMaxDate picks the row with the greatest order key.
	// Ties go to the last encountered row.
	ModeMaxDate Mode = iota

	// ModeLastSeen picks the last encountered row regardless of its date.
	// Equals ModeMaxDate only when input is sorted ascending per entity.
	ModeLastSeen
)

func (m Mode) String() string {
	switch m {
	case ModeLastSeen:
		return "last_seen"
	default:
		return "max_date"
	}
}

// ParseMode accepts "max_date" / "max-date" / "" and "last_seen" / "last-seen"
func ParseMode(s string) (Mode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "_") {
	case "", "max_date":
		return ModeMaxDate, nil
	case "last_seen":
		return ModeLastSeen, nil
	default:
		return ModeMaxDate, fmt.Errorf("unknown aggregation mode %q", s)
	}
}

// Spec names the fields the aggregator reads
type Spec struct {
	GroupKey    string
	OrderKey    string
	Primary     string
	Fallback    string // empty disables substitution
	Denominator string
	Mode        Mode
}

// VaccinationSpec is the people-vaccinated per population ratio
// with total vaccinations as fallback
func VaccinationSpec(mode Mode) Spec {
	return Spec{
		GroupKey:    contracts.FieldISOCode,
		OrderKey:    contracts.FieldDate,
		Primary:     contracts.FieldPeopleVaccinated,
		Fallback:    contracts.FieldTotalVaccinations,
		Denominator: contracts.FieldPopulation,
		Mode:        mode,
	}
}

// Validate checks every required field name is set
func (s Spec) Validate() error {
	required := []struct {
		name, value string
	}{
		{"group_key", s.GroupKey},
		{"order_key", s.OrderKey},
		{"primary", s.Primary},
		{"denominator", s.Denominator},
	}
	for _, r := range required {
		if r.value == "" {
			return fmt.Errorf("aggregate spec: %s is required", r.name)
		}
	}
	return nil
}

// candidate is a row with the fields the aggregator needs already read
type candidate struct {
	row         contracts.Row
	date        time.Time
	primary     float64
	fallback    float64
	denominator float64
}

func (s Spec) read(row contracts.Row) (string, candidate, error) {
	var c candidate
	key, err := row.Text(s.GroupKey)
	if err != nil {
		return "", c, err
	}
	if c.date, err = row.Date(s.OrderKey); err != nil {
		return "", c, err
	}
	if c.primary, err = row.Number(s.Primary); err != nil {
		return "", c, err
	}
	if s.Fallback != "" {
		if c.fallback, err = row.Number(s.Fallback); err != nil {
			return "", c, err
		}
	}
	if c.denominator, err = row.Number(s.Denominator); err != nil {
		return "", c, err
	}
	c.row = row
	return key, c, nil
}

// newer reports whether next replaces current under the mode
func (m Mode) newer(current, next candidate) bool {
	if m == ModeLastSeen {
		return true
	}
	return !next.date.Before(current.date)
}

// Latest reduces a time-series table to one record per entity.
//
// Rows are partitioned by GroupKey in one pass, keeping entity
// first-appearance order. The chosen row per entity depends on Mode.
// A primary value of exactly 0 is replaced by the fallback of the same row.
// Ratio = primary / denominator * 100; a zero denominator yields Inf or NaN
// and is reported through Latest.Finite rather than as an error.
//
// Every row must carry every field named by spec, otherwise a
// *contracts.SchemaError is returned. Empty input yields an empty snapshot.
func Latest(rows []contracts.Row, spec Spec) (*contracts.Snapshot, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	// 1. Partition: entity -> slot in first-appearance order
	slots := make(map[string]int)
	entities := make([]string, 0)
	chosen := make([]candidate, 0)

	for _, row := range rows {
		key, c, err := spec.read(row)
		if err != nil {
			return nil, fmt.Errorf("aggregate latest: %w", err)
		}

		slot, seen := slots[key]
		if !seen {
			slots[key] = len(entities)
			entities = append(entities, key)
			chosen = append(chosen, c)
			continue
		}

		// 2. Select
		if spec.Mode.newer(chosen[slot], c) {
			chosen[slot] = c
		}
	}

	// 3-5. Substitute, derive ratio, emit
	records := make([]contracts.Latest, len(entities))
	for i, entity := range entities {
		records[i] = spec.derive(entity, chosen[i])
	}

	return contracts.NewSnapshot(records), nil
}

func (s Spec) derive(entity string, c candidate) contracts.Latest {
	primary := c.primary
	substituted := false
	if primary == 0 && s.Fallback != "" {
		primary = c.fallback
		substituted = true
	}

	return contracts.Latest{
		Row:         c.row,
		Entity:      entity,
		Date:        c.date,
		Primary:     primary,
		Substituted: substituted,
		Denominator: c.denominator,
		Ratio:       Ratio(primary, c.denominator),
	}
}

// Ratio is value as a percentage of denominator.
// A zero denominator gives +Inf, -Inf or NaN.
func Ratio(value, denominator float64) float64 {
	return value / denominator * 100
}
