package reportconfig

import (
	"fmt"

	"github.com/wonny/vaxtrack/internal/aggregate"
	"github.com/wonny/vaxtrack/internal/contracts"
	"github.com/wonny/vaxtrack/internal/filter"
)

// Filter kinds
const (
	KindMinValue    = "min_value"
	KindNonZero     = "non_zero"
	KindExcludeText = "exclude_text"
)

// Output formats
const (
	OutputPNG     = "png"
	OutputCSV     = "csv"
	OutputXLSX    = "xlsx"
	OutputGeoJSON = "geojson"
)

// Config is the set of report definitions
// ⭐ SSOT: filters and thresholds live here, never in report code
type Config struct {
	Version int      `yaml:"version" json:"version" validate:"required,eq=1"`
	Reports []Report `yaml:"reports" json:"reports" validate:"required,min=1,dive"`
}

// Report describes one analysis
type Report struct {
	ID              string      `yaml:"id" json:"id" validate:"required,oneof=top_vaccinated vaccination_map gdp_correlation gdp_map"`
	Title           string      `yaml:"title" json:"title"`
	Mode            string      `yaml:"mode" json:"mode" validate:"omitempty,oneof=max_date last_seen max-date last-seen"`
	Fields          FieldSpec   `yaml:"fields" json:"fields"`
	PreFilters      []FilterDef `yaml:"pre_filters" json:"pre_filters" validate:"dive"`
	PostFilters     []FilterDef `yaml:"post_filters" json:"post_filters" validate:"dive"`
	TopN            int         `yaml:"top_n" json:"top_n" validate:"gte=0"`
	SupplementalGDP bool        `yaml:"supplemental_gdp" json:"supplemental_gdp"`
	Outputs         []string    `yaml:"outputs" json:"outputs" validate:"dive,oneof=png csv xlsx geojson"`
}

// FieldSpec names the dataset columns a report reads
type FieldSpec struct {
	GroupKey    string `yaml:"group_key" json:"group_key" validate:"required"`
	OrderKey    string `yaml:"order_key" json:"order_key"`
	Primary     string `yaml:"primary" json:"primary"`
	Fallback    string `yaml:"fallback" json:"fallback"`
	Denominator string `yaml:"denominator" json:"denominator"`
	Value       string `yaml:"value" json:"value"` // secondary value: scatter x axis or map value
}

// FilterDef is a declarative filter rule
type FilterDef struct {
	Kind   string   `yaml:"kind" json:"kind" validate:"required,oneof=min_value non_zero exclude_text"`
	Field  string   `yaml:"field" json:"field" validate:"required"`
	Min    *float64 `yaml:"min,omitempty" json:"min,omitempty"`
	Values []string `yaml:"values,omitempty" json:"values,omitempty"`
}

// Rule builds the filter rule
func (f FilterDef) Rule() (filter.Rule, error) {
	switch f.Kind {
	case KindMinValue:
		if f.Min == nil {
			return nil, ValidationError{"min", "required for min_value"}
		}
		return filter.MinValue(f.Field, *f.Min), nil
	case KindNonZero:
		return filter.NonZero(f.Field), nil
	case KindExcludeText:
		if len(f.Values) == 0 {
			return nil, ValidationError{"values", "required for exclude_text"}
		}
		return filter.ExcludeText(f.Field, f.Values...), nil
	default:
		return nil, ValidationError{"kind", fmt.Sprintf("unknown filter kind %q", f.Kind)}
	}
}

// Get returns the definition of one report
func (c *Config) Get(id string) (Report, error) {
	for _, r := range c.Reports {
		if r.ID == id {
			return r, nil
		}
	}
	return Report{}, fmt.Errorf("%w: %s", contracts.ErrUnknownReport, id)
}

// IDs returns report ids in definition order
func (c *Config) IDs() []string {
	ids := make([]string, len(c.Reports))
	for i, r := range c.Reports {
		ids[i] = r.ID
	}
	return ids
}

// Replace swaps in a definition with the same id
func (c *Config) Replace(r Report) error {
	for i := range c.Reports {
		if c.Reports[i].ID == r.ID {
			c.Reports[i] = r
			return nil
		}
	}
	return fmt.Errorf("%w: %s", contracts.ErrUnknownReport, r.ID)
}

// Aggregates reports whether the report runs the latest-record aggregator
func (r Report) Aggregates() bool {
	return r.ID != contracts.ReportGDPMap
}

// Spec returns the aggregation spec of the report
func (r Report) Spec() (aggregate.Spec, error) {
	mode, err := aggregate.ParseMode(r.Mode)
	if err != nil {
		return aggregate.Spec{}, ValidationError{"mode", err.Error()}
	}
	spec := aggregate.Spec{
		GroupKey:    r.Fields.GroupKey,
		OrderKey:    r.Fields.OrderKey,
		Primary:     r.Fields.Primary,
		Fallback:    r.Fields.Fallback,
		Denominator: r.Fields.Denominator,
		Mode:        mode,
	}
	if err := spec.Validate(); err != nil {
		return aggregate.Spec{}, ValidationError{"fields", err.Error()}
	}
	return spec, nil
}

// WithMode returns a copy of the report using another aggregation mode
func (r Report) WithMode(mode aggregate.Mode) Report {
	r.Mode = mode.String()
	return r
}

// WithMinValue returns a copy whose min_value pre-filter on field uses min.
// The rule is appended when the report has none.
func (r Report) WithMinValue(field string, min float64) Report {
	filters := make([]FilterDef, 0, len(r.PreFilters)+1)
	found := false
	for _, f := range r.PreFilters {
		if f.Kind == KindMinValue && f.Field == field {
			m := min
			f.Min = &m
			found = true
		}
		filters = append(filters, f)
	}
	if !found {
		m := min
		filters = append(filters, FilterDef{Kind: KindMinValue, Field: field, Min: &m})
	}
	r.PreFilters = filters
	return r
}

// Rules builds the pre and post aggregation filter rules
func (r Report) Rules() (pre, post []filter.Rule, err error) {
	pre, err = buildRules(r.PreFilters)
	if err != nil {
		return nil, nil, err
	}
	post, err = buildRules(r.PostFilters)
	if err != nil {
		return nil, nil, err
	}
	return pre, post, nil
}

// Wants reports whether the report lists an output format
func (r Report) Wants(output string) bool {
	for _, o := range r.Outputs {
		if o == output {
			return true
		}
	}
	return false
}

func buildRules(defs []FilterDef) ([]filter.Rule, error) {
	rules := make([]filter.Rule, 0, len(defs))
	for _, d := range defs {
		rule, err := d.Rule()
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
