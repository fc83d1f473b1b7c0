package filter

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// Rule decides whether a row is dropped.
// An empty reason keeps the row.
type Rule interface {
	Name() string
	Exclude(row contracts.Row) (reason string, err error)
}

// Result is the outcome of filtering rows
type Result struct {
	Kept     []contracts.Row
	Excluded map[string]int // reason -> dropped rows
	Total    int
}

// ExcludedCount returns the number of dropped rows
func (r Result) ExcludedCount() int {
	return r.Total - len(r.Kept)
}

// Rows applies rules in order; the first rule that excludes a row
// is the one its exclusion is counted under
func Rows(rows []contracts.Row, rules ...Rule) (Result, error) {
	res := Result{
		Kept:     make([]contracts.Row, 0, len(rows)),
		Excluded: make(map[string]int),
		Total:    len(rows),
	}

	for _, row := range rows {
		reason, err := check(row, rules)
		if err != nil {
			return Result{}, err
		}
		if reason != "" {
			res.Excluded[reason]++
			continue
		}
		res.Kept = append(res.Kept, row)
	}

	return res, nil
}

// Snapshot applies rules to the chosen row of every aggregated record
func Snapshot(snap *contracts.Snapshot, rules ...Rule) (*contracts.Snapshot, map[string]int, error) {
	excluded := make(map[string]int)
	kept := make([]contracts.Latest, 0, snap.Len())

	for _, rec := range snap.Records() {
		reason, err := check(rec.Row, rules)
		if err != nil {
			return nil, nil, err
		}
		if reason != "" {
			excluded[reason]++
			continue
		}
		kept = append(kept, rec)
	}

	return contracts.NewSnapshot(kept), excluded, nil
}

func check(row contracts.Row, rules []Rule) (string, error) {
	for _, rule := range rules {
		reason, err := rule.Exclude(row)
		if err != nil {
			return "", fmt.Errorf("filter %s: %w", rule.Name(), err)
		}
		if reason != "" {
			return reason, nil
		}
	}
	return "", nil
}

// MinValue keeps rows whose field is >= min
func MinValue(field string, min float64) Rule {
	return minValue{field: field, min: min}
}

type minValue struct {
	field string
	min   float64
}

func (r minValue) Name() string {
	return fmt.Sprintf("%s >= %s", r.field, formatNumber(r.min))
}

func (r minValue) Exclude(row contracts.Row) (string, error) {
	v, err := row.Number(r.field)
	if err != nil {
		return "", err
	}
	if v < r.min {
		return fmt.Sprintf("%s below %s", r.field, formatNumber(r.min)), nil
	}
	return "", nil
}

// NonZero drops rows whose field is exactly 0, meaning "no data yet"
func NonZero(field string) Rule {
	return nonZero{field: field}
}

type nonZero struct {
	field string
}

func (r nonZero) Name() string {
	return r.field + " != 0"
}

func (r nonZero) Exclude(row contracts.Row) (string, error) {
	v, err := row.Number(r.field)
	if err != nil {
		return "", err
	}
	if v == 0 {
		return r.field + " is zero", nil
	}
	return "", nil
}

// ExcludeText drops rows whose text field equals one of values,
// such as aggregate pseudo-entities like "World"
func ExcludeText(field string, values ...string) Rule {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return excludeText{field: field, values: set}
}

type excludeText struct {
	field  string
	values map[string]struct{}
}

func (r excludeText) Name() string {
	vals := make([]string, 0, len(r.values))
	for v := range r.values {
		vals = append(vals, v)
	}
	sort.Strings(vals)
	return fmt.Sprintf("%s not in [%s]", r.field, strings.Join(vals, ", "))
}

func (r excludeText) Exclude(row contracts.Row) (string, error) {
	v, err := row.Text(r.field)
	if err != nil {
		return "", err
	}
	if _, ok := r.values[v]; ok {
		return fmt.Sprintf("%s is %s", r.field, v), nil
	}
	return "", nil
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
