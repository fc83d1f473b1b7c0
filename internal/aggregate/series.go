package aggregate

import (
	"fmt"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// Series returns the per-day ratio of each requested entity, in the order of
// entities and then input order.
//
// Substitution works on the whole series: if any row of an entity has a
// primary value of 0, every point of that entity uses the fallback field.
func Series(rows []contracts.Row, spec Spec, entities []string) ([]contracts.SeriesPoint, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	wanted := make(map[string]int, len(entities))
	for i, e := range entities {
		if _, dup := wanted[e]; !dup {
			wanted[e] = i
		}
	}

	type entitySeries struct {
		points      []candidate
		useFallback bool
	}
	grouped := make([]entitySeries, len(entities))

	for _, row := range rows {
		key, err := row.Text(spec.GroupKey)
		if err != nil {
			return nil, fmt.Errorf("aggregate series: %w", err)
		}
		idx, ok := wanted[key]
		if !ok {
			continue
		}

		_, c, err := spec.read(row)
		if err != nil {
			return nil, fmt.Errorf("aggregate series: %w", err)
		}

		g := &grouped[idx]
		g.points = append(g.points, c)
		if c.primary == 0 && spec.Fallback != "" {
			g.useFallback = true
		}
	}

	out := make([]contracts.SeriesPoint, 0)
	for i, entity := range entities {
		if wanted[entity] != i {
			continue
		}
		g := grouped[i]
		for _, c := range g.points {
			value := c.primary
			if g.useFallback {
				value = c.fallback
			}
			out = append(out, contracts.SeriesPoint{
				Entity:   entity,
				Location: c.row.TextOr(contracts.FieldLocation, entity),
				Date:     c.date,
				Primary:  value,
				Ratio:    Ratio(value, c.denominator),
			})
		}
	}

	return out, nil
}
