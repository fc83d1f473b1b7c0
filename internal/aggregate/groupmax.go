package aggregate

import (
	"fmt"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// GroupValue is one entity with a reduced numeric value
type GroupValue struct {
	Entity   string
	Location string
	Value    float64
}

// GroupMax returns the maximum of field per groupKey, in first-appearance order
func GroupMax(rows []contracts.Row, groupKey, field string) ([]GroupValue, error) {
	slots := make(map[string]int)
	out := make([]GroupValue, 0)

	for _, row := range rows {
		key, err := row.Text(groupKey)
		if err != nil {
			return nil, fmt.Errorf("aggregate group max: %w", err)
		}
		value, err := row.Number(field)
		if err != nil {
			return nil, fmt.Errorf("aggregate group max: %w", err)
		}

		slot, seen := slots[key]
		if !seen {
			slots[key] = len(out)
			out = append(out, GroupValue{
				Entity:   key,
				Location: row.TextOr(contracts.FieldLocation, key),
				Value:    value,
			})
			continue
		}
		if value > out[slot].Value {
			out[slot].Value = value
		}
	}

	return out, nil
}
