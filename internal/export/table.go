package export

import (
	"math"
	"strconv"
	"time"

	"github.com/wonny/vaxtrack/internal/contracts"
)

// Table is a rectangular result ready to be written as CSV or as a sheet
type Table struct {
	Name    string // sheet name and file stem
	Columns []string
	Rows    [][]any
}

// Append adds one row; it must have one value per column
func (t *Table) Append(values ...any) {
	t.Rows = append(t.Rows, values)
}

// Len returns the number of data rows
func (t Table) Len() int {
	return len(t.Rows)
}

// FormatValue renders a cell for text output.
// Non-finite floats and nil become empty cells.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return ""
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(contracts.DateLayout)
	default:
		return ""
	}
}

// cellValue is FormatValue for typed sinks: numbers stay numbers
func cellValue(v any) any {
	switch x := v.(type) {
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil
		}
		return x
	case time.Time:
		return x.Format(contracts.DateLayout)
	default:
		return v
	}
}
