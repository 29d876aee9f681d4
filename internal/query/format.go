package query

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/marcboeker/go-duckdb/v2"

	"github.com/sqlask/sqlask/internal/database"
)

const maxCellLen = 100

// Format renders rows as a list of tuples, e.g. [(42,)] or
// [('Yellow', 'Coldplay'), ('Fix You', 'Coldplay')]. An empty result renders
// as the empty string.
func Format(rows database.Rows) string {
	if len(rows.Data) == 0 {
		return ""
	}
	tuples := make([]string, 0, len(rows.Data))
	for _, row := range rows.Data {
		cells := make([]string, 0, len(row))
		for _, value := range row {
			cells = append(cells, formatValue(value))
		}
		tuple := "(" + strings.Join(cells, ", ")
		if len(cells) == 1 {
			tuple += ","
		}
		tuples = append(tuples, tuple+")")
	}
	return "[" + strings.Join(tuples, ", ") + "]"
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return "NULL"
	case string:
		return quote(truncate(typed))
	case []byte:
		return quote(truncate(string(typed)))
	case time.Time:
		return quote(typed.Format(time.RFC3339Nano))
	case float32:
		return strconv.FormatFloat(float64(typed), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(typed)
	case *big.Int:
		if typed == nil {
			return "NULL"
		}
		return typed.String()
	case duckdb.Decimal:
		if typed.Value == nil {
			return "NULL"
		}
		return typed.String()
	case fmt.Stringer:
		return quote(truncate(typed.String()))
	default:
		return truncate(fmt.Sprint(typed))
	}
}

// quote picks double quotes when the value holds a single quote and no
// double quote, so It's renders as "It's".
func quote(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	if strings.Contains(value, `'`) && !strings.Contains(value, `"`) {
		return `"` + value + `"`
	}
	return `'` + strings.ReplaceAll(value, `'`, `\'`) + `'`
}

func truncate(value string) string {
	runes := []rune(value)
	if len(runes) <= maxCellLen {
		return value
	}
	return string(runes[:maxCellLen]) + "..."
}
