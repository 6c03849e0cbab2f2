package engine

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/querydesk/querydesk/internal/executor"
)

type ColumnStats struct {
	Column string  `json:"column"`
	Count  int     `json:"count"`
	Mean   float64 `json:"mean"`
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	StdDev float64 `json:"std_dev"`
}

type Analysis struct {
	RowCount int           `json:"row_count"`
	Stats    []ColumnStats `json:"stats,omitempty"`
	Summary  string        `json:"summary"`
}

// Analyze computes per-numeric-column basic statistics and a short
// deterministic summary. A column counts as numeric when every
// non-null value converts to a number. StdDev is the population
// standard deviation.
func Analyze(result executor.Result) Analysis {
	if len(result.Rows) == 0 {
		return Analysis{RowCount: 0, Summary: "The query returned no rows."}
	}

	analysis := Analysis{RowCount: len(result.Rows)}
	for col, name := range result.Columns {
		values, numeric := numericColumn(result.Rows, col)
		if !numeric || len(values) == 0 {
			continue
		}
		stats := ColumnStats{Column: name, Count: len(values)}
		sum := 0.0
		stats.Min = values[0]
		stats.Max = values[0]
		for _, v := range values {
			sum += v
			if v < stats.Min {
				stats.Min = v
			}
			if v > stats.Max {
				stats.Max = v
			}
		}
		stats.Mean = sum / float64(len(values))
		variance := 0.0
		for _, v := range values {
			delta := v - stats.Mean
			variance += delta * delta
		}
		stats.StdDev = math.Sqrt(variance / float64(len(values)))
		analysis.Stats = append(analysis.Stats, stats)
	}

	analysis.Summary = summarize(analysis, len(result.Columns))
	return analysis
}

func summarize(analysis Analysis, columnCount int) string {
	var summary strings.Builder
	rowWord := "rows"
	if analysis.RowCount == 1 {
		rowWord = "row"
	}
	columnWord := "columns"
	if columnCount == 1 {
		columnWord = "column"
	}
	fmt.Fprintf(&summary, "The query returned %d %s across %d %s.", analysis.RowCount, rowWord, columnCount, columnWord)
	for _, stats := range analysis.Stats {
		fmt.Fprintf(&summary, " %s: mean %s, min %s, max %s, stddev %s.",
			stats.Column,
			formatNumber(stats.Mean),
			formatNumber(stats.Min),
			formatNumber(stats.Max),
			formatNumber(stats.StdDev),
		)
	}
	return summary.String()
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// numericColumn reports whether the column is numeric and returns its
// non-null values. Nulls are skipped; a single non-numeric value
// disqualifies the column.
func numericColumn(rows [][]any, col int) ([]float64, bool) {
	var values []float64
	for _, row := range rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		v, ok := toFloat(row[col])
		if !ok {
			return nil, false
		}
		values = append(values, v)
	}
	return values, true
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case float64:
		return typed, true
	case float32:
		return float64(typed), true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(typed), 64)
		return parsed, err == nil
	default:
		return 0, false
	}
}
