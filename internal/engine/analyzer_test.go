package engine

import (
	"math"
	"strings"
	"testing"

	"github.com/querydesk/querydesk/internal/executor"
)

func TestAnalyzeComputesNumericStats(t *testing.T) {
	result := executor.Result{
		Columns: []string{"name", "salary"},
		Rows: [][]any{
			{"Ada", int64(30000)},
			{"Grace", int64(50000)},
			{"Edsger", int64(70000)},
		},
	}
	analysis := Analyze(result)
	if analysis.RowCount != 3 {
		t.Fatalf("RowCount = %d", analysis.RowCount)
	}
	if len(analysis.Stats) != 1 {
		t.Fatalf("Stats = %+v", analysis.Stats)
	}
	stats := analysis.Stats[0]
	if stats.Column != "salary" || stats.Count != 3 {
		t.Fatalf("stats = %+v", stats)
	}
	if stats.Mean != 50000 || stats.Min != 30000 || stats.Max != 70000 {
		t.Fatalf("stats = %+v", stats)
	}
	// Population standard deviation, not sample.
	want := math.Sqrt((400000000 + 0 + 400000000) / 3.0)
	if math.Abs(stats.StdDev-want) > 1e-9 {
		t.Fatalf("StdDev = %f, want %f", stats.StdDev, want)
	}
	if !strings.Contains(analysis.Summary, "3 rows") {
		t.Fatalf("Summary = %q", analysis.Summary)
	}
}

func TestAnalyzeEmptyResult(t *testing.T) {
	analysis := Analyze(executor.Result{Columns: []string{"id"}})
	if analysis.RowCount != 0 {
		t.Fatalf("RowCount = %d", analysis.RowCount)
	}
	if len(analysis.Stats) != 0 {
		t.Fatalf("Stats = %+v", analysis.Stats)
	}
	if analysis.Summary != "The query returned no rows." {
		t.Fatalf("Summary = %q", analysis.Summary)
	}
}

func TestAnalyzeSkipsMixedColumns(t *testing.T) {
	result := executor.Result{
		Columns: []string{"value"},
		Rows:    [][]any{{int64(1)}, {"not a number"}},
	}
	analysis := Analyze(result)
	if len(analysis.Stats) != 0 {
		t.Fatalf("mixed column must not be numeric: %+v", analysis.Stats)
	}
}

func TestAnalyzeParsesNumericStrings(t *testing.T) {
	// Drivers surface NUMERIC columns as strings.
	result := executor.Result{
		Columns: []string{"total"},
		Rows:    [][]any{{"12.5"}, {"7.5"}, {nil}},
	}
	analysis := Analyze(result)
	if len(analysis.Stats) != 1 {
		t.Fatalf("Stats = %+v", analysis.Stats)
	}
	if analysis.Stats[0].Count != 2 || analysis.Stats[0].Mean != 10 {
		t.Fatalf("stats = %+v", analysis.Stats[0])
	}
}

func TestAnalyzeSummaryIsDeterministic(t *testing.T) {
	result := executor.Result{
		Columns: []string{"n"},
		Rows:    [][]any{{int64(1)}, {int64(2)}},
	}
	first := Analyze(result).Summary
	for i := 0; i < 5; i++ {
		if got := Analyze(result).Summary; got != first {
			t.Fatalf("summary changed: %q vs %q", first, got)
		}
	}
}
