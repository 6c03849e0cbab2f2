// Package schema models the database schema snapshot the engine grounds
// prompts and validation on. A Snapshot is immutable once built; the
// Cache swaps whole snapshots atomically so readers never observe a
// partially refreshed schema.
package schema

import (
	"sort"
	"strings"
)

type Column struct {
	Name string
	Type string
}

type Table struct {
	Name    string
	Columns []Column
}

type Snapshot struct {
	tables []Table
	byName map[string]Table
}

// NewSnapshot builds a snapshot from tables, sorted by table name.
// Lookup is case-insensitive; column order within a table is preserved.
func NewSnapshot(tables []Table) Snapshot {
	sorted := make([]Table, len(tables))
	copy(sorted, tables)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })

	byName := make(map[string]Table, len(sorted))
	for _, table := range sorted {
		byName[strings.ToLower(table.Name)] = table
	}
	return Snapshot{tables: sorted, byName: byName}
}

func (s Snapshot) Empty() bool {
	return len(s.tables) == 0
}

// Tables returns the tables in name order. Callers must not mutate the
// returned slice's column slices.
func (s Snapshot) Tables() []Table {
	out := make([]Table, len(s.tables))
	copy(out, s.tables)
	return out
}

func (s Snapshot) Table(name string) (Table, bool) {
	table, ok := s.byName[strings.ToLower(name)]
	return table, ok
}

func (s Snapshot) HasTable(name string) bool {
	_, ok := s.byName[strings.ToLower(name)]
	return ok
}

// HasColumn reports whether any table carries the column.
func (s Snapshot) HasColumn(name string) bool {
	lowered := strings.ToLower(name)
	for _, table := range s.tables {
		for _, column := range table.Columns {
			if strings.ToLower(column.Name) == lowered {
				return true
			}
		}
	}
	return false
}

// Vocabulary returns every table and column name, lowercased and
// deduplicated, for entity extraction against user utterances.
func (s Snapshot) Vocabulary() []string {
	seen := map[string]struct{}{}
	var words []string
	add := func(word string) {
		word = strings.ToLower(word)
		if _, ok := seen[word]; ok {
			return
		}
		seen[word] = struct{}{}
		words = append(words, word)
	}
	for _, table := range s.tables {
		add(table.Name)
		for _, column := range table.Columns {
			add(column.Name)
		}
	}
	sort.Strings(words)
	return words
}
