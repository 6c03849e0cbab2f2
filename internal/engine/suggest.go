package engine

import (
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/internal/schema"
)

type Suggestion struct {
	Text  string `json:"text"`
	Topic string `json:"topic"`
}

// entityTemplates are instantiated per table the session has touched.
// Order matters: it is the tiebreaker for ranking.
var entityTemplates = []struct {
	format string
	topic  string
}{
	{"Show me all rows from %s", "browse"},
	{"How many records are in %s?", "count"},
	{"What are the top 5 rows in %s by its largest numeric column?", "ranking"},
	{"Summarize %s grouped by a categorical column", "summary"},
}

// defaultSuggestions seed conversations that have not touched any
// schema entity yet.
var defaultSuggestions = []Suggestion{
	{Text: "Show me all employees", Topic: "browse"},
	{Text: "What are the top 5 highest paid employees?", Topic: "ranking"},
	{Text: "How many employees are in each department?", Topic: "count"},
	{Text: "Show me department-wise salary distribution", Topic: "summary"},
	{Text: "Compare department sizes", Topic: "summary"},
}

// SuggestionEngine proposes follow-up questions: table-entity templates
// first, static defaults last, with anything the user already asked
// filtered out.
type SuggestionEngine struct {
	max int
}

func NewSuggestionEngine(max int) *SuggestionEngine {
	if max <= 0 {
		max = 5
	}
	return &SuggestionEngine{max: max}
}

// Suggest ranks candidates referencing the most recent turn's entities
// first. Ties keep template order, then entity name order, so output
// is stable for identical conversations. An empty result is valid.
func (e *SuggestionEngine) Suggest(conv Conversation, snapshot schema.Snapshot) []Suggestion {
	asked := map[string]struct{}{}
	for _, turn := range conv.Turns {
		if turn.Role == RoleUser {
			asked[normalizeQuestion(turn.Text)] = struct{}{}
		}
	}

	recent := map[string]struct{}{}
	if last, ok := conv.LastUserTurn(); ok {
		for _, entity := range ExtractEntities(last.Text, snapshot) {
			recent[entity] = struct{}{}
		}
	}

	var tables []string
	for _, entity := range conv.Entities {
		if snapshot.HasTable(entity) {
			tables = append(tables, entity)
		}
	}

	var fromRecent, fromOlder []Suggestion
	for _, template := range entityTemplates {
		for _, table := range tables {
			candidate := Suggestion{Text: fmt.Sprintf(template.format, table), Topic: template.topic}
			if _, dup := asked[normalizeQuestion(candidate.Text)]; dup {
				continue
			}
			if _, ok := recent[table]; ok {
				fromRecent = append(fromRecent, candidate)
			} else {
				fromOlder = append(fromOlder, candidate)
			}
		}
	}

	ranked := append(fromRecent, fromOlder...)
	for _, candidate := range defaultSuggestions {
		if _, dup := asked[normalizeQuestion(candidate.Text)]; dup {
			continue
		}
		ranked = append(ranked, candidate)
	}

	seen := map[string]struct{}{}
	out := make([]Suggestion, 0, e.max)
	for _, candidate := range ranked {
		key := normalizeQuestion(candidate.Text)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, candidate)
		if len(out) == e.max {
			break
		}
	}
	return out
}

// normalizeQuestion lowercases and collapses whitespace so "List
// Departments " and "list departments" compare equal.
func normalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}
