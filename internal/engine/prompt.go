package engine

import (
	"fmt"
	"strings"

	"github.com/querydesk/querydesk/internal/schema"
)

const systemPrompt = "You convert natural language questions into a single SQL query " +
	"for a PostgreSQL-compatible database. " +
	"Use only the tables and columns listed in the schema. " +
	"Return ONLY SQL. No markdown, no explanation."

// Prompt is the assembled model input. NoSchema is set when the schema
// snapshot was empty; the generator refuses to call the model then.
type Prompt struct {
	System   string
	User     string
	NoSchema bool
}

// PromptBuilder assembles prompts deterministically: identical inputs
// produce byte-identical prompts. No timestamps, no randomness.
type PromptBuilder struct {
	historyTurns     int
	schemaCharBudget int
}

func NewPromptBuilder(historyTurns, schemaCharBudget int) *PromptBuilder {
	return &PromptBuilder{historyTurns: historyTurns, schemaCharBudget: schemaCharBudget}
}

func (b *PromptBuilder) Build(snapshot schema.Snapshot, conv Conversation, question string) Prompt {
	question = strings.TrimSpace(question)
	if snapshot.Empty() {
		return Prompt{
			System:   systemPrompt,
			User:     "No schema is available.\n\nQuestion: " + question,
			NoSchema: true,
		}
	}

	var user strings.Builder
	user.WriteString("Schema:\n")
	user.WriteString(b.schemaSection(snapshot, conv.Entities))

	if history := b.historySection(conv); history != "" {
		user.WriteString("\nConversation so far:\n")
		user.WriteString(history)
	}

	user.WriteString("\nQuestion: ")
	user.WriteString(question)

	return Prompt{System: systemPrompt, User: user.String()}
}

// schemaSection lists tables under the character budget, entity-
// mentioned tables first. Both groups stay in name order so output is
// stable.
func (b *PromptBuilder) schemaSection(snapshot schema.Snapshot, entities []string) string {
	entitySet := map[string]struct{}{}
	for _, entity := range entities {
		entitySet[entity] = struct{}{}
	}

	var prioritized, rest []schema.Table
	for _, table := range snapshot.Tables() {
		if _, ok := entitySet[strings.ToLower(table.Name)]; ok {
			prioritized = append(prioritized, table)
		} else {
			rest = append(rest, table)
		}
	}

	var section strings.Builder
	used := 0
	writeTable := func(table schema.Table) bool {
		line := formatTableLine(table)
		if b.schemaCharBudget > 0 && used+len(line) > b.schemaCharBudget && used > 0 {
			return false
		}
		section.WriteString(line)
		used += len(line)
		return true
	}
	for _, table := range prioritized {
		if !writeTable(table) {
			return section.String()
		}
	}
	for _, table := range rest {
		if !writeTable(table) {
			return section.String()
		}
	}
	return section.String()
}

func formatTableLine(table schema.Table) string {
	parts := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		parts = append(parts, column.Name+" "+column.Type)
	}
	return fmt.Sprintf("- %s (%s)\n", table.Name, strings.Join(parts, ", "))
}

// historySection condenses the last turns: user turns become one-line
// questions, system turns become the SQL that answered them plus the
// result shape.
func (b *PromptBuilder) historySection(conv Conversation) string {
	turns := conv.Turns
	if b.historyTurns > 0 && len(turns) > b.historyTurns {
		turns = turns[len(turns)-b.historyTurns:]
	}
	var section strings.Builder
	for _, turn := range turns {
		switch turn.Role {
		case RoleUser:
			section.WriteString("- user asked: ")
			section.WriteString(condense(turn.Text))
			section.WriteString("\n")
		case RoleSystem:
			if turn.SQL == "" {
				continue
			}
			section.WriteString("- answered with: ")
			section.WriteString(condense(turn.SQL))
			if turn.Shape != nil {
				section.WriteString(fmt.Sprintf(" (%d rows)", turn.Shape.RowCount))
			}
			section.WriteString("\n")
		}
	}
	return section.String()
}

// condense collapses whitespace and caps a history line at 200 chars.
func condense(text string) string {
	fields := strings.Fields(text)
	joined := strings.Join(fields, " ")
	if len(joined) > 200 {
		joined = joined[:200]
	}
	return joined
}
