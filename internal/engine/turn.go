// Package engine implements the conversational query pipeline: bounded
// per-session context, deterministic prompt assembly, SQL generation
// with retries, pre-execution validation, result analysis, and
// follow-up suggestions.
package engine

import (
	"sort"
	"time"
)

type Role string

const (
	RoleUser   Role = "user"
	RoleSystem Role = "system"
)

// ResultShape records the shape of a turn's result without retaining
// the rows themselves.
type ResultShape struct {
	Columns  []string
	RowCount int
}

// Turn is immutable once appended to a conversation.
type Turn struct {
	Role      Role
	Text      string
	SQL       string
	Shape     *ResultShape
	Timestamp time.Time
}

// Conversation is a deep-copied view of one session's state. Entities
// is the accumulated set of schema terms seen in the session, sorted.
type Conversation struct {
	Turns    []Turn
	Entities []string
}

// LastUserTurn returns the most recent user turn, if any.
func (c Conversation) LastUserTurn() (Turn, bool) {
	for i := len(c.Turns) - 1; i >= 0; i-- {
		if c.Turns[i].Role == RoleUser {
			return c.Turns[i], true
		}
	}
	return Turn{}, false
}

func sortedEntitySet(entities map[string]struct{}) []string {
	out := make([]string, 0, len(entities))
	for entity := range entities {
		out = append(out, entity)
	}
	sort.Strings(out)
	return out
}
