package engine

import (
	"sync"

	"github.com/querydesk/querydesk/internal/schema"
)

// ContextManager owns per-session conversation state. All methods are
// safe for concurrent use; sessions are independent.
type ContextManager struct {
	maxTurns    int
	tokenBudget int

	mu       sync.Mutex
	sessions map[string]*session
}

type session struct {
	turns    []Turn
	entities map[string]struct{}
	busy     bool
}

func NewContextManager(maxTurns, tokenBudget int) *ContextManager {
	return &ContextManager{
		maxTurns:    maxTurns,
		tokenBudget: tokenBudget,
		sessions:    map[string]*session{},
	}
}

// Acquire marks the session as having a query in flight. A second
// concurrent acquire returns ErrSessionBusy instead of blocking.
func (m *ContextManager) Acquire(sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	if s.busy {
		return ErrSessionBusy
	}
	s.busy = true
	return nil
}

func (m *ContextManager) Release(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[sessionID]; ok {
		s.busy = false
	}
}

// Append validates and records a turn, re-derives the entity memory
// from the turn's text and SQL, then evicts oldest non-system turns
// past the turn and token budgets. The newest user turn is never
// evicted.
func (m *ContextManager) Append(sessionID string, turn Turn, snapshot schema.Snapshot) error {
	if turn.Text == "" {
		return &ContextError{Reason: "turn text is empty"}
	}
	switch turn.Role {
	case RoleUser, RoleSystem:
	default:
		return &ContextError{Reason: "unknown turn role " + string(turn.Role)}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.session(sessionID)
	s.turns = append(s.turns, turn)
	for _, entity := range ExtractEntities(turn.Text, snapshot) {
		s.entities[entity] = struct{}{}
	}
	if turn.SQL != "" {
		for _, entity := range ExtractEntities(turn.SQL, snapshot) {
			s.entities[entity] = struct{}{}
		}
	}
	m.evict(s)
	return nil
}

// Snapshot returns a deep copy of the session's conversation. Mutating
// the copy never affects manager state.
func (m *ContextManager) Snapshot(sessionID string) Conversation {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return Conversation{}
	}
	turns := make([]Turn, len(s.turns))
	for i, turn := range s.turns {
		turns[i] = turn
		if turn.Shape != nil {
			shape := ResultShape{RowCount: turn.Shape.RowCount}
			shape.Columns = append([]string(nil), turn.Shape.Columns...)
			turns[i].Shape = &shape
		}
	}
	return Conversation{Turns: turns, Entities: sortedEntitySet(s.entities)}
}

// Reset drops the session's turns and entity memory. Resetting an
// unknown session is a no-op.
func (m *ContextManager) Reset(sessionID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
}

func (m *ContextManager) SessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *ContextManager) session(sessionID string) *session {
	s, ok := m.sessions[sessionID]
	if !ok {
		s = &session{entities: map[string]struct{}{}}
		m.sessions[sessionID] = s
	}
	return s
}

func (m *ContextManager) evict(s *session) {
	newestUser := -1
	for i := len(s.turns) - 1; i >= 0; i-- {
		if s.turns[i].Role == RoleUser {
			newestUser = i
			break
		}
	}
	for m.overBudget(s.turns) {
		victim := -1
		for i, turn := range s.turns {
			if turn.Role == RoleSystem {
				continue
			}
			if i == newestUser {
				continue
			}
			victim = i
			break
		}
		if victim == -1 {
			// Only system turns and the newest user turn remain; drop
			// the oldest system turn instead of growing unboundedly.
			for i, turn := range s.turns {
				if turn.Role == RoleSystem {
					victim = i
					break
				}
			}
		}
		if victim == -1 {
			return
		}
		if victim < newestUser {
			newestUser--
		}
		s.turns = append(s.turns[:victim], s.turns[victim+1:]...)
	}
}

func (m *ContextManager) overBudget(turns []Turn) bool {
	if m.maxTurns > 0 && len(turns) > m.maxTurns {
		return true
	}
	if m.tokenBudget > 0 && approxTokens(turns) > m.tokenBudget {
		return true
	}
	return false
}

// approxTokens estimates four characters per token.
func approxTokens(turns []Turn) int {
	chars := 0
	for _, turn := range turns {
		chars += len(turn.Text) + len(turn.SQL)
	}
	return chars / 4
}
