package engine

import (
	"errors"
	"testing"
	"time"

	"github.com/querydesk/querydesk/internal/schema"
)

func testSchema() schema.Snapshot {
	return schema.NewSnapshot([]schema.Table{
		{Name: "employees", Columns: []schema.Column{
			{Name: "id", Type: "integer"},
			{Name: "name", Type: "text"},
			{Name: "salary", Type: "numeric"},
			{Name: "department", Type: "text"},
		}},
		{Name: "departments", Columns: []schema.Column{
			{Name: "id", Type: "integer"},
			{Name: "name", Type: "text"},
		}},
		{Name: "orders", Columns: []schema.Column{
			{Name: "id", Type: "integer"},
			{Name: "total", Type: "numeric"},
		}},
	})
}

func userTurn(text string) Turn {
	return Turn{Role: RoleUser, Text: text, Timestamp: time.Now().UTC()}
}

func TestAppendRejectsInvalidTurns(t *testing.T) {
	manager := NewContextManager(10, 0)
	if err := manager.Append("s1", Turn{Role: RoleUser}, testSchema()); err == nil {
		t.Fatal("expected error for empty text")
	}
	if err := manager.Append("s1", Turn{Role: Role("assistant"), Text: "hi"}, testSchema()); err == nil {
		t.Fatal("expected error for unknown role")
	}
	var ctxErr *ContextError
	err := manager.Append("s1", Turn{Role: RoleUser}, testSchema())
	if !errors.As(err, &ctxErr) {
		t.Fatalf("error type = %T", err)
	}
}

func TestEntityMemoryIsMonotonic(t *testing.T) {
	manager := NewContextManager(3, 0)
	snapshot := testSchema()

	if err := manager.Append("s1", userTurn("show me all employees"), snapshot); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	before := manager.Snapshot("s1").Entities
	if len(before) == 0 {
		t.Fatal("expected entities from first turn")
	}

	for _, text := range []string{"what about orders", "and total per order", "anything else", "one more"} {
		if err := manager.Append("s1", userTurn(text), snapshot); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		after := manager.Snapshot("s1").Entities
		for _, entity := range before {
			if !containsString(after, entity) {
				t.Fatalf("entity %q lost after eviction; entities = %v", entity, after)
			}
		}
		before = after
	}
}

func containsString(values []string, want string) bool {
	for _, v := range values {
		if v == want {
			return true
		}
	}
	return false
}

func TestEvictionBoundsContextAndKeepsNewestUserTurn(t *testing.T) {
	manager := NewContextManager(3, 0)
	snapshot := testSchema()

	for i := 0; i < 10; i++ {
		if err := manager.Append("s1", userTurn("question number "+string(rune('a'+i))), snapshot); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
		conv := manager.Snapshot("s1")
		if len(conv.Turns) > 3 {
			t.Fatalf("len(turns) = %d after append %d", len(conv.Turns), i)
		}
		last, ok := conv.LastUserTurn()
		if !ok {
			t.Fatal("expected a user turn")
		}
		if last.Text != "question number "+string(rune('a'+i)) {
			t.Fatalf("newest user turn evicted, got %q", last.Text)
		}
	}
}

func TestEvictionHonorsTokenBudget(t *testing.T) {
	// 40 chars per turn is about 10 tokens; budget of 25 tokens fits
	// two turns.
	manager := NewContextManager(0, 25)
	snapshot := testSchema()
	long := "aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"

	for i := 0; i < 5; i++ {
		if err := manager.Append("s1", userTurn(long), snapshot); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	conv := manager.Snapshot("s1")
	if approxTokens(conv.Turns) > 25 {
		t.Fatalf("token estimate %d exceeds budget", approxTokens(conv.Turns))
	}
	if len(conv.Turns) == 0 {
		t.Fatal("eviction must keep the newest user turn")
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	manager := NewContextManager(10, 0)
	snapshot := testSchema()
	turn := userTurn("show employees")
	turn.Shape = &ResultShape{Columns: []string{"id"}, RowCount: 1}
	if err := manager.Append("s1", turn, snapshot); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	conv := manager.Snapshot("s1")
	conv.Turns[0].Text = "mutated"
	conv.Turns[0].Shape.Columns[0] = "mutated"

	fresh := manager.Snapshot("s1")
	if fresh.Turns[0].Text != "show employees" {
		t.Fatal("snapshot mutation leaked into manager state")
	}
	if fresh.Turns[0].Shape.Columns[0] != "id" {
		t.Fatal("shape mutation leaked into manager state")
	}
}

func TestResetIsIdempotent(t *testing.T) {
	manager := NewContextManager(10, 0)
	snapshot := testSchema()
	if err := manager.Append("s1", userTurn("show employees"), snapshot); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	manager.Reset("s1")
	manager.Reset("s1")
	manager.Reset("never-existed")

	conv := manager.Snapshot("s1")
	if len(conv.Turns) != 0 || len(conv.Entities) != 0 {
		t.Fatalf("conversation not cleared: %#v", conv)
	}
}

func TestAcquireRejectsConcurrentUse(t *testing.T) {
	manager := NewContextManager(10, 0)
	if err := manager.Acquire("s1"); err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if err := manager.Acquire("s1"); err != ErrSessionBusy {
		t.Fatalf("second Acquire() = %v, want ErrSessionBusy", err)
	}
	// A different session is unaffected.
	if err := manager.Acquire("s2"); err != nil {
		t.Fatalf("Acquire(s2) error = %v", err)
	}
	manager.Release("s1")
	if err := manager.Acquire("s1"); err != nil {
		t.Fatalf("Acquire() after release error = %v", err)
	}
}

func TestExtractEntitiesMatchesSingularForms(t *testing.T) {
	entities := ExtractEntities("what is the salary of each employee", testSchema())
	if !containsString(entities, "employees") {
		t.Fatalf("expected employees match, got %v", entities)
	}
	if !containsString(entities, "salary") {
		t.Fatalf("expected salary match, got %v", entities)
	}
}

func TestExtractEntitiesEmptySchema(t *testing.T) {
	if entities := ExtractEntities("show employees", schema.NewSnapshot(nil)); entities != nil {
		t.Fatalf("expected nil, got %v", entities)
	}
}
