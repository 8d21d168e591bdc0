package index

import (
	"testing"

	"github.com/cuemby/corestore/pkg/corestore"
)

func TestAddLookupRemove(t *testing.T) {
	m := New([]string{"category"}, nil)

	rec := corestore.Record{"category": "tools"}
	if err := m.Add("k1", rec); err != nil {
		t.Fatalf("Add: %v", err)
	}
	set := m.Lookup("category", "tools")
	if _, ok := set["k1"]; !ok {
		t.Fatalf("expected k1 in lookup set, got %v", set)
	}

	m.Remove("k1", rec)
	if set := m.Lookup("category", "tools"); len(set) != 0 {
		t.Fatalf("expected empty lookup after Remove, got %v", set)
	}
}

func TestUniqueConstraintRejectsCollision(t *testing.T) {
	m := New(nil, []string{"email"})

	if err := m.Add("k1", corestore.Record{"email": "a@example.com"}); err != nil {
		t.Fatalf("Add k1: %v", err)
	}
	err := m.Add("k2", corestore.Record{"email": "a@example.com"})
	if _, ok := err.(*corestore.UniqueConstraintError); !ok {
		t.Fatalf("expected UniqueConstraintError, got %v", err)
	}
}

func TestUniqueConstraintExemptsNulls(t *testing.T) {
	m := New(nil, []string{"email"})

	if err := m.Add("k1", corestore.Record{}); err != nil {
		t.Fatalf("Add k1 without email: %v", err)
	}
	if err := m.Add("k2", corestore.Record{}); err != nil {
		t.Fatalf("Add k2 without email should not collide: %v", err)
	}
}

func TestUpdateMovesIndexEntry(t *testing.T) {
	m := New([]string{"category"}, nil)
	old := corestore.Record{"category": "tools"}
	if err := m.Add("k1", old); err != nil {
		t.Fatalf("Add: %v", err)
	}
	next := corestore.Record{"category": "hardware"}
	if err := m.Update("k1", old, next); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if set := m.Lookup("category", "tools"); len(set) != 0 {
		t.Fatalf("expected old value lookup empty, got %v", set)
	}
	if set := m.Lookup("category", "hardware"); len(set) != 1 {
		t.Fatalf("expected new value lookup to have k1, got %v", set)
	}
}

func TestPlanEqualityUsesSmallestCandidateSet(t *testing.T) {
	m := New([]string{"category", "color"}, nil)
	m.Add("k1", corestore.Record{"category": "tools", "color": "red"})
	m.Add("k2", corestore.Record{"category": "tools", "color": "blue"})
	m.Add("k3", corestore.Record{"category": "hardware", "color": "red"})

	candidates, remaining := m.PlanEquality(map[string]any{"category": "tools", "color": "red"})
	if len(remaining) != 0 {
		t.Fatalf("remaining = %v, want empty", remaining)
	}
	if _, ok := candidates["k1"]; !ok || len(candidates) != 1 {
		t.Fatalf("candidates = %v, want {k1}", candidates)
	}
}

func TestPlanEqualityReturnsRemainingForUnindexedFields(t *testing.T) {
	m := New([]string{"category"}, nil)
	m.Add("k1", corestore.Record{"category": "tools", "weight": 5})

	candidates, remaining := m.PlanEquality(map[string]any{"category": "tools", "weight": 5})
	if _, ok := remaining["weight"]; !ok {
		t.Fatalf("expected weight in remaining, got %v", remaining)
	}
	if _, ok := candidates["k1"]; !ok {
		t.Fatalf("expected k1 among candidates from the category index, got %v", candidates)
	}
}

func TestDistinctCount(t *testing.T) {
	m := New([]string{"category"}, nil)
	m.Add("k1", corestore.Record{"category": "tools"})
	m.Add("k2", corestore.Record{"category": "hardware"})
	m.Add("k3", corestore.Record{"category": "tools"})

	if got := m.DistinctCount("category"); got != 2 {
		t.Fatalf("DistinctCount = %d, want 2", got)
	}
}
