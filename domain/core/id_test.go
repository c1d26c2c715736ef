package core

import (
	"testing"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Errorf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Errorf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}

	if len(ids) != numIDs {
		t.Errorf("Expected %d unique IDs, got %d", numIDs, len(ids))
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()

	parsed, err := ParseRunID(id.String())
	if err != nil {
		t.Fatalf("ParseRunID(%q) failed: %v", id, err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseRunID("   "); err == nil {
		t.Error("Expected error for blank run ID")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("Expected error for non-UUID run ID")
	}
}

func TestHashDeterministic(t *testing.T) {
	a := NewHash([]byte("a + b"))
	b := NewHash([]byte("a + b"))
	c := NewHash([]byte("a - b"))

	if !a.Equals(b) {
		t.Errorf("Expected equal hashes, got %s vs %s", a, b)
	}
	if a.Equals(c) {
		t.Error("Expected different hashes for different data")
	}
	if len(a.String()) != 64 {
		t.Errorf("Expected 64 hex chars, got %d", len(a.String()))
	}
}
