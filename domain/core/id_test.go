package core

import (
	"strings"
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
}

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to report IsEmpty() = true")
	}
	if ID("abc").IsEmpty() {
		t.Error("Expected non-empty ID to report IsEmpty() = false")
	}
}

func TestParseReportID(t *testing.T) {
	id := NewReportID()

	parsed, err := ParseReportID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("ParseReportID(%q) returned error: %v", id, err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	for _, bad := range []string{"", "   ", "not-a-uuid"} {
		if _, err := ParseReportID(bad); err == nil {
			t.Errorf("Expected error for %q", bad)
		}
	}
}

func TestHashShort(t *testing.T) {
	h := Hash(strings.Repeat("ab", 32))
	if !Hash("").IsEmpty() || h.IsEmpty() {
		t.Error("IsEmpty() should only hold for the zero hash")
	}
	if h.Short() != string(h)[:12] {
		t.Errorf("Short() = %s, want prefix of %s", h.Short(), h)
	}
	if Hash("abc").Short() != "abc" {
		t.Error("Short() should return short hashes unchanged")
	}
}
