// Package uuid provides unit tests for item id generation and validation.
package uuid

import (
	"testing"
)

// TestNew tests that New() generates valid, parseable v7 ids.
func TestNew(t *testing.T) {
	id := New()

	if !IsValid(id) {
		t.Fatalf("New() = %q, not a valid item id", id)
	}

	parsed, err := Parse(id)
	if err != nil {
		t.Fatalf("Parse(New()) failed: %v", err)
	}
	if parsed.Version() != 7 {
		t.Errorf("Version() = %d, want 7", parsed.Version())
	}
}

// TestNewUniqueness tests that New() generates unique IDs.
func TestNewUniqueness(t *testing.T) {
	ids := make(map[string]bool)

	for i := 0; i < 1000; i++ {
		id := New()
		if ids[id] {
			t.Fatalf("Duplicate id generated: %s", id)
		}
		ids[id] = true
	}
}

// TestNewOrdering tests that successive ids sort in creation order.
func TestNewOrdering(t *testing.T) {
	prev := New()
	for i := 0; i < 100; i++ {
		next := New()
		if next <= prev {
			t.Fatalf("id %s should sort after %s", next, prev)
		}
		prev = next
	}
}

// TestIsValid tests id format validation.
func TestIsValid(t *testing.T) {
	tests := []struct {
		name string
		id   string
		want bool
	}{
		{"valid v4", "f47ac10b-58cc-4372-a567-0e02b2c3d479", true},
		{"valid v7", "01890a5d-ac96-774b-bcce-b302099a8057", true},
		{"uppercase v4", "6BA7B810-9DAD-41D1-80B4-00C04FD430C8", true},
		{"v1 rejected", "6ba7b810-9dad-11d1-80b4-00c04fd430c8", false},
		{"bad variant", "f47ac10b-58cc-4372-c567-0e02b2c3d479", false},
		{"no dashes", "f47ac10b58cc4372a5670e02b2c3d479", false},
		{"empty", "", false},
		{"too short", "f47ac10b-58cc-4372-a567", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValid(tt.id); got != tt.want {
				t.Errorf("IsValid(%q) = %v, want %v", tt.id, got, tt.want)
			}
			if err := Validate(tt.id); (err == nil) != tt.want {
				t.Errorf("Validate(%q) error = %v", tt.id, err)
			}
		})
	}
}

// TestParse_rejectsOtherVersions tests that only v4/v7 parse.
func TestParse_rejectsOtherVersions(t *testing.T) {
	if _, err := Parse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"); err == nil {
		t.Error("Parse() should reject v1")
	}
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("Parse() should reject garbage")
	}
}
