package core

import (
	"errors"
	"math"
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

// TestIDIsEmpty tests ID emptiness check
func TestIDIsEmpty(t *testing.T) {
	if !ID("").IsEmpty() {
		t.Error("Expected empty ID to be empty")
	}
	if ID("not-empty").IsEmpty() {
		t.Error("Expected non-empty ID to not be empty")
	}
}

// TestParseRunID tests run ID parsing
func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID("  " + id.String() + " ")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if parsed != id {
		t.Errorf("Expected %s, got %s", id, parsed)
	}

	if _, err := ParseRunID(""); err == nil {
		t.Error("Expected error for empty run ID")
	}
	if _, err := ParseRunID("not-a-uuid"); err == nil {
		t.Error("Expected error for non-UUID run ID")
	}
}

func TestErrorClassification(t *testing.T) {
	cases := []struct {
		name  string
		err   error
		input bool
		param bool
		estim bool
	}{
		{"missing column", NewMissingColumnError("w"), true, false, false},
		{"negative weight", NewNegativeWeightError("w", 3, -1), true, false, false},
		{"empty input", ErrEmptyInput, true, false, false},
		{"infinite weight", NewNonFiniteError("w", 1, math.Inf(1)), true, false, false},
		{"overflowed mean", NewNonFiniteEstimateError("weighted mean", "x", ""), true, false, false},
		{"invalid level", ErrInvalidLevel, false, true, false},
		{"invalid mode", ErrInvalidNormalizeMode, false, true, false},
		{"empty group", NewEmptyGroupError("x", "north"), false, false, true},
		{"zero base", NewZeroBaseError("row", "A"), false, false, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsInputError(tc.err); got != tc.input {
				t.Errorf("IsInputError = %v, want %v", got, tc.input)
			}
			if got := IsParameterError(tc.err); got != tc.param {
				t.Errorf("IsParameterError = %v, want %v", got, tc.param)
			}
			if got := IsEstimationError(tc.err); got != tc.estim {
				t.Errorf("IsEstimationError = %v, want %v", got, tc.estim)
			}
		})
	}

	if !errors.Is(ErrRunNotFound, ErrNotFound) || !IsNotFoundError(ErrRunNotFound) {
		t.Error("Expected ErrRunNotFound to wrap ErrNotFound")
	}
}
