package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNormalizeDuration_DerivesEndTime(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	entry := NewTimeEntry("deep work", start)
	entry.Minutes = 90

	if err := entry.NormalizeDuration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if entry.EndTime == nil {
		t.Fatalf("expected end time to be derived")
	}
	want := time.Date(2024, 1, 1, 10, 30, 0, 0, time.UTC)
	if !entry.EndTime.Equal(want) {
		t.Fatalf("expected end time %v, got %v", want, *entry.EndTime)
	}

	// Re-deriving minutes from the derived end time must round-trip.
	entry.Minutes = 0
	if err := entry.NormalizeDuration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Minutes != 90 {
		t.Fatalf("expected round-trip to 90 minutes, got %d", entry.Minutes)
	}
}

func TestNormalizeDuration_DerivesMinutes(t *testing.T) {
	start := time.Date(2024, 3, 5, 14, 0, 0, 0, time.UTC)
	end := start.Add(125 * time.Minute)

	entry := NewTimeEntry("support call", start)
	entry.EndTime = &end

	if err := entry.NormalizeDuration(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Minutes != 125 {
		t.Fatalf("expected 125 minutes, got %d", entry.Minutes)
	}
}

func TestNormalizeDuration_RequiresDuration(t *testing.T) {
	entry := NewTimeEntry("mystery", time.Now())

	err := entry.NormalizeDuration()
	if err == nil {
		t.Fatalf("expected error when neither minutes nor end time given")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestNormalizeDuration_RejectsNonPositive(t *testing.T) {
	start := time.Now()
	end := start.Add(-time.Hour)

	entry := NewTimeEntry("backwards", start)
	entry.EndTime = &end

	if err := entry.NormalizeDuration(); err == nil {
		t.Fatalf("expected error for negative duration")
	}
}

func TestValidate_BilledRequiresInvoice(t *testing.T) {
	entry := NewTimeEntry("orphaned", time.Now())
	entry.Minutes = 30
	entry.Billed = true

	err := entry.Validate()
	if err == nil {
		t.Fatalf("expected error for billed entry without invoice")
	}
	var consistency *ConsistencyError
	if !errors.As(err, &consistency) {
		t.Fatalf("expected ConsistencyError, got %T", err)
	}
}

func TestIsLocked(t *testing.T) {
	entry := NewTimeEntry("work", time.Now())
	if entry.IsLocked() {
		t.Fatalf("new entry should not be locked")
	}

	entry.Billed = true
	if !entry.IsLocked() {
		t.Fatalf("billed entry should count as locked")
	}

	entry.Billed = false
	entry.Locked = true
	if !entry.IsLocked() {
		t.Fatalf("locked entry should be locked")
	}
}
