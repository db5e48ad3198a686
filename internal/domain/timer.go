package domain

import (
	"math"
	"time"
)

type TimerState string

const (
	TimerStateIdle    TimerState = "idle"
	TimerStateRunning TimerState = "running"
	TimerStatePaused  TimerState = "paused"
)

// ActiveTimer is the singleton running timer. Stopping it produces a
// TimeEntry with minutes derived from the active (unpaused) duration.
type ActiveTimer struct {
	ClientID           *string
	TicketID           *string
	Description        string
	StartTime          time.Time
	PausedAt           *time.Time
	TotalPausedSeconds int64
}

// NewActiveTimer creates a new running timer
func NewActiveTimer(clientID *string, description string) *ActiveTimer {
	return &ActiveTimer{
		ClientID:    clientID,
		Description: description,
		StartTime:   time.Now(),
	}
}

// State returns the current timer state
func (t *ActiveTimer) State() TimerState {
	if t.PausedAt != nil {
		return TimerStatePaused
	}
	return TimerStateRunning
}

// Elapsed returns the active duration (excluding paused time)
func (t *ActiveTimer) Elapsed() time.Duration {
	totalElapsed := time.Since(t.StartTime)
	pausedDuration := time.Duration(t.TotalPausedSeconds) * time.Second

	// If currently paused, add current pause duration
	if t.PausedAt != nil {
		pausedDuration += time.Since(*t.PausedAt)
	}

	return totalElapsed - pausedDuration
}

// Pause pauses the timer
func (t *ActiveTimer) Pause() {
	if t.PausedAt == nil {
		now := time.Now()
		t.PausedAt = &now
	}
}

// Resume resumes a paused timer
func (t *ActiveTimer) Resume() {
	if t.PausedAt != nil {
		pauseDuration := time.Since(*t.PausedAt)
		t.TotalPausedSeconds += int64(pauseDuration.Seconds())
		t.PausedAt = nil
	}
}

// ToTimeEntry converts the timer to a time entry when stopped. Entries
// shorter than a minute round up so the entry stays valid.
func (t *ActiveTimer) ToTimeEntry(billingRateID *string) *TimeEntry {
	// If paused, finalize the pause duration
	if t.PausedAt != nil {
		t.Resume()
	}

	now := time.Now()
	minutes := int(math.Round(t.Elapsed().Minutes()))
	if minutes < 1 {
		minutes = 1
	}

	return &TimeEntry{
		Description:   t.Description,
		StartTime:     t.StartTime,
		EndTime:       &now,
		Minutes:       minutes,
		Date:          t.StartTime,
		ClientID:      t.ClientID,
		TicketID:      t.TicketID,
		BillingRateID: billingRateID,
		Billable:      true,
		CreatedAt:     t.StartTime,
		UpdatedAt:     now,
	}
}
