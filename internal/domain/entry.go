package domain

import (
	"math"
	"strings"
	"time"
)

// TimeEntry is a unit of tracked work. Minutes is the canonical duration:
// it can be derived from StartTime/EndTime when both are present, but is
// stored explicitly because an entry may be recorded without an end time.
type TimeEntry struct {
	ID            string
	Description   string
	StartTime     time.Time
	EndTime       *time.Time
	Minutes       int
	Date          time.Time
	ClientID      *string
	TicketID      *string
	BillingRateID *string
	Billable      bool
	Billed        bool
	Locked        bool
	InvoiceID     *string
	BilledRate    *float64 // effective hourly rate snapshotted at invoice time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewTimeEntry creates a new billable, unbilled time entry
func NewTimeEntry(description string, startTime time.Time) *TimeEntry {
	now := time.Now()
	return &TimeEntry{
		Description: description,
		StartTime:   startTime,
		Date:        startTime,
		Billable:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Hours returns the duration in decimal hours
func (e *TimeEntry) Hours() float64 {
	return float64(e.Minutes) / 60
}

// IsLocked reports whether the entry is frozen against edits. Locking always
// accompanies billing, but billed alone is enough to refuse a write.
func (e *TimeEntry) IsLocked() bool {
	return e.Locked || e.Billed
}

// NormalizeDuration reconciles Minutes with StartTime/EndTime. Given minutes
// without an end time it derives EndTime = StartTime + minutes; given an end
// time without minutes it derives minutes rounded to the nearest whole
// minute. Called on create and whenever either side changes.
func (e *TimeEntry) NormalizeDuration() error {
	if e.Minutes <= 0 && e.EndTime == nil {
		return &ValidationError{Field: "minutes", Message: "either minutes or an end time is required"}
	}

	if e.Minutes > 0 && e.EndTime == nil {
		end := e.StartTime.Add(time.Duration(e.Minutes) * time.Minute)
		e.EndTime = &end
		return nil
	}

	if e.Minutes <= 0 && e.EndTime != nil {
		e.Minutes = int(math.Round(e.EndTime.Sub(e.StartTime).Minutes()))
	}

	if e.Minutes <= 0 {
		return &ValidationError{Field: "minutes", Message: "duration must be greater than zero"}
	}
	return nil
}

// Validate returns an error if the entry is invalid
func (e *TimeEntry) Validate() error {
	if strings.TrimSpace(e.Description) == "" {
		return &ValidationError{Field: "description", Message: "description is required"}
	}
	if e.StartTime.IsZero() {
		return &ValidationError{Field: "startTime", Message: "start time is required"}
	}
	if e.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if e.EndTime != nil && e.EndTime.Before(e.StartTime) {
		return &ValidationError{Field: "endTime", Message: "end time must be after start time"}
	}
	if e.Minutes <= 0 {
		return &ValidationError{Field: "minutes", Message: "duration must be greater than zero"}
	}
	if e.Billed && e.InvoiceID == nil {
		return &ConsistencyError{Message: "billed time entry has no invoice"}
	}
	return nil
}
