package domain

import "fmt"

// ValidationError reports malformed or missing input. Field names the
// offending field when known.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
	}
	return e.Message
}

// LockedEntryError reports a write attempted against a time entry that is
// billed or locked by an invoice.
type LockedEntryError struct {
	EntryID string
}

func (e *LockedEntryError) Error() string {
	return fmt.Sprintf("time entry %s is locked: it belongs to an invoice", e.EntryID)
}

// SentInvoiceError reports a write attempted against a sent invoice.
type SentInvoiceError struct {
	InvoiceID string
}

func (e *SentInvoiceError) Error() string {
	return fmt.Sprintf("invoice %s has been sent and can no longer be modified", e.InvoiceID)
}

// NotFoundError reports a reference to a record that does not exist.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}

// ConsistencyError reports stored data that violates an invariant the
// application maintains, such as a cycle in the client hierarchy or invoice
// totals that disagree with their line items.
type ConsistencyError struct {
	Message string
}

func (e *ConsistencyError) Error() string {
	return e.Message
}
