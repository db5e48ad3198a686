package domain

import (
	"math"
	"strings"
	"time"
)

// Invoice aggregates billed time entries and addons for a client. Totals are
// maintained so they always equal the sum over the current entries and
// addons; once Sent is set the invoice and its entries are immutable except
// for deletion of the whole invoice.
type Invoice struct {
	ID            string
	InvoiceNumber string
	ClientID      string
	Date          time.Time
	TotalMinutes  int
	TotalAmount   float64
	TotalCost     float64
	TotalProfit   float64
	Sent          bool
	CreatedAt     time.Time
	UpdatedAt     time.Time

	// Related data (populated by repository)
	Entries []*TimeEntry
	Addons  []*InvoiceAddon
	Client  *Client
}

// NewInvoice creates a new draft invoice
func NewInvoice(invoiceNumber, clientID string) *Invoice {
	now := time.Now()
	return &Invoice{
		InvoiceNumber: invoiceNumber,
		ClientID:      clientID,
		Date:          now,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// CanEdit reports whether the invoice can still be modified
func (i *Invoice) CanEdit() bool {
	return !i.Sent
}

// SetTotals overwrites the invoice total fields
func (i *Invoice) SetTotals(t Totals) {
	i.TotalMinutes = t.Minutes
	i.TotalAmount = t.Amount
	i.TotalCost = t.Cost
	i.TotalProfit = t.Profit
	i.UpdatedAt = time.Now()
}

// CheckTotals verifies the stored totals against a freshly computed set,
// within floating point tolerance. A mismatch means the generation or edit
// path has a bug.
func (i *Invoice) CheckTotals(t Totals) error {
	const tolerance = 1e-6
	if i.TotalMinutes != t.Minutes ||
		math.Abs(i.TotalAmount-t.Amount) > tolerance ||
		math.Abs(i.TotalCost-t.Cost) > tolerance ||
		math.Abs(i.TotalProfit-t.Profit) > tolerance {
		return &ConsistencyError{Message: "invoice " + i.ID + " totals disagree with its entries and addons"}
	}
	return nil
}

// Validate returns an error if the invoice is invalid
func (i *Invoice) Validate() error {
	if i.ClientID == "" {
		return &ValidationError{Field: "clientId", Message: "client is required"}
	}
	if strings.TrimSpace(i.InvoiceNumber) == "" {
		return &ValidationError{Field: "invoiceNumber", Message: "invoice number is required"}
	}
	if i.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "invoice date is required"}
	}
	return nil
}

// InvoiceAddon is a flat-amount line on an invoice: quantity times a unit
// price, with an optional link back to the ticket addon it came from.
type InvoiceAddon struct {
	ID            string
	InvoiceID     string
	Description   string
	Amount        float64 // unit price
	Cost          float64 // unit cost
	Quantity      int
	Profit        float64 // quantity * (amount - cost)
	TicketAddonID *string
}

// Totals returns this addon's contribution to the invoice totals
func (a *InvoiceAddon) Totals() Totals {
	amount := a.Amount * float64(a.Quantity)
	cost := a.Cost * float64(a.Quantity)
	return Totals{Amount: amount, Cost: cost, Profit: amount - cost}
}

// Validate returns an error if the addon is invalid
func (a *InvoiceAddon) Validate() error {
	if strings.TrimSpace(a.Description) == "" {
		return &ValidationError{Field: "description", Message: "addon description is required"}
	}
	if a.Amount < 0 {
		return &ValidationError{Field: "amount", Message: "addon amount cannot be negative"}
	}
	if a.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: "addon quantity must be at least 1"}
	}
	return nil
}

// Totals is the elementwise sum of entry and addon contributions to an
// invoice. Minutes counts time entries only; addons have no duration.
type Totals struct {
	Minutes int
	Amount  float64
	Cost    float64
	Profit  float64
}

// Add accumulates another contribution into t
func (t *Totals) Add(o Totals) {
	t.Minutes += o.Minutes
	t.Amount += o.Amount
	t.Cost += o.Cost
	t.Profit += o.Profit
}

// tempIDPrefix marks addon ids the UI assigned to rows that have not been
// persisted yet. Reconciliation creates these and updates everything else.
const tempIDPrefix = "temp-"

// IsTempID reports whether an addon id belongs to an unsaved row
func IsTempID(id string) bool {
	return strings.HasPrefix(id, tempIDPrefix)
}
