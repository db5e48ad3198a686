package service

import (
	"context"
	"time"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// WeekSummary provides weekly time tracking analytics
type WeekSummary struct {
	TotalHours    float64
	BillableHours float64
	TotalValue    float64
	ByClient      map[string]float64 // Hours by client ID
	ByDay         map[time.Weekday]float64
}

// ClientSummary provides client-specific time and revenue analytics
type ClientSummary struct {
	ClientID      string
	TotalHours    float64
	BillableHours float64
	TotalValue    float64
	UnbilledValue float64
	Entries       []*domain.TimeEntry
}

// DailySummary provides daily time tracking analytics
type DailySummary struct {
	Date          time.Time
	TotalHours    float64
	BillableHours float64
	TotalValue    float64
	Entries       []*domain.TimeEntry
}

// ReportService provides aggregations and analytics. Entry values are
// priced through the same resolver as invoices: billed entries keep their
// snapshotted rate, unbilled ones price at today's effective rate.
type ReportService interface {
	GetWeekSummary(ctx context.Context, weekStart time.Time) (*WeekSummary, error)
	GetClientSummary(ctx context.Context, clientID string, start, end time.Time) (*ClientSummary, error)
	GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error)

	// GetUnbilledTotal sums the value of billable time not yet invoiced
	GetUnbilledTotal(ctx context.Context) (float64, error)

	// GetOutstandingTotal sums sent invoices
	GetOutstandingTotal(ctx context.Context) (float64, error)

	// GetRevenueByMonth breaks sent invoice totals down by month for a year
	GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]float64, error)
}

type reportService struct {
	entryRepo    repository.TimeEntryRepository
	invoiceRepo  repository.InvoiceRepository
	clientRepo   repository.ClientRepository
	rateRepo     repository.BillingRateRepository
	settingsRepo repository.SettingsRepository
}

// NewReportService creates a new report service
func NewReportService(
	entryRepo repository.TimeEntryRepository,
	invoiceRepo repository.InvoiceRepository,
	clientRepo repository.ClientRepository,
	rateRepo repository.BillingRateRepository,
	settingsRepo repository.SettingsRepository,
) ReportService {
	return &reportService{
		entryRepo:    entryRepo,
		invoiceRepo:  invoiceRepo,
		clientRepo:   clientRepo,
		rateRepo:     rateRepo,
		settingsRepo: settingsRepo,
	}
}

// entryValue prices one entry for reporting
func entryValue(book *rateBook, entry *domain.TimeEntry) (float64, error) {
	if !entry.Billable {
		return 0, nil
	}
	if entry.BilledRate != nil {
		t, err := book.billedTotals(entry)
		if err != nil {
			return 0, err
		}
		return t.Amount, nil
	}
	c, err := book.chargeEntry(entry)
	if err != nil {
		return 0, err
	}
	return c.Totals.Amount, nil
}

func (s *reportService) loadBook(ctx context.Context) (*rateBook, error) {
	// Reports never reject rateless entries; they just value them at zero
	return loadRateBook(ctx, s.clientRepo, s.rateRepo, s.settingsRepo, true)
}

func (s *reportService) GetWeekSummary(ctx context.Context, weekStart time.Time) (*WeekSummary, error) {
	// Ensure weekStart is actually a Monday (start of week)
	for weekStart.Weekday() != time.Monday {
		weekStart = weekStart.AddDate(0, 0, -1)
	}
	weekEnd := weekStart.AddDate(0, 0, 7)

	entries, err := s.entryRepo.List(ctx, nil, &weekStart, &weekEnd, true)
	if err != nil {
		return nil, err
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	summary := &WeekSummary{
		ByClient: make(map[string]float64),
		ByDay:    make(map[time.Weekday]float64),
	}

	for _, entry := range entries {
		hours := entry.Hours()
		value, err := entryValue(book, entry)
		if err != nil {
			return nil, err
		}

		summary.TotalHours += hours
		if entry.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue += value

		if entry.ClientID != nil {
			summary.ByClient[*entry.ClientID] += hours
		}
		summary.ByDay[entry.StartTime.Weekday()] += hours
	}

	return summary, nil
}

func (s *reportService) GetClientSummary(
	ctx context.Context,
	clientID string,
	start, end time.Time,
) (*ClientSummary, error) {
	entries, err := s.entryRepo.List(ctx, &clientID, &start, &end, true)
	if err != nil {
		return nil, err
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	summary := &ClientSummary{
		ClientID: clientID,
		Entries:  entries,
	}

	for _, entry := range entries {
		hours := entry.Hours()
		value, err := entryValue(book, entry)
		if err != nil {
			return nil, err
		}

		summary.TotalHours += hours
		if entry.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue += value

		if entry.InvoiceID == nil && entry.Billable {
			summary.UnbilledValue += value
		}
	}

	return summary, nil
}

func (s *reportService) GetDailySummary(ctx context.Context, date time.Time) (*DailySummary, error) {
	startOfDay := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())
	endOfDay := startOfDay.AddDate(0, 0, 1)

	entries, err := s.entryRepo.List(ctx, nil, &startOfDay, &endOfDay, true)
	if err != nil {
		return nil, err
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return nil, err
	}

	summary := &DailySummary{
		Date:    date,
		Entries: entries,
	}

	for _, entry := range entries {
		hours := entry.Hours()
		value, err := entryValue(book, entry)
		if err != nil {
			return nil, err
		}

		summary.TotalHours += hours
		if entry.Billable {
			summary.BillableHours += hours
		}
		summary.TotalValue += value
	}

	return summary, nil
}

func (s *reportService) GetUnbilledTotal(ctx context.Context) (float64, error) {
	entries, err := s.entryRepo.List(ctx, nil, nil, nil, false)
	if err != nil {
		return 0, err
	}

	book, err := s.loadBook(ctx)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, entry := range entries {
		if entry.InvoiceID != nil || !entry.Billable {
			continue
		}
		value, err := entryValue(book, entry)
		if err != nil {
			return 0, err
		}
		total += value
	}

	return total, nil
}

func (s *reportService) GetOutstandingTotal(ctx context.Context) (float64, error) {
	invoices, err := s.invoiceRepo.List(ctx, nil, nil, nil)
	if err != nil {
		return 0, err
	}

	total := 0.0
	for _, invoice := range invoices {
		if invoice.Sent {
			total += invoice.TotalAmount
		}
	}
	return total, nil
}

func (s *reportService) GetRevenueByMonth(ctx context.Context, year int) (map[time.Month]float64, error) {
	invoices, err := s.invoiceRepo.List(ctx, nil, nil, nil)
	if err != nil {
		return nil, err
	}

	revenue := make(map[time.Month]float64)
	for m := time.January; m <= time.December; m++ {
		revenue[m] = 0
	}

	for _, invoice := range invoices {
		if !invoice.Sent || invoice.Date.Year() != year {
			continue
		}
		revenue[invoice.Date.Month()] += invoice.TotalAmount
	}

	return revenue, nil
}
