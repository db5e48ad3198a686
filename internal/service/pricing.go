package service

import (
	"context"
	"strconv"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/repository"
)

// rateBook is a point-in-time snapshot of clients, billing rates, and
// pricing settings. Every operation that prices entries loads one rateBook
// and charges everything through it, so an estimate, the invoice generated
// from it, and a later recalculation all agree.
type rateBook struct {
	clients       []*domain.Client
	rates         map[string]*domain.BillingRate
	defaultCost   float64
	allowRateless bool
}

func loadRateBook(
	ctx context.Context,
	clientRepo repository.ClientRepository,
	rateRepo repository.BillingRateRepository,
	settingsRepo repository.SettingsRepository,
	allowRateless bool,
) (*rateBook, error) {
	clients, err := clientRepo.List(ctx, true)
	if err != nil {
		return nil, err
	}

	rates, err := rateRepo.List(ctx)
	if err != nil {
		return nil, err
	}

	book := &rateBook{
		clients:       clients,
		rates:         make(map[string]*domain.BillingRate, len(rates)),
		allowRateless: allowRateless,
	}
	for _, r := range rates {
		book.rates[r.ID] = r
	}

	if setting, err := settingsRepo.Get(ctx, domain.SettingDefaultHourlyCost); err == nil {
		if v, err := strconv.ParseFloat(setting.Value, 64); err == nil {
			book.defaultCost = v
		}
	}

	return book, nil
}

// charge is the priced result for one time entry.
type charge struct {
	// Rate is the effective hourly rate after override resolution; it is
	// the value snapshotted onto the entry when an invoice claims it.
	Rate   float64
	Totals domain.Totals
}

// chargeEntry prices one entry from its own billing rate, adjusted by an
// override resolved up the client hierarchy. An entry with no billing rate
// attached bills at zero (costed at the default hourly cost) when rateless
// entries are allowed; it is never silently priced at the default rate.
func (b *rateBook) chargeEntry(entry *domain.TimeEntry) (charge, error) {
	hours := entry.Hours()

	if entry.BillingRateID == nil {
		if !b.allowRateless {
			return charge{}, &domain.ValidationError{Field: "billingRateId", Message: "entry " + entry.ID + " has no billing rate"}
		}
		cost := hours * b.defaultCost
		return charge{Rate: 0, Totals: domain.Totals{
			Minutes: entry.Minutes,
			Amount:  0,
			Cost:    cost,
			Profit:  -cost,
		}}, nil
	}

	base, ok := b.rates[*entry.BillingRateID]
	if !ok {
		return charge{}, &domain.NotFoundError{Resource: "billing rate", ID: *entry.BillingRateID}
	}

	clientID := ""
	if entry.ClientID != nil {
		clientID = *entry.ClientID
	}
	override, err := domain.ResolveOverride(b.clients, clientID, base.ID)
	if err != nil {
		return charge{}, err
	}

	effective := domain.EffectiveRate(base, override)
	amount := hours * effective
	cost := hours * base.Cost

	return charge{Rate: effective, Totals: domain.Totals{
		Minutes: entry.Minutes,
		Amount:  amount,
		Cost:    cost,
		Profit:  amount - cost,
	}}, nil
}

// billedTotals prices an entry already claimed by an invoice: the amount
// uses the rate snapshotted at generation time, never a re-resolved one, so
// later rate or override edits cannot change a draft's entry lines.
func (b *rateBook) billedTotals(entry *domain.TimeEntry) (domain.Totals, error) {
	if entry.BilledRate == nil {
		return domain.Totals{}, &domain.ConsistencyError{Message: "entry " + entry.ID + " is on an invoice but has no billed rate"}
	}

	// Rateless entries stay costed at the default hourly cost.
	costRate := b.defaultCost
	if entry.BillingRateID != nil {
		if r, ok := b.rates[*entry.BillingRateID]; ok {
			costRate = r.Cost
		}
	}

	hours := entry.Hours()
	amount := hours * *entry.BilledRate
	cost := hours * costRate

	return domain.Totals{
		Minutes: entry.Minutes,
		Amount:  amount,
		Cost:    cost,
		Profit:  amount - cost,
	}, nil
}

// effectiveRateFor resolves the hourly rate a client pays for a billing
// rate, for display and estimates.
func (b *rateBook) effectiveRateFor(clientID, baseRateID string) (float64, error) {
	base, ok := b.rates[baseRateID]
	if !ok {
		return 0, &domain.NotFoundError{Resource: "billing rate", ID: baseRateID}
	}
	override, err := domain.ResolveOverride(b.clients, clientID, baseRateID)
	if err != nil {
		return 0, err
	}
	return domain.EffectiveRate(base, override), nil
}
