package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mshaw/timevault/internal/domain"
)

func newTestEntryService() (EntryService, *mockEntryRepo) {
	clients, rates, entries, _, _ := testFixture()
	return NewEntryService(entries, clients, rates), entries
}

func TestLog_DerivesEndTimeFromMinutes(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestEntryService()

	entry := domain.NewTimeEntry("standup", time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	entry.ClientID = sp("client-a")
	entry.BillingRateID = sp("rate-1")
	entry.Minutes = 90

	if err := svc.Log(ctx, entry); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.EndTime == nil {
		t.Fatal("expected end time derived")
	}
	want := time.Date(2026, 3, 2, 10, 30, 0, 0, time.UTC)
	if !entry.EndTime.Equal(want) {
		t.Errorf("expected end time %v, got %v", want, entry.EndTime)
	}
	if len(repo.created) != 1 {
		t.Errorf("expected one created entry, got %d", len(repo.created))
	}
}

func TestLog_RejectsUnknownClient(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestEntryService()

	entry := domain.NewTimeEntry("work", time.Now())
	entry.ClientID = sp("missing")
	entry.Minutes = 30

	err := svc.Log(ctx, entry)
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestUpdate_LockedEntryRefused(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestEntryService()

	entry := testEntry("entry-1", "client-a", 60)
	entry.Billed = true
	entry.Locked = true
	entry.InvoiceID = sp("inv-1")
	rate := 80.0
	entry.BilledRate = &rate
	repo.entries[entry.ID] = entry

	edit := testEntry("entry-1", "client-a", 90)
	err := svc.Update(ctx, edit)
	var lockErr *domain.LockedEntryError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockedEntryError, got %v", err)
	}
	if lockErr.EntryID != "entry-1" {
		t.Errorf("expected entry-1 in error, got %s", lockErr.EntryID)
	}
}

func TestDelete_LockedEntryRefused(t *testing.T) {
	ctx := context.Background()
	svc, repo := newTestEntryService()

	entry := testEntry("entry-1", "client-a", 60)
	entry.Locked = true
	repo.entries[entry.ID] = entry

	err := svc.Delete(ctx, "entry-1")
	var lockErr *domain.LockedEntryError
	if !errors.As(err, &lockErr) {
		t.Fatalf("expected LockedEntryError, got %v", err)
	}
	if _, ok := repo.entries["entry-1"]; !ok {
		t.Errorf("locked entry must not be deleted")
	}
}
