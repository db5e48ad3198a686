package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mshaw/timevault/internal/domain"
)

// resolveClient looks a client up by ID first, then by exact name
func resolveClient(ctx context.Context, idOrName string) (*domain.Client, error) {
	client, err := appInstance.ClientService.Get(ctx, idOrName)
	if err == nil {
		return client, nil
	}
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		return nil, err
	}

	client, err = appInstance.ClientService.GetByName(ctx, idOrName)
	if err != nil {
		return nil, fmt.Errorf("no client with ID or name %q", idOrName)
	}
	return client, nil
}

// resolveRate looks a billing rate up by ID first, then by exact name
func resolveRate(ctx context.Context, idOrName string) (*domain.BillingRate, error) {
	rate, err := appInstance.RateRepo.GetByID(ctx, idOrName)
	if err == nil {
		return rate, nil
	}
	var nfErr *domain.NotFoundError
	if !errors.As(err, &nfErr) {
		return nil, err
	}

	rates, err := appInstance.RateRepo.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range rates {
		if strings.EqualFold(r.Name, idOrName) {
			return r, nil
		}
	}
	return nil, fmt.Errorf("no billing rate with ID or name %q", idOrName)
}

// parseDate parses "today", "yesterday", or YYYY-MM-DD
func parseDate(s string) (time.Time, error) {
	switch strings.ToLower(s) {
	case "today":
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	case "yesterday":
		now := time.Now().AddDate(0, 0, -1)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location()), nil
	}
	return time.ParseInLocation("2006-01-02", s, time.Local)
}

// parseDateTime parses "YYYY-MM-DD HH:MM" or "HH:MM" (today)
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.ParseInLocation("2006-01-02 15:04", s, time.Local); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("15:04", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected 'YYYY-MM-DD HH:MM' or 'HH:MM', got %q", s)
	}
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), t.Hour(), t.Minute(), 0, 0, time.Local), nil
}

// formatDuration renders a duration as "1h 23m"
func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if h == 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh %02dm", h, m)
}

// formatMinutes renders whole minutes as "1h 23m"
func formatMinutes(minutes int) string {
	return formatDuration(time.Duration(minutes) * time.Minute)
}

// confirmPrompt asks a yes/no question and returns true on "y"/"yes"
func confirmPrompt(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
