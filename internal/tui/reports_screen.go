package tui

import (
	"context"
	"fmt"
	"sort"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/service"
)

// ReportsModel shows weekly, financial, and per-client breakdowns
type ReportsModel struct {
	app *app.App

	week        *service.WeekSummary
	weekStart   time.Time
	clientCache map[string]*domain.Client
	revenue     map[time.Month]float64
	year        int
	unbilled    float64
	outstanding float64

	loading bool
	err     error
}

type reportsDataMsg struct {
	week        *service.WeekSummary
	clientCache map[string]*domain.Client
	revenue     map[time.Month]float64
	unbilled    float64
	outstanding float64
	err         error
}

// NewReportsModel creates a new reports screen model
func NewReportsModel(a *app.App) tea.Model {
	now := time.Now()
	weekStart := now
	for weekStart.Weekday() != time.Monday {
		weekStart = weekStart.AddDate(0, 0, -1)
	}
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())

	return &ReportsModel{
		app:       a,
		weekStart: weekStart,
		year:      now.Year(),
		loading:   true,
	}
}

func (m *ReportsModel) Init() tea.Cmd {
	return m.loadData()
}

func (m *ReportsModel) loadData() tea.Cmd {
	weekStart := m.weekStart
	year := m.year
	return func() tea.Msg {
		ctx := context.Background()
		msg := reportsDataMsg{clientCache: make(map[string]*domain.Client)}

		week, err := m.app.ReportService.GetWeekSummary(ctx, weekStart)
		if err != nil {
			msg.err = err
			return msg
		}
		msg.week = week

		clients, err := m.app.ClientService.List(ctx, true)
		if err == nil {
			for _, c := range clients {
				msg.clientCache[c.ID] = c
			}
		}

		msg.revenue, _ = m.app.ReportService.GetRevenueByMonth(ctx, year)
		msg.unbilled, _ = m.app.ReportService.GetUnbilledTotal(ctx)
		msg.outstanding, _ = m.app.ReportService.GetOutstandingTotal(ctx)

		return msg
	}
}

func (m *ReportsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadData()

	case reportsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.week = msg.week
			m.clientCache = msg.clientCache
			m.revenue = msg.revenue
			m.unbilled = msg.unbilled
			m.outstanding = msg.outstanding
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "[":
			m.weekStart = m.weekStart.AddDate(0, 0, -7)
			m.loading = true
			return m, m.loadData()
		case "]":
			m.weekStart = m.weekStart.AddDate(0, 0, 7)
			m.loading = true
			return m, m.loadData()
		}
	}

	return m, nil
}

func (m *ReportsModel) View() string {
	if m.loading {
		return "Loading reports..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string
	s += titleStyle.Render(fmt.Sprintf("Week of %s", m.weekStart.Format("Jan 2, 2006"))) + "\n\n"

	if m.week != nil {
		s += fmt.Sprintf("  Total:    %s\n", formatHours(m.week.TotalHours))
		s += fmt.Sprintf("  Billable: %s\n", formatHours(m.week.BillableHours))
		s += fmt.Sprintf("  Value:    %s\n\n", formatMoney(m.week.TotalValue))

		// Hours by day, Monday through Sunday
		s += "  By day:\n"
		days := []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday}
		for _, day := range days {
			hours := m.week.ByDay[day]
			bar := ""
			for i := 0; i < int(hours+0.5) && i < 12; i++ {
				bar += "█"
			}
			s += fmt.Sprintf("    %-10s %6s  %s\n", day.String(), formatHours(hours), timerValueStyle.Render(bar))
		}

		// Hours by client, most hours first
		if len(m.week.ByClient) > 0 {
			type clientHours struct {
				name  string
				hours float64
			}
			byClient := make([]clientHours, 0, len(m.week.ByClient))
			for id, hours := range m.week.ByClient {
				byClient = append(byClient, clientHours{name: clientName(m.clientCache, &id), hours: hours})
			}
			sort.Slice(byClient, func(i, j int) bool { return byClient[i].hours > byClient[j].hours })

			s += "\n  By client:\n"
			for _, ch := range byClient {
				s += fmt.Sprintf("    %-24s %6s\n", truncateStr(ch.name, 24), formatHours(ch.hours))
			}
		}
	}

	s += "\n" + titleStyle.Render("Financials") + "\n\n"
	s += fmt.Sprintf("  Unbilled:    %s\n", formatMoney(m.unbilled))
	s += fmt.Sprintf("  Outstanding: %s\n", formatMoney(m.outstanding))

	// Revenue by month for the current year (sent invoices only)
	if m.revenue != nil {
		var yearTotal float64
		for _, amount := range m.revenue {
			yearTotal += amount
		}
		s += fmt.Sprintf("\n  Revenue %d: %s\n", m.year, formatMoney(yearTotal))
		for month := time.January; month <= time.December; month++ {
			amount := m.revenue[month]
			if amount == 0 {
				continue
			}
			s += fmt.Sprintf("    %-10s %12s\n", month.String(), formatMoney(amount))
		}
	}

	s += "\n" + helpStyle.Render("  [: previous week  ]: next week")
	return s
}
