package tui

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
)

type entryMode int

const (
	entryModeList entryMode = iota
	entryModeNew
	entryModeEdit
)

// entry form field indices
const (
	entryFieldClient = iota
	entryFieldDesc
	entryFieldDate
	entryFieldStart
	entryFieldMinutes
	entryFieldRate
	entryFieldCount
)

// EntriesModel lists time entries with create/edit forms
type EntriesModel struct {
	app         *app.App
	entries     []*domain.TimeEntry
	clientCache map[string]*domain.Client
	cursor      int
	showBilled  bool
	loading     bool
	err         error
	statusMsg   string

	mode       entryMode
	fields     []textinput.Model
	fieldFocus int
	editingID  string
}

type entriesDataMsg struct {
	entries     []*domain.TimeEntry
	clientCache map[string]*domain.Client
	err         error
}

type entrySavedMsg struct {
	err error
}

// NewEntriesModel creates a new entries screen model
func NewEntriesModel(a *app.App) tea.Model {
	return &EntriesModel{
		app:         a,
		clientCache: make(map[string]*domain.Client),
		loading:     true,
	}
}

// IsCapturingInput returns true when the form is active
func (m *EntriesModel) IsCapturingInput() bool {
	return m.mode == entryModeNew || m.mode == entryModeEdit
}

func (m *EntriesModel) Init() tea.Cmd {
	return m.loadEntries()
}

func (m *EntriesModel) loadEntries() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		// Last 30 days
		now := time.Now()
		start := now.AddDate(0, 0, -30)
		entries, err := m.app.EntryService.List(ctx, nil, &start, &now, m.showBilled)
		if err != nil {
			return entriesDataMsg{err: err}
		}

		cache := make(map[string]*domain.Client)
		clients, err := m.app.ClientService.List(ctx, true)
		if err == nil {
			for _, c := range clients {
				cache[c.ID] = c
			}
		}

		return entriesDataMsg{entries: entries, clientCache: cache}
	}
}

func (m *EntriesModel) initForm(editing *domain.TimeEntry) {
	m.fields = make([]textinput.Model, entryFieldCount)

	m.fields[entryFieldClient] = textinput.New()
	m.fields[entryFieldClient].Placeholder = "Client name"
	m.fields[entryFieldClient].CharLimit = 100
	m.fields[entryFieldClient].Width = 40

	m.fields[entryFieldDesc] = textinput.New()
	m.fields[entryFieldDesc].Placeholder = "What did you work on?"
	m.fields[entryFieldDesc].CharLimit = 200
	m.fields[entryFieldDesc].Width = 50

	m.fields[entryFieldDate] = textinput.New()
	m.fields[entryFieldDate].Placeholder = time.Now().Format("2006-01-02")
	m.fields[entryFieldDate].CharLimit = 10
	m.fields[entryFieldDate].Width = 12

	m.fields[entryFieldStart] = textinput.New()
	m.fields[entryFieldStart].Placeholder = "09:00"
	m.fields[entryFieldStart].CharLimit = 5
	m.fields[entryFieldStart].Width = 8

	m.fields[entryFieldMinutes] = textinput.New()
	m.fields[entryFieldMinutes].Placeholder = "60"
	m.fields[entryFieldMinutes].CharLimit = 5
	m.fields[entryFieldMinutes].Width = 8

	m.fields[entryFieldRate] = textinput.New()
	m.fields[entryFieldRate].Placeholder = "Billing rate name (optional)"
	m.fields[entryFieldRate].CharLimit = 100
	m.fields[entryFieldRate].Width = 30

	if editing != nil {
		if editing.ClientID != nil {
			if c, ok := m.clientCache[*editing.ClientID]; ok {
				m.fields[entryFieldClient].SetValue(c.Name)
			}
		}
		m.fields[entryFieldDesc].SetValue(editing.Description)
		m.fields[entryFieldDate].SetValue(editing.Date.Format("2006-01-02"))
		m.fields[entryFieldStart].SetValue(editing.StartTime.Format("15:04"))
		m.fields[entryFieldMinutes].SetValue(strconv.Itoa(editing.Minutes))
		if editing.BillingRateID != nil {
			if rate, err := m.app.RateRepo.GetByID(context.Background(), *editing.BillingRateID); err == nil {
				m.fields[entryFieldRate].SetValue(rate.Name)
			}
		}
		m.editingID = editing.ID
	} else {
		m.fields[entryFieldDate].SetValue(time.Now().Format("2006-01-02"))
		m.editingID = ""
	}

	m.fieldFocus = entryFieldClient
	m.fields[entryFieldClient].Focus()
}

func (m *EntriesModel) saveEntry() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		clientArg := strings.TrimSpace(m.fields[entryFieldClient].Value())
		desc := m.fields[entryFieldDesc].Value()
		dateStr := m.fields[entryFieldDate].Value()
		startStr := m.fields[entryFieldStart].Value()
		minutesStr := m.fields[entryFieldMinutes].Value()
		rateArg := strings.TrimSpace(m.fields[entryFieldRate].Value())

		if clientArg == "" {
			return entrySavedMsg{err: fmt.Errorf("client is required")}
		}
		client, err := m.app.ClientService.GetByName(ctx, clientArg)
		if err != nil {
			return entrySavedMsg{err: fmt.Errorf("client %q not found", clientArg)}
		}

		date, err := time.ParseInLocation("2006-01-02", dateStr, time.Local)
		if err != nil {
			return entrySavedMsg{err: fmt.Errorf("invalid date %q", dateStr)}
		}

		start := date.Add(9 * time.Hour)
		if startStr != "" {
			t, err := time.ParseInLocation("15:04", startStr, time.Local)
			if err != nil {
				return entrySavedMsg{err: fmt.Errorf("invalid start time %q", startStr)}
			}
			start = time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.Local)
		}

		minutes, err := strconv.Atoi(minutesStr)
		if err != nil || minutes <= 0 {
			return entrySavedMsg{err: fmt.Errorf("invalid minutes %q", minutesStr)}
		}

		var rateID *string
		if rateArg != "" {
			rates, err := m.app.RateRepo.List(ctx)
			if err != nil {
				return entrySavedMsg{err: err}
			}
			for _, r := range rates {
				if strings.EqualFold(r.Name, rateArg) {
					rateID = &r.ID
					break
				}
			}
			if rateID == nil {
				return entrySavedMsg{err: fmt.Errorf("billing rate %q not found", rateArg)}
			}
		}

		if m.editingID != "" {
			entry, err := m.app.EntryService.Get(ctx, m.editingID)
			if err != nil {
				return entrySavedMsg{err: err}
			}
			entry.ClientID = &client.ID
			entry.Description = desc
			entry.Date = date
			entry.StartTime = start
			entry.Minutes = minutes
			entry.EndTime = nil // re-derive from minutes
			entry.BillingRateID = rateID

			if err := m.app.EntryService.Update(ctx, entry); err != nil {
				return entrySavedMsg{err: err}
			}
			return entrySavedMsg{}
		}

		entry := domain.NewTimeEntry(desc, start)
		entry.ClientID = &client.ID
		entry.Date = date
		entry.Minutes = minutes
		entry.BillingRateID = rateID

		if err := m.app.EntryService.Log(ctx, entry); err != nil {
			return entrySavedMsg{err: err}
		}
		return entrySavedMsg{}
	}
}

func (m *EntriesModel) deleteEntry() tea.Cmd {
	return func() tea.Msg {
		entry := m.entries[m.cursor]
		if err := m.app.EntryService.Delete(context.Background(), entry.ID); err != nil {
			return entrySavedMsg{err: err}
		}
		return entrySavedMsg{}
	}
}

func (m *EntriesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.mode == entryModeNew || m.mode == entryModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadEntries()

	case entriesDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.entries = msg.entries
			m.clientCache = msg.clientCache
			if m.cursor >= len(m.entries) {
				m.cursor = max(0, len(m.entries)-1)
			}
		}
		return m, nil

	case entrySavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = entryModeList
		m.statusMsg = "Saved"
		m.loading = true
		return m, m.loadEntries()

	case tea.KeyMsg:
		if m.loading {
			return m, nil
		}

		m.statusMsg = ""
		m.err = nil

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.entries)-1 {
				m.cursor++
			}
		case msg.String() == "n":
			m.mode = entryModeNew
			m.initForm(nil)
			return m, m.fields[entryFieldClient].Focus()
		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.entries) > 0 && m.cursor < len(m.entries) {
				entry := m.entries[m.cursor]
				if entry.IsLocked() {
					m.err = &domain.LockedEntryError{EntryID: entry.ID}
					return m, nil
				}
				m.mode = entryModeEdit
				m.initForm(entry)
				return m, m.fields[entryFieldClient].Focus()
			}
		case msg.String() == "d":
			if len(m.entries) > 0 && m.cursor < len(m.entries) {
				return m, m.deleteEntry()
			}
		case key.Matches(msg, DefaultKeyMap.ToggleBilled):
			m.showBilled = !m.showBilled
			m.cursor = 0
			m.loading = true
			return m, m.loadEntries()
		}
	}

	return m, nil
}

func (m *EntriesModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case entrySavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = entryModeList
		m.statusMsg = "Saved"
		m.loading = true
		return m, m.loadEntries()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = entryModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % entryFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + entryFieldCount) % entryFieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == entryFieldCount-1 {
				return m, m.saveEntry()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveEntry()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *EntriesModel) View() string {
	if m.mode == entryModeNew || m.mode == entryModeEdit {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *EntriesModel) viewForm() string {
	var s string
	if m.mode == entryModeNew {
		s += titleStyle.Render("New Time Entry") + "\n\n"
	} else {
		s += titleStyle.Render("Edit Time Entry") + "\n\n"
	}

	labels := []string{"Client:", "Description:", "Date:", "Start (HH:MM):", "Minutes:", "Rate:"}
	for i, label := range labels {
		indicator := "  "
		if i == m.fieldFocus {
			indicator = "> "
		}
		labelStyle := subtitleStyle
		if i == m.fieldFocus {
			labelStyle = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
		}
		s += fmt.Sprintf("%s%s\n  %s\n\n", indicator, labelStyle.Render(label), m.fields[i].View())
	}

	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}

	s += helpStyle.Render("  tab/shift+tab: navigate fields  ctrl+s: save  enter: next/save  esc: cancel")

	return s
}

func (m *EntriesModel) viewList() string {
	if m.loading {
		return "Loading entries..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string

	header := "Time Entries (Last 30 Days)"
	if m.showBilled {
		header += subtitleStyle.Render("  (including billed)")
	}
	s += titleStyle.Render(header) + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.entries) == 0 {
		s += subtitleStyle.Render("  No entries. Press 'n' to log one.") + "\n"
		return s
	}

	var totalMinutes int
	for i, entry := range m.entries {
		s += m.renderEntry(i, entry) + "\n"
		totalMinutes += entry.Minutes
	}

	s += "\n" + subtitleStyle.Render(fmt.Sprintf("  Total: %s", formatHours(float64(totalMinutes)/60)))
	s += "\n" + helpStyle.Render("  j/k: navigate  n: new  enter: edit  d: delete  b: toggle billed")

	return s
}

func (m *EntriesModel) renderEntry(index int, entry *domain.TimeEntry) string {
	selected := index == m.cursor

	indicator := "  "
	if selected {
		indicator = "> "
	}

	status := ""
	if entry.Billed {
		status = sentStyle.Render(" [billed]")
	} else if entry.Locked {
		status = draftStyle.Render(" [locked]")
	} else if !entry.Billable {
		status = subtitleStyle.Render(" [non-billable]")
	}

	line := fmt.Sprintf("%s%-10s %-20s %6s  %s%s",
		indicator,
		entry.Date.Format("Jan 2"),
		truncateStr(clientName(m.clientCache, entry.ClientID), 20),
		formatHours(entry.Hours()),
		truncateStr(entry.Description, 34),
		status,
	)

	style := lipgloss.NewStyle()
	if selected {
		style = style.Bold(true).Foreground(primaryColor)
	}
	return style.Render(line)
}
