package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
)

// clientMode represents the current screen mode
type clientMode int

const (
	clientModeList clientMode = iota
	clientModeNew
	clientModeEdit
)

// form field indices
const (
	fieldName = iota
	fieldType
	fieldParent
	fieldEmail
	fieldNotes
	fieldCount
)

// clientRow is a client flattened into tree order with its depth
type clientRow struct {
	client *domain.Client
	depth  int
}

// ClientsModel displays the client hierarchy with create/edit forms
type ClientsModel struct {
	app          *app.App
	clients      []*domain.Client
	rows         []clientRow
	cursor       int
	showArchived bool
	monthlyStats map[string]*clientMonthStats
	rateCache    map[string]float64 // effective default rate per client
	loading      bool
	err          error
	statusMsg    string

	// Form state
	mode          clientMode
	fields        []textinput.Model
	fieldFocus    int
	editingID     string // empty for new client
	autoNewClient bool   // open new client form after data loads
}

type clientMonthStats struct {
	hours float64
	value float64
}

type clientsDataMsg struct {
	clients      []*domain.Client
	monthlyStats map[string]*clientMonthStats
	rateCache    map[string]float64
	err          error
}

type clientSavedMsg struct {
	name string
	err  error
}

// NewClientsModel creates a new clients screen model
func NewClientsModel(a *app.App) tea.Model {
	return &ClientsModel{
		app:          a,
		monthlyStats: make(map[string]*clientMonthStats),
		rateCache:    make(map[string]float64),
		loading:      true,
	}
}

// IsCapturingInput returns true when the form is active
func (m *ClientsModel) IsCapturingInput() bool {
	return m.mode == clientModeNew || m.mode == clientModeEdit
}

func (m *ClientsModel) Init() tea.Cmd {
	return m.loadClients()
}

func (m *ClientsModel) loadClients() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		clients, err := m.app.ClientService.List(ctx, m.showArchived)
		if err != nil {
			return clientsDataMsg{err: err}
		}

		// Monthly stats per client
		now := time.Now()
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		monthEnd := monthStart.AddDate(0, 1, 0)

		stats := make(map[string]*clientMonthStats)
		for _, client := range clients {
			summary, err := m.app.ReportService.GetClientSummary(ctx, client.ID, monthStart, monthEnd)
			if err != nil {
				continue
			}
			stats[client.ID] = &clientMonthStats{
				hours: summary.TotalHours,
				value: summary.TotalValue,
			}
		}

		// Effective default rate per client, via the override hierarchy
		rateCache := make(map[string]float64)
		if defaultRate, err := m.app.RateRepo.GetDefault(ctx); err == nil && defaultRate != nil {
			for _, client := range clients {
				if rate, err := m.app.ClientService.EffectiveRate(ctx, client.ID, defaultRate.ID); err == nil {
					rateCache[client.ID] = rate
				}
			}
		}

		return clientsDataMsg{
			clients:      clients,
			monthlyStats: stats,
			rateCache:    rateCache,
		}
	}
}

// buildRows flattens the hierarchy into display order, children under parents
func (m *ClientsModel) buildRows() {
	byID := make(map[string]*domain.Client, len(m.clients))
	for _, c := range m.clients {
		byID[c.ID] = c
	}

	m.rows = m.rows[:0]
	var walk func(c *domain.Client, depth int)
	walk = func(c *domain.Client, depth int) {
		m.rows = append(m.rows, clientRow{client: c, depth: depth})
		for _, child := range m.clients {
			if child.ParentID != nil && *child.ParentID == c.ID {
				walk(child, depth+1)
			}
		}
	}
	for _, c := range m.clients {
		isRoot := c.ParentID == nil
		if !isRoot {
			_, parentVisible := byID[*c.ParentID]
			isRoot = !parentVisible
		}
		if isRoot {
			walk(c, 0)
		}
	}
}

func (m *ClientsModel) initForm(editing *domain.Client) {
	m.fields = make([]textinput.Model, fieldCount)

	m.fields[fieldName] = textinput.New()
	m.fields[fieldName].Placeholder = "Client name"
	m.fields[fieldName].CharLimit = 100
	m.fields[fieldName].Width = 40

	m.fields[fieldType] = textinput.New()
	m.fields[fieldType].Placeholder = "business"
	m.fields[fieldType].CharLimit = 20
	m.fields[fieldType].Width = 20

	m.fields[fieldParent] = textinput.New()
	m.fields[fieldParent].Placeholder = "Parent client name (optional)"
	m.fields[fieldParent].CharLimit = 100
	m.fields[fieldParent].Width = 40

	m.fields[fieldEmail] = textinput.New()
	m.fields[fieldEmail].Placeholder = "email@example.com"
	m.fields[fieldEmail].CharLimit = 100
	m.fields[fieldEmail].Width = 40

	m.fields[fieldNotes] = textinput.New()
	m.fields[fieldNotes].Placeholder = "Optional notes"
	m.fields[fieldNotes].CharLimit = 200
	m.fields[fieldNotes].Width = 50

	if editing != nil {
		m.fields[fieldName].SetValue(editing.Name)
		m.fields[fieldType].SetValue(string(editing.Type))
		if editing.ParentID != nil {
			for _, c := range m.clients {
				if c.ID == *editing.ParentID {
					m.fields[fieldParent].SetValue(c.Name)
					break
				}
			}
		}
		m.fields[fieldEmail].SetValue(editing.Email)
		m.fields[fieldNotes].SetValue(editing.Notes)
		m.editingID = editing.ID
	} else {
		m.editingID = ""
	}

	m.fieldFocus = fieldName
	m.fields[fieldName].Focus()
}

func (m *ClientsModel) saveClient() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		name := m.fields[fieldName].Value()
		typeStr := m.fields[fieldType].Value()
		parentName := strings.TrimSpace(m.fields[fieldParent].Value())
		email := m.fields[fieldEmail].Value()
		notes := m.fields[fieldNotes].Value()

		if name == "" {
			return clientSavedMsg{err: fmt.Errorf("name is required")}
		}
		if typeStr == "" {
			typeStr = string(domain.ClientTypeBusiness)
		}

		var parentID *string
		if parentName != "" {
			parent, err := m.app.ClientService.GetByName(ctx, parentName)
			if err != nil {
				return clientSavedMsg{err: fmt.Errorf("parent %q not found", parentName)}
			}
			parentID = &parent.ID
		}

		if m.editingID != "" {
			client, err := m.app.ClientService.Get(ctx, m.editingID)
			if err != nil {
				return clientSavedMsg{err: err}
			}
			client.Name = name
			client.Type = domain.ClientType(typeStr)
			client.ParentID = parentID
			client.Email = email
			client.Notes = notes
			client.UpdatedAt = time.Now()

			if err := m.app.ClientService.Update(ctx, client); err != nil {
				return clientSavedMsg{err: err}
			}
			return clientSavedMsg{name: name}
		}

		client := domain.NewClient(name, domain.ClientType(typeStr))
		client.ParentID = parentID
		client.Email = email
		client.Notes = notes

		if err := m.app.ClientService.Create(ctx, client); err != nil {
			return clientSavedMsg{err: err}
		}
		return clientSavedMsg{name: name}
	}
}

func (m *ClientsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Handle OpenNewClientFormMsg at the top so it works regardless of mode
	if _, ok := msg.(OpenNewClientFormMsg); ok {
		if m.loading {
			m.autoNewClient = true
			return m, nil
		}
		m.mode = clientModeNew
		m.initForm(nil)
		return m, m.fields[fieldName].Focus()
	}

	if m.mode == clientModeNew || m.mode == clientModeEdit {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadClients()

	case clientsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.clients = msg.clients
			m.monthlyStats = msg.monthlyStats
			m.rateCache = msg.rateCache
			m.buildRows()
			if m.cursor >= len(m.rows) {
				m.cursor = max(0, len(m.rows)-1)
			}
		}
		// Auto-open new client form on first run
		if m.autoNewClient {
			m.autoNewClient = false
			m.mode = clientModeNew
			m.initForm(nil)
			return m, m.fields[fieldName].Focus()
		}
		return m, nil

	case clientSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = clientModeList
		m.statusMsg = fmt.Sprintf("Saved: %s", msg.name)
		m.loading = true
		return m, m.loadClients()

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
			if m.cursor < len(m.rows)-1 {
				m.cursor++
			}
		case msg.String() == "n":
			m.mode = clientModeNew
			m.initForm(nil)
			return m, m.fields[fieldName].Focus()
		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.rows) > 0 && m.cursor < len(m.rows) {
				m.mode = clientModeEdit
				m.initForm(m.rows[m.cursor].client)
				return m, m.fields[fieldName].Focus()
			}
		case msg.String() == "a":
			if len(m.rows) > 0 && m.cursor < len(m.rows) {
				return m, m.toggleArchive()
			}
		case msg.String() == "h":
			m.showArchived = !m.showArchived
			m.cursor = 0
			m.loading = true
			return m, m.loadClients()
		}
	}

	return m, nil
}

func (m *ClientsModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case clientSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.mode = clientModeList
		m.statusMsg = fmt.Sprintf("Saved: %s", msg.name)
		m.loading = true
		return m, m.loadClients()

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			m.mode = clientModeList
			m.err = nil
			return m, nil

		case "tab", "down":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus + 1) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "shift+tab", "up":
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus = (m.fieldFocus - 1 + fieldCount) % fieldCount
			return m, m.fields[m.fieldFocus].Focus()

		case "enter":
			if m.fieldFocus == fieldCount-1 {
				return m, m.saveClient()
			}
			m.fields[m.fieldFocus].Blur()
			m.fieldFocus++
			return m, m.fields[m.fieldFocus].Focus()

		case "ctrl+s":
			return m, m.saveClient()
		}
	}

	var cmd tea.Cmd
	m.fields[m.fieldFocus], cmd = m.fields[m.fieldFocus].Update(msg)
	return m, cmd
}

func (m *ClientsModel) toggleArchive() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		client := m.rows[m.cursor].client

		if client.IsArchived {
			m.app.ClientService.Unarchive(ctx, client.ID)
		} else {
			m.app.ClientService.Archive(ctx, client.ID)
		}

		return m.loadClients()()
	}
}

func (m *ClientsModel) View() string {
	if m.mode == clientModeNew || m.mode == clientModeEdit {
		return m.viewForm()
	}
	return m.viewList()
}

func (m *ClientsModel) viewForm() string {
	var s string

	if m.mode == clientModeNew {
		if len(m.clients) == 0 {
			s += titleStyle.Render("Welcome to timevault!") + "\n"
			s += subtitleStyle.Render("  Let's set up your first client to get started.") + "\n\n"
		} else {
			s += titleStyle.Render("New Client") + "\n\n"
		}
	} else {
		s += titleStyle.Render("Edit Client") + "\n\n"
	}

	labels := []string{"Name:", "Type:", "Parent:", "Email:", "Notes:"}
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

func (m *ClientsModel) viewList() string {
	if m.loading {
		return "Loading clients..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string

	header := "Clients"
	if m.showArchived {
		header += subtitleStyle.Render("  (showing archived)")
	}
	s += titleStyle.Render(header) + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.rows) == 0 {
		s += subtitleStyle.Render("  No clients yet. Press 'n' to add one.") + "\n"
		s += subtitleStyle.Render("  Press 'h' to toggle archived clients") + "\n"
		return s
	}

	for i, row := range m.rows {
		s += m.renderClient(i, row) + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  n: new  enter: edit  a: archive/unarchive  h: toggle archived")

	return s
}

func (m *ClientsModel) renderClient(index int, row clientRow) string {
	client := row.client
	selected := index == m.cursor

	name := strings.Repeat("  ", row.depth) + client.Name
	if client.IsArchived {
		name += " (archived)"
	}

	// Effective rate for the default billing rate, after overrides
	rate := ""
	if r, ok := m.rateCache[client.ID]; ok {
		rate = fmt.Sprintf("%s/hr", formatMoney(r))
		if len(client.Overrides) > 0 {
			rate += " (override)"
		}
	}

	stats := m.monthlyStats[client.ID]
	hours := 0.0
	value := 0.0
	if stats != nil {
		hours = stats.hours
		value = stats.value
	}
	monthly := fmt.Sprintf("This month: %s  %s", formatHours(hours), formatMoney(value))

	contact := client.Email
	if contact == "" && client.Notes != "" {
		contact = truncateStr(client.Notes, 40)
	}

	indicator := "  "
	if selected {
		indicator = "> "
	}

	line1 := fmt.Sprintf("%s%s  %s", indicator, name, subtitleStyle.Render(string(client.Type)))
	line2 := fmt.Sprintf("    %sRate: %s  |  %s", strings.Repeat("  ", row.depth), rate, monthly)
	var line3 string
	if contact != "" {
		line3 = fmt.Sprintf("    %s%s", strings.Repeat("  ", row.depth), contact)
	}

	nameStyle := lipgloss.NewStyle()
	detailStyle := subtitleStyle
	if client.IsArchived {
		nameStyle = nameStyle.Foreground(mutedColor)
		detailStyle = lipgloss.NewStyle().Foreground(mutedColor)
	}
	if selected {
		nameStyle = nameStyle.Bold(true).Foreground(primaryColor)
	}

	result := nameStyle.Render(line1) + "\n" + detailStyle.Render(line2)
	if line3 != "" {
		result += "\n" + detailStyle.Render(line3)
	}

	return result
}
