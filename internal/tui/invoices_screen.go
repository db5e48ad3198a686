package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/service"
)

type invoiceMode int

const (
	invoiceModeList invoiceMode = iota
	invoiceModeDetail
	invoiceModeGenerate
)

// InvoicesModel lists invoices, shows their lines, and generates new ones
type InvoicesModel struct {
	app         *app.App
	invoices    []*domain.Invoice
	clientCache map[string]*domain.Client
	cursor      int
	loading     bool
	err         error
	statusMsg   string

	mode invoiceMode

	// Detail state
	detail      *domain.Invoice
	entryCursor int

	// Generate form state
	clientInput  textinput.Model
	preview      *domain.Invoice
	previewName  string
	pendingInput *service.GenerateInput
}

type invoicesDataMsg struct {
	invoices    []*domain.Invoice
	clientCache map[string]*domain.Client
	err         error
}

type invoiceDetailMsg struct {
	invoice *domain.Invoice
	err     error
}

type invoiceActionMsg struct {
	status string
	err    error
}

type invoicePreviewMsg struct {
	clientName string
	invoice    *domain.Invoice
	input      *service.GenerateInput
	err        error
}

// NewInvoicesModel creates a new invoices screen model
func NewInvoicesModel(a *app.App) tea.Model {
	return &InvoicesModel{
		app:         a,
		clientCache: make(map[string]*domain.Client),
		loading:     true,
	}
}

// IsCapturingInput returns true when the generate form is active
func (m *InvoicesModel) IsCapturingInput() bool {
	return m.mode == invoiceModeGenerate
}

func (m *InvoicesModel) Init() tea.Cmd {
	return m.loadInvoices()
}

func (m *InvoicesModel) loadInvoices() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		invoices, err := m.app.InvoiceService.List(ctx, nil, nil, nil)
		if err != nil {
			return invoicesDataMsg{err: err}
		}

		cache := make(map[string]*domain.Client)
		clients, err := m.app.ClientService.List(ctx, true)
		if err == nil {
			for _, c := range clients {
				cache[c.ID] = c
			}
		}

		return invoicesDataMsg{invoices: invoices, clientCache: cache}
	}
}

func (m *InvoicesModel) loadDetail(id string) tea.Cmd {
	return func() tea.Msg {
		invoice, err := m.app.InvoiceService.Get(context.Background(), id)
		return invoiceDetailMsg{invoice: invoice, err: err}
	}
}

// previewInvoice prices everything unbilled in the named client's subtree
// without persisting anything. Generation happens only after confirmation.
func (m *InvoicesModel) previewInvoice(clientArg string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()

		client, err := m.app.ClientService.GetByName(ctx, clientArg)
		if err != nil {
			return invoicePreviewMsg{err: fmt.Errorf("client %q not found", clientArg)}
		}

		work, err := m.app.InvoiceService.UnbilledForClient(ctx, client.ID)
		if err != nil {
			return invoicePreviewMsg{err: err}
		}
		if len(work.Entries) == 0 && len(work.Addons) == 0 {
			return invoicePreviewMsg{err: fmt.Errorf("no unbilled work for %s", client.Name)}
		}

		input := &service.GenerateInput{ClientID: client.ID}
		for _, e := range work.Entries {
			input.EntryIDs = append(input.EntryIDs, e.ID)
		}
		for _, a := range work.Addons {
			input.TicketAddonIDs = append(input.TicketAddonIDs, a.ID)
		}

		invoice, err := m.app.InvoiceService.Preview(ctx, *input)
		if err != nil {
			return invoicePreviewMsg{err: err}
		}
		return invoicePreviewMsg{clientName: client.Name, invoice: invoice, input: input}
	}
}

func (m *InvoicesModel) generateInvoice() tea.Cmd {
	input := *m.pendingInput
	return func() tea.Msg {
		invoice, err := m.app.InvoiceService.Generate(context.Background(), input)
		if err != nil {
			return invoiceActionMsg{err: err}
		}
		return invoiceActionMsg{status: fmt.Sprintf("Generated %s: %s", invoice.InvoiceNumber, formatMoney(invoice.TotalAmount))}
	}
}

func (m *InvoicesModel) sendInvoice() tea.Cmd {
	id := m.detail.ID
	number := m.detail.InvoiceNumber
	return func() tea.Msg {
		if err := m.app.InvoiceService.MarkSent(context.Background(), id); err != nil {
			return invoiceActionMsg{err: err}
		}
		return invoiceActionMsg{status: fmt.Sprintf("Invoice %s sent", number)}
	}
}

func (m *InvoicesModel) deleteInvoice() tea.Cmd {
	id := m.detail.ID
	number := m.detail.InvoiceNumber
	return func() tea.Msg {
		if err := m.app.InvoiceService.Delete(context.Background(), id); err != nil {
			return invoiceActionMsg{err: err}
		}
		return invoiceActionMsg{status: fmt.Sprintf("Invoice %s deleted, entries released", number)}
	}
}

func (m *InvoicesModel) detachEntry() tea.Cmd {
	if m.entryCursor >= len(m.detail.Entries) {
		return nil
	}
	invoiceID := m.detail.ID
	entryID := m.detail.Entries[m.entryCursor].ID
	return func() tea.Msg {
		invoice, err := m.app.InvoiceService.DetachEntry(context.Background(), invoiceID, entryID)
		if err != nil {
			return invoiceActionMsg{err: err}
		}
		return invoiceDetailMsg{invoice: invoice}
	}
}

func (m *InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		m.mode = invoiceModeList
		m.preview = nil
		m.pendingInput = nil
		return m, m.loadInvoices()

	case invoicesDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.invoices = msg.invoices
			m.clientCache = msg.clientCache
			if m.cursor >= len(m.invoices) {
				m.cursor = max(0, len(m.invoices)-1)
			}
		}
		return m, nil

	case invoiceDetailMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.detail = msg.invoice
		m.mode = invoiceModeDetail
		if m.entryCursor >= len(m.detail.Entries) {
			m.entryCursor = max(0, len(m.detail.Entries)-1)
		}
		return m, nil

	case invoicePreviewMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.preview = msg.invoice
		m.previewName = msg.clientName
		m.pendingInput = msg.input
		return m, nil

	case invoiceActionMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.statusMsg = msg.status
		m.mode = invoiceModeList
		m.detail = nil
		m.preview = nil
		m.pendingInput = nil
		m.loading = true
		return m, m.loadInvoices()

	case tea.KeyMsg:
		m.statusMsg = ""
		m.err = nil

		switch m.mode {
		case invoiceModeGenerate:
			if m.preview != nil {
				switch msg.String() {
				case "esc":
					m.preview = nil
					m.pendingInput = nil
					return m, nil
				case "enter", "y":
					return m, m.generateInvoice()
				}
				return m, nil
			}
			switch msg.String() {
			case "esc":
				m.mode = invoiceModeList
				return m, nil
			case "enter":
				clientArg := strings.TrimSpace(m.clientInput.Value())
				if clientArg == "" {
					m.err = fmt.Errorf("client name is required")
					return m, nil
				}
				return m, m.previewInvoice(clientArg)
			}
			var cmd tea.Cmd
			m.clientInput, cmd = m.clientInput.Update(msg)
			return m, cmd

		case invoiceModeDetail:
			switch {
			case key.Matches(msg, DefaultKeyMap.Back):
				m.mode = invoiceModeList
				m.detail = nil
				return m, nil
			case key.Matches(msg, DefaultKeyMap.Up):
				if m.entryCursor > 0 {
					m.entryCursor--
				}
			case key.Matches(msg, DefaultKeyMap.Down):
				if m.entryCursor < len(m.detail.Entries)-1 {
					m.entryCursor++
				}
			case key.Matches(msg, DefaultKeyMap.Send):
				return m, m.sendInvoice()
			case key.Matches(msg, DefaultKeyMap.Delete):
				return m, m.deleteInvoice()
			case key.Matches(msg, DefaultKeyMap.Detach):
				return m, m.detachEntry()
			}
			return m, nil

		default: // list
			if m.loading {
				return m, nil
			}
			switch {
			case key.Matches(msg, DefaultKeyMap.Up):
				if m.cursor > 0 {
					m.cursor--
				}
			case key.Matches(msg, DefaultKeyMap.Down):
				if m.cursor < len(m.invoices)-1 {
					m.cursor++
				}
			case msg.String() == "n":
				m.mode = invoiceModeGenerate
				m.preview = nil
				m.pendingInput = nil
				m.clientInput = textinput.New()
				m.clientInput.Placeholder = "Client name"
				m.clientInput.CharLimit = 100
				m.clientInput.Width = 40
				m.clientInput.Focus()
				return m, textinput.Blink
			case key.Matches(msg, DefaultKeyMap.Select):
				if len(m.invoices) > 0 && m.cursor < len(m.invoices) {
					m.entryCursor = 0
					return m, m.loadDetail(m.invoices[m.cursor].ID)
				}
			}
		}
	}

	return m, nil
}

func (m *InvoicesModel) View() string {
	switch m.mode {
	case invoiceModeGenerate:
		return m.viewGenerate()
	case invoiceModeDetail:
		return m.viewDetail()
	}
	return m.viewList()
}

func (m *InvoicesModel) viewGenerate() string {
	s := titleStyle.Render("Generate Invoice") + "\n\n"

	if m.preview != nil {
		inv := m.preview
		s += fmt.Sprintf("  Client:  %s\n", m.previewName)
		s += fmt.Sprintf("  Entries: %d (%s)\n", len(inv.Entries), formatHours(float64(inv.TotalMinutes)/60))
		if len(inv.Addons) > 0 {
			s += fmt.Sprintf("  Addons:  %d\n", len(inv.Addons))
		}
		s += fmt.Sprintf("  Amount:  %s\n", formatMoney(inv.TotalAmount))
		s += fmt.Sprintf("  Profit:  %s\n\n", formatMoney(inv.TotalProfit))
		s += "Nothing is saved yet. Generating locks these entries.\n\n"
		if m.err != nil {
			s += lipgloss.NewStyle().Foreground(errorColor).
				Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
		}
		s += helpStyle.Render("  enter: generate  esc: back")
		return s
	}

	s += "Bills all unbilled work for the client and its descendants.\n\n"
	s += "Client:\n  " + m.clientInput.View() + "\n\n"
	if m.err != nil {
		s += lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n\n"
	}
	s += helpStyle.Render("  enter: preview  esc: cancel")
	return s
}

func (m *InvoicesModel) viewDetail() string {
	inv := m.detail
	if inv == nil {
		return "Loading invoice..."
	}

	var s string
	status := draftStyle.Render("DRAFT")
	if inv.Sent {
		status = sentStyle.Render("SENT")
	}
	s += titleStyle.Render(fmt.Sprintf("Invoice %s", inv.InvoiceNumber)) + "  " + status + "\n\n"
	s += fmt.Sprintf("  Client: %s\n", clientName(m.clientCache, &inv.ClientID))
	s += fmt.Sprintf("  Date:   %s\n\n", inv.Date.Format("2006-01-02"))

	if len(inv.Entries) > 0 {
		s += "  Entries:\n"
		for i, e := range inv.Entries {
			indicator := "    "
			if i == m.entryCursor {
				indicator = "  > "
			}
			amount := 0.0
			if e.BilledRate != nil {
				amount = e.Hours() * *e.BilledRate
			}
			line := fmt.Sprintf("%s%-10s %6s  %-32s %10s",
				indicator,
				e.Date.Format("Jan 2"),
				formatHours(e.Hours()),
				truncateStr(e.Description, 32),
				formatMoney(amount),
			)
			style := lipgloss.NewStyle()
			if i == m.entryCursor {
				style = style.Bold(true).Foreground(primaryColor)
			}
			s += style.Render(line) + "\n"
		}
	}

	if len(inv.Addons) > 0 {
		s += "\n  Addons:\n"
		for _, a := range inv.Addons {
			s += fmt.Sprintf("    %-41s x%-3d %10s\n",
				truncateStr(a.Description, 41), a.Quantity, formatMoney(a.Totals().Amount))
		}
	}

	s += "\n"
	s += fmt.Sprintf("  Total time:   %s\n", formatHours(float64(inv.TotalMinutes)/60))
	s += fmt.Sprintf("  Total amount: %s\n", formatMoney(inv.TotalAmount))
	s += fmt.Sprintf("  Profit:       %s\n", formatMoney(inv.TotalProfit))

	if m.err != nil {
		s += "\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	if inv.CanEdit() {
		s += "\n" + helpStyle.Render("  j/k: select entry  x: detach entry  s: send  d: delete  esc: back")
	} else {
		s += "\n" + helpStyle.Render("  esc: back  (sent invoices are frozen)")
	}
	return s
}

func (m *InvoicesModel) viewList() string {
	if m.loading {
		return "Loading invoices..."
	}

	if m.err != nil {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string
	s += titleStyle.Render("Invoices") + "\n\n"

	if m.statusMsg != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.statusMsg) + "\n\n"
	}

	if len(m.invoices) == 0 {
		s += subtitleStyle.Render("  No invoices yet. Press 'n' to generate one.") + "\n"
		return s
	}

	for i, inv := range m.invoices {
		indicator := "  "
		if i == m.cursor {
			indicator = "> "
		}

		status := draftStyle.Render("draft")
		if inv.Sent {
			status = sentStyle.Render("sent ")
		}

		line := fmt.Sprintf("%s%-10s %-11s %-20s %6s %10s  %s",
			indicator,
			inv.InvoiceNumber,
			inv.Date.Format("2006-01-02"),
			truncateStr(clientName(m.clientCache, &inv.ClientID), 20),
			formatHours(float64(inv.TotalMinutes)/60),
			formatMoney(inv.TotalAmount),
			status,
		)

		style := lipgloss.NewStyle()
		if i == m.cursor {
			style = style.Bold(true).Foreground(primaryColor)
		}
		s += style.Render(line) + "\n"
	}

	s += "\n" + helpStyle.Render("  j/k: navigate  enter: open  n: generate")
	return s
}
