package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
)

// TimerTickMsg is sent every second when timer is running (screen-local)
type TimerTickMsg struct{}

// tickTimer returns a command that sends TimerTickMsg every second
func tickTimer() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TimerTickMsg{}
	})
}

// clientsLoadedMsg is sent when clients are loaded
type clientsLoadedMsg struct {
	clients []*domain.Client
	err     error
}

// timerStoppedMsg is sent when a timer is stopped successfully
type timerStoppedMsg struct {
	entry *domain.TimeEntry
}

// loadClientsCmd loads the list of active clients
func loadClientsCmd(a *app.App) tea.Cmd {
	return func() tea.Msg {
		clients, err := a.ClientService.List(context.Background(), false)
		return clientsLoadedMsg{clients: clients, err: err}
	}
}

// TimerModel is a simple screen showing the active timer and controls
type TimerModel struct {
	app       *app.App
	timer     *domain.ActiveTimer
	clients   []*domain.Client
	client    *domain.Client // current timer's client
	err       error
	statusMsg string

	// Pending start: a client has been picked, waiting for a description
	pendingClient *domain.Client
	descInput     textinput.Model
}

// IsCapturingInput returns true when a timer is active or the description
// prompt is open, so keys like r, s, d are not intercepted by navigation.
func (m *TimerModel) IsCapturingInput() bool {
	return m.timer != nil || m.pendingClient != nil
}

// NewTimerModel creates a new TimerModel
func NewTimerModel(a *app.App) tea.Model {
	m := &TimerModel{app: a}
	t, err := a.TimerService.GetActiveTimer(context.Background())
	if err != nil {
		m.err = err
	}
	m.timer = t
	return m
}

// Init starts the ticker when there's an active timer and loads clients
func (m *TimerModel) Init() tea.Cmd {
	var cmds []tea.Cmd
	cmds = append(cmds, loadClientsCmd(m.app))
	if m.timer != nil {
		cmds = append(cmds, tickTimer())
	}
	return tea.Batch(cmds...)
}

// Update handles key events and ticks
func (m *TimerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		var cmds []tea.Cmd
		cmds = append(cmds, loadClientsCmd(m.app))
		t, err := m.app.TimerService.GetActiveTimer(context.Background())
		if err != nil {
			m.err = err
		} else {
			m.timer = t
			if t != nil {
				m.loadTimerClient()
				cmds = append(cmds, tickTimer())
			}
		}
		return m, tea.Batch(cmds...)

	case clientsLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.clients = msg.clients
		if m.timer != nil {
			m.loadTimerClient()
		}
		return m, nil

	case timerStoppedMsg:
		m.timer = nil
		m.client = nil
		m.statusMsg = fmt.Sprintf("Entry saved: %s", formatHours(msg.entry.Hours()))
		return m, nil

	case TimerTickMsg:
		if m.timer == nil {
			return m, nil
		}
		t, err := m.app.TimerService.GetActiveTimer(context.Background())
		if err != nil {
			m.err = err
			return m, nil
		}
		if t == nil {
			// Timer was stopped externally (e.g. CLI)
			m.timer = nil
			m.client = nil
			return m, nil
		}
		m.timer = t
		return m, tickTimer()

	case tea.KeyMsg:
		m.err = nil
		m.statusMsg = ""

		// Description prompt for a pending start
		if m.pendingClient != nil && m.timer == nil {
			switch msg.String() {
			case "esc":
				m.pendingClient = nil
				return m, nil
			case "enter":
				return m, m.startTimer(m.pendingClient, m.descInput.Value())
			}
			var cmd tea.Cmd
			m.descInput, cmd = m.descInput.Update(msg)
			return m, cmd
		}

		switch msg.String() {
		case "1", "2", "3", "4", "5", "6", "7", "8", "9":
			if m.timer == nil && m.clients != nil {
				idx := int(msg.String()[0] - '1')
				if idx >= 0 && idx < len(m.clients) && idx < 9 {
					m.openDescPrompt(m.clients[idx])
					return m, textinput.Blink
				}
			}
		case "s":
			if m.timer == nil && len(m.clients) > 0 {
				m.openDescPrompt(m.clients[0])
				return m, textinput.Blink
			}
		case "p":
			if m.timer != nil {
				if err := m.app.TimerService.Pause(context.Background()); err != nil {
					m.err = err
					return m, nil
				}
				m.timer, _ = m.app.TimerService.GetActiveTimer(context.Background())
			}
			return m, nil
		case "r":
			if m.timer != nil {
				if err := m.app.TimerService.Resume(context.Background()); err != nil {
					m.err = err
					return m, nil
				}
				m.timer, _ = m.app.TimerService.GetActiveTimer(context.Background())
				return m, tickTimer()
			}
		case "x":
			if m.timer != nil {
				return m, m.stopTimer()
			}
			return m, nil
		case "d":
			if m.timer != nil {
				if err := m.app.TimerService.Discard(context.Background()); err != nil {
					m.err = err
					return m, nil
				}
				m.timer = nil
				m.client = nil
				m.statusMsg = "Timer discarded"
			}
			return m, nil
		}
	}

	return m, nil
}

func (m *TimerModel) openDescPrompt(client *domain.Client) {
	m.pendingClient = client
	m.descInput = textinput.New()
	m.descInput.Placeholder = "What are you working on?"
	m.descInput.CharLimit = 200
	m.descInput.Width = 50
	m.descInput.Focus()
}

func (m *TimerModel) startTimer(client *domain.Client, description string) tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		if err := m.app.TimerService.Start(ctx, &client.ID, nil, description); err != nil {
			return ErrorMsg{Err: err}
		}
		t, err := m.app.TimerService.GetActiveTimer(ctx)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		m.timer = t
		m.client = client
		m.pendingClient = nil
		return TimerTickMsg{}
	}
}

func (m *TimerModel) stopTimer() tea.Cmd {
	return func() tea.Msg {
		ctx := context.Background()
		entry, err := m.app.TimerService.Stop(ctx)
		if err != nil {
			return ErrorMsg{Err: err}
		}
		return timerStoppedMsg{entry: entry}
	}
}

// loadTimerClient loads the client details for the active timer
func (m *TimerModel) loadTimerClient() {
	if m.timer == nil || m.timer.ClientID == nil {
		m.client = nil
		return
	}
	client, err := m.app.ClientService.Get(context.Background(), *m.timer.ClientID)
	if err != nil {
		m.client = nil
		return
	}
	m.client = client
}

// effectiveHourlyRate resolves what the timer's client pays for the default
// billing rate, for the value-accrued display. Zero when unresolvable.
func (m *TimerModel) effectiveHourlyRate() float64 {
	if m.client == nil {
		return 0
	}
	ctx := context.Background()
	defaultRate, err := m.app.RateRepo.GetDefault(ctx)
	if err != nil || defaultRate == nil {
		return 0
	}
	rate, err := m.app.ClientService.EffectiveRate(ctx, m.client.ID, defaultRate.ID)
	if err != nil {
		return 0
	}
	return rate
}

// View renders the timer screen
func (m *TimerModel) View() string {
	title := lipgloss.NewStyle().Bold(true).Render("Active Timer")

	if m.err != nil {
		return title + "\n\n" +
			lipgloss.NewStyle().Foreground(errorColor).
				Render(fmt.Sprintf("Error: %s", m.err.Error())) +
			"\n\nPress any key to dismiss"
	}

	if m.timer == nil && m.pendingClient != nil {
		b := title + "\n\n"
		b += fmt.Sprintf("Starting timer for %s\n\n", m.pendingClient.Name)
		b += "Description:\n  " + m.descInput.View() + "\n"
		b += "\nKeys: enter=start, esc=cancel\n"
		return b
	}

	if m.timer == nil {
		// No active timer - show client selection
		b := title + "\n\n"

		if m.statusMsg != "" {
			b += lipgloss.NewStyle().Foreground(successColor).
				Render("  "+m.statusMsg) + "\n\n"
		}

		b += "No active timer. Select a client to start:\n\n"

		if m.clients == nil {
			b += "Loading clients...\n"
		} else if len(m.clients) == 0 {
			b += "No clients available. Add a client first.\n"
		} else {
			for i, client := range m.clients {
				if i >= 9 {
					break
				}
				shortcut := fmt.Sprintf("[%d]", i+1)
				b += fmt.Sprintf("%s %s (%s)\n", shortcut, client.Name, string(client.Type))
			}
		}
		b += "\nKeys: 1-9=quick start, s=start with first client\n"
		return b
	}

	// Active timer view
	elapsed := m.timer.Elapsed()

	hours := int(elapsed.Hours())
	minutes := int(elapsed.Minutes()) % 60
	seconds := int(elapsed.Seconds()) % 60
	elapsedStr := fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)

	name := "(no client)"
	if m.client != nil {
		name = m.client.Name
	}
	rate := m.effectiveHourlyRate()

	var stateStr string
	if m.timer.State() == domain.TimerStatePaused {
		stateStr = timerPausedStyle.Render("PAUSED")
	} else {
		stateStr = timerRunningStyle.Render("RUNNING")
	}

	b := title + "\n\n"
	b += fmt.Sprintf("State: %s\n", stateStr)
	b += fmt.Sprintf("Client: %s\n", name)
	if rate > 0 {
		b += fmt.Sprintf("Rate: %s/hr\n", formatMoney(rate))
	}
	if m.timer.Description != "" {
		b += fmt.Sprintf("Description: %s\n", m.timer.Description)
	}
	b += fmt.Sprintf("Started: %s\n", m.timer.StartTime.Format("2006-01-02 15:04:05"))
	b += fmt.Sprintf("Elapsed: %s\n", elapsedStr)
	if rate > 0 {
		valueStr := timerValueStyle.Render(formatMoney(elapsed.Hours() * rate))
		b += fmt.Sprintf("Value accrued: %s\n", valueStr)
	}
	b += "\nKeys: p=pause, r=resume, x=stop, d=discard\n"
	return b
}
