package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mshaw/timevault/internal/app"
	"github.com/mshaw/timevault/internal/domain"
)

// SettingsModel lists database settings and edits their values
type SettingsModel struct {
	app      *app.App
	settings []*domain.Setting
	cursor   int
	loading  bool
	err      error
	status   string

	editing    bool
	valueInput textinput.Model
}

type settingsDataMsg struct {
	settings []*domain.Setting
	err      error
}

type settingSavedMsg struct {
	key string
	err error
}

// NewSettingsModel creates a new settings screen model
func NewSettingsModel(a *app.App) tea.Model {
	return &SettingsModel{app: a, loading: true}
}

// IsCapturingInput returns true while a value is being edited
func (m *SettingsModel) IsCapturingInput() bool {
	return m.editing
}

func (m *SettingsModel) Init() tea.Cmd {
	return m.loadSettings()
}

func (m *SettingsModel) loadSettings() tea.Cmd {
	return func() tea.Msg {
		settings, err := m.app.SettingsRepo.List(context.Background())
		return settingsDataMsg{settings: settings, err: err}
	}
}

func (m *SettingsModel) saveSetting() tea.Cmd {
	setting := m.settings[m.cursor]
	value := m.valueInput.Value()
	return func() tea.Msg {
		err := m.app.SettingsRepo.Set(context.Background(), setting.Key, value)
		return settingSavedMsg{key: setting.Key, err: err}
	}
}

func (m *SettingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case RefreshDataMsg:
		m.loading = true
		return m, m.loadSettings()

	case settingsDataMsg:
		m.loading = false
		m.err = msg.err
		if msg.err == nil {
			m.settings = msg.settings
			if m.cursor >= len(m.settings) {
				m.cursor = max(0, len(m.settings)-1)
			}
		}
		return m, nil

	case settingSavedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.editing = false
		m.status = fmt.Sprintf("Saved %s", msg.key)
		m.loading = true
		return m, m.loadSettings()

	case tea.KeyMsg:
		m.status = ""
		m.err = nil

		if m.editing {
			switch msg.String() {
			case "esc":
				m.editing = false
				return m, nil
			case "enter":
				return m, m.saveSetting()
			}
			var cmd tea.Cmd
			m.valueInput, cmd = m.valueInput.Update(msg)
			return m, cmd
		}

		if m.loading {
			return m, nil
		}

		switch {
		case key.Matches(msg, DefaultKeyMap.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, DefaultKeyMap.Down):
			if m.cursor < len(m.settings)-1 {
				m.cursor++
			}
		case key.Matches(msg, DefaultKeyMap.Select):
			if len(m.settings) > 0 && m.cursor < len(m.settings) {
				m.editing = true
				m.valueInput = textinput.New()
				m.valueInput.SetValue(m.settings[m.cursor].Value)
				m.valueInput.CharLimit = 100
				m.valueInput.Width = 30
				m.valueInput.Focus()
				return m, textinput.Blink
			}
		}
	}

	return m, nil
}

func (m *SettingsModel) View() string {
	if m.loading {
		return "Loading settings..."
	}

	if m.err != nil && !m.editing {
		return lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("Error: %v", m.err))
	}

	var s string
	s += titleStyle.Render("Settings") + "\n\n"

	if m.status != "" {
		s += lipgloss.NewStyle().Foreground(successColor).
			Render("  "+m.status) + "\n\n"
	}

	for i, setting := range m.settings {
		indicator := "  "
		if i == m.cursor {
			indicator = "> "
		}

		label := setting.Label
		if label == "" {
			label = setting.Key
		}

		value := setting.Value
		if m.editing && i == m.cursor {
			value = m.valueInput.View()
		}

		line := fmt.Sprintf("%s%-28s %s", indicator, truncateStr(label, 28), value)

		style := lipgloss.NewStyle()
		if i == m.cursor {
			style = style.Bold(true).Foreground(primaryColor)
		}
		s += style.Render(line) + "\n"
		if i == m.cursor && setting.Description != "" {
			s += subtitleStyle.Render("    "+setting.Description) + "\n"
		}
	}

	if m.editing && m.err != nil {
		s += "\n" + lipgloss.NewStyle().Foreground(errorColor).
			Render(fmt.Sprintf("  Error: %v", m.err)) + "\n"
	}

	if m.editing {
		s += "\n" + helpStyle.Render("  enter: save  esc: cancel")
	} else {
		s += "\n" + helpStyle.Render("  j/k: navigate  enter: edit value")
	}
	return s
}
