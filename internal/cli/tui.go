package cli

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mshaw/timevault/internal/tui"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive TUI",
	Run:   launchTUI,
}

func launchTUI(cmd *cobra.Command, args []string) {
	p := tea.NewProgram(tui.New(appInstance), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running TUI: %v\n", err)
	}
}
