package cli

import (
	"github.com/mshaw/timevault/internal/app"
	"github.com/spf13/cobra"
)

var appInstance *app.App

var rootCmd = &cobra.Command{
	Use:   "timevault",
	Short: "A CLI for client time tracking and invoicing",
	Long: `Timevault tracks time against a hierarchy of clients, prices it through
per-client billing rate overrides, and turns unbilled work into invoices.

By default, running timevault without arguments launches the interactive TUI.
Use subcommands for CLI operations.`,
	Run: func(cmd *cobra.Command, args []string) {
		// Default behavior: launch TUI
		launchTUI(cmd, args)
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// SetApp sets the app instance for commands to use
func SetApp(a *app.App) {
	appInstance = a
}

func init() {
	// Add all subcommands
	rootCmd.AddCommand(timerCmd)
	rootCmd.AddCommand(clientsCmd)
	rootCmd.AddCommand(ratesCmd)
	rootCmd.AddCommand(entriesCmd)
	rootCmd.AddCommand(ticketsCmd)
	rootCmd.AddCommand(invoicesCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(tuiCmd)
}
