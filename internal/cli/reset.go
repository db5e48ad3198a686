package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset data in the database",
	Long: `Reset data in the database.

Examples:
  timevault reset entries     # Delete all time entries, invoices, and timer state
  timevault reset invoices    # Delete all invoices and release their entries
  timevault reset all         # Wipe everything except billing rates and statuses`,
}

// releaseEntries clears invoice claims so entries survive an invoice wipe
func releaseEntries() error {
	db := appInstance.DB
	_, err := db.Exec("UPDATE time_entries SET invoice_id = NULL, billed = 0, locked = 0, billed_rate = NULL WHERE invoice_id IS NOT NULL")
	if err != nil {
		return fmt.Errorf("failed to release entries: %w", err)
	}
	if _, err := db.Exec("UPDATE ticket_addons SET billed = 0 WHERE billed = 1"); err != nil {
		return fmt.Errorf("failed to release ticket addons: %w", err)
	}
	return nil
}

func clearTables(tables []string) error {
	db := appInstance.DB
	for _, table := range tables {
		if _, err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return nil
}

var resetEntriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Delete all time entries, invoices, and timer state",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL time entries, invoices, and timer state. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := releaseEntries(); err != nil {
			return err
		}

		// Order matters due to foreign keys
		if err := clearTables([]string{
			"invoice_addons",
			"invoices",
			"time_entries",
			"active_timer",
		}); err != nil {
			return err
		}

		fmt.Println("All time entries, invoices, and timer state have been deleted.")
		return nil
	},
}

var resetInvoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Delete all invoices and release their time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL invoices and release all claimed time entries. Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := releaseEntries(); err != nil {
			return err
		}

		if err := clearTables([]string{
			"invoice_addons",
			"invoices",
		}); err != nil {
			return err
		}

		fmt.Println("All invoices have been deleted and time entries released.")
		return nil
	},
}

var resetAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Delete ALL data: clients, entries, tickets, invoices, everything",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("This will delete ALL data (clients, entries, tickets, invoices, everything). Continue?") {
			fmt.Println("Cancelled.")
			return nil
		}

		if err := releaseEntries(); err != nil {
			return err
		}

		// Order matters due to foreign keys. Billing rates, ticket
		// statuses, and settings are seeded data and survive the wipe.
		if err := clearTables([]string{
			"invoice_addons",
			"invoices",
			"time_entries",
			"active_timer",
			"ticket_addons",
			"tickets",
			"client_rate_overrides",
			"clients",
		}); err != nil {
			return err
		}

		fmt.Println("All data has been deleted.")
		return nil
	},
}

func init() {
	resetCmd.AddCommand(resetEntriesCmd)
	resetCmd.AddCommand(resetInvoicesCmd)
	resetCmd.AddCommand(resetAllCmd)
}
