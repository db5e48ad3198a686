package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/spf13/cobra"
)

var entriesCmd = &cobra.Command{
	Use:   "entries",
	Short: "Manage time entries",
	Long:  `List, log, edit, and delete time entries. Entries on an invoice are locked.`,
}

var entriesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List time entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		var clientID *string
		if cmd.Flags().Changed("client") {
			clientArg, _ := cmd.Flags().GetString("client")
			client, err := resolveClient(ctx, clientArg)
			if err != nil {
				return err
			}
			clientID = &client.ID
		}

		var start, end *time.Time
		if cmd.Flags().Changed("from") {
			fromStr, _ := cmd.Flags().GetString("from")
			t, err := parseDate(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			start = &t
		}
		if cmd.Flags().Changed("to") {
			toStr, _ := cmd.Flags().GetString("to")
			t, err := parseDate(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}
			// inclusive through the end of the day
			t = t.AddDate(0, 0, 1).Add(-time.Second)
			end = &t
		}

		includeBilled, _ := cmd.Flags().GetBool("billed")

		entries, err := appInstance.EntryService.List(ctx, clientID, start, end, includeBilled)
		if err != nil {
			return fmt.Errorf("failed to list entries: %w", err)
		}

		if len(entries) == 0 {
			fmt.Println("No time entries found")
			return nil
		}

		fmt.Printf("%-38s %-12s %-30s %10s %-8s\n", "ID", "Date", "Description", "Duration", "Status")
		fmt.Println("----------------------------------------------------------------------------------------------------")
		var totalMinutes int
		for _, e := range entries {
			status := "Open"
			if e.Billed {
				status = "Billed"
			} else if e.Locked {
				status = "Locked"
			} else if !e.Billable {
				status = "NB"
			}
			fmt.Printf("%-38s %-12s %-30s %10s %-8s\n",
				e.ID,
				e.Date.Format("2006-01-02"),
				truncate(e.Description, 30),
				formatMinutes(e.Minutes),
				status,
			)
			totalMinutes += e.Minutes
		}

		fmt.Printf("\nTotal: %d entries, %s\n", len(entries), formatMinutes(totalMinutes))
		return nil
	},
}

var entriesAddCmd = &cobra.Command{
	Use:   "add [client] [description]",
	Short: "Log a time entry",
	Long: `Log a time entry for a client. Provide the duration either as --minutes
or as an --end time; the other side is derived.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		startStr, _ := cmd.Flags().GetString("start")
		start := time.Now()
		if startStr != "" {
			start, err = parseDateTime(startStr)
			if err != nil {
				return fmt.Errorf("invalid --start: %w", err)
			}
		}

		entry := domain.NewTimeEntry(args[1], start)
		entry.ClientID = &client.ID

		if cmd.Flags().Changed("minutes") {
			minutes, _ := cmd.Flags().GetInt("minutes")
			entry.Minutes = minutes
		}
		if cmd.Flags().Changed("end") {
			endStr, _ := cmd.Flags().GetString("end")
			end, err := parseDateTime(endStr)
			if err != nil {
				return fmt.Errorf("invalid --end: %w", err)
			}
			entry.EndTime = &end
		}
		if cmd.Flags().Changed("date") {
			dateStr, _ := cmd.Flags().GetString("date")
			date, err := parseDate(dateStr)
			if err != nil {
				return fmt.Errorf("invalid --date: %w", err)
			}
			entry.Date = date
		}
		if cmd.Flags().Changed("rate") {
			rateArg, _ := cmd.Flags().GetString("rate")
			rate, err := resolveRate(ctx, rateArg)
			if err != nil {
				return err
			}
			entry.BillingRateID = &rate.ID
		}
		if cmd.Flags().Changed("ticket") {
			ticketID, _ := cmd.Flags().GetString("ticket")
			entry.TicketID = &ticketID
		}
		if nonBillable, _ := cmd.Flags().GetBool("non-billable"); nonBillable {
			entry.Billable = false
		}

		if err := appInstance.EntryService.Log(ctx, entry); err != nil {
			return fmt.Errorf("failed to log entry: %w", err)
		}

		fmt.Printf("✓ Logged %s for %s (ID: %s)\n", formatMinutes(entry.Minutes), client.Name, entry.ID)
		return nil
	},
}

var entriesEditCmd = &cobra.Command{
	Use:   "edit [id]",
	Short: "Edit a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		entry, err := appInstance.EntryService.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("description") {
			desc, _ := cmd.Flags().GetString("description")
			entry.Description = desc
		}
		if cmd.Flags().Changed("minutes") {
			minutes, _ := cmd.Flags().GetInt("minutes")
			entry.Minutes = minutes
			// drop the stale end time so it re-derives from minutes
			entry.EndTime = nil
		}
		if cmd.Flags().Changed("rate") {
			rateArg, _ := cmd.Flags().GetString("rate")
			rate, err := resolveRate(ctx, rateArg)
			if err != nil {
				return err
			}
			entry.BillingRateID = &rate.ID
		}
		if cmd.Flags().Changed("billable") {
			billable, _ := cmd.Flags().GetBool("billable")
			entry.Billable = billable
		}

		if err := appInstance.EntryService.Update(ctx, entry); err != nil {
			return fmt.Errorf("failed to update entry: %w", err)
		}

		fmt.Printf("✓ Entry updated: %s (%s)\n", truncate(entry.Description, 40), formatMinutes(entry.Minutes))
		return nil
	},
}

var entriesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a time entry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		entry, err := appInstance.EntryService.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if !confirmPrompt(fmt.Sprintf("Delete entry %q (%s)?", truncate(entry.Description, 40), formatMinutes(entry.Minutes))) {
			fmt.Println("Cancelled")
			return nil
		}

		if err := appInstance.EntryService.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}

		fmt.Println("✓ Entry deleted")
		return nil
	},
}

func init() {
	entriesCmd.AddCommand(entriesListCmd)
	entriesCmd.AddCommand(entriesAddCmd)
	entriesCmd.AddCommand(entriesEditCmd)
	entriesCmd.AddCommand(entriesDeleteCmd)

	entriesListCmd.Flags().String("client", "", "Filter by client (ID or name)")
	entriesListCmd.Flags().String("from", "", "Start date (today, yesterday, or YYYY-MM-DD)")
	entriesListCmd.Flags().String("to", "", "End date (inclusive)")
	entriesListCmd.Flags().Bool("billed", false, "Include billed entries")

	entriesAddCmd.Flags().String("start", "", "Start time ('YYYY-MM-DD HH:MM' or 'HH:MM', default now)")
	entriesAddCmd.Flags().Int("minutes", 0, "Duration in minutes")
	entriesAddCmd.Flags().String("end", "", "End time ('YYYY-MM-DD HH:MM' or 'HH:MM')")
	entriesAddCmd.Flags().String("date", "", "Entry date (default: start date)")
	entriesAddCmd.Flags().String("rate", "", "Billing rate (ID or name)")
	entriesAddCmd.Flags().String("ticket", "", "Ticket ID to associate")
	entriesAddCmd.Flags().Bool("non-billable", false, "Mark the entry non-billable")

	entriesEditCmd.Flags().String("description", "", "New description")
	entriesEditCmd.Flags().Int("minutes", 0, "New duration in minutes")
	entriesEditCmd.Flags().String("rate", "", "New billing rate (ID or name)")
	entriesEditCmd.Flags().Bool("billable", true, "Whether the entry is billable")
}
