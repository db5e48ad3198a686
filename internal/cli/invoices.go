package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mshaw/timevault/internal/domain"
	"github.com/mshaw/timevault/internal/service"
	"github.com/spf13/cobra"
)

var invoicesCmd = &cobra.Command{
	Use:   "invoices",
	Short: "Manage invoices",
	Long: `Preview and generate invoices from unbilled work, and manage drafts.
Generating an invoice locks its time entries; sending it freezes it entirely.`,
}

var invoicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List invoices",
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

		var from, to *time.Time
		if cmd.Flags().Changed("from") {
			fromStr, _ := cmd.Flags().GetString("from")
			t, err := parseDate(fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			from = &t
		}
		if cmd.Flags().Changed("to") {
			toStr, _ := cmd.Flags().GetString("to")
			t, err := parseDate(toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}
			t = t.AddDate(0, 0, 1).Add(-time.Second)
			to = &t
		}

		invoices, err := appInstance.InvoiceService.List(ctx, clientID, from, to)
		if err != nil {
			return fmt.Errorf("failed to list invoices: %w", err)
		}

		if len(invoices) == 0 {
			fmt.Println("No invoices found")
			return nil
		}

		fmt.Printf("%-38s %-12s %-12s %10s %10s %-8s\n", "ID", "Number", "Date", "Hours", "Amount", "Status")
		fmt.Println("----------------------------------------------------------------------------------------------------")
		for _, inv := range invoices {
			status := "Draft"
			if inv.Sent {
				status = "Sent"
			}
			fmt.Printf("%-38s %-12s %-12s %10.2f %10.2f %-8s\n",
				inv.ID,
				inv.InvoiceNumber,
				inv.Date.Format("2006-01-02"),
				float64(inv.TotalMinutes)/60,
				inv.TotalAmount,
				status,
			)
		}
		return nil
	},
}

var invoicesUnbilledCmd = &cobra.Command{
	Use:   "unbilled [client]",
	Short: "Show unbilled work for a client and its descendants",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		work, err := appInstance.InvoiceService.UnbilledForClient(ctx, client.ID)
		if err != nil {
			return fmt.Errorf("failed to load unbilled work: %w", err)
		}

		if len(work.Entries) == 0 && len(work.Addons) == 0 {
			fmt.Printf("No unbilled work for %s\n", client.Name)
			return nil
		}

		if len(work.Entries) > 0 {
			fmt.Printf("Unbilled time entries for %s:\n\n", client.Name)
			fmt.Printf("%-38s %-12s %-36s %10s\n", "ID", "Date", "Description", "Duration")
			fmt.Println("----------------------------------------------------------------------------------------------------")
			var totalMinutes int
			for _, e := range work.Entries {
				fmt.Printf("%-38s %-12s %-36s %10s\n",
					e.ID, e.Date.Format("2006-01-02"), truncate(e.Description, 36), formatMinutes(e.Minutes))
				totalMinutes += e.Minutes
			}
			fmt.Printf("\n%d entries, %s\n", len(work.Entries), formatMinutes(totalMinutes))
		}

		if len(work.Addons) > 0 {
			fmt.Printf("\nUnbilled ticket addons:\n\n")
			fmt.Printf("%-38s %-44s %10s\n", "ID", "Description", "Amount")
			fmt.Println("----------------------------------------------------------------------------------------------")
			for _, a := range work.Addons {
				fmt.Printf("%-38s %-44s %10.2f\n", a.ID, truncate(a.Description, 44), a.Amount)
			}
		}
		return nil
	},
}

// buildGenerateInput assembles the generation input shared by preview and
// generate. With --all it selects everything unbilled in the client subtree.
func buildGenerateInput(ctx context.Context, cmd *cobra.Command, client *domain.Client) (service.GenerateInput, error) {
	input := service.GenerateInput{ClientID: client.ID}

	all, _ := cmd.Flags().GetBool("all")
	if all {
		work, err := appInstance.InvoiceService.UnbilledForClient(ctx, client.ID)
		if err != nil {
			return input, err
		}
		for _, e := range work.Entries {
			input.EntryIDs = append(input.EntryIDs, e.ID)
		}
		for _, a := range work.Addons {
			input.TicketAddonIDs = append(input.TicketAddonIDs, a.ID)
		}
	} else {
		input.EntryIDs, _ = cmd.Flags().GetStringSlice("entries")
		input.TicketAddonIDs, _ = cmd.Flags().GetStringSlice("ticket-addons")
	}

	// Free-form addon lines as "description:amount[:quantity]"
	addonSpecs, _ := cmd.Flags().GetStringArray("addon")
	for _, spec := range addonSpecs {
		addon, err := parseAddonSpec(spec)
		if err != nil {
			return input, err
		}
		input.ExtraAddons = append(input.ExtraAddons, addon)
	}

	if cmd.Flags().Changed("number") {
		input.InvoiceNumber, _ = cmd.Flags().GetString("number")
	}
	if cmd.Flags().Changed("date") {
		dateStr, _ := cmd.Flags().GetString("date")
		date, err := parseDate(dateStr)
		if err != nil {
			return input, fmt.Errorf("invalid --date: %w", err)
		}
		input.Date = date
	}

	return input, nil
}

func parseAddonSpec(spec string) (*domain.InvoiceAddon, error) {
	parts := strings.Split(spec, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid addon %q: expected 'description:amount[:quantity]'", spec)
	}

	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return nil, fmt.Errorf("invalid addon amount %q", parts[1])
	}

	quantity := 1
	if len(parts) == 3 {
		quantity, err = strconv.Atoi(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid addon quantity %q", parts[2])
		}
	}

	return &domain.InvoiceAddon{
		Description: parts[0],
		Amount:      amount,
		Quantity:    quantity,
	}, nil
}

func printInvoice(inv *domain.Invoice) {
	fmt.Printf("Invoice %s\n", inv.InvoiceNumber)
	if inv.Client != nil {
		fmt.Printf("Client:  %s\n", inv.Client.Name)
	}
	fmt.Printf("Date:    %s\n", inv.Date.Format("2006-01-02"))
	status := "Draft"
	if inv.Sent {
		status = "Sent"
	}
	fmt.Printf("Status:  %s\n\n", status)

	if len(inv.Entries) > 0 {
		fmt.Printf("%-12s %-40s %10s %10s\n", "Date", "Description", "Duration", "Amount")
		fmt.Println("----------------------------------------------------------------------------")
		for _, e := range inv.Entries {
			amount := 0.0
			if e.BilledRate != nil {
				amount = e.Hours() * *e.BilledRate
			}
			fmt.Printf("%-12s %-40s %10s %10.2f\n",
				e.Date.Format("2006-01-02"), truncate(e.Description, 40), formatMinutes(e.Minutes), amount)
		}
	}

	if len(inv.Addons) > 0 {
		fmt.Println()
		fmt.Printf("%-53s %10s %10s\n", "Addon", "Qty", "Amount")
		fmt.Println("----------------------------------------------------------------------------")
		for _, a := range inv.Addons {
			fmt.Printf("%-53s %10d %10.2f\n", truncate(a.Description, 53), a.Quantity, a.Totals().Amount)
		}
	}

	fmt.Println()
	fmt.Printf("Total time:   %s\n", formatMinutes(inv.TotalMinutes))
	fmt.Printf("Total amount: $%.2f\n", inv.TotalAmount)
	fmt.Printf("Total cost:   $%.2f\n", inv.TotalCost)
	fmt.Printf("Profit:       $%.2f\n", inv.TotalProfit)
}

var invoicesPreviewCmd = &cobra.Command{
	Use:   "preview [client]",
	Short: "Price an invoice without saving anything",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		input, err := buildGenerateInput(ctx, cmd, client)
		if err != nil {
			return err
		}

		invoice, err := appInstance.InvoiceService.Preview(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to preview invoice: %w", err)
		}
		invoice.Client = client

		printInvoice(invoice)
		return nil
	},
}

var invoicesGenerateCmd = &cobra.Command{
	Use:   "generate [client]",
	Short: "Generate an invoice, locking its time entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		input, err := buildGenerateInput(ctx, cmd, client)
		if err != nil {
			return err
		}

		invoice, err := appInstance.InvoiceService.Generate(ctx, input)
		if err != nil {
			return fmt.Errorf("failed to generate invoice: %w", err)
		}

		fmt.Printf("✓ Invoice %s generated for %s: $%.2f (%d entries, ID: %s)\n",
			invoice.InvoiceNumber, client.Name, invoice.TotalAmount, len(invoice.Entries), invoice.ID)
		return nil
	},
}

var invoicesShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show an invoice with its lines",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invoice, err := appInstance.InvoiceService.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		printInvoice(invoice)
		return nil
	},
}

var invoicesAddonsCmd = &cobra.Command{
	Use:   "addons [id]",
	Short: "Replace a draft invoice's addon lines",
	Long: `Replace a draft invoice's addon lines. Existing lines named with --keep
survive, new lines come from --addon, and everything else is removed.

Examples:
  timevault invoices addons INV_ID --keep-all --addon 'Domain renewal:20'
  timevault invoices addons INV_ID --keep ADDON_ID --addon 'Hosting:15:12'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.Get(ctx, args[0])
		if err != nil {
			return err
		}

		keepAll, _ := cmd.Flags().GetBool("keep-all")
		keepIDs, _ := cmd.Flags().GetStringSlice("keep")
		keep := make(map[string]bool, len(keepIDs))
		for _, id := range keepIDs {
			keep[id] = true
		}

		var addons []*domain.InvoiceAddon
		for _, existing := range invoice.Addons {
			if keepAll || keep[existing.ID] {
				addons = append(addons, existing)
			}
		}

		addonSpecs, _ := cmd.Flags().GetStringArray("addon")
		for _, spec := range addonSpecs {
			addon, err := parseAddonSpec(spec)
			if err != nil {
				return err
			}
			// Temp ids mark lines that do not exist yet
			addon.ID = "temp-" + uuid.New().String()
			addons = append(addons, addon)
		}

		updated, err := appInstance.InvoiceService.UpdateAddons(ctx, args[0], addons)
		if err != nil {
			return fmt.Errorf("failed to update addons: %w", err)
		}
		fmt.Printf("✓ Invoice %s now has %d addon lines, totals $%.2f\n",
			updated.InvoiceNumber, len(updated.Addons), updated.TotalAmount)
		return nil
	},
}

var invoicesDetachCmd = &cobra.Command{
	Use:   "detach [invoice_id] [entry_id]",
	Short: "Release a time entry from a draft invoice",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		invoice, err := appInstance.InvoiceService.DetachEntry(context.Background(), args[0], args[1])
		if err != nil {
			return fmt.Errorf("failed to detach entry: %w", err)
		}
		fmt.Printf("✓ Entry released; invoice %s now totals $%.2f\n", invoice.InvoiceNumber, invoice.TotalAmount)
		return nil
	},
}

var invoicesRecalcCmd = &cobra.Command{
	Use:   "recalc [id]",
	Short: "Recalculate a draft invoice's totals",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		invoice, err := appInstance.InvoiceService.RecalculateTotals(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to recalculate totals: %w", err)
		}
		fmt.Printf("✓ Invoice %s totals: $%.2f amount, $%.2f profit\n",
			invoice.InvoiceNumber, invoice.TotalAmount, invoice.TotalProfit)
		return nil
	},
}

var invoicesSendCmd = &cobra.Command{
	Use:   "send [id]",
	Short: "Mark an invoice as sent (one-way)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.Get(ctx, args[0])
		if err != nil {
			return err
		}
		if !invoice.Sent {
			if !confirmPrompt(fmt.Sprintf("Mark invoice %s as sent? This cannot be undone.", invoice.InvoiceNumber)) {
				fmt.Println("Cancelled")
				return nil
			}
		}

		if err := appInstance.InvoiceService.MarkSent(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to mark invoice sent: %w", err)
		}
		fmt.Printf("✓ Invoice %s marked as sent\n", invoice.InvoiceNumber)
		return nil
	},
}

var invoicesDeleteCmd = &cobra.Command{
	Use:   "delete [id]",
	Short: "Delete a draft invoice, releasing its entries",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		invoice, err := appInstance.InvoiceService.Get(ctx, args[0])
		if err != nil {
			return err
		}

		if !confirmPrompt(fmt.Sprintf("Delete invoice %s and release its %d entries?", invoice.InvoiceNumber, len(invoice.Entries))) {
			fmt.Println("Cancelled")
			return nil
		}

		if err := appInstance.InvoiceService.Delete(ctx, args[0]); err != nil {
			return fmt.Errorf("failed to delete invoice: %w", err)
		}
		fmt.Printf("✓ Invoice %s deleted\n", invoice.InvoiceNumber)
		return nil
	},
}

func init() {
	invoicesCmd.AddCommand(invoicesListCmd)
	invoicesCmd.AddCommand(invoicesUnbilledCmd)
	invoicesCmd.AddCommand(invoicesPreviewCmd)
	invoicesCmd.AddCommand(invoicesGenerateCmd)
	invoicesCmd.AddCommand(invoicesShowCmd)
	invoicesCmd.AddCommand(invoicesAddonsCmd)
	invoicesCmd.AddCommand(invoicesDetachCmd)
	invoicesCmd.AddCommand(invoicesRecalcCmd)
	invoicesCmd.AddCommand(invoicesSendCmd)
	invoicesCmd.AddCommand(invoicesDeleteCmd)

	invoicesListCmd.Flags().String("client", "", "Filter by client (ID or name)")
	invoicesListCmd.Flags().String("from", "", "Start date")
	invoicesListCmd.Flags().String("to", "", "End date (inclusive)")

	invoicesAddonsCmd.Flags().Bool("keep-all", false, "Keep all existing addon lines")
	invoicesAddonsCmd.Flags().StringSlice("keep", nil, "Existing addon IDs to keep")
	invoicesAddonsCmd.Flags().StringArray("addon", nil, "New addon line as 'description:amount[:quantity]'")

	for _, c := range []*cobra.Command{invoicesPreviewCmd, invoicesGenerateCmd} {
		c.Flags().Bool("all", false, "Include all unbilled entries and addons for the subtree")
		c.Flags().StringSlice("entries", nil, "Time entry IDs to include")
		c.Flags().StringSlice("ticket-addons", nil, "Ticket addon IDs to include")
		c.Flags().StringArray("addon", nil, "Extra addon line as 'description:amount[:quantity]'")
		c.Flags().String("number", "", "Invoice number (default: allocated from settings)")
		c.Flags().String("date", "", "Invoice date (default: today)")
	}
}
