package cli

import (
	"context"
	"fmt"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/spf13/cobra"
)

var ticketsCmd = &cobra.Command{
	Use:   "tickets",
	Short: "Manage tickets",
	Long:  `List and manage tickets, their workflow statuses, and billable addons.`,
}

var ticketsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tickets",
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

		tickets, err := appInstance.TicketService.List(ctx, clientID)
		if err != nil {
			return fmt.Errorf("failed to list tickets: %w", err)
		}

		if len(tickets) == 0 {
			fmt.Println("No tickets found")
			return nil
		}

		statuses, err := appInstance.TicketService.Statuses(ctx)
		if err != nil {
			return err
		}
		statusName := make(map[string]string, len(statuses))
		for _, st := range statuses {
			statusName[st.ID] = st.Name
		}

		fmt.Printf("%-38s %-40s %-14s\n", "ID", "Title", "Status")
		fmt.Println("----------------------------------------------------------------------------------------------")
		for _, t := range tickets {
			fmt.Printf("%-38s %-40s %-14s\n", t.ID, truncate(t.Title, 40), statusName[t.StatusID])
		}
		return nil
	},
}

var ticketsAddCmd = &cobra.Command{
	Use:   "add [title]",
	Short: "Create a new ticket",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		statusID, _ := cmd.Flags().GetString("status")
		ticket := domain.NewTicket(args[0], statusID)

		if cmd.Flags().Changed("client") {
			clientArg, _ := cmd.Flags().GetString("client")
			client, err := resolveClient(ctx, clientArg)
			if err != nil {
				return err
			}
			ticket.ClientID = &client.ID
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			ticket.Notes = notes
		}

		if err := appInstance.TicketService.Create(ctx, ticket); err != nil {
			return fmt.Errorf("failed to create ticket: %w", err)
		}

		fmt.Printf("✓ Ticket created: %s (ID: %s)\n", ticket.Title, ticket.ID)
		return nil
	},
}

var ticketsStatusCmd = &cobra.Command{
	Use:   "status [ticket_id] [status_name]",
	Short: "Move a ticket to a workflow status",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		ticket, err := appInstance.TicketService.Get(ctx, args[0])
		if err != nil {
			return err
		}

		statuses, err := appInstance.TicketService.Statuses(ctx)
		if err != nil {
			return err
		}
		var target *domain.TicketStatus
		for _, st := range statuses {
			if st.ID == args[1] || st.Name == args[1] {
				target = st
				break
			}
		}
		if target == nil {
			return fmt.Errorf("no ticket status with ID or name %q", args[1])
		}

		ticket.StatusID = target.ID
		if err := appInstance.TicketService.Update(ctx, ticket); err != nil {
			return fmt.Errorf("failed to update ticket: %w", err)
		}

		fmt.Printf("✓ %s → %s\n", ticket.Title, target.Name)
		return nil
	},
}

var ticketsStatusesCmd = &cobra.Command{
	Use:   "statuses",
	Short: "List ticket workflow statuses",
	RunE: func(cmd *cobra.Command, args []string) error {
		statuses, err := appInstance.TicketService.Statuses(context.Background())
		if err != nil {
			return err
		}

		fmt.Printf("%-38s %-20s %-8s %-8s\n", "ID", "Name", "Default", "Closed")
		fmt.Println("----------------------------------------------------------------------------")
		for _, st := range statuses {
			def, closed := "", ""
			if st.IsDefault {
				def = "✓"
			}
			if st.IsClosed {
				closed = "✓"
			}
			fmt.Printf("%-38s %-20s %-8s %-8s\n", st.ID, st.Name, def, closed)
		}
		return nil
	},
}

var ticketsAddonCmd = &cobra.Command{
	Use:   "addon [ticket_id] [description]",
	Short: "Attach a billable addon to a ticket",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		amount, _ := cmd.Flags().GetFloat64("amount")
		cost, _ := cmd.Flags().GetFloat64("cost")

		addon := &domain.TicketAddon{
			TicketID:    args[0],
			Description: args[1],
			Amount:      amount,
			Cost:        cost,
		}
		if err := addon.Validate(); err != nil {
			return err
		}

		if err := appInstance.TicketService.AddAddon(ctx, addon); err != nil {
			return fmt.Errorf("failed to add addon: %w", err)
		}

		fmt.Printf("✓ Addon added: %s ($%.2f)\n", addon.Description, addon.Amount)
		return nil
	},
}

var ticketsAddonsCmd = &cobra.Command{
	Use:   "addons [ticket_id]",
	Short: "List a ticket's addons",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addons, err := appInstance.TicketService.AddonsForTicket(context.Background(), args[0])
		if err != nil {
			return err
		}

		if len(addons) == 0 {
			fmt.Println("No addons found")
			return nil
		}

		fmt.Printf("%-38s %-40s %10s %-8s\n", "ID", "Description", "Amount", "Billed")
		fmt.Println("--------------------------------------------------------------------------------------------------")
		for _, a := range addons {
			billed := ""
			if a.Billed {
				billed = "✓"
			}
			fmt.Printf("%-38s %-40s %10.2f %-8s\n", a.ID, truncate(a.Description, 40), a.Amount, billed)
		}
		return nil
	},
}

func init() {
	ticketsCmd.AddCommand(ticketsListCmd)
	ticketsCmd.AddCommand(ticketsAddCmd)
	ticketsCmd.AddCommand(ticketsStatusCmd)
	ticketsCmd.AddCommand(ticketsStatusesCmd)
	ticketsCmd.AddCommand(ticketsAddonCmd)
	ticketsCmd.AddCommand(ticketsAddonsCmd)

	ticketsListCmd.Flags().String("client", "", "Filter by client (ID or name)")

	ticketsAddCmd.Flags().String("client", "", "Client the ticket belongs to (ID or name)")
	ticketsAddCmd.Flags().String("status", "", "Status ID (default: the default status)")
	ticketsAddCmd.Flags().String("notes", "", "Ticket notes")

	ticketsAddonCmd.Flags().Float64("amount", 0, "Amount to charge the client")
	ticketsAddonCmd.Flags().Float64("cost", 0, "Internal cost")
	ticketsAddonCmd.MarkFlagRequired("amount")
}
