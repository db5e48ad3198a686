package cli

import (
	"context"
	"fmt"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/spf13/cobra"
)

var clientsCmd = &cobra.Command{
	Use:   "clients",
	Short: "Manage clients",
	Long:  `List, add, edit, and archive clients, and manage their rate overrides.`,
}

var clientsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all clients as a tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		includeArchived, _ := cmd.Flags().GetBool("archived")

		clients, err := appInstance.ClientService.List(ctx, includeArchived)
		if err != nil {
			return fmt.Errorf("failed to list clients: %w", err)
		}

		if len(clients) == 0 {
			fmt.Println("No clients found")
			return nil
		}

		fmt.Printf("%-38s %-30s %-14s %-10s\n", "ID", "Name", "Type", "Status")
		fmt.Println("------------------------------------------------------------------------------------------")

		byID := make(map[string]*domain.Client, len(clients))
		for _, c := range clients {
			byID[c.ID] = c
		}
		var printTree func(c *domain.Client, depth int)
		printTree = func(c *domain.Client, depth int) {
			status := "Active"
			if c.IsArchived {
				status = "Archived"
			}
			indent := ""
			for i := 0; i < depth; i++ {
				indent += "  "
			}
			fmt.Printf("%-38s %-30s %-14s %-10s\n",
				c.ID,
				truncate(indent+c.Name, 30),
				string(c.Type),
				status,
			)
			for _, child := range clients {
				if child.ParentID != nil && *child.ParentID == c.ID {
					printTree(child, depth+1)
				}
			}
		}

		for _, c := range clients {
			// roots: no parent, or parent excluded by the archive filter
			if c.ParentID == nil {
				printTree(c, 0)
				continue
			}
			if _, ok := byID[*c.ParentID]; !ok {
				printTree(c, 0)
			}
		}

		fmt.Printf("\nTotal: %d client(s)\n", len(clients))
		return nil
	},
}

var clientsAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		name := args[0]

		typeStr, _ := cmd.Flags().GetString("type")
		email, _ := cmd.Flags().GetString("email")
		notes, _ := cmd.Flags().GetString("notes")

		client := domain.NewClient(name, domain.ClientType(typeStr))
		client.Email = email
		client.Notes = notes

		if cmd.Flags().Changed("parent") {
			parentArg, _ := cmd.Flags().GetString("parent")
			parent, err := resolveClient(ctx, parentArg)
			if err != nil {
				return fmt.Errorf("failed to resolve parent: %w", err)
			}
			client.ParentID = &parent.ID
		}

		if err := appInstance.ClientService.Create(ctx, client); err != nil {
			return fmt.Errorf("failed to create client: %w", err)
		}

		fmt.Printf("✓ Client created: %s (ID: %s)\n", client.Name, client.ID)
		return nil
	},
}

var clientsEditCmd = &cobra.Command{
	Use:   "edit [id_or_name]",
	Short: "Edit an existing client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			client.Name = name
		}
		if cmd.Flags().Changed("type") {
			typeStr, _ := cmd.Flags().GetString("type")
			client.Type = domain.ClientType(typeStr)
		}
		if cmd.Flags().Changed("email") {
			email, _ := cmd.Flags().GetString("email")
			client.Email = email
		}
		if cmd.Flags().Changed("notes") {
			notes, _ := cmd.Flags().GetString("notes")
			client.Notes = notes
		}
		if cmd.Flags().Changed("parent") {
			parentArg, _ := cmd.Flags().GetString("parent")
			if parentArg == "" {
				client.ParentID = nil
			} else {
				parent, err := resolveClient(ctx, parentArg)
				if err != nil {
					return fmt.Errorf("failed to resolve parent: %w", err)
				}
				client.ParentID = &parent.ID
			}
		}

		if err := appInstance.ClientService.Update(ctx, client); err != nil {
			return fmt.Errorf("failed to update client: %w", err)
		}

		fmt.Printf("✓ Client updated: %s\n", client.Name)
		return nil
	},
}

var clientsArchiveCmd = &cobra.Command{
	Use:   "archive [id_or_name]",
	Short: "Archive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		if err := appInstance.ClientService.Archive(ctx, client.ID); err != nil {
			return fmt.Errorf("failed to archive client: %w", err)
		}

		fmt.Printf("✓ Client archived: %s\n", client.Name)
		return nil
	},
}

var clientsUnarchiveCmd = &cobra.Command{
	Use:   "unarchive [id_or_name]",
	Short: "Unarchive a client",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}

		if err := appInstance.ClientService.Unarchive(ctx, client.ID); err != nil {
			return fmt.Errorf("failed to unarchive client: %w", err)
		}

		fmt.Printf("✓ Client unarchived: %s\n", client.Name)
		return nil
	},
}

var clientsSetOverrideCmd = &cobra.Command{
	Use:   "set-override [client] [rate]",
	Short: "Set a billing rate override for a client",
	Long: `Set a billing rate override for a client. The override applies to the
client and every descendant that has no closer override of its own.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}
		rate, err := resolveRate(ctx, args[1])
		if err != nil {
			return err
		}

		typeStr, _ := cmd.Flags().GetString("type")
		value, _ := cmd.Flags().GetFloat64("value")

		override := &domain.RateOverride{
			ClientID:   client.ID,
			BaseRateID: rate.ID,
			Type:       domain.OverrideType(typeStr),
			Value:      value,
		}

		// Replace any existing override for this base rate
		overrides := make([]*domain.RateOverride, 0, len(client.Overrides)+1)
		for _, o := range client.Overrides {
			if o.BaseRateID != rate.ID {
				overrides = append(overrides, o)
			}
		}
		overrides = append(overrides, override)

		if err := appInstance.ClientService.SetOverrides(ctx, client.ID, overrides); err != nil {
			return fmt.Errorf("failed to set override: %w", err)
		}

		effective, err := appInstance.ClientService.EffectiveRate(ctx, client.ID, rate.ID)
		if err != nil {
			return err
		}

		fmt.Printf("✓ Override set: %s pays $%.2f/hr for %s\n", client.Name, effective, rate.Name)
		return nil
	},
}

var clientsClearOverrideCmd = &cobra.Command{
	Use:   "clear-override [client] [rate]",
	Short: "Remove a client's override for a billing rate",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}
		rate, err := resolveRate(ctx, args[1])
		if err != nil {
			return err
		}

		overrides := make([]*domain.RateOverride, 0, len(client.Overrides))
		for _, o := range client.Overrides {
			if o.BaseRateID != rate.ID {
				overrides = append(overrides, o)
			}
		}

		if err := appInstance.ClientService.SetOverrides(ctx, client.ID, overrides); err != nil {
			return fmt.Errorf("failed to clear override: %w", err)
		}

		fmt.Printf("✓ Override cleared for %s on %s\n", client.Name, rate.Name)
		return nil
	},
}

var clientsRateCmd = &cobra.Command{
	Use:   "rate [client] [rate]",
	Short: "Show the effective hourly rate a client pays",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		client, err := resolveClient(ctx, args[0])
		if err != nil {
			return err
		}
		rate, err := resolveRate(ctx, args[1])
		if err != nil {
			return err
		}

		effective, err := appInstance.ClientService.EffectiveRate(ctx, client.ID, rate.ID)
		if err != nil {
			return fmt.Errorf("failed to resolve rate: %w", err)
		}

		fmt.Printf("%s pays $%.2f/hr for %s (base $%.2f/hr)\n", client.Name, effective, rate.Name, rate.Rate)
		return nil
	},
}

func init() {
	clientsCmd.AddCommand(clientsListCmd)
	clientsCmd.AddCommand(clientsAddCmd)
	clientsCmd.AddCommand(clientsEditCmd)
	clientsCmd.AddCommand(clientsArchiveCmd)
	clientsCmd.AddCommand(clientsUnarchiveCmd)
	clientsCmd.AddCommand(clientsSetOverrideCmd)
	clientsCmd.AddCommand(clientsClearOverrideCmd)
	clientsCmd.AddCommand(clientsRateCmd)

	// List flags
	clientsListCmd.Flags().Bool("archived", false, "Include archived clients")

	// Add flags
	clientsAddCmd.Flags().String("type", "business", "Client type (business, container, individual, organization)")
	clientsAddCmd.Flags().String("parent", "", "Parent client (ID or name)")
	clientsAddCmd.Flags().String("email", "", "Client email")
	clientsAddCmd.Flags().String("notes", "", "Notes about the client")

	// Edit flags
	clientsEditCmd.Flags().String("name", "", "New name")
	clientsEditCmd.Flags().String("type", "", "New type")
	clientsEditCmd.Flags().String("parent", "", "New parent (empty to detach)")
	clientsEditCmd.Flags().String("email", "", "New email")
	clientsEditCmd.Flags().String("notes", "", "New notes")

	// Override flags
	clientsSetOverrideCmd.Flags().String("type", "fixed", "Override type (fixed or percentage)")
	clientsSetOverrideCmd.Flags().Float64("value", 0, "Override value (dollars per hour, or percent)")
	clientsSetOverrideCmd.MarkFlagRequired("value")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
