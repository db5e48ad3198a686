package cli

import (
	"context"
	"fmt"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/spf13/cobra"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage billing rates",
	Long:  `List, add, edit, and delete billing rates. Clients adjust these through overrides.`,
}

var ratesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all billing rates",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rates, err := appInstance.RateRepo.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list rates: %w", err)
		}

		if len(rates) == 0 {
			fmt.Println("No billing rates found")
			return nil
		}

		fmt.Printf("%-38s %-24s %10s %10s %-8s\n", "ID", "Name", "Rate/hr", "Cost/hr", "Default")
		fmt.Println("--------------------------------------------------------------------------------------------")
		for _, r := range rates {
			def := ""
			if r.IsDefault {
				def = "✓"
			}
			fmt.Printf("%-38s %-24s %10.2f %10.2f %-8s\n", r.ID, truncate(r.Name, 24), r.Rate, r.Cost, def)
		}
		return nil
	},
}

var ratesAddCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a new billing rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rateVal, _ := cmd.Flags().GetFloat64("rate")
		cost, _ := cmd.Flags().GetFloat64("cost")
		isDefault, _ := cmd.Flags().GetBool("default")

		rate := domain.NewBillingRate(args[0], rateVal, cost)
		rate.IsDefault = isDefault

		if err := rate.Validate(); err != nil {
			return err
		}
		if err := appInstance.RateRepo.Create(ctx, rate); err != nil {
			return fmt.Errorf("failed to create rate: %w", err)
		}

		fmt.Printf("✓ Billing rate created: %s ($%.2f/hr, ID: %s)\n", rate.Name, rate.Rate, rate.ID)
		return nil
	},
}

var ratesEditCmd = &cobra.Command{
	Use:   "edit [id_or_name]",
	Short: "Edit a billing rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rate, err := resolveRate(ctx, args[0])
		if err != nil {
			return err
		}

		if cmd.Flags().Changed("name") {
			name, _ := cmd.Flags().GetString("name")
			rate.Name = name
		}
		if cmd.Flags().Changed("rate") {
			rateVal, _ := cmd.Flags().GetFloat64("rate")
			rate.Rate = rateVal
		}
		if cmd.Flags().Changed("cost") {
			cost, _ := cmd.Flags().GetFloat64("cost")
			rate.Cost = cost
		}
		if cmd.Flags().Changed("default") {
			isDefault, _ := cmd.Flags().GetBool("default")
			rate.IsDefault = isDefault
		}

		if err := rate.Validate(); err != nil {
			return err
		}
		if err := appInstance.RateRepo.Update(ctx, rate); err != nil {
			return fmt.Errorf("failed to update rate: %w", err)
		}

		fmt.Printf("✓ Billing rate updated: %s ($%.2f/hr)\n", rate.Name, rate.Rate)
		return nil
	},
}

var ratesDeleteCmd = &cobra.Command{
	Use:   "delete [id_or_name]",
	Short: "Delete a billing rate",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		rate, err := resolveRate(ctx, args[0])
		if err != nil {
			return err
		}

		if !confirmPrompt(fmt.Sprintf("Delete billing rate %q?", rate.Name)) {
			fmt.Println("Cancelled")
			return nil
		}

		if err := appInstance.RateRepo.Delete(ctx, rate.ID); err != nil {
			return fmt.Errorf("failed to delete rate: %w", err)
		}

		fmt.Printf("✓ Billing rate deleted: %s\n", rate.Name)
		return nil
	},
}

func init() {
	ratesCmd.AddCommand(ratesListCmd)
	ratesCmd.AddCommand(ratesAddCmd)
	ratesCmd.AddCommand(ratesEditCmd)
	ratesCmd.AddCommand(ratesDeleteCmd)

	ratesAddCmd.Flags().Float64("rate", 0, "Hourly rate charged to clients")
	ratesAddCmd.Flags().Float64("cost", 0, "Internal hourly cost")
	ratesAddCmd.Flags().Bool("default", false, "Make this the default rate")
	ratesAddCmd.MarkFlagRequired("rate")

	ratesEditCmd.Flags().String("name", "", "New name")
	ratesEditCmd.Flags().Float64("rate", 0, "New hourly rate")
	ratesEditCmd.Flags().Float64("cost", 0, "New hourly cost")
	ratesEditCmd.Flags().Bool("default", false, "Make this the default rate")
}
