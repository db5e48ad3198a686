package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage application settings",
	Long:  `List and change settings stored in the database, like the invoice number sequence.`,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := appInstance.SettingsRepo.List(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list settings: %w", err)
		}

		fmt.Printf("%-28s %-20s %-12s %s\n", "Key", "Value", "Category", "Description")
		fmt.Println("------------------------------------------------------------------------------------------------")
		for _, s := range settings {
			fmt.Printf("%-28s %-20s %-12s %s\n", s.Key, truncate(s.Value, 20), s.Category, s.Description)
		}
		return nil
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Show a setting",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		setting, err := appInstance.SettingsRepo.Get(context.Background(), args[0])
		if err != nil {
			return err
		}
		fmt.Println(setting.Value)
		return nil
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Change a setting",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.SettingsRepo.Set(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to set %s: %w", args[0], err)
		}
		fmt.Printf("✓ %s = %s\n", args[0], args[1])
		return nil
	},
}

func init() {
	settingsCmd.AddCommand(settingsListCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
