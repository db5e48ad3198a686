package cli

import (
	"context"
	"fmt"

	"github.com/mshaw/timevault/internal/domain"
	"github.com/spf13/cobra"
)

var timerCmd = &cobra.Command{
	Use:   "timer",
	Short: "Manage the active timer",
	Long:  `Start, stop, pause, and check the status of the active timer.`,
}

var timerStartCmd = &cobra.Command{
	Use:   "start [description]",
	Short: "Start a new timer",
	Args:  cobra.ExactArgs(1),
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

		var ticketID *string
		if cmd.Flags().Changed("ticket") {
			t, _ := cmd.Flags().GetString("ticket")
			ticketID = &t
		}

		if err := appInstance.TimerService.Start(ctx, clientID, ticketID, args[0]); err != nil {
			return fmt.Errorf("failed to start timer: %w", err)
		}

		fmt.Printf("✓ Timer started: %s\n", args[0])
		return nil
	},
}

var timerStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the timer and save a time entry",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		entry, err := appInstance.TimerService.Stop(ctx)
		if err != nil {
			return fmt.Errorf("failed to stop timer: %w", err)
		}

		fmt.Printf("✓ Timer stopped: %s (%s)\n", entry.Description, formatMinutes(entry.Minutes))
		return nil
	},
}

var timerPauseCmd = &cobra.Command{
	Use:   "pause",
	Short: "Pause the running timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.Pause(context.Background()); err != nil {
			return fmt.Errorf("failed to pause timer: %w", err)
		}
		fmt.Println("✓ Timer paused")
		return nil
	},
}

var timerResumeCmd = &cobra.Command{
	Use:   "resume",
	Short: "Resume a paused timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := appInstance.TimerService.Resume(context.Background()); err != nil {
			return fmt.Errorf("failed to resume timer: %w", err)
		}
		fmt.Println("✓ Timer resumed")
		return nil
	},
}

var timerDiscardCmd = &cobra.Command{
	Use:   "discard",
	Short: "Discard the active timer without saving",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !confirmPrompt("Discard the active timer without saving?") {
			fmt.Println("Cancelled")
			return nil
		}
		if err := appInstance.TimerService.Discard(context.Background()); err != nil {
			return fmt.Errorf("failed to discard timer: %w", err)
		}
		fmt.Println("✓ Timer discarded")
		return nil
	},
}

var timerStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active timer",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()

		timer, err := appInstance.TimerService.GetActiveTimer(ctx)
		if err != nil {
			return err
		}
		if timer == nil {
			fmt.Println("No active timer")
			return nil
		}

		state := "Running"
		if timer.State() == domain.TimerStatePaused {
			state = "Paused"
		}

		fmt.Printf("Timer: %s (%s)\n", timer.Description, state)
		if timer.ClientID != nil {
			client, err := appInstance.ClientService.Get(ctx, *timer.ClientID)
			if err == nil {
				fmt.Printf("Client: %s\n", client.Name)
			}
		}
		fmt.Printf("Started: %s\n", timer.StartTime.Format("15:04:05"))
		fmt.Printf("Elapsed: %s\n", formatDuration(timer.Elapsed()))
		return nil
	},
}

func init() {
	timerCmd.AddCommand(timerStartCmd)
	timerCmd.AddCommand(timerStopCmd)
	timerCmd.AddCommand(timerPauseCmd)
	timerCmd.AddCommand(timerResumeCmd)
	timerCmd.AddCommand(timerDiscardCmd)
	timerCmd.AddCommand(timerStatusCmd)

	timerStartCmd.Flags().String("client", "", "Client to track time against (ID or name)")
	timerStartCmd.Flags().String("ticket", "", "Ticket ID to associate")
}
