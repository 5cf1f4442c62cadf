package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

var statusCmd = &cobra.Command{
	Use:   "status [source-id]",
	Short: "Show sync status for sources",
	Long: `Reports sync health: whether a sync is running, the stored cursor,
and the outcome of the most recent run. Without a source ID every
source is reported.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()

	if len(args) > 0 {
		status, err := syncOrchestrator.Status(ctx, args[0])
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}
		printStatus(cmd, *status)
		return nil
	}

	statuses, err := syncOrchestrator.StatusAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to get status: %w", err)
	}
	if len(statuses) == 0 {
		cmd.Println("No configured sources.")
		return nil
	}

	for _, status := range statuses {
		printStatus(cmd, status)
	}
	return nil
}

func printStatus(cmd *cobra.Command, status domain.SyncStatus) {
	name := status.SourceName
	if name == "" {
		name = status.SourceID
	}
	cmd.Printf("%s (%s)\n", name, status.SourceID)

	if status.Running {
		cmd.Println("  State:     syncing now")
	} else {
		cmd.Println("  State:     idle")
	}
	cmd.Printf("  Last sync: %s\n", formatSyncTime(status.LastSync))
	cmd.Printf("  Last full: %s\n", formatSyncTime(status.LastFull))
	if status.Cursor != "" {
		cmd.Printf("  Cursor:    %s\n", status.Cursor)
	}

	if run := status.LastRun; run != nil {
		cmd.Printf("  Last run:  %s (%s), indexed %d, failed %d\n",
			run.Status, run.Mode, run.Stats.Indexed, run.Stats.Failed)
		if run.Error != "" {
			cmd.Printf("             error: %s\n", run.Error)
		}
	}
	cmd.Println()
}

func formatSyncTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
