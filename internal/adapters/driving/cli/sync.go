package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

var syncFull bool

var syncCmd = &cobra.Command{
	Use:   "sync [source-id]",
	Short: "Synchronise documents from sources",
	Long: `Runs document ingestion from configured sources.
If a source ID is given, only that source is synchronised. Otherwise
every enabled source runs concurrently, one run each. Use --full to
re-list the entire corpus and reconcile deletions regardless of stored
cursors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSync,
}

func init() {
	syncCmd.Flags().BoolVar(&syncFull, "full", false, "run a full pass instead of incremental")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	if syncOrchestrator == nil {
		return errors.New("sync service not configured")
	}

	ctx := context.Background()
	mode := domain.SyncModeIncremental
	if syncFull {
		mode = domain.SyncModeFull
	}

	if len(args) > 0 {
		sourceID := args[0]
		cmd.Printf("Synchronising source %s (%s)...\n", sourceID, mode)

		run, err := syncOrchestrator.Run(ctx, sourceID, mode)
		if err != nil {
			if errors.Is(err, domain.ErrSyncInProgress) {
				return fmt.Errorf("source %s is already syncing", sourceID)
			}
			return fmt.Errorf("sync failed: %w", err)
		}

		printRun(cmd, run)
		return nil
	}

	cmd.Printf("Synchronising all sources (%s)...\n", mode)

	runs, err := syncOrchestrator.RunAll(ctx, mode)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}
	if len(runs) == 0 {
		cmd.Println("No enabled sources.")
		return nil
	}

	for _, run := range runs {
		printRun(cmd, run)
	}
	return nil
}

// printRun summarises one finished run.
func printRun(cmd *cobra.Command, run *domain.SyncRun) {
	st := run.Stats
	cmd.Printf("%s: %s in %s\n", run.SourceID, run.Status, run.Duration().Round(time.Millisecond))
	cmd.Printf("  listed %d, fetched %d, unchanged %d, skipped %d\n",
		st.Listed, st.Fetched, st.Unchanged, st.Skipped)
	cmd.Printf("  embedded %d chunks (%d cache hits), indexed %d, deferred %d, deleted %d\n",
		st.ChunksEmbedded, st.CacheHits, st.Indexed, st.Deferred, st.Deleted)

	if st.Deferred > 0 {
		cmd.Println("  note: embedding budget exhausted, deferred documents resume next run")
	}
	if st.Failed > 0 {
		cmd.Printf("  failed %d:\n", st.Failed)
		for _, f := range run.Failures {
			cmd.Printf("    %s (%s): %s\n", f.ExternalID, f.Stage, f.Reason)
		}
	}
	if run.Error != "" {
		cmd.Printf("  error: %s\n", run.Error)
	}
}
