package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

var (
	feedbackQuery string
	feedbackLimit int
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback [result-id] [signal]",
	Short: "Record relevance feedback on a search result",
	Long: `Records a relevance signal against a search result. The result ID is
the chunk id printed by 'korpus search'. Signals:

  useful      - the result answered the query
  irrelevant  - the result did not belong in the ranking
  click       - the result was opened

Signals are stored for offline ranking analysis; they do not change
live scoring.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedback,
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recently recorded feedback",
	RunE:  runFeedbackList,
}

func init() {
	feedbackCmd.Flags().StringVarP(&feedbackQuery, "query", "q", "", "the query that produced the result")
	feedbackListCmd.Flags().IntVarP(&feedbackLimit, "limit", "n", 20, "maximum number of entries")
	feedbackCmd.AddCommand(feedbackListCmd)
	rootCmd.AddCommand(feedbackCmd)
}

func runFeedback(cmd *cobra.Command, args []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	fb := domain.Feedback{
		ChunkID: args[0],
		Query:   feedbackQuery,
		Signal:  domain.FeedbackSignal(strings.ToLower(args[1])),
	}

	recorded, err := feedbackService.Record(context.Background(), fb)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no indexed chunk with id %s", args[0])
		}
		return fmt.Errorf("failed to record feedback: %w", err)
	}

	cmd.Printf("Recorded %s for %s.\n", recorded.Signal, recorded.ChunkID)
	return nil
}

func runFeedbackList(cmd *cobra.Command, _ []string) error {
	if feedbackService == nil {
		return errors.New("feedback service not configured")
	}

	entries, err := feedbackService.List(context.Background(), feedbackLimit)
	if err != nil {
		return fmt.Errorf("failed to list feedback: %w", err)
	}
	if len(entries) == 0 {
		cmd.Println("No feedback recorded.")
		return nil
	}

	cmd.Println("Recent feedback:")
	cmd.Println()
	for _, fb := range entries {
		cmd.Printf("  %s  %-10s  chunk %s\n",
			fb.RecordedAt.Local().Format("2006-01-02 15:04"), fb.Signal, fb.ChunkID)
		if fb.Query != "" {
			cmd.Printf("    query: %s\n", fb.Query)
		}
	}
	return nil
}
