// Package cli implements the korpus command line interface using
// cobra. Commands run against package-level service variables injected
// by Wire, so the binary wires once in main and every command shares
// the same service graph.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/ports/driving"
	"github.com/custodia-labs/korpus/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "0.1.0"

// Services injected by Wire. Commands nil-check what they use so a
// partially wired binary fails with a clear message, not a panic.
var (
	searchService    driving.SearchService
	syncOrchestrator driving.SyncOrchestrator
	sourceService    driving.SourceService
	feedbackService  driving.FeedbackRecorder
	schedulerService driving.Scheduler
	connectorFactory driven.ConnectorFactory
	appSettings      domain.Settings
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "korpus",
	Short: "Multi-source ingestion and hybrid retrieval",
	Long: `Korpus ingests documents from configured sources, chunks and embeds
them, and serves hybrid vector plus keyword search over the result.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "enable verbose logging")
}

// Services aggregates everything the commands need.
type Services struct {
	Search    driving.SearchService
	Sync      driving.SyncOrchestrator
	Sources   driving.SourceService
	Feedback  driving.FeedbackRecorder
	Scheduler driving.Scheduler
	Factory   driven.ConnectorFactory
	Settings  domain.Settings
}

// Wire injects the services the commands run against.
func Wire(s Services) {
	searchService = s.Search
	syncOrchestrator = s.Sync
	sourceService = s.Sources
	feedbackService = s.Feedback
	schedulerService = s.Scheduler
	connectorFactory = s.Factory
	appSettings = s.Settings
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
