package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/korpus/internal/adapters/driving/mcp"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sync scheduler and MCP server",
	Long: `Runs the background sync scheduler together with the Model Context
Protocol server, until interrupted.

The scheduler sweeps configured sources on their incremental and full
cadences. The MCP server exposes search and sync status to AI
assistants; by default it speaks JSON-RPC over stdio, so korpus can be
registered directly in an assistant's MCP configuration:

  {
    "mcpServers": {
      "korpus": {
        "command": "/path/to/korpus",
        "args": ["serve"]
      }
    }
  }

Use --port to serve MCP over HTTP instead, for MCP Inspector or remote
access.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "MCP HTTP port (0 = stdio)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if schedulerService == nil {
		return errors.New("scheduler service not configured")
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Search:   searchService,
		Sync:     syncOrchestrator,
		Source:   sourceService,
		Feedback: feedbackService,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	if appSettings.Scheduler.Enabled {
		g.Go(func() error {
			return schedulerService.Start(ctx)
		})
	} else {
		cmd.Println("Scheduler disabled in configuration; serving MCP only.")
	}

	if servePort > 0 {
		addr := fmt.Sprintf(":%d", servePort)
		cmd.Printf("MCP server listening on http://localhost%s\n", addr)
		g.Go(func() error {
			return server.RunHTTP(ctx, addr)
		})
	} else {
		g.Go(func() error {
			return server.Run(ctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
