package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/korpus/internal/core/domain"
)

var (
	searchLimit      int
	searchJSON       bool
	searchSources    []string
	searchLangs      []string
	searchCategories []string
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the indexed corpus",
	Long: `Runs a hybrid query across every indexed document, fusing semantic
(vector) and keyword (BM25) relevance. Filters narrow the candidate set
before scoring, so a filtered search still returns a full result page.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", domain.DefaultSearchLimit, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	searchCmd.Flags().StringSliceVar(&searchSources, "source", nil, "restrict to source IDs")
	searchCmd.Flags().StringSliceVar(&searchLangs, "lang", nil, "restrict to language codes")
	searchCmd.Flags().StringSliceVar(&searchCategories, "category", nil, "restrict to content categories")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()
	opts := domain.SearchOptions{
		Limit:      searchLimit,
		Sources:    searchSources,
		Languages:  searchLangs,
		Categories: searchCategories,
	}

	resp, err := searchService.Search(ctx, args[0], opts)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, resp)
	}
	return outputSearchTable(cmd, resp)
}

func outputSearchJSON(cmd *cobra.Command, resp *domain.SearchResponse) error {
	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, resp *domain.SearchResponse) error {
	if resp.Degraded {
		cmd.Println("Note: one retrieval signal was unavailable, results are degraded.")
		cmd.Println()
	}
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i, r := range resp.Results {
		title := r.Title
		if title == "" {
			title = r.DocumentID
		}

		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, r.Score)
		if r.URI != "" {
			cmd.Printf("      %s\n", r.URI)
		}
		if r.Snippet != "" {
			cmd.Printf("      %s\n", r.Snippet)
		}
		cmd.Printf("      id: %s\n", r.ChunkID)
		cmd.Println()
	}

	cmd.Println("Record relevance with: korpus feedback <id> useful|irrelevant|click")
	return nil
}
