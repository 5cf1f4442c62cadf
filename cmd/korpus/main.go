// Command korpus ingests documents from configured sources and serves
// hybrid vector plus keyword search over the result.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/korpus/internal/adapters/driven/config/file"
	"github.com/custodia-labs/korpus/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/korpus/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/korpus/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/korpus/internal/adapters/driven/vector/membrute"
	"github.com/custodia-labs/korpus/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/korpus/internal/adapters/driving/cli"
	"github.com/custodia-labs/korpus/internal/connectors"
	"github.com/custodia-labs/korpus/internal/core/domain"
	"github.com/custodia-labs/korpus/internal/core/ports/driven"
	"github.com/custodia-labs/korpus/internal/core/services"
	"github.com/custodia-labs/korpus/internal/logger"
	"github.com/custodia-labs/korpus/internal/normalisers"
	"github.com/custodia-labs/korpus/internal/postprocessors"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func run() error {
	// Verbose logging is decided before wiring so adapter construction
	// can already log; the root command sets it again after flag parsing.
	logger.SetVerbose(verboseRequested(os.Args[1:]))

	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("initialising config store: %w", err)
	}

	settings, err := configStore.Load(context.Background())
	if err != nil {
		return fmt.Errorf("loading settings: %w", err)
	}

	store, err := sqlite.NewStore(settings.DataDir)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer store.Close() //nolint:errcheck

	provider, err := buildEmbeddingProvider(settings.Embedding)
	if err != nil {
		return err
	}
	defer provider.Close() //nolint:errcheck

	vector := buildVectorIndex(settings.Vector, provider.Dimensions())
	defer vector.Close() //nolint:errcheck

	factory := connectors.NewDefaultFactory()
	registry := normalisers.NewDefaultRegistry()
	pipeline, err := postprocessors.NewDefaultPipeline(settings.Pipeline)
	if err != nil {
		return fmt.Errorf("building post-processor pipeline: %w", err)
	}

	retry := settings.Pipeline.RetryPolicy()
	budget := store.BudgetStore(settings.Budget.Policy(), settings.Budget.Principal, settings.Budget.Role)

	embedder := services.NewEmbedder(provider, store.EmbeddingCache(), budget, settings.Embedding, retry)
	indexer := services.NewIndexer(vector, store.LexicalIndex(), store.DocumentStore(), retry)

	search := services.NewSearchService(provider, vector, store.LexicalIndex(),
		store.DocumentStore(), settings.Retrieval)
	orchestrator := services.NewSyncOrchestrator(store.SourceStore(), store.SyncStateStore(),
		store.SyncRunStore(), store.DocumentStore(), factory, registry, pipeline,
		embedder, indexer, settings.Pipeline)
	sources := services.NewSourceService(store.SourceStore(), store.SyncStateStore(),
		store.DocumentStore(), store.SchedulerStore(), factory, indexer, settings.Scheduler)
	feedback := services.NewFeedbackService(store.FeedbackStore(), store.DocumentStore())
	scheduler := services.NewSchedulerService(store.SchedulerStore(), store.SourceStore(),
		orchestrator, settings.Scheduler)

	cli.Wire(cli.Services{
		Search:    search,
		Sync:      orchestrator,
		Sources:   sources,
		Feedback:  feedback,
		Scheduler: scheduler,
		Factory:   factory,
		Settings:  *settings,
	})

	return cli.Execute()
}

// buildEmbeddingProvider constructs the configured embedding backend.
func buildEmbeddingProvider(settings domain.EmbeddingSettings) (driven.EmbeddingProvider, error) {
	switch settings.Provider {
	case domain.EmbeddingProviderOpenAI:
		provider, err := openai.NewProvider(openai.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})
		if err != nil {
			return nil, fmt.Errorf("initialising openai provider: %w", err)
		}
		return provider, nil
	default:
		return ollama.NewProvider(ollama.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil
	}
}

// buildVectorIndex constructs the configured vector store. The Qdrant
// collection is ensured here so the first sync can upsert straight
// away; failure only warns because most commands never touch vectors
// and sync surfaces the real error when it does.
func buildVectorIndex(settings domain.VectorSettings, dimensions int) driven.VectorIndex {
	if settings.Backend != domain.VectorBackendQdrant {
		return membrute.New()
	}

	index := qdrant.NewIndex(qdrant.Config{
		URL:        settings.URL,
		APIKey:     settings.APIKey,
		Collection: settings.Collection,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := index.EnsureCollection(ctx, dimensions); err != nil {
		logger.Warn("qdrant collection check failed: %v", err)
	}

	return index
}

// verboseRequested scans raw arguments for the verbose flag ahead of
// cobra's own parse.
func verboseRequested(args []string) bool {
	for _, arg := range args {
		if arg == "--" {
			return false
		}
		if arg == "-v" || arg == "--verbose" {
			return true
		}
	}
	return false
}
