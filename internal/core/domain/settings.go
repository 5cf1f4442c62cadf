package domain

import "time"

// EmbeddingProvider selects the embedding backend adapter.
type EmbeddingProvider string

// Embedding providers.
const (
	// EmbeddingProviderOpenAI speaks the OpenAI-compatible /v1/embeddings API.
	EmbeddingProviderOpenAI EmbeddingProvider = "openai"

	// EmbeddingProviderOllama speaks the local Ollama embeddings API.
	EmbeddingProviderOllama EmbeddingProvider = "ollama"
)

// IsValid reports whether the provider is known.
func (p EmbeddingProvider) IsValid() bool {
	return p == EmbeddingProviderOpenAI || p == EmbeddingProviderOllama
}

// VectorBackend selects the vector store adapter.
type VectorBackend string

// Vector backends.
const (
	// VectorBackendQdrant uses a Qdrant server over REST.
	VectorBackendQdrant VectorBackend = "qdrant"

	// VectorBackendMemory uses the in-process brute-force index.
	VectorBackendMemory VectorBackend = "memory"
)

// IsValid reports whether the backend is known.
func (b VectorBackend) IsValid() bool {
	return b == VectorBackendQdrant || b == VectorBackendMemory
}

// Settings is the full configuration tree, persisted as TOML.
type Settings struct {
	// DataDir overrides the default ~/.korpus/data location.
	DataDir string `toml:"data_dir"`

	Pipeline  PipelineSettings  `toml:"pipeline"`
	Embedding EmbeddingSettings `toml:"embedding"`
	Vector    VectorSettings    `toml:"vector"`
	Retrieval RetrievalSettings `toml:"retrieval"`
	Budget    BudgetSettings    `toml:"budget"`
	Scheduler SchedulerSettings `toml:"scheduler"`
}

// PipelineSettings tunes the per-sync worker pipeline.
type PipelineSettings struct {
	// Workers is the fetch/normalise/chunk worker count per sync.
	Workers int `toml:"workers"`

	// QueueDepth is the capacity of the channels between stages.
	QueueDepth int `toml:"queue_depth"`

	// ChunkTokens is the maximum chunk size in tokens.
	ChunkTokens int `toml:"chunk_tokens"`

	// ChunkOverlap is the token overlap between consecutive chunks.
	ChunkOverlap int `toml:"chunk_overlap"`

	// RetryMaxAttempts, RetryBaseDelayMS and RetryMaxDelaySec shape the
	// per-item retry policy.
	RetryMaxAttempts int `toml:"retry_max_attempts"`
	RetryBaseDelayMS int `toml:"retry_base_delay_ms"`
	RetryMaxDelaySec int `toml:"retry_max_delay_sec"`
}

// RetryPolicy converts the flat settings fields into a policy value.
func (p PipelineSettings) RetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: p.RetryMaxAttempts,
		BaseDelay:   time.Duration(p.RetryBaseDelayMS) * time.Millisecond,
		MaxDelay:    time.Duration(p.RetryMaxDelaySec) * time.Second,
	}.Normalise()
}

// EmbeddingSettings configures the embedding backend and its limiter.
type EmbeddingSettings struct {
	// Provider selects openai or ollama.
	Provider EmbeddingProvider `toml:"provider"`

	// Model is the embedding model name.
	Model string `toml:"model"`

	// BaseURL overrides the provider's default endpoint.
	BaseURL string `toml:"base_url"`

	// APIKey authenticates OpenAI-compatible backends.
	APIKey string `toml:"api_key"`

	// BatchSize is the maximum chunks per backend request.
	BatchSize int `toml:"batch_size"`

	// RequestsPerSecond and Burst configure the global token bucket
	// shared by every sync.
	RequestsPerSecond float64 `toml:"requests_per_second"`
	Burst             int     `toml:"burst"`
}

// VectorSettings configures the vector store.
type VectorSettings struct {
	// Backend selects qdrant or memory.
	Backend VectorBackend `toml:"backend"`

	// URL is the Qdrant base URL.
	URL string `toml:"url"`

	// APIKey authenticates Qdrant, if required.
	APIKey string `toml:"api_key"`

	// Collection is the Qdrant collection name.
	Collection string `toml:"collection"`
}

// RetrievalSettings tunes hybrid search.
type RetrievalSettings struct {
	// VectorWeight and LexicalWeight are the default fusion weights.
	VectorWeight  float64 `toml:"vector_weight"`
	LexicalWeight float64 `toml:"lexical_weight"`

	// MinScore is the fused relevance cutoff.
	MinScore float64 `toml:"min_score"`

	// TopK is the per-signal candidate depth before fusion.
	TopK int `toml:"top_k"`

	// SubSearchTimeoutMS bounds each signal; on expiry the query
	// degrades to the surviving signal.
	SubSearchTimeoutMS int `toml:"sub_search_timeout_ms"`
}

// SubSearchTimeout returns the per-signal timeout as a duration.
func (r RetrievalSettings) SubSearchTimeout() time.Duration {
	return time.Duration(r.SubSearchTimeoutMS) * time.Millisecond
}

// BudgetSettings configures the daily embedding quota.
type BudgetSettings struct {
	// DailyTokens is the global daily allowance. Zero means unlimited.
	DailyTokens int64 `toml:"daily_tokens"`

	// RoleDailyTokens and PrincipalDailyTokens override the global
	// default, principal beating role.
	RoleDailyTokens      map[string]int64 `toml:"role_daily_tokens"`
	PrincipalDailyTokens map[string]int64 `toml:"principal_daily_tokens"`

	// Principal and Role identify this installation for resolution.
	Principal string `toml:"principal"`
	Role      string `toml:"role"`
}

// Policy converts the settings into a resolvable budget policy.
func (b BudgetSettings) Policy() BudgetPolicy {
	return BudgetPolicy{
		DailyTokens:          b.DailyTokens,
		RoleDailyTokens:      b.RoleDailyTokens,
		PrincipalDailyTokens: b.PrincipalDailyTokens,
	}
}

// SchedulerSettings drives the background sweep.
type SchedulerSettings struct {
	// Enabled turns the sweep on under `korpus serve`.
	Enabled bool `toml:"enabled"`

	// SyncIntervalMinutes is the incremental sweep cadence.
	SyncIntervalMinutes int `toml:"sync_interval_minutes"`

	// FullIntervalHours is the slower full-sync drift-correction cadence.
	FullIntervalHours int `toml:"full_interval_hours"`
}

// SyncInterval returns the incremental cadence as a duration.
func (s SchedulerSettings) SyncInterval() time.Duration {
	return time.Duration(s.SyncIntervalMinutes) * time.Minute
}

// FullInterval returns the full-sync cadence as a duration.
func (s SchedulerSettings) FullInterval() time.Duration {
	return time.Duration(s.FullIntervalHours) * time.Hour
}

// DefaultSettings returns the configuration used before any file exists.
func DefaultSettings() Settings {
	return Settings{
		Pipeline: PipelineSettings{
			Workers:          4,
			QueueDepth:       16,
			ChunkTokens:      300,
			ChunkOverlap:     50,
			RetryMaxAttempts: 3,
			RetryBaseDelayMS: 500,
			RetryMaxDelaySec: 30,
		},
		Embedding: EmbeddingSettings{
			Provider:          EmbeddingProviderOllama,
			Model:             "nomic-embed-text",
			BatchSize:         32,
			RequestsPerSecond: 4,
			Burst:             2,
		},
		Vector: VectorSettings{
			Backend:    VectorBackendMemory,
			Collection: "korpus_chunks",
		},
		Retrieval: RetrievalSettings{
			VectorWeight:       DefaultVectorWeight,
			LexicalWeight:      DefaultLexicalWeight,
			MinScore:           DefaultMinScore,
			TopK:               40,
			SubSearchTimeoutMS: 3000,
		},
		Budget: BudgetSettings{
			DailyTokens: 0, // unlimited until the operator sets a cap
		},
		Scheduler: SchedulerSettings{
			Enabled:             true,
			SyncIntervalMinutes: 15,
			FullIntervalHours:   24,
		},
	}
}

// ApplyDefaults fills zero-valued fields in place from DefaultSettings.
// Called after loading a possibly partial configuration file.
func (s *Settings) ApplyDefaults() {
	def := DefaultSettings()

	if s.Pipeline.Workers <= 0 {
		s.Pipeline.Workers = def.Pipeline.Workers
	}
	if s.Pipeline.QueueDepth <= 0 {
		s.Pipeline.QueueDepth = def.Pipeline.QueueDepth
	}
	if s.Pipeline.ChunkTokens <= 0 {
		s.Pipeline.ChunkTokens = def.Pipeline.ChunkTokens
	}
	if s.Pipeline.ChunkOverlap < 0 || s.Pipeline.ChunkOverlap >= s.Pipeline.ChunkTokens {
		s.Pipeline.ChunkOverlap = def.Pipeline.ChunkOverlap
	}
	if s.Pipeline.RetryMaxAttempts <= 0 {
		s.Pipeline.RetryMaxAttempts = def.Pipeline.RetryMaxAttempts
	}
	if s.Pipeline.RetryBaseDelayMS <= 0 {
		s.Pipeline.RetryBaseDelayMS = def.Pipeline.RetryBaseDelayMS
	}
	if s.Pipeline.RetryMaxDelaySec <= 0 {
		s.Pipeline.RetryMaxDelaySec = def.Pipeline.RetryMaxDelaySec
	}

	if !s.Embedding.Provider.IsValid() {
		s.Embedding.Provider = def.Embedding.Provider
	}
	if s.Embedding.Model == "" {
		s.Embedding.Model = def.Embedding.Model
	}
	if s.Embedding.BatchSize <= 0 {
		s.Embedding.BatchSize = def.Embedding.BatchSize
	}
	if s.Embedding.RequestsPerSecond <= 0 {
		s.Embedding.RequestsPerSecond = def.Embedding.RequestsPerSecond
	}
	if s.Embedding.Burst <= 0 {
		s.Embedding.Burst = def.Embedding.Burst
	}

	if !s.Vector.Backend.IsValid() {
		s.Vector.Backend = def.Vector.Backend
	}
	if s.Vector.Collection == "" {
		s.Vector.Collection = def.Vector.Collection
	}

	if s.Retrieval.VectorWeight == 0 && s.Retrieval.LexicalWeight == 0 {
		s.Retrieval.VectorWeight = def.Retrieval.VectorWeight
		s.Retrieval.LexicalWeight = def.Retrieval.LexicalWeight
	}
	if s.Retrieval.MinScore < 0 {
		s.Retrieval.MinScore = def.Retrieval.MinScore
	}
	if s.Retrieval.TopK <= 0 {
		s.Retrieval.TopK = def.Retrieval.TopK
	}
	if s.Retrieval.SubSearchTimeoutMS <= 0 {
		s.Retrieval.SubSearchTimeoutMS = def.Retrieval.SubSearchTimeoutMS
	}

	if s.Scheduler.SyncIntervalMinutes <= 0 {
		s.Scheduler.SyncIntervalMinutes = def.Scheduler.SyncIntervalMinutes
	}
	if s.Scheduler.FullIntervalHours <= 0 {
		s.Scheduler.FullIntervalHours = def.Scheduler.FullIntervalHours
	}
}
