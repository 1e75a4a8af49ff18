package config

const (
	defaultAPIListen      = ":8081"
	defaultRequestTimeout = "30s"

	defaultEmbeddingProvider = "openai"
	defaultEmbeddingTarget   = "https://api.openai.com"
	defaultEmbeddingModel    = "text-embedding-3-small"
	defaultEmbeddingTimeout  = "30s"

	defaultVectorProvider   = "qdrant"
	defaultVectorTarget     = "http://localhost:6333"
	defaultVectorCollection = "chunks"
	defaultVectorDimensions = 1536
	defaultTopK             = 5
	defaultVectorTimeout    = "10s"

	defaultEventsProvider = "nop"
	defaultEventsTopic    = "ragchat.chunks"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:         defaultAPIListen,
			RequestTimeout: defaultRequestTimeout,
		},
		Embedding: EmbeddingConfig{
			Provider: defaultEmbeddingProvider,
			Target:   defaultEmbeddingTarget,
			Model:    defaultEmbeddingModel,
			Timeout:  defaultEmbeddingTimeout,
		},
		VectorStore: VectorStoreConfig{
			Provider:   defaultVectorProvider,
			Target:     defaultVectorTarget,
			Collection: defaultVectorCollection,
			Dimensions: defaultVectorDimensions,
			TopK:       defaultTopK,
			Timeout:    defaultVectorTimeout,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
	}
}

// applyDefaults fills zero-value fields in cfg from NewDefaultConfig(),
// one dotted key at a time.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	for _, key := range orderedKeys {
		info := configKeys[key]
		if info.get(cfg) != "" {
			continue
		}
		// Defaults are known to parse.
		_ = info.set(cfg, info.get(defaults))
	}
}
