package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.MaxUploadMB == 0 {
		cfg.Server.MaxUploadMB = 32
	}
	if cfg.Server.RequestTimeoutSecs == 0 {
		cfg.Server.RequestTimeoutSecs = 120
	}
	if cfg.Server.IngestTimeoutSecs == 0 {
		cfg.Server.IngestTimeoutSecs = 300
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "./data"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = ProviderOpenAI
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 1536
	}
	if cfg.Embedding.BatchSize == 0 {
		cfg.Embedding.BatchSize = 256
	}
	if cfg.Embedding.TimeoutSecs == 0 {
		cfg.Embedding.TimeoutSecs = 60
	}
	if cfg.Embedding.MaxRetries == 0 {
		cfg.Embedding.MaxRetries = 2
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 1000
	}
	if cfg.Generation.Provider == "" {
		cfg.Generation.Provider = ProviderOpenAI
	}
	if cfg.Generation.Model == "" {
		cfg.Generation.Model = "gpt-4"
	}
	if cfg.Generation.APIKeyEnv == "" {
		cfg.Generation.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.Generation.TimeoutSecs == 0 {
		cfg.Generation.TimeoutSecs = 120
	}
	if cfg.Generation.MaxRetries == 0 {
		cfg.Generation.MaxRetries = 2
	}
	// An explicit chunk_size keeps its overlap as written, including 0.
	if cfg.Chunking.ChunkSize == 0 {
		cfg.Chunking.ChunkSize = 1000
		if cfg.Chunking.ChunkOverlap == 0 {
			cfg.Chunking.ChunkOverlap = 200
		}
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.ScopedTopK == 0 {
		cfg.Retrieval.ScopedTopK = 10
	}
	if cfg.Retrieval.ScopeMode == "" {
		cfg.Retrieval.ScopeMode = ScopeOverfetch
	}
	if cfg.Inbox.DebounceMs == 0 {
		cfg.Inbox.DebounceMs = 400
	}
}
