package models

// DocumentSummary is a registered document as listed by the API.
type DocumentSummary struct {
	DocID    string `json:"doc_id"`
	Filename string `json:"filename"`
}

// StatusConfig is the configuration summary reported by status.
type StatusConfig struct {
	EmbeddingProvider   string `json:"embedding_provider"`
	EmbeddingModel      string `json:"embedding_model"`
	EmbeddingDimensions int    `json:"embedding_dimensions"`
	GenerationProvider  string `json:"generation_provider"`
	GenerationModel     string `json:"generation_model"`
	ChunkSize           int    `json:"chunk_size"`
	ChunkOverlap        int    `json:"chunk_overlap"`
	TopK                int    `json:"top_k"`
	ScopedTopK          int    `json:"scoped_top_k"`
	ScopeMode           string `json:"scope_mode"`
	IndexPath           string `json:"index_path,omitempty"`
	RegistryPath        string `json:"registry_path,omitempty"`
	JournalPath         string `json:"journal_path,omitempty"`
	InboxDir            string `json:"inbox_dir,omitempty"`
}

// Status describes the corpus and the service configuration.
type Status struct {
	Documents       int              `json:"documents"`
	Chunks          int              `json:"chunks"`
	VectorIndexSize int              `json:"vector_index_size"`
	Dimensions      int              `json:"dimensions"`
	Ingestions      map[string]int64 `json:"ingestions,omitempty"`
	DiskUsageBytes  *int64           `json:"disk_usage_bytes,omitempty"`
	Config          *StatusConfig    `json:"config,omitempty"`
}
