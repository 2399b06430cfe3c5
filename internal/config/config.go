// Package config provides configuration loading and structs for the docqa server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Provider names accepted by the embedding and generation sections.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Scope modes for document-scoped retrieval.
const (
	ScopeOverfetch = "overfetch"
	ScopeFilter    = "filter"
)

// Config holds all configuration for the application.
type Config struct {
	Debug      bool             `yaml:"debug"`
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Retrieval  RetrievalConfig  `yaml:"retrieval"`
	Inbox      InboxConfig      `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string `yaml:"host"`
	Port               int    `yaml:"port"`
	MaxUploadMB        int    `yaml:"max_upload_mb"`
	RequestTimeoutSecs int    `yaml:"request_timeout_secs"`
	IngestTimeoutSecs  int    `yaml:"ingest_timeout_secs"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// StorageConfig holds paths for the persisted corpus. Empty file paths are derived from DataDir.
type StorageConfig struct {
	DataDir      string `yaml:"data_dir"`
	IndexPath    string `yaml:"index_path"`
	RegistryPath string `yaml:"registry_path"`
	JournalPath  string `yaml:"journal_path"`
	UploadDir    string `yaml:"upload_dir"`
}

// InboxConfig enables a watched directory whose PDFs are ingested once and then moved
// into processed/ or failed/ beneath it. An empty Dir disables the inbox.
type InboxConfig struct {
	Dir        string `yaml:"dir"`
	DebounceMs int    `yaml:"debounce_ms"`
}

// Debounce returns how long a file must be quiet before it is ingested.
func (i InboxConfig) Debounce() time.Duration {
	return time.Duration(i.DebounceMs) * time.Millisecond
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"`
	Model       string `yaml:"model"`
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Dimensions  int    `yaml:"dimensions"`
	BatchSize   int    `yaml:"batch_size"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	// MaxRetries of 0 means the default; a negative value disables retries.
	MaxRetries int `yaml:"max_retries"`
	CacheSize  int `yaml:"cache_size"`
}

// Timeout returns the per-request timeout.
func (e EmbeddingConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSecs) * time.Second
}

// GenerationConfig holds answer generator settings.
type GenerationConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
	Temperature float64 `yaml:"temperature"`
}

// Timeout returns the per-request timeout.
func (g GenerationConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSecs) * time.Second
}

// ChunkingConfig holds chunk window settings, in characters.
type ChunkingConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
}

// RetrievalConfig holds similarity search settings.
type RetrievalConfig struct {
	TopK       int    `yaml:"top_k"`
	ScopedTopK int    `yaml:"scoped_top_k"`
	ScopeMode  string `yaml:"scope_mode"`
}

// Load reads and parses the config file at path, applies defaults, and expands paths.
// Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	resolvePaths(&cfg, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with every default applied; relative paths resolve against dir.
func Default(dir string) *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	resolvePaths(cfg, dir)
	return cfg
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Chunking.ChunkSize <= 0 {
		return fmt.Errorf("chunking.chunk_size must be positive, got %d", c.Chunking.ChunkSize)
	}
	if c.Chunking.ChunkOverlap < 0 || c.Chunking.ChunkOverlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.chunk_overlap must be in [0, chunk_size), got %d", c.Chunking.ChunkOverlap)
	}
	if !validProvider(c.Embedding.Provider) {
		return fmt.Errorf("unknown embedding.provider %q", c.Embedding.Provider)
	}
	if !validProvider(c.Generation.Provider) {
		return fmt.Errorf("unknown generation.provider %q", c.Generation.Provider)
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.Retrieval.TopK <= 0 || c.Retrieval.ScopedTopK <= 0 {
		return fmt.Errorf("retrieval.top_k and retrieval.scoped_top_k must be positive")
	}
	switch c.Retrieval.ScopeMode {
	case ScopeOverfetch, ScopeFilter:
	default:
		return fmt.Errorf("unknown retrieval.scope_mode %q", c.Retrieval.ScopeMode)
	}
	return nil
}

func validProvider(p string) bool {
	return p == ProviderOpenAI || p == ProviderMock
}

func resolvePaths(cfg *Config, configDir string) {
	s := &cfg.Storage
	s.DataDir = expandPath(s.DataDir, configDir)
	s.IndexPath = derivePath(s.IndexPath, s.DataDir, "index.vec", configDir)
	s.RegistryPath = derivePath(s.RegistryPath, s.DataDir, "registry.json", configDir)
	s.JournalPath = derivePath(s.JournalPath, s.DataDir, "journal.db", configDir)
	s.UploadDir = derivePath(s.UploadDir, s.DataDir, "uploads", configDir)
	if cfg.Inbox.Dir != "" {
		cfg.Inbox.Dir = expandPath(cfg.Inbox.Dir, configDir)
	}
}

func derivePath(path, dataDir, name, configDir string) string {
	if path == "" {
		return filepath.Join(dataDir, name)
	}
	return expandPath(path, configDir)
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
