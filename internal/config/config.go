// Package config provides configuration loading and structs for the Kotae server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Vector    VectorConfig    `yaml:"vector"`
	WebSearch WebSearchConfig `yaml:"web_search"`
	Search    SearchConfig    `yaml:"search"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Session   SessionConfig   `yaml:"session"`
}

// Duration wraps time.Duration so YAML values like "10s" and "1h" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for on-disk state.
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// OpenAIConfig holds embedding and generation model settings. The API key is
// read from the environment, never from the config file.
type OpenAIConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
	ChatModel      string `yaml:"chat_model"`
	Dimensions     int    `yaml:"dimensions"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	// Backend is "memory" (in-process) or "qdrant" (remote).
	Backend   string   `yaml:"backend"`
	URL       string   `yaml:"url"`
	APIKeyEnv string   `yaml:"api_key_env"`
	Timeout   Duration `yaml:"timeout"`
}

// WebSearchConfig holds optional web augmentation settings.
type WebSearchConfig struct {
	Provider   string   `yaml:"provider"`
	APIKeyEnv  string   `yaml:"api_key_env"`
	MaxResults int      `yaml:"max_results"`
	Timeout    Duration `yaml:"timeout"`
}

// SearchConfig holds retrieval and fusion settings.
type SearchConfig struct {
	DefaultTopK     int     `yaml:"default_top_k"`
	MaxTopK         int     `yaml:"max_top_k"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	VectorWeight    float64 `yaml:"vector_weight"`
	KeywordWeight   float64 `yaml:"keyword_weight"`
	WebWeight       float64 `yaml:"web_weight"`
	MaxContextChars int     `yaml:"max_context_chars"`
	HistoryMessages int     `yaml:"history_messages"`
}

// ChunkingConfig holds document chunking settings.
type ChunkingConfig struct {
	MaxChunkTokens   int `yaml:"max_chunk_tokens"`
	MinChunkChars    int `yaml:"min_chunk_chars"`
	OverlapSentences int `yaml:"overlap_sentences"`
	MinPerPage       int `yaml:"min_chunks_per_page"`
	MaxPerPage       int `yaml:"max_chunks_per_page"`
}

// SessionConfig holds session lifecycle settings.
type SessionConfig struct {
	IdleTTL       Duration `yaml:"idle_ttl"`
	PruneInterval Duration `yaml:"prune_interval"`
}

// Load reads and parses the config file at path, expands paths, and applies
// defaults. Returns an error if the file cannot be read or parsed.
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
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a
// config file.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// expandPath converts a path to absolute. Paths starting with "./" are
// relative to configDir; other relative paths are relative to the home
// directory.
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
