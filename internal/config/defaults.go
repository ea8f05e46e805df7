package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/kotae/data/chat.db"
	}
	if cfg.OpenAI.APIKeyEnv == "" {
		cfg.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.OpenAI.Dimensions == 0 {
		cfg.OpenAI.Dimensions = 1536
	}
	if cfg.Vector.Backend == "" {
		cfg.Vector.Backend = "memory"
	}
	if cfg.Vector.URL == "" {
		cfg.Vector.URL = "http://localhost:6333"
	}
	if cfg.Vector.APIKeyEnv == "" {
		cfg.Vector.APIKeyEnv = "QDRANT_API_KEY"
	}
	if cfg.Vector.Timeout == 0 {
		cfg.Vector.Timeout = Duration(15 * time.Second)
	}
	if cfg.WebSearch.Provider == "" {
		cfg.WebSearch.Provider = "serper"
	}
	if cfg.WebSearch.APIKeyEnv == "" {
		cfg.WebSearch.APIKeyEnv = "SERPER_API_KEY"
	}
	if cfg.WebSearch.MaxResults == 0 {
		cfg.WebSearch.MaxResults = 5
	}
	if cfg.WebSearch.Timeout == 0 {
		cfg.WebSearch.Timeout = Duration(10 * time.Second)
	}
	if cfg.Search.DefaultTopK == 0 {
		cfg.Search.DefaultTopK = 5
	}
	if cfg.Search.MaxTopK == 0 {
		cfg.Search.MaxTopK = 50
	}
	if cfg.Search.OverfetchFactor == 0 {
		cfg.Search.OverfetchFactor = 3
	}
	if cfg.Search.VectorWeight == 0 && cfg.Search.KeywordWeight == 0 {
		cfg.Search.VectorWeight = 0.5
		cfg.Search.KeywordWeight = 0.5
	}
	if cfg.Search.WebWeight == 0 {
		cfg.Search.WebWeight = 0.5
	}
	if cfg.Search.MaxContextChars == 0 {
		cfg.Search.MaxContextChars = 8000
	}
	if cfg.Search.HistoryMessages == 0 {
		cfg.Search.HistoryMessages = 10
	}
	if cfg.Chunking.MaxChunkTokens == 0 {
		cfg.Chunking.MaxChunkTokens = 400
	}
	if cfg.Chunking.MinChunkChars == 0 {
		cfg.Chunking.MinChunkChars = 300
	}
	if cfg.Chunking.OverlapSentences == 0 {
		cfg.Chunking.OverlapSentences = 1
	}
	if cfg.Chunking.MinPerPage == 0 {
		cfg.Chunking.MinPerPage = 3
	}
	if cfg.Chunking.MaxPerPage == 0 {
		cfg.Chunking.MaxPerPage = 5
	}
	if cfg.Session.IdleTTL == 0 {
		cfg.Session.IdleTTL = Duration(time.Hour)
	}
	if cfg.Session.PruneInterval == 0 {
		cfg.Session.PruneInterval = Duration(10 * time.Minute)
	}
}
