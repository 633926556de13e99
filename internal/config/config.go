package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/xxxsen/common/logger"
)

type Config struct {
	Port        int              `json:"port"`
	CORSAllow   []string         `json:"cors_allow"`
	LogConfig   logger.LogConfig `json:"log_config"`
	Database    DatabaseConfig   `json:"database"`
	BookStore   FileStoreConfig  `json:"book_store"`
	SystemStore FileStoreConfig  `json:"system_store"`
	AI          AIConfig         `json:"ai"`
	QA          QAConfig         `json:"qa"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	User     string `json:"user"`
	Password string `json:"password"`
	DBName   string `json:"db_name"`
	SSLMode  string `json:"ssl_mode"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// ProviderConfig selects one adapter implementation; Data carries the
// provider-specific settings and is decoded by the adapter factory.
type ProviderConfig struct {
	Provider string      `json:"provider"`
	Model    string      `json:"model"`
	Data     interface{} `json:"data"`
}

type AIConfig struct {
	Transcriber    ProviderConfig            `json:"transcriber"`
	Embedder       ProviderConfig            `json:"embedder"`
	Generator      ProviderConfig            `json:"generator"`
	Synthesizers   map[string]ProviderConfig `json:"synthesizers"`
	DefaultTTS     string                    `json:"default_tts"`
	MaxTokens      int                       `json:"max_tokens"`
	TimeoutSeconds int                       `json:"timeout_seconds"`
}

type QAConfig struct {
	MinChunkIndex       int    `json:"min_chunk_index"`
	MinQuestionChars    int    `json:"min_question_chars"`
	RecentWindowMs      int64  `json:"recent_window_ms"`
	RetrievalLimit      int    `json:"retrieval_limit"`
	MinSentenceChars    int    `json:"min_sentence_chars"`
	MaxInflightSynth    int    `json:"max_inflight_synth"`
	LogRetentionDays    int    `json:"log_retention_days"`
	LogCleanupSpec      string `json:"log_cleanup_spec"`
	BookCacheSize       int    `json:"book_cache_size"`
	BookCacheTTLSeconds int    `json:"book_cache_ttl_seconds"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.Database.DSN == "" && cfg.Database.Host == "" {
		return nil, fmt.Errorf("database.dsn or database.host is required")
	}
	if cfg.BookStore.Type == "" {
		return nil, fmt.Errorf("book_store.type is required")
	}
	if cfg.SystemStore.Type == "" {
		cfg.SystemStore = cfg.BookStore
	}
	if cfg.AI.Transcriber.Provider == "" {
		return nil, fmt.Errorf("ai.transcriber.provider is required")
	}
	if cfg.AI.Generator.Provider == "" {
		return nil, fmt.Errorf("ai.generator.provider is required")
	}
	if len(cfg.AI.Synthesizers) == 0 {
		return nil, fmt.Errorf("ai.synthesizers must configure at least one provider")
	}
	if cfg.AI.DefaultTTS == "" {
		for name := range cfg.AI.Synthesizers {
			cfg.AI.DefaultTTS = name
			break
		}
	}
	if _, ok := cfg.AI.Synthesizers[cfg.AI.DefaultTTS]; !ok {
		return nil, fmt.Errorf("ai.default_tts %q is not configured", cfg.AI.DefaultTTS)
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 500
	}
	if cfg.AI.TimeoutSeconds <= 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	applyQADefaults(&cfg.QA)
	return &cfg, nil
}

func applyQADefaults(qa *QAConfig) {
	if qa.MinChunkIndex <= 0 {
		qa.MinChunkIndex = 5
	}
	if qa.MinQuestionChars <= 0 {
		qa.MinQuestionChars = 2
	}
	if qa.RecentWindowMs <= 0 {
		qa.RecentWindowMs = 60000
	}
	if qa.RetrievalLimit <= 0 {
		qa.RetrievalLimit = 5
	}
	if qa.MinSentenceChars <= 0 {
		qa.MinSentenceChars = 10
	}
	if qa.MaxInflightSynth <= 0 {
		qa.MaxInflightSynth = 2
	}
	if qa.LogRetentionDays <= 0 {
		qa.LogRetentionDays = 90
	}
	if qa.LogCleanupSpec == "" {
		qa.LogCleanupSpec = "0 4 * * *"
	}
	if qa.BookCacheSize <= 0 {
		qa.BookCacheSize = 64
	}
	if qa.BookCacheTTLSeconds <= 0 {
		qa.BookCacheTTLSeconds = 300
	}
}
