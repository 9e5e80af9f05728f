// Package config loads the deployment configuration. Every retrieval and
// rewrite threshold lives here rather than in code; none of the numeric
// defaults is load-bearing.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// EngineConfig selects the generation/embedding engine binding.
type EngineConfig struct {
	BaseURL       string `yaml:"base_url"`
	GenerateModel string `yaml:"generate_model"`
	EmbedModel    string `yaml:"embed_model"`
	// Format names the role-delimiter convention of the engine family
	// (gemma or chatml).
	Format string `yaml:"format"`
}

// RetrievalConfig tunes similarity search. Threshold may be negative to
// disable relevance filtering and rely on top_k alone.
type RetrievalConfig struct {
	TopK      int     `yaml:"top_k"`
	Threshold float64 `yaml:"threshold"`
}

// RewriteConfig tunes the history-aware query rewriter.
type RewriteConfig struct {
	TriggerWords    []string `yaml:"trigger_words"`
	MinQueryRunes   int      `yaml:"min_query_runes"`
	MinRewriteRunes int      `yaml:"min_rewrite_runes"`
	HistoryWindow   int      `yaml:"history_window"`
	MaxTokens       int      `yaml:"max_tokens"`
}

// CompletionConfig tunes the main generation call.
type CompletionConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	FlushBatch  int     `yaml:"flush_batch"`
	Temperature float64 `yaml:"temperature"`
	TopP        float64 `yaml:"top_p"`
	TopK        int     `yaml:"top_k"`
}

// ChunkerConfig tunes the fixed-width fallback splitter.
type ChunkerConfig struct {
	Width int `yaml:"width"`
}

// Config is the root configuration.
type Config struct {
	DataDir      string           `yaml:"data_dir"`
	LogLevel     string           `yaml:"log_level"`
	SystemPrompt string           `yaml:"system_prompt"`
	HistoryLimit int              `yaml:"history_limit"`
	Engine       EngineConfig     `yaml:"engine"`
	Retrieval    RetrievalConfig  `yaml:"retrieval"`
	Rewrite      RewriteConfig    `yaml:"rewrite"`
	Completion   CompletionConfig `yaml:"completion"`
	Chunker      ChunkerConfig    `yaml:"chunker"`
}

// Load reads the config from path. A missing file yields the defaults; a
// present file is merged over them.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	applyDefaults(cfg)
	return cfg, nil
}

// Default returns the stock configuration.
func Default() *Config {
	return &Config{
		DataDir:      "./data",
		LogLevel:     "info",
		SystemPrompt: "You are a personal finance assistant. Answer using the provided account context when it is relevant, and say so when it is not.",
		HistoryLimit: 10,
		Engine: EngineConfig{
			BaseURL:       "http://localhost:11434",
			GenerateModel: "gemma3",
			EmbedModel:    "nomic-embed-text",
			Format:        "gemma",
		},
		Retrieval: RetrievalConfig{
			TopK:      3,
			Threshold: 0.45,
		},
		Rewrite: RewriteConfig{
			TriggerWords:    []string{"that", "this", "it", "those", "them"},
			MinQueryRunes:   12,
			MinRewriteRunes: 5,
			HistoryWindow:   6,
			MaxTokens:       64,
		},
		Completion: CompletionConfig{
			MaxTokens:   512,
			FlushBatch:  1,
			Temperature: 0.7,
			TopP:        0.9,
			TopK:        40,
		},
		Chunker: ChunkerConfig{Width: 500},
	}
}

// applyDefaults fills gaps a partial config file left empty.
func applyDefaults(cfg *Config) {
	def := Default()
	if cfg.DataDir == "" {
		cfg.DataDir = def.DataDir
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = def.LogLevel
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = def.SystemPrompt
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	if cfg.Engine.BaseURL == "" {
		cfg.Engine.BaseURL = def.Engine.BaseURL
	}
	if cfg.Engine.GenerateModel == "" {
		cfg.Engine.GenerateModel = def.Engine.GenerateModel
	}
	if cfg.Engine.EmbedModel == "" {
		cfg.Engine.EmbedModel = def.Engine.EmbedModel
	}
	if cfg.Engine.Format == "" {
		cfg.Engine.Format = def.Engine.Format
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = def.Retrieval.TopK
	}
	if len(cfg.Rewrite.TriggerWords) == 0 {
		cfg.Rewrite.TriggerWords = def.Rewrite.TriggerWords
	}
	if cfg.Rewrite.MinQueryRunes == 0 {
		cfg.Rewrite.MinQueryRunes = def.Rewrite.MinQueryRunes
	}
	if cfg.Rewrite.MinRewriteRunes == 0 {
		cfg.Rewrite.MinRewriteRunes = def.Rewrite.MinRewriteRunes
	}
	if cfg.Rewrite.HistoryWindow == 0 {
		cfg.Rewrite.HistoryWindow = def.Rewrite.HistoryWindow
	}
	if cfg.Rewrite.MaxTokens == 0 {
		cfg.Rewrite.MaxTokens = def.Rewrite.MaxTokens
	}
	if cfg.Completion.MaxTokens == 0 {
		cfg.Completion.MaxTokens = def.Completion.MaxTokens
	}
	if cfg.Completion.FlushBatch == 0 {
		cfg.Completion.FlushBatch = def.Completion.FlushBatch
	}
	if cfg.Chunker.Width == 0 {
		cfg.Chunker.Width = def.Chunker.Width
	}
}
