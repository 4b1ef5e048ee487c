// Package config provides configuration loading and structs for the Rinsho server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds the base path for the index artifact pair.
type StorageConfig struct {
	IndexBasePath string `yaml:"index_base_path"`
}

// EmbeddingConfig holds embedder settings. Provider selects the backend:
// "mock", "openai", or "onnx".
type EmbeddingConfig struct {
	Provider   string `yaml:"provider"`
	Model      string `yaml:"model"`
	APIKey     string `yaml:"api_key"`
	Dimensions int    `yaml:"dimensions"`
	MaxTokens  int    `yaml:"max_tokens"`
	CacheSize  int    `yaml:"cache_size"`
}

// RetrievalConfig holds search and index-build settings.
type RetrievalConfig struct {
	DefaultK              int     `yaml:"default_k"`
	MaxK                  int     `yaml:"max_k"`
	DefaultScoreThreshold float64 `yaml:"default_score_threshold"`
	OverfetchFactor       int     `yaml:"overfetch_factor"`
	EmbedBatchSize        int     `yaml:"embed_batch_size"`
	EmbedWorkers          int     `yaml:"embed_workers"`
}

// KnowledgeConfig holds knowledge base ingestion settings.
type KnowledgeConfig struct {
	Directories []string `yaml:"directories"`
	Watch       bool     `yaml:"watch"`
	SeedOnEmpty *bool    `yaml:"seed_on_empty"`
}

// SeedOnEmptyOrDefault returns whether to seed the built-in corpus when the
// index starts empty; defaults to true when unset.
func (k *KnowledgeConfig) SeedOnEmptyOrDefault() bool {
	if k.SeedOnEmpty != nil {
		return *k.SeedOnEmpty
	}
	return true
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
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

	configDir := filepath.Dir(path)
	cfg.Storage.IndexBasePath = expandPath(cfg.Storage.IndexBasePath, configDir)
	if cfg.Embedding.Provider == "onnx" {
		cfg.Embedding.Model = expandPath(cfg.Embedding.Model, configDir)
	}
	for i := range cfg.Knowledge.Directories {
		cfg.Knowledge.Directories[i] = expandPath(cfg.Knowledge.Directories[i], configDir)
	}

	return &cfg, nil
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
