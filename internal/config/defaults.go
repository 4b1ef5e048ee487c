package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.IndexBasePath == "" {
		cfg.Storage.IndexBasePath = "/usr/local/var/rinsho/data/indices/knowledge"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.Model == "" {
		switch cfg.Embedding.Provider {
		case "openai":
			cfg.Embedding.Model = "text-embedding-3-small"
		case "onnx":
			cfg.Embedding.Model = "/usr/local/var/rinsho/data/models/all-MiniLM-L6-v2.onnx"
		}
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Retrieval.DefaultK == 0 {
		cfg.Retrieval.DefaultK = 5
	}
	if cfg.Retrieval.MaxK == 0 {
		cfg.Retrieval.MaxK = 50
	}
	if cfg.Retrieval.OverfetchFactor == 0 {
		cfg.Retrieval.OverfetchFactor = 2
	}
	if cfg.Retrieval.EmbedBatchSize == 0 {
		cfg.Retrieval.EmbedBatchSize = 32
	}
	if cfg.Retrieval.EmbedWorkers == 0 {
		cfg.Retrieval.EmbedWorkers = 4
	}
	// SeedOnEmpty defaults to true when unset (nil).
}
