// Package main is the Rinsho CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/rinsho/internal/cli"
	"github.com/hyperjump/rinsho/internal/config"
	"github.com/hyperjump/rinsho/internal/embedding"
	"github.com/hyperjump/rinsho/internal/kb"
	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/persist"
	"github.com/hyperjump/rinsho/internal/retrieval"
	"github.com/hyperjump/rinsho/internal/server"
	"github.com/hyperjump/rinsho/internal/watcher"
	"github.com/hyperjump/rinsho/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/rinsho/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks for
// config.yaml in the current directory (for development); if that exists it is used,
// so that "rinsho server" from the project dir uses the project's config.
// Returns the config and the path that was actually loaded.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		if cwd, cwdErr := os.Getwd(); cwdErr == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				cfg, loadErr := config.Load(fallback)
				if loadErr != nil {
					return nil, "", loadErr
				}
				return cfg, fallback, nil
			}
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "search":
		runSearch()
	case "stats":
		runStats()
	case "build":
		runBuild()
	case "version", "--version", "-v":
		fmt.Printf("rinsho version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`Usage: rinsho <command> [flags]

Commands:
  server    Start the HTTP API server
  search    Search the knowledge base from the command line
  stats     Print knowledge base statistics
  build     Ingest knowledge files, build the index, and save it
  version   Print version
  help      Print this help
`)
}

// components holds the wired engine pieces shared by the subcommands.
type components struct {
	Embedder  embedding.Embedder
	Service   *retrieval.Service
	Knowledge *kb.KnowledgeBase
	Loader    *kb.Loader
}

func (c *components) Close() {
	if c.Service != nil {
		_ = c.Service.Close()
	}
}

func initializeComponents(cfg *config.Config, logger *zap.Logger) (*components, error) {
	embedder, err := embedding.NewEmbedder(embedding.Options{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		Dimensions: cfg.Embedding.Dimensions,
		MaxTokens:  cfg.Embedding.MaxTokens,
		CacheSize:  cfg.Embedding.CacheSize,
	})
	if err != nil {
		return nil, err
	}
	svc := retrieval.NewService(embedder, persist.NewManager(logger), logger, retrieval.Options{
		MaxK:            cfg.Retrieval.MaxK,
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
		EmbedBatchSize:  cfg.Retrieval.EmbedBatchSize,
		EmbedWorkers:    cfg.Retrieval.EmbedWorkers,
	})
	return &components{
		Embedder:  embedder,
		Service:   svc,
		Knowledge: kb.New(svc, logger),
		Loader:    kb.NewLoader(svc, logger),
	}, nil
}

// restoreIndex loads the persisted artifact pair if one exists. A missing pair
// is not an error; the caller decides whether to seed or start empty.
func restoreIndex(svc *retrieval.Service, basePath string, logger *zap.Logger) bool {
	err := svc.LoadIndex(basePath)
	if err == nil {
		return true
	}
	if errors.Is(err, persist.ErrNoIndex) {
		logger.Info("no persisted index found", zap.String("base_path", basePath))
		return false
	}
	logger.Error("failed to load persisted index, starting empty", zap.Error(err))
	return false
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	debugMode := cfg.Debug || *debug
	logger, err := utils.NewLogger(debugMode)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", debugMode),
	)

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	ctx := context.Background()
	if !restoreIndex(comps.Service, cfg.Storage.IndexBasePath, logger) {
		if cfg.Knowledge.SeedOnEmptyOrDefault() {
			if err := comps.Knowledge.Initialize(ctx); err != nil {
				logger.Fatal("Failed to seed knowledge base", zap.Error(err))
			}
		}
		for _, dir := range cfg.Knowledge.Directories {
			if _, err := comps.Loader.LoadDir(ctx, dir); err != nil {
				logger.Warn("knowledge dir load failed", zap.String("dir", dir), zap.Error(err))
			}
		}
	}

	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	var watchSvc *watcher.Watcher
	if cfg.Knowledge.Watch && len(cfg.Knowledge.Directories) > 0 {
		watchOpts := []watcher.Option{}
		if debugMode {
			watchOpts = append(watchOpts, watcher.WithLogger(logger))
		}
		watchSvc = watcher.New(cfg.Knowledge.Directories, []string{".json"}, func(path string) {
			if _, err := comps.Loader.LoadFile(context.Background(), path); err != nil {
				logger.Warn("watch ingest failed", zap.String("path", path), zap.Error(err))
			}
		}, watchOpts...)
		if err := watchSvc.Start(watchCtx); err != nil {
			logger.Fatal("Failed to start watcher", zap.Error(err))
		}
	}

	srv := server.NewServer(comps.Service, comps.Knowledge, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	if err := comps.Service.SaveIndex(cfg.Storage.IndexBasePath); err != nil {
		logger.Warn("index save failed", zap.String("base_path", cfg.Storage.IndexBasePath), zap.Error(err))
	}
	if watchSvc != nil {
		watchSvc.Stop()
	}
	watchCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdownCtx)
}

func printSearchUsage(fs *flag.FlagSet) {
	fmt.Fprintf(fs.Output(), "Usage: rinsho search [flags] <query>\n\n")
	fmt.Fprintf(fs.Output(), "Query is all remaining arguments joined by spaces. Multi-word queries work with or without quotes.\n\n")
	fs.PrintDefaults()
	fmt.Fprintf(fs.Output(), `
Examples:
  rinsho search persistent sadness and hopelessness
  rinsho search "excessive worry"                 # same as above
  rinsho search --category "Anxiety" excessive worry
  rinsho search --k 10 --min-score 0.3 insomnia fatigue
`)
}

// buildSearchQuery joins all positional args with spaces so multi-word queries
// work the same with or without shell quoting.
func buildSearchQuery(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

// searchArgsReorder moves any flags (and their values) that appear after the query
// to the front of the slice so that flag.Parse() sees them. Go's flag package
// stops at the first non-flag argument, so "rinsho search \"query\" -k 10"
// would otherwise leave -k unparsed.
func searchArgsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

func runSearch() {
	searchArgs := searchArgsReorder(os.Args[2:])

	fs := flag.NewFlagSet("search", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = search the local index directly)")
	k := fs.Int("k", 0, "number of results (0 = config default)")
	minScore := fs.Float64("min-score", 0, "minimum similarity score")
	category := fs.String("category", "", "restrict results to a disorder category")
	outputFormat := fs.String("output", "text", "output format: text or json")
	fs.Usage = func() { printSearchUsage(fs) }
	_ = fs.Parse(searchArgs)

	if fs.NArg() < 1 {
		printSearchUsage(fs)
		os.Exit(1)
	}
	queryStr := buildSearchQuery(fs.Args())
	if queryStr == "" {
		printSearchUsage(fs)
		os.Exit(1)
	}

	format := cli.OutputText
	switch *outputFormat {
	case "json":
		format = cli.OutputJSON
	case "text":
		format = cli.OutputText
	default:
		fmt.Printf("Unknown output format %q; use text or json\n", *outputFormat)
		os.Exit(1)
	}

	if *serverURL != "" {
		results, err := searchViaHTTP(*serverURL, queryStr, *category, *k, *minScore)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	cfg, comps := mustOpenIndex(*configPath)
	defer comps.Close()

	if *k == 0 {
		*k = cfg.Retrieval.DefaultK
	}
	ctx := context.Background()
	var results []models.SearchResult
	var err error
	if *category != "" {
		results, err = comps.Service.SearchByCategory(ctx, queryStr, *category, *k)
	} else {
		results, err = comps.Service.Search(ctx, queryStr, *k, *minScore)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Search failed: %v\n", err)
		os.Exit(1)
	}
	if err := cli.WriteSearchResults(os.Stdout, results, format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

// searchResponse mirrors the server's search response body.
type searchResponse struct {
	Results []models.SearchResult `json:"results"`
	Count   int                   `json:"count"`
}

func searchViaHTTP(serverURL, query, category string, k int, minScore float64) ([]models.SearchResult, error) {
	path := "/api/v1/search"
	payload := map[string]interface{}{"query": query, "k": k, "score_threshold": minScore}
	if category != "" {
		path = "/api/v1/search/category"
		payload = map[string]interface{}{"query": query, "category": category, "k": k}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(serverURL+path, "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return response.Results, nil
}

func statsViaHTTP(serverURL string) (*models.KnowledgeStats, error) {
	resp, err := http.Get(serverURL + "/api/v1/stats")
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, string(b))
	}
	var stats models.KnowledgeStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &stats, nil
}

func runStats() {
	fs := flag.NewFlagSet("stats", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local index directly)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])

	format := cli.OutputText
	if *outputFormat == "json" {
		format = cli.OutputJSON
	}

	if *serverURL != "" {
		stats, err := statsViaHTTP(*serverURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Stats failed: %v\n", err)
			os.Exit(1)
		}
		if err := cli.WriteStats(os.Stdout, stats, format); err != nil {
			fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
			os.Exit(1)
		}
		return
	}

	_, comps := mustOpenIndex(*configPath)
	defer comps.Close()

	if err := cli.WriteStats(os.Stdout, comps.Service.Stats(), format); err != nil {
		fmt.Fprintf(os.Stderr, "Output failed: %v\n", err)
		os.Exit(1)
	}
}

func runBuild() {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	seed := fs.Bool("seed", true, "include the built-in clinical corpus")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger, err := utils.NewLogger(cfg.Debug)
	if err != nil {
		fmt.Printf("Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer comps.Close()

	ctx := context.Background()
	if *seed {
		if err := comps.Knowledge.Initialize(ctx); err != nil {
			logger.Fatal("Failed to seed knowledge base", zap.Error(err))
		}
	}
	total := 0
	for _, dir := range cfg.Knowledge.Directories {
		n, err := comps.Loader.LoadDir(ctx, dir)
		if err != nil {
			logger.Fatal("knowledge dir load failed", zap.String("dir", dir), zap.Error(err))
		}
		total += n
	}
	if err := comps.Service.SaveIndex(cfg.Storage.IndexBasePath); err != nil {
		logger.Fatal("index save failed", zap.Error(err))
	}
	stats := comps.Service.Stats()
	fmt.Printf("Built index with %d documents (%d ingested from knowledge dirs), saved to %s\n",
		stats.TotalDocuments, total, cfg.Storage.IndexBasePath)
}

// mustOpenIndex loads config, wires components, and restores the persisted
// index, exiting on any failure.
func mustOpenIndex(configPath string) (*config.Config, *components) {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := zap.NewNop()
	comps, err := initializeComponents(cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize components: %v\n", err)
		os.Exit(1)
	}
	if err := comps.Service.LoadIndex(cfg.Storage.IndexBasePath); err != nil {
		if errors.Is(err, persist.ErrNoIndex) {
			fmt.Fprintf(os.Stderr, "No index found at %s; run \"rinsho build\" first\n", cfg.Storage.IndexBasePath)
		} else {
			fmt.Fprintf(os.Stderr, "Failed to load index: %v\n", err)
		}
		comps.Close()
		os.Exit(1)
	}
	return cfg, comps
}
