// Package main is the Wortwerk CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/deutschlab/wortwerk/internal/config"
	"github.com/deutschlab/wortwerk/internal/embedding"
	"github.com/deutschlab/wortwerk/internal/keyword"
	"github.com/deutschlab/wortwerk/internal/llm"
	"github.com/deutschlab/wortwerk/internal/models"
	"github.com/deutschlab/wortwerk/internal/seed"
	"github.com/deutschlab/wortwerk/internal/server"
	"github.com/deutschlab/wortwerk/internal/store"
	"github.com/deutschlab/wortwerk/internal/transcribe"
	"github.com/deutschlab/wortwerk/internal/vocab"
	"github.com/deutschlab/wortwerk/internal/watcher"
	"github.com/deutschlab/wortwerk/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/wortwerk/config.yaml"

// loadConfig loads config from path. When path is the default, it first looks
// for config.yaml in the current directory so that "wortwerk server" from the
// project dir uses the project's config.
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
	// .env is optional; real deployments set the variables directly.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "vocab":
		runVocab()
	case "seed":
		runSeed()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("wortwerk version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// newEmbedderFactory returns the lazy constructor handed to the provider. The
// ONNX model is only loaded when a ranked search first needs it.
func newEmbedderFactory(cfg *config.Config, logger *zap.Logger) func() (embedding.Embedder, error) {
	return func() (embedding.Embedder, error) {
		e, err := embedding.NewONNXEmbedder(
			cfg.Embedding.ModelPath,
			cfg.Embedding.Dimensions,
			cfg.Embedding.MaxTokens,
			cfg.Embedding.CacheSize,
		)
		if err != nil {
			return nil, err
		}
		logger.Info("embedding model loaded",
			zap.String("model_path", cfg.Embedding.ModelPath),
			zap.Int("dimensions", cfg.Embedding.Dimensions))
		return e, nil
	}
}

func newResolver(cfg *config.Config, logger *zap.Logger) *vocab.Resolver {
	provider := embedding.NewProvider(newEmbedderFactory(cfg, logger))
	return vocab.NewResolver(cfg.Store.Root, provider,
		vocab.WithLogger(logger),
		vocab.WithKeywordFallback(keyword.NewSearcher()),
	)
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

	if cfg.LLM.APIKey() == "" {
		logger.Warn("LLM API key not set; generation endpoints will fail",
			zap.String("env", cfg.LLM.APIKeyEnv))
	}

	resolver := newResolver(cfg, logger)
	client := llm.NewOpenRouterClient(cfg.LLM.APIKey(), cfg.LLM.BaseURL, cfg.LLM.Model)
	transcriber := transcribe.NewWhisperTranscriber(cfg.LLM.APIKey(), "", cfg.Transcribe.Model)

	watchOpts := []watcher.Option{watcher.WithLogger(logger)}
	watchSvc := watcher.NewWatcher(cfg.Store.Root, watchOpts...)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if err := watchSvc.Start(watchCtx); err != nil {
		logger.Warn("store watcher disabled", zap.Error(err))
		watchSvc = nil
	}

	srv := server.NewServer(resolver, client, transcriber, watchSvc, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	watchCancel()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runVocab() {
	fs := flag.NewFlagSet("vocab", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	level := fs.String("level", "A1", "CEFR level (A1, A2, B1, B2)")
	limit := fs.Int("limit", vocab.DefaultLimit, "max entries to return")
	_ = fs.Parse(os.Args[2:])

	query := joinArgs(fs.Args())
	if query == "" {
		fmt.Println("Usage: wortwerk vocab [flags] <query>")
		fs.PrintDefaults()
		os.Exit(1)
	}

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

	resolver := newResolver(cfg, logger)
	result, err := resolver.FetchVocabulary(context.Background(), query, models.Level(*level), *limit)
	if err != nil {
		fmt.Printf("Fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Table: %s (source: %s, ranked: %v)\n", result.Table, result.Source, result.Ranked)
	for i, e := range result.Entries {
		fmt.Printf("%2d. %s — %s\n", i+1, e.GermanTerm, e.EnglishTranslation)
	}
}

func runSeed() {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	level := fs.String("level", "", "CEFR level to seed (A1, A2, B1, B2)")
	_ = fs.Parse(os.Args[2:])

	if *level == "" || fs.NArg() < 1 {
		fmt.Println("Usage: wortwerk seed --level A1 <wordlist.csv|wordlist.xlsx>")
		fs.PrintDefaults()
		os.Exit(1)
	}

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

	embedder, err := embedding.NewONNXEmbedder(
		cfg.Embedding.ModelPath,
		cfg.Embedding.Dimensions,
		cfg.Embedding.MaxTokens,
		cfg.Embedding.CacheSize,
	)
	if err != nil {
		fmt.Printf("Failed to load embedding model: %v\n", err)
		os.Exit(1)
	}
	defer embedder.Close()

	writer := seed.NewWriter(cfg.Store.Root, embedder, logger)
	written, err := writer.SeedFile(context.Background(), fs.Arg(0), models.Level(*level))
	if err != nil {
		fmt.Printf("Seed failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Seeded %d entries into %s\n", written, models.Level(*level).TableName())
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	_ = fs.Parse(os.Args[2:])

	cfg, _, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	conn, err := store.Connect(cfg.Store.Root)
	if err != nil {
		fmt.Printf("Store unavailable at %s: %v\n", cfg.Store.Root, err)
		os.Exit(1)
	}

	tables, err := conn.ListTables()
	if err != nil {
		// No catalog is fine; fall back to the directory scan.
		tables, err = conn.ScanTables()
		if err != nil {
			fmt.Printf("Failed to list tables: %v\n", err)
			os.Exit(1)
		}
	}

	status := map[string]any{
		"store_root": cfg.Store.Root,
		"tables":     tables,
		"model":      cfg.LLM.Model,
	}
	out, _ := json.MarshalIndent(status, "", "  ")
	fmt.Println(string(out))
}

func joinArgs(args []string) string {
	out := ""
	for i, a := range args {
		if i > 0 {
			out += " "
		}
		out += a
	}
	return out
}

func printUsage() {
	fmt.Println(`Wortwerk - CEFR German exercise generation service

Usage:
  wortwerk <command> [flags]

Commands:
  server    Start the HTTP API server
  vocab     Fetch vocabulary for a query and level
  seed      Load a word list into a vocabulary table
  status    Show store contents and configuration
  version   Show version
  help      Show this help

Run 'wortwerk <command> -h' for command flags.`)
}
