// Package main is the docqa CLI entry point.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/docqa/internal/cli"
	"github.com/hyperjump/docqa/internal/config"
	"github.com/hyperjump/docqa/internal/corpus"
	"github.com/hyperjump/docqa/internal/embedding"
	"github.com/hyperjump/docqa/internal/extract"
	"github.com/hyperjump/docqa/internal/generation"
	"github.com/hyperjump/docqa/internal/indexer"
	"github.com/hyperjump/docqa/internal/models"
	"github.com/hyperjump/docqa/internal/search"
	"github.com/hyperjump/docqa/internal/server"
	"github.com/hyperjump/docqa/internal/watcher"
	"github.com/hyperjump/docqa/pkg/utils"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/docqa/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in the
// current directory takes precedence, and if neither exists the defaults are used with
// paths relative to the current directory. Returns the config and the path that was
// actually loaded ("" for defaults).
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
			if _, statErr := os.Stat(path); os.IsNotExist(statErr) {
				return config.Default(cwd), "", nil
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
	// A missing .env is fine; the environment may already carry the API key.
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	switch command {
	case "server":
		runServer()
	case "ingest":
		runIngest()
	case "ask":
		runAsk()
	case "documents":
		runDocuments()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("docqa version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

// mustLoad loads and validates the config and creates the logger.
func mustLoad(configPath string, debug bool) (*config.Config, string, *zap.Logger) {
	cfg, resolved, err := loadConfig(configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		fatalf("Invalid config: %v", err)
	}
	logger, err := utils.NewLogger(cfg.Debug || debug)
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	return cfg, resolved, logger
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, resolvedConfigPath, logger := mustLoad(*configPath, *debug)
	defer logger.Sync()

	logger.Info("config loaded",
		zap.String("config_path", resolvedConfigPath),
		zap.Bool("debug", cfg.Debug || *debug),
	)

	components, err := initializeComponents(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize components", zap.Error(err))
	}
	defer components.Close()

	srv := server.NewServer(
		components.Engine,
		components.Indexer,
		components.Corpus,
		cfg,
		logger,
	)
	watchCtx, watchCancel := context.WithCancel(context.Background())
	defer watchCancel()
	if cfg.Inbox.Dir != "" {
		inbox := watcher.NewInbox(cfg.Inbox.Dir, components.Indexer, logger)
		if _, err := inbox.Watch(watchCtx, cfg.Inbox.Debounce()); err != nil {
			logger.Fatal("Failed to start inbox watcher", zap.Error(err))
		}
		logger.Info("watching inbox", zap.String("dir", cfg.Inbox.Dir))
	}

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
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

// argsReorder moves any flags (and their values) that appear after the positional
// arguments to the front so that flag.Parse sees them. The flag package stops at the
// first non-flag argument, so "docqa ask what is this --doc abc" would otherwise leave
// --doc unparsed.
func argsReorder(args []string) []string {
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

// buildQuestion joins all positional args with spaces so multi-word questions
// work the same with or without shell quoting.
func buildQuestion(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func parseFormat(s string) cli.OutputFormat {
	format, err := cli.ParseOutputFormat(s)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

func runIngest() {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = ingest directly into the local corpus)")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	if fs.NArg() < 1 {
		fmt.Println("Usage: docqa ingest [flags] <file.pdf>...")
		os.Exit(1)
	}
	ctx := context.Background()

	if *serverURL != "" {
		client := cli.NewClient(*serverURL, 0)
		for _, path := range fs.Args() {
			docID, err := client.Upload(ctx, path)
			if err != nil {
				fatalf("Ingesting %s failed: %v", path, err)
			}
			fmt.Printf("Document uploaded and indexed: %s (%s)\n", docID, filepath.Base(path))
		}
		return
	}

	cfg, _, logger := mustLoad(*configPath, false)
	defer logger.Sync()
	components, err := initializeComponents(ctx, cfg, logger)
	if err != nil {
		fatalf("Failed to initialize: %v", err)
	}
	defer components.Close()

	for _, path := range fs.Args() {
		docID, err := components.Indexer.IngestFile(ctx, path, filepath.Base(path))
		if err != nil {
			fatalf("Ingesting %s failed: %v", path, err)
		}
		fmt.Printf("Document uploaded and indexed: %s (%s)\n", docID, filepath.Base(path))
	}
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = answer from the local corpus)")
	docID := fs.String("doc", "", "restrict retrieval to this doc_id")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(argsReorder(os.Args[2:]))

	question := buildQuestion(fs.Args())
	if question == "" {
		fmt.Println("Usage: docqa ask [flags] <question>")
		os.Exit(1)
	}
	format := parseFormat(*outputFormat)
	ctx := context.Background()

	var answer *models.Answer
	if *serverURL != "" {
		a, err := cli.NewClient(*serverURL, 0).Ask(ctx, question, *docID)
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
		answer = a
	} else {
		cfg, _, logger := mustLoad(*configPath, false)
		defer logger.Sync()
		components, err := initializeComponents(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to initialize: %v", err)
		}
		defer components.Close()
		a, err := components.Engine.Ask(ctx, question, *docID)
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
		answer = a
	}
	if err := cli.WriteAnswer(os.Stdout, answer, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runDocuments() {
	fs := flag.NewFlagSet("documents", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "", "server URL (empty = read the local corpus)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)
	ctx := context.Background()

	var docs []models.DocumentSummary
	if *serverURL != "" {
		d, err := cli.NewClient(*serverURL, 0).Documents(ctx)
		if err != nil {
			fatalf("Listing documents failed: %v", err)
		}
		docs = d
	} else {
		cfg, _, logger := mustLoad(*configPath, false)
		defer logger.Sync()
		c, err := openCorpus(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to open corpus: %v", err)
		}
		defer c.Close()
		for _, d := range c.Documents() {
			docs = append(docs, models.DocumentSummary{DocID: d.ID, Filename: d.Filename})
		}
	}
	if err := cli.WriteDocuments(os.Stdout, docs, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	serverURL := fs.String("server", "http://localhost:8080", "server URL (empty = read the local corpus)")
	outputFormat := fs.String("output", "text", "output format: text or json")
	_ = fs.Parse(os.Args[2:])
	format := parseFormat(*outputFormat)
	ctx := context.Background()

	var status *models.Status
	if *serverURL != "" {
		s, err := cli.NewClient(*serverURL, 10*time.Second).Status(ctx)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = s
	} else {
		cfg, _, logger := mustLoad(*configPath, false)
		defer logger.Sync()
		c, err := openCorpus(ctx, cfg, logger)
		if err != nil {
			fatalf("Failed to open corpus: %v", err)
		}
		defer c.Close()
		s, err := server.BuildStatus(ctx, c, cfg)
		if err != nil {
			fatalf("Status failed: %v", err)
		}
		status = s
	}
	if err := cli.WriteStatus(os.Stdout, status, format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

// Components holds initialized services.
type Components struct {
	Corpus    *corpus.Corpus
	Embedder  embedding.Embedder
	Generator generation.Generator
	Engine    *search.Engine
	Indexer   *indexer.Indexer
}

// Close releases the embedder and the corpus.
func (c *Components) Close() {
	if c.Embedder != nil {
		_ = c.Embedder.Close()
	}
	if c.Corpus != nil {
		_ = c.Corpus.Close()
	}
}

func openCorpus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*corpus.Corpus, error) {
	return corpus.Open(ctx, corpus.Paths{
		Index:    cfg.Storage.IndexPath,
		Registry: cfg.Storage.RegistryPath,
		Journal:  cfg.Storage.JournalPath,
	}, cfg.Embedding.Dimensions, corpus.WithLogger(logger))
}

func initializeComponents(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Components, error) {
	embedder, err := embedding.New(cfg.Embedding)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	generator, err := generation.New(cfg.Generation)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to initialize generator: %w", err)
	}
	c, err := openCorpus(ctx, cfg, logger)
	if err != nil {
		_ = embedder.Close()
		return nil, fmt.Errorf("failed to open corpus: %w", err)
	}

	engine := search.NewEngine(c, embedding.ForQueries(embedder, cfg.Embedding.CacheSize), generator, cfg.Retrieval, search.WithLogger(logger))
	idx, err := indexer.NewIndexer(c, embedder, cfg.Chunking, extract.NewExtractor(),
		indexer.WithLogger(logger),
		indexer.WithTimeout(time.Duration(cfg.Server.IngestTimeoutSecs)*time.Second),
	)
	if err != nil {
		_ = embedder.Close()
		_ = c.Close()
		return nil, fmt.Errorf("failed to initialize indexer: %w", err)
	}
	logger.Info("components initialized",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("generation_provider", cfg.Generation.Provider),
		zap.String("scope_mode", cfg.Retrieval.ScopeMode))

	return &Components{
		Corpus:    c,
		Embedder:  embedder,
		Generator: generator,
		Engine:    engine,
		Indexer:   idx,
	}, nil
}

func printUsage() {
	fmt.Println(`docqa - Question answering over PDF documents

Usage:
  docqa server [flags]               Start the HTTP server
  docqa ingest [flags] <file.pdf>... Ingest PDF documents
  docqa ask [flags] <question>       Ask a question
  docqa documents [flags]            List ingested documents
  docqa status [flags]               Show corpus and index status
  docqa version                      Show version
  docqa help                         Show this help

Server Flags:
  --config string    Config file path (default: /usr/local/etc/docqa/config.yaml, or ./config.yaml)
  --debug            Enable debug logging

Ingest / Ask / Documents Flags:
  --config string    Config file path (for direct corpus access)
  --server string    Server URL; when set the request goes over HTTP instead of opening the corpus
  --doc string       (ask) Restrict retrieval to one doc_id
  --output string    (ask, documents) Output format: text or json (default: text)

Inbox:
  Set inbox.dir in the config to ingest PDFs dropped into that directory while the
  server runs. Each file is ingested once, then moved to processed/ or failed/.

Status Flags:
  --config string    Config file path (for direct corpus access)
  --server string    Server URL (default: http://localhost:8080). Use --server "" for direct access.
  --output string    Output format: text or json (default: text)

Only one process may write to a corpus at a time; while the server runs, use --server
for ingest.

Environment:
  OPENAI_API_KEY     API key for the openai provider (also read from .env)

Examples:
  docqa server
  docqa ingest report.pdf
  docqa ingest --server http://localhost:8080 report.pdf
  docqa ask what was the quarterly revenue
  docqa ask --doc 3f2c... "who signed the contract?"
  docqa documents --output json
  docqa status --server ""`)
}
