// Package main is the Kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/hyperjump/kotae/internal/chunker"
	"github.com/hyperjump/kotae/internal/composer"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/extract"
	"github.com/hyperjump/kotae/internal/history"
	"github.com/hyperjump/kotae/internal/llm"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/search"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/session"
	"github.com/hyperjump/kotae/internal/vector"
	"github.com/hyperjump/kotae/internal/websearch"
	"github.com/hyperjump/kotae/pkg/utils"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, a config.yaml
// in the current directory takes precedence so running from the project dir
// picks up the project's config. A missing default falls back to built-in
// defaults.
func loadConfig(path string) (*config.Config, error) {
	if path == defaultConfigPath {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, "config.yaml")
			if _, statErr := os.Stat(fallback); statErr == nil {
				return config.Load(fallback)
			}
		}
		if _, statErr := os.Stat(path); statErr != nil {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

func main() {
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	switch command := os.Args[1]; command {
	case "server":
		runServer()
	case "upload":
		runUpload()
	case "ask":
		runAsk()
	case "clear":
		runClear()
	case "status":
		runStatus()
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Usage: kotae <command> [flags]

Commands:
  server    Run the HTTP API server
  upload    Upload a document to a session
  ask       Ask a question against a session's document
  clear     Clear a session's index and chat history
  status    Show a session's index stats
  version   Print version
  help      Show this help`)
}

func runServer() {
	fs := flag.NewFlagSet("server", flag.ExitOnError)
	configPath := fs.String("config", defaultConfigPath, "config file path")
	debug := fs.Bool("debug", false, "enable debug logging")
	_ = fs.Parse(os.Args[2:])

	cfg, err := loadConfig(*configPath)
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

	apiKey := os.Getenv(cfg.OpenAI.APIKeyEnv)
	if apiKey == "" {
		logger.Fatal("missing API key", zap.String("env", cfg.OpenAI.APIKeyEnv))
	}
	openai, err := llm.NewOpenAI(apiKey, cfg.OpenAI.ChatModel, cfg.OpenAI.EmbeddingModel, cfg.OpenAI.Dimensions)
	if err != nil {
		logger.Fatal("failed to create OpenAI client", zap.Error(err))
	}

	var web websearch.Searcher
	if key := os.Getenv(cfg.WebSearch.APIKeyEnv); key != "" {
		web, err = websearch.New(websearch.Provider(cfg.WebSearch.Provider), key)
		if err != nil {
			logger.Fatal("failed to create web search client", zap.Error(err))
		}
		logger.Info("web search enabled", zap.String("provider", cfg.WebSearch.Provider))
	} else {
		logger.Info("web search disabled, no API key set", zap.String("env", cfg.WebSearch.APIKeyEnv))
	}

	factory := session.MemoryVectorFactory()
	switch cfg.Vector.Backend {
	case "", "memory":
	case "qdrant":
		factory = session.QdrantVectorFactory(vector.QdrantConfig{
			URL:     cfg.Vector.URL,
			APIKey:  os.Getenv(cfg.Vector.APIKeyEnv),
			Timeout: cfg.Vector.Timeout.Std(),
		})
		logger.Info("using qdrant vector backend", zap.String("url", cfg.Vector.URL))
	default:
		logger.Fatal("unknown vector backend", zap.String("backend", cfg.Vector.Backend))
	}
	store := session.NewStore(cfg.OpenAI.Dimensions, factory, session.WithLogger(logger))
	engine := search.NewEngine(store, openai, web, search.Config{
		Weights: search.Weights{
			Vector:  cfg.Search.VectorWeight,
			Keyword: cfg.Search.KeywordWeight,
			Web:     cfg.Search.WebWeight,
		},
		OverfetchFactor: cfg.Search.OverfetchFactor,
		WebResults:      cfg.WebSearch.MaxResults,
	}, logger)
	comp := composer.New(openai, composer.Options{
		MaxContextChars: cfg.Search.MaxContextChars,
		HistoryMessages: cfg.Search.HistoryMessages,
	}, logger)
	hist, err := history.New(cfg.Storage.DatabasePath)
	if err != nil {
		logger.Fatal("failed to open history database", zap.Error(err))
	}
	defer hist.Close()

	ch := chunker.NewChunker(chunker.Options{
		MaxChunkTokens:   cfg.Chunking.MaxChunkTokens,
		MinChunkChars:    cfg.Chunking.MinChunkChars,
		OverlapSentences: cfg.Chunking.OverlapSentences,
		MinPerPage:       cfg.Chunking.MinPerPage,
		MaxPerPage:       cfg.Chunking.MaxPerPage,
	})

	srv := server.NewServer(extract.NewExtractor(), ch, openai, store, engine, comp, hist, cfg, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(ctx)
}

func runUpload() {
	fs := flag.NewFlagSet("upload", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session ID (empty = server assigns one)")
	strategy := fs.String("strategy", "fast", "chunking strategy: fast or smart")
	_ = fs.Parse(os.Args[2:])

	if fs.NArg() < 1 {
		fmt.Println("Usage: kotae upload [flags] <file>")
		os.Exit(1)
	}
	path := fs.Arg(0)
	content, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Read failed: %v\n", err)
		os.Exit(1)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filepath.Base(path))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if _, err := fw.Write(content); err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	if *sessionID != "" {
		_ = mw.WriteField("session_id", *sessionID)
	}
	_ = mw.WriteField("chunk_strategy", *strategy)
	_ = mw.Close()

	resp, err := http.Post(*serverURL+"/api/v1/upload", mw.FormDataContentType(), &buf)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Upload failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		fmt.Fprintf(os.Stderr, "Upload failed: %s\n", readError(resp))
		os.Exit(1)
	}

	var stats models.UploadStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Fprintf(os.Stderr, "Bad response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Indexed %s: session %s, %d pages, %d chunks (%s)\n",
		stats.Filename, stats.SessionID, stats.Pages, stats.Chunks, stats.Strategy)
}

func runAsk() {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session ID (required)")
	topK := fs.Int("top-k", 0, "number of chunks to retrieve (0 = server default)")
	mode := fs.String("mode", "", "search mode: vector, keyword, or hybrid")
	web := fs.Bool("web", false, "augment with web search")
	_ = fs.Parse(os.Args[2:])

	query := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" || *sessionID == "" {
		fmt.Println("Usage: kotae ask --session <id> [flags] <question>")
		os.Exit(1)
	}

	body, _ := json.Marshal(models.ChatRequest{
		Query:           query,
		SessionID:       *sessionID,
		TopK:            *topK,
		SearchMode:      *mode,
		EnableWebSearch: *web,
	})
	resp, err := http.Post(*serverURL+"/api/v1/chat", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Request failed: %s\n", readError(resp))
		os.Exit(1)
	}

	var out models.ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		fmt.Fprintf(os.Stderr, "Bad response: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(out.Answer)
	for _, w := range out.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if len(out.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range out.Citations {
			switch {
			case c.Filename != "":
				fmt.Printf("  %s, pages %v\n", c.Filename, c.Pages)
			case c.URL != "":
				fmt.Printf("  %s\n", c.URL)
			}
		}
	}
}

func runClear() {
	fs := flag.NewFlagSet("clear", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session ID (required)")
	_ = fs.Parse(os.Args[2:])

	if *sessionID == "" {
		fmt.Println("Usage: kotae clear --session <id>")
		os.Exit(1)
	}
	req, err := http.NewRequest(http.MethodDelete, *serverURL+"/api/v1/sessions/"+*sessionID, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Clear failed: %s\n", readError(resp))
		os.Exit(1)
	}
	fmt.Printf("Session %s cleared\n", *sessionID)
}

func runStatus() {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	serverURL := fs.String("server", "http://localhost:8080", "server URL")
	sessionID := fs.String("session", "", "session ID (required)")
	_ = fs.Parse(os.Args[2:])

	if *sessionID == "" {
		fmt.Println("Usage: kotae status --session <id>")
		os.Exit(1)
	}
	resp, err := http.Get(*serverURL + "/api/v1/sessions/" + *sessionID + "/stats")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Request failed: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		fmt.Fprintf(os.Stderr, "Status failed: %s\n", readError(resp))
		os.Exit(1)
	}
	var stats models.UploadStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		fmt.Fprintf(os.Stderr, "Bad response: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Session:  %s\nDocument: %s (%s)\nPages:    %d\nImages:   %d\nChunks:   %d (%s)\n",
		stats.SessionID, stats.Filename, stats.DocumentID, stats.Pages, stats.Images, stats.Chunks, stats.Strategy)
}

// readError extracts the error message from a JSON error response body.
func readError(resp *http.Response) string {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var out struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &out) == nil && out.Error != "" {
		return fmt.Sprintf("%s (%s)", out.Error, resp.Status)
	}
	return resp.Status
}
