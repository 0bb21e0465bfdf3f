// Package main provides the datachat server entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	_ "github.com/viant/afsc/gcp"
	_ "github.com/viant/afsc/gs"

	"github.com/carelinq/datachat/api"
	"github.com/carelinq/datachat/auth"
	"github.com/carelinq/datachat/chat"
	"github.com/carelinq/datachat/config"
	"github.com/carelinq/datachat/internal/log"
	"github.com/carelinq/datachat/llm"
	"github.com/carelinq/datachat/remotecfg"
	"github.com/carelinq/datachat/storage"
	"github.com/carelinq/datachat/taskq"
	"github.com/carelinq/datachat/tools"
)

var (
	logJSON  bool
	logLevel string
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "datachat",
		Short: "Chat backend with data-grounded tool calling",
		Long: `A chat service that answers questions over a SQL datamart.

User messages (text, audio, or images) are accepted over HTTP,
queued, and run through a tool-calling conversation loop backed
by a SQL sub-agent. Transcripts persist across turns.`,
	}

	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", true, "Emit logs as JSON")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.New()
			if err != nil {
				return err
			}

			logger := log.New(log.Config{Level: log.ParseLevel(logLevel), JSON: logJSON})

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return run(ctx, settings, logger)
		},
	}
}

func run(ctx context.Context, settings config.Settings, logger log.Logger) error {
	provider, err := llm.NewProvider(settings.LLM.Provider, llm.FactoryConfig{
		Model:       settings.LLM.Model,
		MaxTokens:   settings.LLM.MaxTokens,
		Temperature: float32(settings.LLM.Temperature),
		Project:     settings.LLM.Project,
		Location:    settings.LLM.Location,
	})
	if err != nil {
		return fmt.Errorf("failed to create chat provider: %w", err)
	}

	titleProvider, err := llm.NewProvider(settings.Title.Provider, llm.FactoryConfig{
		Model: settings.Title.Model,
	})
	if err != nil {
		return fmt.Errorf("failed to create title provider: %w", err)
	}

	store, cleanup, err := newTranscriptStore(settings.Storage)
	if err != nil {
		return fmt.Errorf("failed to open transcript store: %w", err)
	}
	defer cleanup()

	datamart, err := tools.OpenDatamart(settings.Storage.DatamartPath)
	if err != nil {
		return fmt.Errorf("failed to open datamart: %w", err)
	}
	defer datamart.Close()

	fetcher := remotecfg.NewHTTPFetcher(settings.RemoteConfig.URL, nil)
	configCache := remotecfg.NewCache(fetcher, settings.RemoteConfig.TTL, logger)
	prompts := remotecfg.NewPromptStore(settings.Storage.BucketURL)

	engine := chat.NewEngine(provider, store, logger, chat.Options{
		MaxTurns:                settings.Chat.MaxTurns,
		CallTimeout:             2 * time.Minute,
		TrimIntrospection:       settings.Chat.TrimIntrospection,
		CiteQueries:             settings.Chat.CiteQueries,
		PrefixSystemInstruction: settings.Chat.PrefixSystemInstruction,
	})
	engine.RegisterInvoker(tools.DataToolName, tools.NewSQLAgent(provider, datamart, logger))

	titles := chat.NewTitleGenerator(
		llm.WithRetry(titleProvider, settings.Title.MaxAttempts),
		configCache, prompts, logger,
	)

	tasksBase := settings.Tasks.BaseURL
	if tasksBase == "" {
		tasksBase = "http://" + settings.Server.Addr
	}
	dispatcher := taskq.NewDispatcher(tasksBase, settings.Tasks.MaxAttempts, logger)
	defer dispatcher.Wait()

	handler := api.NewChatHandler(
		engine,
		titles,
		auth.NewHMACVerifier(settings.Auth.Secret),
		dispatcher,
		storage.NewImageStore(settings.Storage.BucketURL),
		configCache,
		prompts,
		logger,
	)

	server := api.NewServer(handler, logger)
	return server.Run(ctx, settings.Server.Addr)
}

// newTranscriptStore builds the configured transcript backend.
func newTranscriptStore(cfg config.StorageConfig) (storage.TranscriptStore, func(), error) {
	switch cfg.Backend {
	case "memory":
		return storage.NewMemoryStore(), func() {}, nil
	case "sqlite":
		store, err := storage.OpenSqlite(cfg.SqlitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	case "blob":
		return storage.NewBlobStore(cfg.BucketURL), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}
