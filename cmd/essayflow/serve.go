package main

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/essayflow/internal/config"
	"github.com/jonathan/essayflow/internal/jobs"
	"github.com/jonathan/essayflow/internal/llm"
	"github.com/jonathan/essayflow/internal/pipeline"
	"github.com/jonathan/essayflow/internal/queue"
	"github.com/jonathan/essayflow/internal/rendering"
	"github.com/jonathan/essayflow/internal/server"
	"github.com/jonathan/essayflow/internal/store"
)

// queueCapacity bounds how many pending stage messages can be buffered before
// Enqueue rejects new submissions.
const queueCapacity = 256

var (
	serveConfigPath string
	servePort       int
	serveWorkers    int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for submitting assignments, polling job status, refining drafts and downloading finished essays.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Pipeline worker pool size")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadConfig(serveConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("port") {
		cfg.Port = servePort
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = serveWorkers
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if cfg.DownloadTokenSecret == "" {
		return fmt.Errorf("DOWNLOAD_TOKEN_SECRET environment variable is required")
	}

	st, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	client, err := llm.NewGeminiClient(ctx, nil, cfg.APIKey)
	if err != nil {
		return fmt.Errorf("failed to create LLM client: %w", err)
	}
	defer func() { _ = client.Close() }()

	records := jobs.NewRecords(st)
	artifacts := jobs.NewArtifacts(st)
	caller := llm.NewCaller(client, llm.DefaultMaxAttempts, func(ctx context.Context, jobID uuid.UUID, message string) {
		_ = records.SetMessage(ctx, jobID, message)
	})

	q := queue.NewMemory(queueCapacity)
	orch := pipeline.NewOrchestrator(records, artifacts, caller, q, rendering.NewDocumentRenderer())

	workerCtx, stopWorkers := context.WithCancel(ctx)
	defer stopWorkers()
	q.Start(workerCtx, cfg.Workers, orch.Handle)
	defer q.Stop()

	srv := server.New(server.Config{
		Port:                cfg.Port,
		DownloadTokenSecret: cfg.DownloadTokenSecret,
	}, orch, artifacts)

	return srv.Start()
}

// loadConfig assembles the effective configuration: file values, then
// environment overrides, then defaults for anything still unset.
func loadConfig(path string) (config.Config, error) {
	var cfg config.Config
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return config.Config{}, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = *loaded
	}
	cfg.ApplyEnv()
	return cfg.MergeWithDefaults(config.Defaults()), nil
}

// openStore connects to PostgreSQL when DATABASE_URL is set, otherwise falls
// back to the in-memory store. The memory store loses all jobs on restart, so
// it only suits local development.
func openStore(ctx context.Context, cfg config.Config) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, using in-memory store (jobs will not survive restarts)")
		return store.NewMemory(), func() {}, nil
	}

	pg, err := store.ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return pg, pg.Close, nil
}
