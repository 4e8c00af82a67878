package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cornjacket/sortable-verifier/internal/batch"
	"github.com/cornjacket/sortable-verifier/internal/client/attributes"
	"github.com/cornjacket/sortable-verifier/internal/client/outcomes"
	"github.com/cornjacket/sortable-verifier/internal/config"
	"github.com/cornjacket/sortable-verifier/internal/services/verifier"
	"github.com/cornjacket/sortable-verifier/internal/shared/infra/files"
	"github.com/cornjacket/sortable-verifier/internal/shared/infra/postgres"
	"github.com/cornjacket/sortable-verifier/internal/shared/infra/redpanda"
)

func main() {
	var (
		updateAll bool
		addASINs  bool
		logLevel  string
	)
	flag.BoolVar(&updateAll, "update-all", false, "Check every listed ASIN, not only pending ones")
	flag.BoolVar(&updateAll, "u", false, "Shorthand for -update-all")
	flag.BoolVar(&addASINs, "add-asins", false, "Read ASINs from stdin and add them to the list")
	flag.BoolVar(&addASINs, "a", false, "Shorthand for -add-asins")
	flag.StringVar(&logLevel, "log-level", "", "Override SORTCHECK_LOG_LEVEL (debug|info|warn|error)")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	// Initialize logger
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	list := files.NewListStore(cfg.ListPath, cfg.Location, logger)
	results := files.NewResultStore(cfg.ResultsPath)

	if addASINs {
		svc := verifier.NewService(list, results, nil, verifier.Config{}, logger)
		if err := runAdd(ctx, svc, os.Stdin); err != nil {
			slog.Error("failed to add ASINs", "error", err)
			os.Exit(1)
		}
		return
	}

	attrs, err := attributes.New(attributes.Config{
		BaseURL:            cfg.AttributesURL,
		FC:                 cfg.FC,
		SessionCookie:      cfg.SessionCookie,
		Timeout:            cfg.HTTPTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	})
	if err != nil {
		slog.Error("failed to create attributes client", "error", err)
		os.Exit(1)
	}

	opts := []verifier.Option{}
	if cfg.ProgressPath != "" {
		opts = append(opts, verifier.WithProgress(files.NewProgressFile(cfg.ProgressPath)))
	}

	if cfg.DatabaseURL != "" {
		pg, err := postgres.NewClient(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			slog.Error("failed to connect to PostgreSQL", "error", err)
			os.Exit(1)
		}
		defer pg.Close()

		if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
			slog.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
		opts = append(opts, verifier.WithResultSink(postgres.NewResultsRepo(pg.Pool(), logger)))
	}

	if brokers := cfg.Brokers(); len(brokers) > 0 {
		producer, err := redpanda.NewProducer(brokers, logger)
		if err != nil {
			slog.Error("failed to create Redpanda producer", "error", err)
			os.Exit(1)
		}
		defer producer.Close()
		opts = append(opts, verifier.WithEventSubmitter(outcomes.New(producer, logger)))
	}

	svc := verifier.NewService(list, results, attrs.Fetch, verifier.Config{
		Batch: batch.Config{
			InitialWorkers: cfg.InitialWorkers,
			MaxWorkers:     cfg.MaxWorkers,
			BatchSize:      cfg.BatchSize,
			ErrorRateLow:   cfg.ErrorRateLow,
			ErrorRateHigh:  cfg.ErrorRateHigh,
		},
		Force:               updateAll,
		CheckpointEachBatch: cfg.CheckpointEachBatch,
	}, logger, opts...)

	slog.Info("starting sortable verification",
		"list", cfg.ListPath,
		"results", cfg.ResultsPath,
		"fc", cfg.FC,
		"force", updateAll,
	)

	summary, err := svc.Run(ctx)
	if summary != nil {
		logSummary(summary)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			slog.Warn("verification interrupted")
		} else {
			slog.Error("verification failed", "error", err)
		}
		os.Exit(1)
	}
}

func runAdd(ctx context.Context, svc *verifier.Service, r io.Reader) error {
	text, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read stdin: %w", err)
	}
	_, err = svc.AddASINs(ctx, string(text))
	return err
}

func logSummary(s *verifier.Summary) {
	if s.NothingPending {
		slog.Info("nothing to check, every listed ASIN has a verdict",
			"listed", s.ListSize,
			"results", s.TotalResults,
		)
		return
	}
	slog.Info("verification summary",
		"listed", s.ListSize,
		"pending", s.Pending,
		"processed", s.Stats.Processed,
		"sortable", s.Sortable,
		"unsortable", s.Unsortable,
		"unknown", s.Unknown,
		"errors", s.Stats.Failed,
		"batches", s.Stats.Batches,
		"final_workers", s.Stats.FinalWorkers,
		"results", s.TotalResults,
	)
}

// newLogger creates a structured logger based on configuration.
func newLogger(level, format string) *slog.Logger {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: logLevel}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}
