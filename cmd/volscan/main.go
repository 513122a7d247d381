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
	"time"

	"volscan/internal/config"
	apperrors "volscan/internal/errors"
	"volscan/internal/exporter"
	"volscan/internal/files"
	"volscan/internal/infrastructure"
	"volscan/internal/recorder"
	"volscan/internal/report"
	transport "volscan/internal/transport/http"
	"volscan/internal/volatility"
)

const runtimeSampleInterval = time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// run executes one scan and returns the process exit status.
// The report goes to stdout; diagnostics and logs go to stderr.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	start := time.Now()

	flags, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return apperrors.ExitOK
		}
		return fail(stderr, apperrors.NewValidationError(err.Error()))
	}
	if flags.version {
		fmt.Fprintf(stdout, "%s %s\n", config.AppName, config.AppVersion)
		return apperrors.ExitOK
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return fail(stderr, err)
	}
	flags.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return fail(stderr, err)
	}
	if cfg.Scan.Root == "" {
		return fail(stderr, apperrors.NewValidationError("a directory is required (-path DIR)"))
	}
	drainMode, err := volatility.ParseDrainMode(cfg.Scan.DrainMode)
	if err != nil {
		return fail(stderr, apperrors.NewValidationError(err.Error()))
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fail(stderr, apperrors.NewConfigError("failed to initialize logger", err))
	}
	defer infrastructure.CloseLogFile()

	ctx = infrastructure.EnsureTraceID(ctx)
	runID := infrastructure.GetTraceID(ctx)

	// a missing root is reported before anything is opened or bound
	groups, err := discover(cfg, logger)
	if err != nil {
		return fail(stderr, err)
	}

	providers, err := infrastructure.InitializeOTel(cfg.Telemetry, logger)
	if err != nil {
		logger.WarnContext(ctx, "Failed to initialize telemetry, continuing without it",
			slog.String("error", err.Error()))
		providers = infrastructure.NoopProviders()
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Telemetry shutdown failed", slog.String("error", err.Error()))
		}
	}()

	metrics, err := infrastructure.CreateRunMetrics(providers.Meter)
	if err != nil {
		logger.WarnContext(ctx, "Failed to create run metrics", slog.String("error", err.Error()))
		metrics = infrastructure.NoopRunMetrics()
	}

	if providers.PrometheusHTTP != nil {
		collector, err := infrastructure.NewRuntimeCollector(providers.Meter, runtimeSampleInterval)
		if err != nil {
			logger.WarnContext(ctx, "Failed to create runtime metrics", slog.String("error", err.Error()))
		} else {
			collector.Start(ctx)
			defer collector.Stop()
		}
	}

	rec := openRecorder(ctx, cfg.Output.SQLitePath, logger)
	defer rec.Close()

	logger.InfoContext(ctx, "Starting volatility scan",
		slog.String("root", cfg.Scan.Root),
		slog.Int("workers", cfg.Scan.Workers),
		slog.String("drain_mode", string(drainMode)),
		slog.Int("price_column", cfg.Scan.PriceColumn))

	record := &recorder.RunRecord{
		ID:        runID,
		StartedAt: start,
		Root:      cfg.Scan.Root,
		DrainMode: string(drainMode),
		Status:    recorder.StatusOK,
	}
	ranking := exporter.NewRankingExporter(logger)

	reporter := func(ctx context.Context, agg *volatility.Aggregate, stats volatility.RunStats) error {
		rep := report.Build(agg)
		record.Ranked = rep.Ranked
		record.Zero = rep.Zero

		if err := report.Write(stdout, rep); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		if cfg.Output.ReportFile == "" {
			return nil
		}
		return ranking.Export(cfg.Output.ReportFile, rep, exporter.Metadata{
			RunID:       runID,
			Root:        cfg.Scan.Root,
			Workers:     stats.Workers,
			Files:       stats.Files,
			GeneratedAt: time.Now(),
			Duration:    stats.Duration,
		})
	}

	coord := volatility.NewCoordinator(
		volatility.WithDrainMode(drainMode),
		volatility.WithReceiveTimeout(cfg.Scan.ReceiveTimeout),
		volatility.WithPriceColumn(cfg.Scan.PriceColumn),
		volatility.WithReporter(reporter),
		volatility.WithLogger(logger),
		volatility.WithTelemetry(providers.Tracer, metrics),
	)

	if cfg.Telemetry.MetricsAddr != "" {
		router := transport.NewRouter(logger,
			transport.NewHealthHandler(func() string { return coord.Phase().String() }, runID, logger),
			transport.NewMetricsHandler(providers.PrometheusHTTP),
		)
		srv := transport.NewServer(cfg.Telemetry.MetricsAddr, router, logger)
		if _, err := srv.Start(ctx); err != nil {
			logger.WarnContext(ctx, "Failed to start metrics server", slog.String("error", err.Error()))
		} else {
			defer srv.Shutdown(context.Background())
		}
	}

	_, stats, err := coord.Run(ctx, groups)
	record.Workers = stats.Workers
	record.Files = stats.Files
	record.Polls = stats.Polls
	record.Duration = time.Since(start)
	if err != nil {
		record.Status = recorder.StatusFailed
		record.Error = err.Error()
	}

	if recErr := rec.RecordRun(context.WithoutCancel(ctx), record); recErr != nil {
		logger.WarnContext(ctx, "Failed to record run", slog.String("error", recErr.Error()))
	}

	if err != nil {
		return fail(stderr, err)
	}

	fmt.Fprintf(stderr, "%s finished in %s\n", config.AppName, record.Duration.Round(time.Millisecond))
	return apperrors.ExitOK
}

// discover lists the files under the root and partitions them into worker groups
func discover(cfg *config.Config, logger *slog.Logger) ([]files.FileGroup, error) {
	paths, err := files.NewDiscovery("").WithLogger(logger).ListFiles(cfg.Scan.Root)
	if err != nil {
		return nil, err
	}
	return files.Partition(paths, cfg.Scan.Workers)
}

// openRecorder falls back to a no-op recorder when no path is set or the database cannot be opened
func openRecorder(ctx context.Context, path string, logger *slog.Logger) recorder.Recorder {
	if path == "" {
		return recorder.NewNoopRecorder()
	}
	rec, err := recorder.NewSQLiteRecorder(path, logger)
	if err != nil {
		logger.WarnContext(ctx, "SQLite recorder unavailable, run will not be recorded",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return recorder.NewNoopRecorder()
	}
	return rec
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintf(stderr, "%s: %v\n", config.AppName, err)
	return apperrors.ExitCode(err)
}
