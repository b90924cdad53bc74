package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/torosent/tide/internal/banner"
	"github.com/torosent/tide/internal/config"
	"github.com/torosent/tide/internal/httpclient"
	"github.com/torosent/tide/internal/logging"
	"github.com/torosent/tide/internal/metrics"
	"github.com/torosent/tide/internal/output"
	"github.com/torosent/tide/internal/runner"
	"github.com/torosent/tide/internal/threshold"
	"github.com/torosent/tide/internal/tracing"
)

const tracingShutdownTimeout = 5 * time.Second

// ErrThresholdsFailed is returned after the report when a threshold did not pass.
var ErrThresholdsFailed = errors.New("one or more thresholds failed")

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	loader := config.NewLoader()
	cfg, err := loader.Load(args)
	if err != nil {
		if errors.Is(err, config.ErrHelpRequested) {
			return nil
		}
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	thresholds, err := threshold.ParseMultiple(cfg.Thresholds)
	if err != nil {
		return err
	}

	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Writer: stderr,
	})
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	for _, w := range cfg.Warnings() {
		logger.Warn(w)
	}
	if cfg.FallbackReason != "" {
		logger.Warn("using command-line arguments", zap.String("reason", cfg.FallbackReason))
	} else if cfg.ConfigFile != "" {
		logger.Debug("loaded config file", zap.String("path", cfg.ConfigFile))
	}

	runID := ulid.Make().String()

	tp, err := tracing.Init(ctx, cfg.Tracing, runID)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), tracingShutdownTimeout)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	if cfg.Output == config.OutputTable {
		fmt.Fprint(stdout, banner.Banner())
	}

	client := httpclient.NewClient(cfg.Timeout)
	getter, err := httpclient.NewGetter(client, cfg.TargetURL,
		httpclient.WithTracePropagation(tp.ShouldPropagate()))
	if err != nil {
		return err
	}

	acc := metrics.NewAccumulator()
	executor := runner.NewRetryExecutor(runner.ExecutorConfig{
		Requester: getter,
		Recorder:  acc,
		Policy:    runner.DefaultRetryPolicy(cfg.Retries),
		Logger:    logger,
		Tracer:    tp.Tracer(),
		Target:    cfg.TargetURL,
		RunID:     runID,
	})

	r := runner.New(runner.Options{
		Concurrency: cfg.Concurrency,
		Duration:    cfg.Duration,
		Executor:    executor,
		Live:        acc,
		Logger:      logger,
		RunID:       runID,
	})

	logger.Info("starting run",
		zap.String("run_id", runID),
		zap.String("url", cfg.TargetURL),
		zap.Int("concurrency", cfg.Concurrency),
		zap.Duration("duration", cfg.Duration),
		zap.Int("retries", cfg.Retries),
	)
	result := r.Run(ctx)

	snap := acc.Snapshot()
	logger.Info("run finished",
		zap.String("run_id", runID),
		zap.Int64("issued", result.Issued),
		zap.Int64("ticks", result.Ticks),
		zap.Int64("completed", snap.Completed()),
		zap.Duration("elapsed", result.Duration),
		zap.Bool("interrupted", result.Interrupted),
	)

	report := output.Build(snap, output.RunInfo{
		RunID:       runID,
		TargetURL:   cfg.TargetURL,
		Concurrency: cfg.Concurrency,
		Issued:      result.Issued,
		Ticks:       result.Ticks,
		Elapsed:     result.Duration,
		Interrupted: result.Interrupted,
	})
	report.Thresholds = threshold.NewEvaluator(thresholds).Evaluate(report.Stats)

	if err := printReport(stdout, cfg.Output, report); err != nil {
		return err
	}

	if !threshold.AllPassed(report.Thresholds) {
		return ErrThresholdsFailed
	}
	return nil
}

func printReport(w io.Writer, format string, report output.Report) error {
	switch format {
	case config.OutputJSON:
		return output.PrintJSONReport(w, report)
	case config.OutputYAML:
		return output.PrintYAMLReport(w, report)
	default:
		output.PrintReport(w, report)
		return nil
	}
}
