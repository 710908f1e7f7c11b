package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/matchdaylabs/qualprob/internal/app"
	"github.com/matchdaylabs/qualprob/internal/config"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
	"github.com/matchdaylabs/qualprob/internal/infrastructure/priorfile"
	"github.com/matchdaylabs/qualprob/internal/observability"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
	"github.com/matchdaylabs/qualprob/internal/usecase"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		return 1
	}

	logger := logging.NewJSON(cfg.LogLevel)
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownUptrace, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		return 1
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := shutdownUptrace(shutdownCtx); err != nil {
			logger.Warn("uptrace shutdown failed", "error", err)
		}
	}()

	stopPyroscope, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		return 1
	}
	defer func() {
		if err := stopPyroscope(); err != nil {
			logger.Warn("pyroscope stop failed", "error", err)
		}
	}()

	mode := "standings"
	args := os.Args[1:]
	if len(args) > 0 {
		mode = strings.ToLower(strings.TrimSpace(args[0]))
		args = args[1:]
	}

	pipeline, err := app.NewPipeline(ctx, cfg, logger, executionContext())
	if err != nil {
		logger.Error("build pipeline", "error", err)
		return 1
	}
	defer func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("pipeline close failed", "error", err)
		}
	}()

	switch mode {
	case "standings":
		return runStandings(ctx, pipeline, logger)
	case "history":
		return runHistory(ctx, cfg, pipeline, logger, args, false)
	case "lookup":
		return runHistory(ctx, cfg, pipeline, logger, args, true)
	default:
		printUsage()
		return 2
	}
}

func runStandings(ctx context.Context, pipeline *app.Pipeline, logger *logging.Logger) int {
	result, err := pipeline.Refresh.Run(ctx)
	if err != nil {
		logger.Error("refresh run failed", "error", err, "status", result.Job.Status)
		return 1
	}

	// Partial runs wrote the artifacts; the exit code stays clean so cron
	// does not retry a run whose output already landed.
	logger.Info("refresh run finished",
		"run_id", result.Job.RunID,
		"status", result.Job.Status,
		"rows", len(result.Rows),
		"inserted", result.Job.RowsInserted,
		"updated", result.Job.RowsUpdated,
	)
	return 0
}

func runHistory(ctx context.Context, cfg config.Config, pipeline *app.Pipeline, logger *logging.Logger, args []string, saveLookup bool) int {
	seasons, err := parseSeasons(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		printUsage()
		return 2
	}

	rows, err := pipeline.History.FetchSeasons(ctx, seasons)
	if err != nil {
		logger.Error("historical fetch failed", "error", err, "seasons", seasons)
		return 1
	}
	logger.Info("historical standings fetched", "seasons", seasons, "rows", len(rows))

	if !saveLookup {
		return 0
	}

	lookup := usecase.ComputeLookup(rows)
	if err := priorfile.Save(cfg.HistoricalLookupPath, lookup); err != nil {
		logger.Error("save historical lookup", "error", err, "path", cfg.HistoricalLookupPath)
		return 1
	}
	logger.Info("historical lookup written",
		"path", cfg.HistoricalLookupPath,
		"rows", len(lookup),
	)
	return 0
}

func parseSeasons(args []string) ([]int, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("at least one season year is required")
	}
	seasons := make([]int, 0, len(args))
	for _, arg := range args {
		season, err := strconv.Atoi(strings.TrimSpace(arg))
		if err != nil {
			return nil, fmt.Errorf("invalid season %q: %w", arg, err)
		}
		seasons = append(seasons, season)
	}
	return seasons, nil
}

func executionContext() scraperjob.ExecutionContext {
	value := strings.ToLower(strings.TrimSpace(os.Getenv("EXECUTION_CONTEXT")))
	if value == string(scraperjob.ContextScheduled) {
		return scraperjob.ContextScheduled
	}
	return scraperjob.ContextManual
}

func printUsage() {
	name := os.Args[0]
	fmt.Fprintf(os.Stderr, "usage: %s [standings|history|lookup] [seasons...]\n", name)
	fmt.Fprintln(os.Stderr, "examples:")
	fmt.Fprintf(os.Stderr, "  %s standings\n", name)
	fmt.Fprintf(os.Stderr, "  %s history 2018 2022\n", name)
	fmt.Fprintf(os.Stderr, "  %s lookup 2014 2018 2022\n", name)
}
