package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/matchdaylabs/qualprob/external/espn"
	"github.com/matchdaylabs/qualprob/internal/config"
	"github.com/matchdaylabs/qualprob/internal/domain/prior"
	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/infrastructure/artifact"
	filerepo "github.com/matchdaylabs/qualprob/internal/infrastructure/repository/file"
	memrepo "github.com/matchdaylabs/qualprob/internal/infrastructure/repository/memory"
	pgrepo "github.com/matchdaylabs/qualprob/internal/infrastructure/repository/postgres"
	"github.com/matchdaylabs/qualprob/internal/infrastructure/priorfile"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
	"github.com/matchdaylabs/qualprob/internal/platform/resilience"
	"github.com/matchdaylabs/qualprob/internal/usecase"
)

// Pipeline bundles the wired services for one process lifetime.
type Pipeline struct {
	Refresh *usecase.RefreshService
	History *usecase.HistoryService

	db *sqlx.DB
}

// NewPipeline wires configuration into runnable services: one standings
// source per confederation, the estimator with its historical priors, the
// artifact writer, and the configured store backend.
func NewPipeline(ctx context.Context, cfg config.Config, logger *logging.Logger, execContext scraperjob.ExecutionContext) (*Pipeline, error) {
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := &http.Client{Timeout: cfg.ESPNTimeout}
	breakerCfg := resilience.BreakerSettings{
		Enabled:    cfg.ESPNCircuitEnabled,
		TripAfter:  cfg.ESPNCircuitFailureCount,
		Cooldown:   cfg.ESPNCircuitOpenTimeout,
		ProbeQuota: cfg.ESPNCircuitHalfOpenMaxReq,
	}

	sources := make([]usecase.StandingsSource, 0, len(standings.All()))
	for _, confederation := range standings.All() {
		client, err := espn.NewClient(espn.ClientConfig{
			HTTPClient:     httpClient,
			BaseURL:        cfg.ESPNBaseURL,
			Confederation:  confederation,
			Season:         cfg.ESPNSeason,
			SeasonType:     cfg.ESPNSeasonType,
			Timeout:        cfg.ESPNTimeout,
			MaxRetries:     cfg.ESPNMaxRetries,
			Logger:         logger,
			CircuitBreaker: breakerCfg,
		})
		if err != nil {
			return nil, fmt.Errorf("build standings source %s: %w", confederation, err)
		}
		sources = append(sources, client)
	}

	collector := usecase.NewCollectorService(sources, cfg.CollectorMaxWorkers, logger)

	priorRows, err := priorfile.Load(cfg.HistoricalLookupPath)
	if err != nil {
		return nil, fmt.Errorf("load historical lookup: %w", err)
	}
	index := prior.NewIndex(priorRows)
	rankEntries, bucketEntries := index.Size()
	logger.Info("historical lookup loaded",
		"path", cfg.HistoricalLookupPath,
		"rank_entries", rankEntries,
		"bucket_entries", bucketEntries,
	)

	estimatorCfg := usecase.DefaultEstimatorConfig()
	estimatorCfg.HeuristicWeight = cfg.HeuristicWeight
	estimatorCfg.HistoryWeight = cfg.HistoryWeight
	estimator := usecase.NewEstimator(estimatorCfg, index)

	artifacts := artifact.NewWriter(cfg.OutputCSVPath, cfg.OutputJSONPath)

	pipeline := &Pipeline{}

	var (
		probRepo      probability.Repository
		standingsRepo standings.Repository
		jobRepo       scraperjob.Repository
	)
	switch cfg.StoreBackend {
	case config.StorePostgres:
		db, err := connectDB(ctx, cfg.DBURL)
		if err != nil {
			return nil, err
		}
		logger.Info("store backend ready", "backend", cfg.StoreBackend, "database", dbNameFromURL(cfg.DBURL))
		pipeline.db = db
		probRepo = pgrepo.NewTeamProbabilityRepository(db)
		standingsRepo = pgrepo.NewStandingsRepository(db)
		jobRepo = pgrepo.NewScraperJobRepository(db)
	case config.StoreFile:
		logger.Info("store backend ready", "backend", cfg.StoreBackend, "path", cfg.FileProbabilitiesPath)
		probRepo = filerepo.NewTeamProbabilityRepository(cfg.FileProbabilitiesPath)
		standingsRepo = filerepo.NewStandingsRepository(cfg.FileStandingsPath)
		jobRepo = filerepo.NewScraperJobRepository(cfg.FileJobLogPath)
	case config.StoreMemory:
		logger.Info("store backend ready", "backend", cfg.StoreBackend)
		probRepo = memrepo.NewTeamProbabilityRepository()
		standingsRepo = memrepo.NewStandingsRepository()
		jobRepo = memrepo.NewScraperJobRepository()
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}

	pipeline.Refresh = usecase.NewRefreshService(
		collector,
		estimator,
		artifacts,
		probRepo,
		standingsRepo,
		jobRepo,
		logger,
		usecase.RefreshConfig{
			JobType:          "standings_refresh",
			Environment:      cfg.AppEnv,
			HostTeams:        cfg.HostTeams,
			ExecutionContext: execContext,
		},
	)

	factory := func(confederation standings.Confederation, season int) (usecase.StandingsSource, error) {
		return espn.NewClient(espn.ClientConfig{
			HTTPClient:     httpClient,
			BaseURL:        cfg.ESPNBaseURL,
			Confederation:  confederation,
			Season:         season,
			SeasonType:     cfg.ESPNSeasonType,
			Timeout:        cfg.ESPNTimeout,
			MaxRetries:     cfg.ESPNMaxRetries,
			Logger:         logger,
			CircuitBreaker: breakerCfg,
		})
	}
	pipeline.History = usecase.NewHistoryService(factory, cfg.CollectorMaxWorkers, logger)

	return pipeline, nil
}

func (p *Pipeline) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

func connectDB(ctx context.Context, dbURL string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", dbURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}
