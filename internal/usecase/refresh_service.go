package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	sonic "github.com/bytedance/sonic"
	"github.com/go-playground/validator/v10"

	"github.com/matchdaylabs/qualprob/internal/domain/probability"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
	"github.com/matchdaylabs/qualprob/internal/domain/standings"
	"github.com/matchdaylabs/qualprob/internal/platform/logging"
)

// ArtifactWriter persists the output rows to flat files and reports the
// paths it wrote.
type ArtifactWriter interface {
	WriteRows(ctx context.Context, rows []probability.TeamRow) ([]string, error)
}

type RefreshConfig struct {
	JobType          string
	Environment      string
	HostTeams        []string
	ExecutionContext scraperjob.ExecutionContext
}

// RefreshService runs the full pipeline: collect standings, estimate slot
// probabilities, write file artifacts, persist to the store, and leave an
// audit record. Files are the primary output; a store failure after the
// files landed downgrades the run to partial instead of failing it.
type RefreshService struct {
	collector     *CollectorService
	estimator     *Estimator
	artifacts     ArtifactWriter
	probRepo      probability.Repository
	standingsRepo standings.Repository
	jobRepo       scraperjob.Repository
	validate      *validator.Validate
	logger        *logging.Logger
	cfg           RefreshConfig

	now      func() time.Time
	newRunID func() string
}

func NewRefreshService(
	collector *CollectorService,
	estimator *Estimator,
	artifacts ArtifactWriter,
	probRepo probability.Repository,
	standingsRepo standings.Repository,
	jobRepo scraperjob.Repository,
	logger *logging.Logger,
	cfg RefreshConfig,
) *RefreshService {
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.JobType == "" {
		cfg.JobType = "standings_refresh"
	}
	if cfg.ExecutionContext == "" {
		cfg.ExecutionContext = scraperjob.ContextManual
	}
	return &RefreshService{
		collector:     collector,
		estimator:     estimator,
		artifacts:     artifacts,
		probRepo:      probRepo,
		standingsRepo: standingsRepo,
		jobRepo:       jobRepo,
		validate:      validator.New(),
		logger:        logger,
		cfg:           cfg,
		now:           time.Now,
		newRunID:      newRunID,
	}
}

type RefreshResult struct {
	Job  scraperjob.Job
	Rows []probability.TeamRow
}

func (s *RefreshService) Run(ctx context.Context) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RefreshService.Run")
	defer span.End()

	if s.collector == nil || s.estimator == nil || s.artifacts == nil {
		return RefreshResult{}, fmt.Errorf("%w: refresh service is not fully configured", ErrDependencyUnavailable)
	}

	startedAt := s.now().UTC()
	job := scraperjob.Job{
		JobType:          s.cfg.JobType,
		Status:           scraperjob.StatusRunning,
		StartedAt:        startedAt,
		ExecutionContext: s.cfg.ExecutionContext,
		Environment:      s.cfg.Environment,
		RunID:            s.newRunID(),
	}
	s.logger.InfoContext(ctx, "refresh run started",
		"run_id", job.RunID,
		"job_type", job.JobType,
		"execution_context", job.ExecutionContext,
	)

	collected, err := s.collector.Collect(ctx)
	if err != nil {
		job = s.finishJob(ctx, job, scraperjob.StatusFailed, err, nil)
		return RefreshResult{Job: job}, err
	}

	entries := Flatten(collected)
	job.SourceURLs = collected.SourceURLs
	job.ErrorDetails = collectErrorDetails(collected)

	inputHash, err := canonicalHash(entries)
	if err != nil {
		job = s.finishJob(ctx, job, scraperjob.StatusFailed, err, nil)
		return RefreshResult{Job: job}, err
	}
	job.InputHash = inputHash

	// A run with nothing collected must not touch any output: a stale
	// artifact beats an empty one.
	if len(entries) == 0 {
		err := fmt.Errorf("%w: every confederation failed or returned empty tables", ErrNoStandings)
		job = s.finishJob(ctx, job, scraperjob.StatusFailed, err, nil)
		return RefreshResult{Job: job}, err
	}

	rows := make([]probability.TeamRow, 0, len(entries)+len(s.cfg.HostTeams))
	confederationCounts := make(map[string]int, 8)
	failedRows := 0
	for _, item := range entries {
		row := s.estimator.BuildRow(item)
		if err := s.validate.Struct(row); err != nil {
			failedRows++
			s.logger.WarnContext(ctx, "dropping invalid output row",
				"team", row.Team,
				"confederation", row.Confederation,
				"error", err,
			)
			continue
		}
		rows = append(rows, row)
		confederationCounts[string(row.Confederation)]++
	}
	for _, row := range HostRows(s.cfg.HostTeams) {
		if err := s.validate.Struct(row); err != nil {
			failedRows++
			continue
		}
		rows = append(rows, row)
	}

	job.RowsProcessed = len(rows)
	job.RowsFailed = failedRows
	job.ConfederationCounts = confederationCounts

	outputHash, err := canonicalHash(rows)
	if err != nil {
		job = s.finishJob(ctx, job, scraperjob.StatusFailed, err, nil)
		return RefreshResult{Job: job}, err
	}
	job.OutputHash = outputHash

	outputFiles, err := s.artifacts.WriteRows(ctx, rows)
	if err != nil {
		err = fmt.Errorf("write artifacts: %w", err)
		job = s.finishJob(ctx, job, scraperjob.StatusFailed, err, outputFiles)
		return RefreshResult{Job: job, Rows: rows}, err
	}
	job.OutputFiles = outputFiles

	status := scraperjob.StatusSuccess
	if storeErr := s.persistToStore(ctx, collected, rows, &job); storeErr != nil {
		status = scraperjob.StatusPartial
		s.logger.ErrorContext(ctx, "store write failed, artifacts remain valid",
			"run_id", job.RunID,
			"error", storeErr,
		)
		job = s.finishJob(ctx, job, status, storeErr, outputFiles)
		return RefreshResult{Job: job, Rows: rows}, nil
	}

	job = s.finishJob(ctx, job, status, nil, outputFiles)
	s.logger.InfoContext(ctx, "refresh run finished",
		"run_id", job.RunID,
		"status", job.Status,
		"rows", job.RowsProcessed,
		"inserted", job.RowsInserted,
		"updated", job.RowsUpdated,
		"failed", job.RowsFailed,
	)
	return RefreshResult{Job: job, Rows: rows}, nil
}

func (s *RefreshService) persistToStore(
	ctx context.Context,
	collected CollectResult,
	rows []probability.TeamRow,
	job *scraperjob.Job,
) error {
	if s.standingsRepo != nil {
		allGroups := make([]standings.Group, 0, 16)
		for _, groups := range collected.Groups {
			allGroups = append(allGroups, groups...)
		}
		if err := s.standingsRepo.UpsertGroups(ctx, allGroups); err != nil {
			return fmt.Errorf("upsert standings snapshot: %w", err)
		}
	}

	if s.probRepo != nil {
		inserted, updated, err := s.probRepo.Upsert(ctx, rows)
		if err != nil {
			return fmt.Errorf("upsert probability rows: %w", err)
		}
		job.RowsInserted = inserted
		job.RowsUpdated = updated
	}

	return nil
}

func (s *RefreshService) finishJob(
	ctx context.Context,
	job scraperjob.Job,
	status scraperjob.Status,
	runErr error,
	outputFiles []string,
) scraperjob.Job {
	completedAt := s.now().UTC()
	job.Status = status
	job.CompletedAt = &completedAt
	job.ExecutionTimeSeconds = completedAt.Sub(job.StartedAt).Seconds()
	if len(outputFiles) > 0 {
		job.OutputFiles = outputFiles
	}
	if runErr != nil {
		job.ErrorMessage = runErr.Error()
	}

	if s.jobRepo == nil {
		return job
	}
	// Audit logging is best effort: a failed audit write never changes the
	// run's outcome.
	if _, err := s.jobRepo.Log(ctx, job); err != nil {
		s.logger.ErrorContext(ctx, "failed to record job audit entry",
			"run_id", job.RunID,
			"status", job.Status,
			"error", err,
		)
	}
	return job
}

func collectErrorDetails(collected CollectResult) map[string]any {
	if len(collected.Errors) == 0 {
		return nil
	}
	out := make(map[string]any, len(collected.Errors))
	for confederation, err := range collected.Errors {
		out[string(confederation)] = err.Error()
	}
	return out
}

// canonicalHash fingerprints a value via sorted-key JSON so the hash is
// stable across map iteration order.
func canonicalHash(v any) (string, error) {
	canonical, err := sonic.ConfigStd.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("canonicalize for hash: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

func newRunID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("run-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}
