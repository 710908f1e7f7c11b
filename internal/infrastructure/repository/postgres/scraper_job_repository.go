package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/matchdaylabs/qualprob/internal/domain/scraperjob"
)

type ScraperJobRepository struct {
	db *sqlx.DB
}

func NewScraperJobRepository(db *sqlx.DB) *ScraperJobRepository {
	return &ScraperJobRepository{db: db}
}

const insertScraperJobQuery = `
INSERT INTO scraper_jobs (
	job_type, status, rows_processed, rows_inserted, rows_updated, rows_failed,
	confederation_counts, source_urls, output_files,
	error_message, error_details, execution_time_seconds,
	started_at, completed_at, input_hash, output_hash,
	execution_context, environment, run_id, notes
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
RETURNING id`

func (r *ScraperJobRepository) Log(ctx context.Context, job scraperjob.Job) (int64, error) {
	confederationCounts, err := marshalJSONB(job.ConfederationCounts)
	if err != nil {
		return 0, fmt.Errorf("encode confederation counts: %w", err)
	}
	errorDetails, err := marshalJSONB(job.ErrorDetails)
	if err != nil {
		return 0, fmt.Errorf("encode error details: %w", err)
	}

	var id int64
	err = r.db.QueryRowxContext(ctx, insertScraperJobQuery,
		job.JobType,
		job.Status,
		job.RowsProcessed,
		job.RowsInserted,
		job.RowsUpdated,
		job.RowsFailed,
		confederationCounts,
		pq.Array(job.SourceURLs),
		pq.Array(job.OutputFiles),
		job.ErrorMessage,
		errorDetails,
		job.ExecutionTimeSeconds,
		job.StartedAt,
		job.CompletedAt,
		job.InputHash,
		job.OutputHash,
		job.ExecutionContext,
		job.Environment,
		job.RunID,
		job.Notes,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert scraper job run_id=%s: %w", job.RunID, err)
	}
	return id, nil
}

func marshalJSONB(v any) ([]byte, error) {
	if v == nil {
		return []byte("{}"), nil
	}
	return sonic.ConfigStd.Marshal(v)
}
