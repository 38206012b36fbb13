package repo

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"sketchrender/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a new job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new render job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.RenderJob) error {
	query := `
INSERT INTO render_jobs (id, user_id, sketch_asset_id, status, prompt, negative_prompt, provider, aspect_ratio, mask_source, locale, error_message)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);
`
	_, err := r.pool.Exec(ctx, query,
		job.ID,
		job.UserID,
		job.SketchAssetID,
		job.Status,
		job.Prompt,
		job.NegativePrompt,
		job.Provider,
		job.AspectRatio,
		job.MaskSource,
		job.Locale,
		job.ErrorMessage,
	)
	return err
}

// Claim moves the oldest queued job to running and returns it. SKIP LOCKED
// lets concurrent workers claim without blocking each other.
func (r *JobRepositoryPG) Claim(ctx context.Context) (*domain.RenderJob, error) {
	query := `
UPDATE render_jobs
SET status = 'running', updated_at = NOW()
WHERE id = (
    SELECT id FROM render_jobs
    WHERE status = 'queued'
    ORDER BY created_at ASC
    FOR UPDATE SKIP LOCKED
    LIMIT 1
)
RETURNING id, user_id, sketch_asset_id, status, prompt, negative_prompt, provider, aspect_ratio, mask_source, locale, error_message, created_at, updated_at;
`
	row := r.pool.QueryRow(ctx, query)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoJobAvailable
		}
		return nil, err
	}
	return job, nil
}

// UpdateStatus updates job status and optionally the error message.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, errMsg *string) error {
	query := `
UPDATE render_jobs
SET status = $2,
    updated_at = NOW(),
    error_message = COALESCE($3, error_message)
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, status, errMsg)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.RenderJob, error) {
	query := `
SELECT id, user_id, sketch_asset_id, status, prompt, negative_prompt, provider, aspect_ratio, mask_source, locale, error_message, created_at, updated_at
FROM render_jobs
WHERE id = $1;
`
	job, err := scanJob(r.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

func scanJob(row pgx.Row) (*domain.RenderJob, error) {
	var job domain.RenderJob
	if err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.SketchAssetID,
		&job.Status,
		&job.Prompt,
		&job.NegativePrompt,
		&job.Provider,
		&job.AspectRatio,
		&job.MaskSource,
		&job.Locale,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}
