package domain

import "context"

// JobRepository defines persistence for render jobs.
type JobRepository interface {
	Create(ctx context.Context, job *RenderJob) error
	// Claim atomically moves the oldest queued job to running and returns
	// it. ErrNoJobAvailable when the queue is empty.
	Claim(ctx context.Context) (*RenderJob, error)
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, errMsg *string) error
	GetByID(ctx context.Context, jobID string) (*RenderJob, error)
}

// AssetRepository handles persistence for job artifacts.
type AssetRepository interface {
	Create(ctx context.Context, asset *Asset) error
	GetByID(ctx context.Context, assetID string) (*Asset, error)
	ListByJobID(ctx context.Context, jobID string) ([]Asset, error)
}
