package domain

import "time"

// JobStatus enumerates job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// MaskSource selects which sketch variant is multiplied over the render.
type MaskSource string

const (
	// MaskSourceCleaned overlays the binarized sketch. Default.
	MaskSourceCleaned MaskSource = "cleaned"
	// MaskSourceOriginal overlays the untouched upload, preserving shading
	// at the cost of carrying paper texture into the composite.
	MaskSourceOriginal MaskSource = "original"
)

// ValidMaskSource reports whether s is a recognized mask source.
func ValidMaskSource(s MaskSource) bool {
	return s == MaskSourceCleaned || s == MaskSourceOriginal
}

// RenderJob tracks a sketch-to-render request through the queue.
type RenderJob struct {
	ID             string
	UserID         string
	SketchAssetID  string
	Status         JobStatus
	Prompt         string
	NegativePrompt string
	Provider       string
	AspectRatio    string
	MaskSource     MaskSource
	Locale         string
	ErrorMessage   string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Terminal reports whether the job has finished, successfully or not.
func (j *RenderJob) Terminal() bool {
	return j.Status == JobStatusSucceeded || j.Status == JobStatusFailed
}
