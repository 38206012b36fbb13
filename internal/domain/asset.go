package domain

import "time"

// AssetKind enumerates the artifacts a job produces or consumes.
type AssetKind string

const (
	// AssetKindSketch is the raw upload.
	AssetKindSketch AssetKind = "sketch"
	// AssetKindCleaned is the binarized line drawing derived from the sketch.
	AssetKindCleaned AssetKind = "cleaned"
	// AssetKindRender is the raw provider output before overlay.
	AssetKindRender AssetKind = "render"
	// AssetKindComposite is the final multiply-blended deliverable.
	AssetKindComposite AssetKind = "composite"
	// AssetKindPreview is the small lossy copy served in galleries.
	AssetKindPreview AssetKind = "preview"
)

// Asset is a stored artifact. StorageKey locates the bytes in the blob
// store; URL is resolved from it at read time, not persisted.
type Asset struct {
	ID         string
	JobID      string
	UserID     string
	Kind       AssetKind
	StorageKey string
	MIME       string
	Width      int
	Height     int
	Bytes      int64
	Checksum   string
	CreatedAt  time.Time
}
