package storage

import "context"

// Store abstracts the blob backend holding sketches and renders. Keys are
// slash-separated relative paths; Write returns the canonical key actually
// used, which is what gets persisted on asset records.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	// URL resolves a stored key into an address an external service (or a
	// browser) can fetch.
	URL(key string) string
}
