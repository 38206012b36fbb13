package domain

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidSketch   = errors.New("invalid sketch")
	ErrInvalidRequest  = errors.New("invalid request")
	ErrProviderFailure = errors.New("provider failure")
	ErrNoJobAvailable  = errors.New("no job available")
)
