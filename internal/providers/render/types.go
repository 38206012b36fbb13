package render

import (
	"context"
	"errors"
	"fmt"
)

// ErrMissingAPIKey indicates that a generator was configured without credentials.
var ErrMissingAPIKey = errors.New("render: api key is required")

// Size is an output resolution in pixels.
type Size struct {
	Width  int
	Height int
}

// Token renders the size the way DashScope expects it, e.g. "1024*1024".
func (s Size) Token() string {
	return fmt.Sprintf("%d*%d", s.Width, s.Height)
}

// SizeForAspect maps an aspect ratio label to a concrete resolution.
// Unknown labels fall back to square.
func SizeForAspect(ratio string) Size {
	switch ratio {
	case "16:9":
		return Size{Width: 1280, Height: 720}
	case "9:16":
		return Size{Width: 720, Height: 1280}
	case "4:3":
		return Size{Width: 1152, Height: 864}
	case "3:4":
		return Size{Width: 864, Height: 1152}
	default:
		return Size{Width: 1024, Height: 1024}
	}
}

// Request carries everything a generator needs to turn a sketch into a
// photorealistic render. SketchData holds the cleaned line drawing; SketchURL
// is a publicly resolvable copy for providers that only accept references.
type Request struct {
	Prompt         string
	NegativePrompt string
	AspectRatio    string
	SketchData     []byte
	SketchMIME     string
	SketchURL      string
	RequestID      string
	Locale         string
}

// Result is the normalized generator output.
type Result struct {
	Data      []byte
	MIME      string
	Width     int
	Height    int
	SourceURL string
}

// Generator produces a render from a sketch. Implementations wrap one
// upstream vendor each and normalize its request/response shapes.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
	// Name identifies the vendor, e.g. "wanx".
	Name() string
}
