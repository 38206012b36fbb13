package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"sketchrender/internal/infra"
)

// GeminiOptions configures the Gemini render generator.
type GeminiOptions struct {
	APIKey string
	Model  string
	Logger *infra.Logger
}

// Gemini generates renders with Google's image-capable Gemini models. Unlike
// the DashScope flow it is synchronous: the sketch travels inline with the
// prompt and the render comes back in the same response.
type Gemini struct {
	client *genai.Client
	model  string
	logger *infra.Logger
}

// NewGemini constructs the generator and its underlying SDK client.
func NewGemini(ctx context.Context, opts GeminiOptions) (*Gemini, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, ErrMissingAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "gemini-2.0-flash-preview-image-generation"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Gemini{client: client, model: model, logger: logger}, nil
}

// Name identifies the vendor.
func (g *Gemini) Name() string { return "gemini" }

// Generate sends the sketch and prompt in one request and extracts the first
// inline image from the response.
func (g *Gemini) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("gemini: prompt is required")
	}
	if len(req.SketchData) == 0 {
		return nil, errors.New("gemini: sketch data is required")
	}
	mime := req.SketchMIME
	if mime == "" {
		mime = "image/png"
	}

	parts := []*genai.Part{
		genai.NewPartFromText(renderInstruction(prompt)),
		genai.NewPartFromBytes(req.SketchData, mime),
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini: generate content: %w", err)
	}

	for _, candidate := range result.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			data := part.InlineData.Data
			outMIME := part.InlineData.MIMEType
			if outMIME == "" {
				outMIME = "image/png"
			}
			width, height := 0, 0
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
				width, height = cfg.Width, cfg.Height
			}
			g.logger.Debug().Str("model", g.model).Int("bytes", len(data)).Msg("gemini: render generated")
			return &Result{Data: data, MIME: outMIME, Width: width, Height: height}, nil
		}
	}
	return nil, errors.New("gemini: response carries no image")
}

func renderInstruction(prompt string) string {
	return "Turn this furniture line drawing into a photorealistic render. " +
		"Keep the drawn geometry and proportions exactly as sketched. " + prompt
}

var _ Generator = (*Gemini)(nil)
