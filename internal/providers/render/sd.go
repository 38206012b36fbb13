package render

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sketchrender/internal/infra"
)

// SDOptions configures the Stable Diffusion WebUI generator.
type SDOptions struct {
	BaseURL        string
	Steps          int
	CFGScale       float64
	Denoise        float64
	HTTPClient     *http.Client
	Logger         *infra.Logger
	RequestTimeout time.Duration
}

// SD talks to a self-hosted AUTOMATIC1111 WebUI instance over its img2img
// endpoint. No API key: deployments are expected to sit on a private network.
type SD struct {
	baseURL    string
	steps      int
	cfgScale   float64
	denoise    float64
	httpClient *http.Client
	logger     *infra.Logger
}

type sdImg2ImgRequest struct {
	InitImages        []string `json:"init_images"`
	Prompt            string   `json:"prompt"`
	NegativePrompt    string   `json:"negative_prompt,omitempty"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Steps             int      `json:"steps"`
	CFGScale          float64  `json:"cfg_scale"`
	DenoisingStrength float64  `json:"denoising_strength"`
}

type sdImg2ImgResponse struct {
	Images []string `json:"images"`
	Detail string   `json:"detail"`
}

// NewSD constructs the generator with WebUI-friendly defaults.
func NewSD(opts SDOptions) *SD {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 2 * time.Minute
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "http://localhost:7860"
	}
	steps := opts.Steps
	if steps <= 0 {
		steps = 28
	}
	cfgScale := opts.CFGScale
	if cfgScale <= 0 {
		cfgScale = 7
	}
	denoise := opts.Denoise
	if denoise <= 0 {
		denoise = 0.75
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &SD{
		baseURL:    baseURL,
		steps:      steps,
		cfgScale:   cfgScale,
		denoise:    denoise,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Name identifies the vendor.
func (s *SD) Name() string { return "sd" }

// Generate runs one img2img pass with the sketch as the init image.
func (s *SD) Generate(ctx context.Context, req Request) (*Result, error) {
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("sd: prompt is required")
	}
	if len(req.SketchData) == 0 {
		return nil, errors.New("sd: sketch data is required")
	}
	size := SizeForAspect(req.AspectRatio)

	payload := sdImg2ImgRequest{
		InitImages:        []string{base64.StdEncoding.EncodeToString(req.SketchData)},
		Prompt:            prompt,
		NegativePrompt:    strings.TrimSpace(req.NegativePrompt),
		Width:             size.Width,
		Height:            size.Height,
		Steps:             s.steps,
		CFGScale:          s.cfgScale,
		DenoisingStrength: s.denoise,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("sd: encode request: %w", err)
	}

	endpoint := s.baseURL + "/sdapi/v1/img2img"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("sd: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sd: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sd: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var decoded sdImg2ImgResponse
		if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Detail != "" {
			return nil, fmt.Errorf("sd: %s", decoded.Detail)
		}
		return nil, fmt.Errorf("sd: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded sdImg2ImgResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("sd: decode response: %w", err)
	}
	if len(decoded.Images) == 0 {
		return nil, errors.New("sd: response carries no image")
	}
	data, err := base64.StdEncoding.DecodeString(decoded.Images[0])
	if err != nil {
		return nil, fmt.Errorf("sd: decode image: %w", err)
	}
	width, height := size.Width, size.Height
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	s.logger.Debug().Int("bytes", len(data)).Msg("sd: render generated")
	return &Result{Data: data, MIME: "image/png", Width: width, Height: height}, nil
}

var _ Generator = (*SD)(nil)
