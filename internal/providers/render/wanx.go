package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"sketchrender/internal/infra"
)

// WanxOptions configures the DashScope sketch-to-image client.
type WanxOptions struct {
	APIKey         string
	BaseURL        string
	Model          string
	HTTPClient     *http.Client
	Logger         *infra.Logger
	Poll           PollConfig
	RequestTimeout time.Duration
}

// Wanx calls DashScope's asynchronous image2image API. A generation is
// submitted with the async header, polled via the tasks endpoint until it
// reaches a terminal state, and the resulting image is downloaded from the
// signed URL the vendor returns.
type Wanx struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	logger     *infra.Logger
	poll       PollConfig
}

type wanxSubmitRequest struct {
	Model      string         `json:"model"`
	Input      wanxInput      `json:"input"`
	Parameters wanxParameters `json:"parameters"`
}

type wanxInput struct {
	SketchImageURL string `json:"sketch_image_url"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt,omitempty"`
}

type wanxParameters struct {
	Size string `json:"size,omitempty"`
	N    int    `json:"n,omitempty"`
}

type wanxSubmitResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type wanxTaskResponse struct {
	Output struct {
		TaskID     string `json:"task_id"`
		TaskStatus string `json:"task_status"`
		Results    []struct {
			URL     string `json:"url"`
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"results"`
		Message string `json:"message"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// NewWanx constructs a client with sane defaults and injected dependencies.
func NewWanx(opts WanxOptions) *Wanx {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://dashscope.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "wanx-sketch-to-image-v1"
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Wanx{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		model:      model,
		httpClient: httpClient,
		logger:     logger,
		poll:       opts.Poll,
	}
}

// Name identifies the vendor.
func (w *Wanx) Name() string { return "wanx" }

// Generate submits the sketch, waits for the remote task, and downloads the
// produced render.
func (w *Wanx) Generate(ctx context.Context, req Request) (*Result, error) {
	if w.apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if strings.TrimSpace(req.SketchURL) == "" {
		return nil, errors.New("wanx: sketch url is required")
	}
	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		return nil, errors.New("wanx: prompt is required")
	}

	taskID, err := w.submit(ctx, req, prompt)
	if err != nil {
		return nil, err
	}
	w.logger.Debug().Str("model", w.model).Str("task_id", taskID).Msg("wanx: task submitted")

	var resultURL string
	err = awaitTask(ctx, w.poll, func(ctx context.Context) (TaskState, error) {
		state, u, err := w.taskState(ctx, taskID)
		if err != nil {
			return TaskFailed, err
		}
		if state == TaskReady {
			resultURL = u
		}
		return state, nil
	})
	if err != nil {
		if errors.Is(err, ErrTaskFailed) || errors.Is(err, ErrTaskTimedOut) {
			return nil, fmt.Errorf("wanx: task %s: %w", taskID, err)
		}
		return nil, err
	}

	data, mime, err := w.download(ctx, resultURL)
	if err != nil {
		return nil, err
	}
	width, height := 0, 0
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		width, height = cfg.Width, cfg.Height
	}
	w.logger.Debug().
		Str("task_id", taskID).
		Str("url", resultURL).
		Int("bytes", len(data)).
		Msg("wanx: render downloaded")
	return &Result{Data: data, MIME: mime, Width: width, Height: height, SourceURL: resultURL}, nil
}

func (w *Wanx) submit(ctx context.Context, req Request, prompt string) (string, error) {
	payload := wanxSubmitRequest{
		Model: w.model,
		Input: wanxInput{
			SketchImageURL: strings.TrimSpace(req.SketchURL),
			Prompt:         prompt,
			NegativePrompt: strings.TrimSpace(req.NegativePrompt),
		},
		Parameters: wanxParameters{
			Size: SizeForAspect(req.AspectRatio).Token(),
			N:    1,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("wanx: encode request: %w", err)
	}
	endpoint := w.baseURL + "/services/aigc/image2image/image-synthesis"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("wanx: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)
	httpReq.Header.Set("X-DashScope-Async", "enable")

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("wanx: http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("wanx: read response: %w", err)
	}
	if resp.StatusCode >= 300 {
		var decoded wanxSubmitResponse
		if err := json.Unmarshal(raw, &decoded); err == nil && decoded.Message != "" {
			return "", fmt.Errorf("wanx: %s (%s)", decoded.Message, decoded.Code)
		}
		return "", fmt.Errorf("wanx: status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded wanxSubmitResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("wanx: decode response: %w", err)
	}
	if decoded.Code != "" {
		return "", fmt.Errorf("wanx: %s (%s)", decoded.Message, decoded.Code)
	}
	taskID := strings.TrimSpace(decoded.Output.TaskID)
	if taskID == "" {
		return "", errors.New("wanx: empty task id")
	}
	return taskID, nil
}

func (w *Wanx) taskState(ctx context.Context, taskID string) (TaskState, string, error) {
	endpoint := w.baseURL + "/tasks/" + url.PathEscape(taskID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return TaskFailed, "", fmt.Errorf("wanx: build poll request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+w.apiKey)

	resp, err := w.httpClient.Do(httpReq)
	if err != nil {
		return TaskFailed, "", fmt.Errorf("wanx: poll task: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return TaskFailed, "", fmt.Errorf("wanx: read poll response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return TaskFailed, "", fmt.Errorf("wanx: poll status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var decoded wanxTaskResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return TaskFailed, "", fmt.Errorf("wanx: decode poll response: %w", err)
	}

	switch strings.ToUpper(decoded.Output.TaskStatus) {
	case "PENDING":
		return TaskSubmitted, "", nil
	case "RUNNING":
		return TaskPending, "", nil
	case "SUCCEEDED":
		for _, r := range decoded.Output.Results {
			if u := strings.TrimSpace(r.URL); u != "" {
				return TaskReady, u, nil
			}
		}
		return TaskFailed, "", errors.New("wanx: succeeded task carries no result url")
	case "FAILED", "CANCELED":
		msg := decoded.Output.Message
		if msg == "" && len(decoded.Output.Results) > 0 {
			msg = decoded.Output.Results[0].Message
		}
		if msg != "" {
			w.logger.Warn().Str("task_id", taskID).Str("reason", msg).Msg("wanx: task failed")
		}
		return TaskFailed, "", nil
	default:
		return TaskFailed, "", fmt.Errorf("wanx: unknown task status %q", decoded.Output.TaskStatus)
	}
}

func (w *Wanx) download(ctx context.Context, imageURL string) ([]byte, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(imageURL))
	if err != nil || parsed.Scheme == "" {
		return nil, "", fmt.Errorf("wanx: invalid image url: %s", imageURL)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, parsed.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("wanx: build download request: %w", err)
	}
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("wanx: download image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, "", fmt.Errorf("wanx: download status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("wanx: read image: %w", err)
	}
	mime := resp.Header.Get("Content-Type")
	if mime == "" {
		mime = "image/png"
	}
	return data, mime, nil
}

var _ Generator = (*Wanx)(nil)
