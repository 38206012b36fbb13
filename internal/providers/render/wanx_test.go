package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"
)

func TestWanxGenerateFullFlow(t *testing.T) {
	transport := newScriptedTransport()
	transport.onPost("/api/v1/services/aigc/image2image/image-synthesis", jsonStub(map[string]any{
		"output":     map[string]any{"task_id": "task-42", "task_status": "PENDING"},
		"request_id": "req-1",
	}))
	transport.onGet("/api/v1/tasks/task-42",
		jsonStub(map[string]any{
			"output": map[string]any{"task_id": "task-42", "task_status": "RUNNING"},
		}),
		jsonStub(map[string]any{
			"output": map[string]any{
				"task_id":     "task-42",
				"task_status": "SUCCEEDED",
				"results":     []any{map[string]any{"url": "https://cdn.example.com/out.png"}},
			},
		}),
	)
	transport.onGet("https://cdn.example.com/out.png", binaryStub([]byte{0x89, 'P', 'N', 'G'}))

	client := NewWanx(WanxOptions{
		APIKey:     "test-key",
		BaseURL:    "https://dashscope.aliyuncs.com/api/v1",
		HTTPClient: &http.Client{Transport: transport},
		Poll:       PollConfig{Interval: time.Millisecond, MaxWait: time.Second},
	})

	result, err := client.Generate(context.Background(), Request{
		Prompt:      "oak dining chair",
		AspectRatio: "1:1",
		SketchURL:   "https://assets.example.com/sketch.png",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !bytes.Equal(result.Data, []byte{0x89, 'P', 'N', 'G'}) {
		t.Fatalf("unexpected image data: %v", result.Data)
	}
	if result.SourceURL != "https://cdn.example.com/out.png" {
		t.Fatalf("source url = %q", result.SourceURL)
	}

	var payload map[string]any
	if err := json.Unmarshal(transport.lastBody, &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if model := payload["model"]; model != "wanx-sketch-to-image-v1" {
		t.Fatalf("model = %v", model)
	}
	input := payload["input"].(map[string]any)
	if u := input["sketch_image_url"]; u != "https://assets.example.com/sketch.png" {
		t.Fatalf("sketch_image_url = %v", u)
	}
	params := payload["parameters"].(map[string]any)
	if size := params["size"]; size != "1024*1024" {
		t.Fatalf("size = %v, want 1024*1024", size)
	}
	if async := transport.lastHeader.Get("X-DashScope-Async"); async != "enable" {
		t.Fatalf("X-DashScope-Async = %q, want enable", async)
	}
	if auth := transport.lastHeader.Get("Authorization"); auth != "Bearer test-key" {
		t.Fatalf("Authorization = %q", auth)
	}
}

func TestWanxGenerateFailedTask(t *testing.T) {
	transport := newScriptedTransport()
	transport.onPost("/api/v1/services/aigc/image2image/image-synthesis", jsonStub(map[string]any{
		"output": map[string]any{"task_id": "task-9", "task_status": "PENDING"},
	}))
	transport.onGet("/api/v1/tasks/task-9", jsonStub(map[string]any{
		"output": map[string]any{
			"task_id":     "task-9",
			"task_status": "FAILED",
			"message":     "content policy violation",
		},
	}))

	client := NewWanx(WanxOptions{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: transport},
		Poll:       PollConfig{Interval: time.Millisecond, MaxWait: time.Second},
	})

	_, err := client.Generate(context.Background(), Request{
		Prompt:    "chair",
		SketchURL: "https://assets.example.com/sketch.png",
	})
	if !errors.Is(err, ErrTaskFailed) {
		t.Fatalf("err = %v, want ErrTaskFailed", err)
	}
}

func TestWanxGenerateTimesOut(t *testing.T) {
	transport := newScriptedTransport()
	transport.onPost("/api/v1/services/aigc/image2image/image-synthesis", jsonStub(map[string]any{
		"output": map[string]any{"task_id": "task-7", "task_status": "PENDING"},
	}))
	transport.onGet("/api/v1/tasks/task-7", jsonStub(map[string]any{
		"output": map[string]any{"task_id": "task-7", "task_status": "RUNNING"},
	}))

	client := NewWanx(WanxOptions{
		APIKey:     "test-key",
		HTTPClient: &http.Client{Transport: transport},
		Poll:       PollConfig{Interval: time.Millisecond, MaxWait: 10 * time.Millisecond},
	})

	_, err := client.Generate(context.Background(), Request{
		Prompt:    "chair",
		SketchURL: "https://assets.example.com/sketch.png",
	})
	if !errors.Is(err, ErrTaskTimedOut) {
		t.Fatalf("err = %v, want ErrTaskTimedOut", err)
	}
}

func TestWanxGenerateRequiresCredentials(t *testing.T) {
	client := NewWanx(WanxOptions{})
	_, err := client.Generate(context.Background(), Request{
		Prompt:    "chair",
		SketchURL: "https://assets.example.com/sketch.png",
	})
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("err = %v, want ErrMissingAPIKey", err)
	}
}

func TestWanxGenerateRequiresSketchURL(t *testing.T) {
	client := NewWanx(WanxOptions{APIKey: "test-key"})
	if _, err := client.Generate(context.Background(), Request{Prompt: "chair"}); err == nil {
		t.Fatal("expected error for missing sketch url")
	}
}

// scriptedTransport replays canned responses per endpoint. GET endpoints may
// carry a sequence of responses so poll progressions can be simulated; the
// last response repeats once the script runs out.
type scriptedTransport struct {
	posts      map[string]responseStub
	gets       map[string][]responseStub
	getCounts  map[string]int
	lastBody   []byte
	lastHeader http.Header
}

type responseStub struct {
	status int
	header http.Header
	body   []byte
}

func newScriptedTransport() *scriptedTransport {
	return &scriptedTransport{
		posts:     map[string]responseStub{},
		gets:      map[string][]responseStub{},
		getCounts: map[string]int{},
	}
}

func (s *scriptedTransport) onPost(path string, stub responseStub) {
	s.posts[path] = stub
}

func (s *scriptedTransport) onGet(key string, stubs ...responseStub) {
	s.gets[key] = stubs
}

func (s *scriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method == http.MethodPost {
		body, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		req.Body.Close()
		s.lastBody = body
		s.lastHeader = req.Header.Clone()
		if stub, ok := s.posts[req.URL.Path]; ok {
			return stub.toResponse(), nil
		}
	}
	if req.Method == http.MethodGet {
		key := req.URL.Path
		stubs, ok := s.gets[key]
		if !ok {
			key = req.URL.String()
			stubs, ok = s.gets[key]
		}
		if ok && len(stubs) > 0 {
			idx := s.getCounts[key]
			s.getCounts[key]++
			if idx >= len(stubs) {
				idx = len(stubs) - 1
			}
			return stubs[idx].toResponse(), nil
		}
	}
	return &http.Response{
		StatusCode: http.StatusNotFound,
		Body:       io.NopCloser(strings.NewReader("not found")),
	}, nil
}

func jsonStub(payload any) responseStub {
	body, _ := json.Marshal(payload)
	return responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"application/json"}},
		body:   body,
	}
}

func binaryStub(data []byte) responseStub {
	return responseStub{
		status: http.StatusOK,
		header: http.Header{"Content-Type": []string{"image/png"}},
		body:   data,
	}
}

func (s responseStub) toResponse() *http.Response {
	header := http.Header{}
	for k, values := range s.header {
		cloned := make([]string, len(values))
		copy(cloned, values)
		header[k] = cloned
	}
	return &http.Response{
		StatusCode: s.status,
		Header:     header,
		Body:       io.NopCloser(bytes.NewReader(s.body)),
	}
}
