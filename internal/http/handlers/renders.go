package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sketchrender/internal/domain"
	"sketchrender/internal/middleware"
	"sketchrender/pkg/zip"
)

type createRenderRequest struct {
	SketchID       string `json:"sketch_id"`
	Prompt         string `json:"prompt"`
	NegativePrompt string `json:"negative_prompt"`
	Provider       string `json:"provider"`
	AspectRatio    string `json:"aspect_ratio"`
	MaskSource     string `json:"mask_source"`
}

type renderJobResponse struct {
	JobID        string    `json:"job_id"`
	Status       string    `json:"status"`
	Provider     string    `json:"provider"`
	AspectRatio  string    `json:"aspect_ratio"`
	MaskSource   string    `json:"mask_source"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type renderAssetResponse struct {
	AssetID  string `json:"asset_id"`
	Kind     string `json:"kind"`
	MIME     string `json:"mime"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int64  `json:"bytes"`
	Checksum string `json:"checksum"`
	URL      string `json:"url"`
}

// CreateRender validates the request and queues a render job for the worker.
func (a *App) CreateRender(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)

	var req createRenderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	if strings.TrimSpace(req.SketchID) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "sketch_id is required")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "prompt is required")
		return
	}

	sketch, err := a.Assets.GetByID(r.Context(), req.SketchID)
	if err != nil || sketch.UserID != userID || sketch.Kind != domain.AssetKindSketch {
		a.error(w, http.StatusNotFound, "not_found", "sketch not found")
		return
	}

	provider := req.Provider
	if provider == "" {
		provider = a.DefaultProvider
	}
	if !a.knownProvider(provider) {
		a.error(w, http.StatusBadRequest, "bad_request", "unsupported provider")
		return
	}

	maskSource := domain.MaskSource(req.MaskSource)
	if maskSource == "" {
		maskSource = a.DefaultMaskSource
	}
	if !domain.ValidMaskSource(maskSource) {
		a.error(w, http.StatusBadRequest, "bad_request", "mask_source must be cleaned or original")
		return
	}

	job := &domain.RenderJob{
		ID:             uuid.NewString(),
		UserID:         userID,
		SketchAssetID:  sketch.ID,
		Status:         domain.JobStatusQueued,
		Prompt:         req.Prompt,
		NegativePrompt: req.NegativePrompt,
		Provider:       provider,
		AspectRatio:    req.AspectRatio,
		MaskSource:     maskSource,
		Locale:         middleware.LocaleFromContext(r.Context()),
	}
	if err := a.Jobs.Create(r.Context(), job); err != nil {
		a.Logger.Error().Err(err).Msg("http: enqueue render job failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to queue job")
		return
	}

	a.json(w, http.StatusAccepted, renderJobResponse{
		JobID:       job.ID,
		Status:      string(job.Status),
		Provider:    job.Provider,
		AspectRatio: job.AspectRatio,
		MaskSource:  string(job.MaskSource),
	})
}

// RenderStatus reports the lifecycle state of one job.
func (a *App) RenderStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJobForUser(w, r)
	if !ok {
		return
	}
	a.json(w, http.StatusOK, renderJobResponse{
		JobID:        job.ID,
		Status:       string(job.Status),
		Provider:     job.Provider,
		AspectRatio:  job.AspectRatio,
		MaskSource:   string(job.MaskSource),
		ErrorMessage: job.ErrorMessage,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	})
}

// RenderAssets lists the artifacts a finished job produced.
func (a *App) RenderAssets(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJobForUser(w, r)
	if !ok {
		return
	}
	assets, err := a.Assets.ListByJobID(r.Context(), job.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("http: list assets failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}
	out := make([]renderAssetResponse, 0, len(assets))
	for _, asset := range assets {
		out = append(out, renderAssetResponse{
			AssetID:  asset.ID,
			Kind:     string(asset.Kind),
			MIME:     asset.MIME,
			Width:    asset.Width,
			Height:   asset.Height,
			Bytes:    asset.Bytes,
			Checksum: asset.Checksum,
			URL:      a.Store.URL(asset.StorageKey),
		})
	}
	a.json(w, http.StatusOK, map[string]any{"job_id": job.ID, "assets": out})
}

// RenderArchive bundles every artifact of a finished job into one zip download.
func (a *App) RenderArchive(w http.ResponseWriter, r *http.Request) {
	job, ok := a.loadJobForUser(w, r)
	if !ok {
		return
	}
	if job.Status != domain.JobStatusSucceeded {
		a.error(w, http.StatusConflict, "conflict", "job has not finished")
		return
	}
	assets, err := a.Assets.ListByJobID(r.Context(), job.ID)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("http: list assets failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to list assets")
		return
	}

	bundle := make([]zip.Entry, 0, len(assets))
	for _, asset := range assets {
		data, err := a.Store.Read(r.Context(), asset.StorageKey)
		if err != nil {
			a.Logger.Error().Err(err).Str("key", asset.StorageKey).Msg("http: read asset failed")
			a.error(w, http.StatusInternalServerError, "internal", "failed to load asset")
			return
		}
		bundle = append(bundle, zip.Entry{
			Name: path.Base(asset.StorageKey),
			Data: data,
		})
	}

	archive, err := zip.Archive(bundle)
	if err != nil {
		a.Logger.Error().Err(err).Str("job_id", job.ID).Msg("http: archive assets failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to build archive")
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", job.ID+".zip"))
	w.Header().Set("Content-Length", fmt.Sprint(len(archive)))
	_, _ = w.Write(archive)
}

func (a *App) loadJobForUser(w http.ResponseWriter, r *http.Request) (*domain.RenderJob, bool) {
	userID := a.currentUserID(r)
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return nil, false
	}
	job, err := a.Jobs.GetByID(r.Context(), jobID)
	if err != nil || job.UserID != userID {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return nil, false
	}
	return job, true
}
