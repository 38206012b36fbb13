package handlers

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"sketchrender/internal/domain"
	"sketchrender/internal/imaging"
)

type sketchResponse struct {
	SketchID string `json:"sketch_id"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Bytes    int64  `json:"bytes"`
	MIME     string `json:"mime"`
}

// UploadSketch accepts a multipart upload under the "file" field, verifies
// that it decodes as an image, and stores it for later render jobs.
func (a *App) UploadSketch(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)

	r.Body = http.MaxBytesReader(w, r.Body, a.MaxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "failed to read upload")
		return
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		a.error(w, http.StatusBadRequest, "invalid_sketch", "invalid sketch file")
		return
	}
	bounds := img.Bounds()

	mime := header.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}

	sketchID := uuid.NewString()
	key, err := a.Store.Write(r.Context(), fmt.Sprintf("uploads/%s%s", sketchID, extForMIME(mime)), data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("http: store sketch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to store sketch")
		return
	}

	sum := sha256.Sum256(data)
	asset := &domain.Asset{
		ID:         sketchID,
		UserID:     userID,
		Kind:       domain.AssetKindSketch,
		StorageKey: key,
		MIME:       mime,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Bytes:      int64(len(data)),
		Checksum:   hex.EncodeToString(sum[:]),
	}
	if err := a.Assets.Create(r.Context(), asset); err != nil {
		a.Logger.Error().Err(err).Msg("http: persist sketch asset failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to persist sketch")
		return
	}

	a.json(w, http.StatusCreated, sketchResponse{
		SketchID: asset.ID,
		Width:    asset.Width,
		Height:   asset.Height,
		Bytes:    asset.Bytes,
		MIME:     asset.MIME,
	})
}

// SketchPreview binarizes the stored sketch on the fly and returns the
// result as PNG, so clients can show what the render mask will look like
// before queueing a job.
func (a *App) SketchPreview(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	sketchID := chi.URLParam(r, "sketch_id")

	asset, err := a.Assets.GetByID(r.Context(), sketchID)
	if err != nil || asset.UserID != userID || asset.Kind != domain.AssetKindSketch {
		a.error(w, http.StatusNotFound, "not_found", "sketch not found")
		return
	}
	data, err := a.Store.Read(r.Context(), asset.StorageKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("key", asset.StorageKey).Msg("http: read sketch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load sketch")
		return
	}
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		a.error(w, http.StatusUnprocessableEntity, "invalid_sketch", "stored sketch is not decodable")
		return
	}
	cleaned, err := imaging.Clean(img, a.Clean)
	if err != nil {
		if errors.Is(err, imaging.ErrEmptyImage) {
			a.error(w, http.StatusUnprocessableEntity, "invalid_sketch", "sketch has no pixels")
			return
		}
		a.Logger.Error().Err(err).Msg("http: clean sketch failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to clean sketch")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	if err := imaging.EncodePNG(w, cleaned); err != nil {
		a.Logger.Error().Err(err).Msg("http: encode preview failed")
	}
}

func extForMIME(mime string) string {
	switch mime {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
