package handlers

import (
	"fmt"
	"net/http"
	"path"

	"github.com/go-chi/chi/v5"
)

// DownloadAsset streams a stored artifact back to its owner.
func (a *App) DownloadAsset(w http.ResponseWriter, r *http.Request) {
	userID := a.currentUserID(r)
	assetID := chi.URLParam(r, "asset_id")

	asset, err := a.Assets.GetByID(r.Context(), assetID)
	if err != nil || asset.UserID != userID {
		a.error(w, http.StatusNotFound, "not_found", "asset not found")
		return
	}
	data, err := a.Store.Read(r.Context(), asset.StorageKey)
	if err != nil {
		a.Logger.Error().Err(err).Str("key", asset.StorageKey).Msg("http: read asset failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load asset")
		return
	}

	filename := path.Base(asset.StorageKey)
	w.Header().Set("Content-Type", asset.MIME)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	_, _ = w.Write(data)
}
