package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"sketchrender/internal/domain"
	"sketchrender/internal/imaging"
	"sketchrender/internal/infra"
	"sketchrender/internal/storage"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Logger infra.Logger
	Jobs   domain.JobRepository
	Assets domain.AssetRepository
	Store  storage.Store
	// Providers lists the render vendors jobs may name.
	Providers         []string
	DefaultProvider   string
	Clean             imaging.CleanOptions
	DefaultMaskSource domain.MaskSource
	MaxUploadBytes    int64
	// WriteRateLimit caps upload and render submissions per client IP per
	// WriteRateWindow. Zero values fall back to the router's defaults.
	WriteRateLimit  int
	WriteRateWindow time.Duration
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: code, Message: message})
}

// currentUserID identifies the caller. Authentication is delegated to the
// fronting gateway, which injects X-User-ID; bare deployments fall back to a
// shared anonymous identity.
func (a *App) currentUserID(r *http.Request) string {
	if id := strings.TrimSpace(r.Header.Get("X-User-ID")); id != "" {
		return id
	}
	return "anonymous"
}

func (a *App) knownProvider(name string) bool {
	for _, p := range a.Providers {
		if p == name {
			return true
		}
	}
	return false
}
