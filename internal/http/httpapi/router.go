package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"sketchrender/internal/http/handlers"
	"sketchrender/internal/middleware"
)

// NewRouter assembles the public API surface.
func NewRouter(app *handlers.App, allowedOrigins []string) http.Handler {
	writeLimit := app.WriteRateLimit
	if writeLimit <= 0 {
		writeLimit = 30
	}
	writeWindow := app.WriteRateWindow
	if writeWindow <= 0 {
		writeWindow = time.Minute
	}
	limitWrites := middleware.RateLimit(writeLimit, writeWindow)

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(app.Logger),
		middleware.CORS(allowedOrigins),
		middleware.I18N("en"),
	)

	r.Get("/v1/healthz", app.Health)

	r.Route("/v1/sketches", func(r chi.Router) {
		r.With(limitWrites).Post("/", app.UploadSketch)
		r.Get("/{sketch_id}/cleaned", app.SketchPreview)
	})

	r.Route("/v1/renders", func(r chi.Router) {
		r.With(limitWrites).Post("/", app.CreateRender)
		r.Get("/{job_id}", app.RenderStatus)
		r.Get("/{job_id}/assets", app.RenderAssets)
		r.Get("/{job_id}/archive", app.RenderArchive)
	})

	r.Get("/v1/assets/{asset_id}/download", app.DownloadAsset)

	return r
}
