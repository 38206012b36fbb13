package handlers

import (
	"net/http"
)

// Health reports liveness and which render vendors are currently routable,
// so operators can tell a booted api from one missing vendor credentials.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"providers": a.Providers,
	})
}
