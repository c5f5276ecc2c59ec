package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"studio/internal/infra"
	"studio/internal/jobs"
)

// App carries the shared dependencies of the HTTP handlers.
type App struct {
	Config *infra.Config
	Logger infra.Logger
	Jobs   *jobs.Manager

	// eventsEvery overrides the event stream cadence in tests; zero means
	// the production default.
	eventsEvery time.Duration
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

func (a *App) error(w http.ResponseWriter, code int, slug, message string) {
	a.json(w, code, errorResponse{Error: slug, Message: message})
}
