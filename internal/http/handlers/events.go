package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
)

// TalkEvents streams job snapshots as server-sent events: one frame
// immediately, then one per tick until the job is terminal, the snapshot is
// pruned, or the client goes away. The connection stays open for the life
// of the job, so the HTTP server must run without a write timeout.
func (a *App) TalkEvents(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	if _, ok := a.Jobs.Get(jobID); !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	rc := http.NewResponseController(w)
	ticker := time.NewTicker(a.eventsInterval())
	defer ticker.Stop()

	emit := func() (done bool) {
		job, ok := a.Jobs.Get(jobID)
		if !ok {
			fmt.Fprint(w, "event: gone\ndata: job expired\n\n")
			_ = rc.Flush()
			return true
		}
		data, _ := json.Marshal(talkResponseFor(job))
		fmt.Fprintf(w, "data: %s\n\n", data)
		if err := rc.Flush(); err != nil {
			return true
		}
		return job.Terminal()
	}

	if emit() {
		return
	}
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if emit() {
				return
			}
		}
	}
}

func (a *App) eventsInterval() time.Duration {
	if a.eventsEvery > 0 {
		return a.eventsEvery
	}
	return time.Second
}
