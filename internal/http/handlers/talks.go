package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"studio/internal/jobs"
	"studio/internal/middleware"
	"studio/internal/providers/did"
)

type talkCreateRequest struct {
	Script  string `json:"script"`
	VoiceID string `json:"voice_id"`
}

type talkResponse struct {
	JobID     string    `json:"job_id"`
	TalkID    string    `json:"talk_id"`
	Status    string    `json:"status"`
	Script    string    `json:"script"`
	VoiceID   string    `json:"voice_id"`
	VideoURL  string    `json:"video_url,omitempty"`
	Error     string    `json:"error,omitempty"`
	EventsURL string    `json:"events_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func talkResponseFor(job jobs.Job) talkResponse {
	return talkResponse{
		JobID:     job.ID,
		TalkID:    job.TalkID,
		Status:    string(job.Status),
		Script:    job.Script,
		VoiceID:   job.VoiceID,
		VideoURL:  job.VideoURL,
		Error:     job.Error,
		EventsURL: fmt.Sprintf("/v1/talks/%s/events", job.ID),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

// TalksCreate submits a script for synthesis. The response carries the job
// id to poll and the event stream URL; generation continues in the
// background after the 202.
func (a *App) TalksCreate(w http.ResponseWriter, r *http.Request) {
	var req talkCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	voiceID := strings.TrimSpace(req.VoiceID)
	if voiceID == "" {
		voiceID = did.VoiceForLocale(middleware.LocaleFromContext(r.Context())).ID
	}

	job, err := a.Jobs.Start(r.Context(), req.Script, voiceID)
	if err != nil {
		a.submitError(w, err)
		return
	}
	a.json(w, http.StatusAccepted, talkResponseFor(job))
}

// TalkStatus reports the current snapshot of one job. Terminal jobs keep
// answering until the janitor prunes them.
func (a *App) TalkStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "job_id")
	if jobID == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "job_id required")
		return
	}
	job, ok := a.Jobs.Get(jobID)
	if !ok {
		a.error(w, http.StatusNotFound, "not_found", "job not found")
		return
	}
	a.json(w, http.StatusOK, talkResponseFor(job))
}

func (a *App) submitError(w http.ResponseWriter, err error) {
	var submitErr *did.SubmitError
	switch {
	case errors.Is(err, jobs.ErrBusy):
		a.error(w, http.StatusConflict, "job_in_flight", "another video is still being generated")
	case errors.Is(err, did.ErrEmptyScript):
		a.error(w, http.StatusUnprocessableEntity, "validation_error", "script must not be empty")
	case errors.Is(err, did.ErrMissingAPIKey):
		a.error(w, http.StatusServiceUnavailable, "not_configured", "video provider credentials are not configured")
	case errors.As(err, &submitErr):
		a.Logger.Error().Err(err).Int("provider_status", submitErr.StatusCode).Msg("talk submission rejected")
		a.error(w, http.StatusBadGateway, "submit_failed", "video provider rejected the request")
	default:
		a.Logger.Error().Err(err).Msg("talk submission failed")
		a.error(w, http.StatusBadGateway, "submit_failed", "could not reach the video provider")
	}
}
