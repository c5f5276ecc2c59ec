package handlers

import (
	"net/http"

	"studio/internal/middleware"
	"studio/internal/providers/did"
)

type voiceResponse struct {
	ID       string `json:"id"`
	Language string `json:"language"`
	Name     string `json:"name"`
}

// VoicesList returns the voice catalog plus the default voice for the
// caller's locale, so the page can preselect it.
func (a *App) VoicesList(w http.ResponseWriter, r *http.Request) {
	voices := did.Voices()
	items := make([]voiceResponse, 0, len(voices))
	for _, v := range voices {
		items = append(items, voiceResponse{ID: v.ID, Language: v.Language, Name: v.Name})
	}
	a.json(w, http.StatusOK, map[string]any{
		"items":   items,
		"default": did.VoiceForLocale(middleware.LocaleFromContext(r.Context())).ID,
	})
}
