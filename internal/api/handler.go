// Package api provides HTTP handlers for the flowcap API.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/acrolabs/flowcap/internal/media"
	"github.com/acrolabs/flowcap/internal/narration"
	"github.com/acrolabs/flowcap/internal/recording"
	"github.com/acrolabs/flowcap/internal/store"
)

// Handler provides common handler dependencies.
type Handler struct {
	repo  store.Repository
	media media.Store
	tts   narration.Synthesizer
	mgr   *recording.Manager
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(repo store.Repository, mediaStore media.Store, tts narration.Synthesizer, mgr *recording.Manager) *Handler {
	return &Handler{
		repo:  repo,
		media: mediaStore,
		tts:   tts,
		mgr:   mgr,
	}
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response with the conventional
// error/message pair.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{
		"error":   http.StatusText(status),
		"message": message,
	})
}
