package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

// StepsHandler handles step editing endpoints.
type StepsHandler struct {
	*Handler
}

// NewStepsHandler creates a new steps handler.
func NewStepsHandler(base *Handler) *StepsHandler {
	return &StepsHandler{Handler: base}
}

// RegisterRoutes registers step routes.
func (h *StepsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/steps", func(r chi.Router) {
		r.Post("/{stepID}/update_script", h.UpdateScript)
	})
}

type updateScriptRequest struct {
	ScriptText *string `json:"scriptText"`
}

// UpdateScript changes a step's narration text and re-synthesizes its
// audio. Synthesis failure degrades: the text still updates, the old
// audio and duration are kept, and the response carries a warning.
func (h *StepsHandler) UpdateScript(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "stepID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "step id must be an integer")
		return
	}

	var req updateScriptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ScriptText == nil {
		Error(w, http.StatusBadRequest, "missing required field: scriptText")
		return
	}

	script := strings.TrimSpace(*req.ScriptText)
	if script == "" {
		Error(w, http.StatusBadRequest, "script text cannot be empty")
		return
	}

	ctx := r.Context()
	step, err := h.repo.GetStep(ctx, id)
	if err != nil {
		slog.Error("Failed to get step", "error", err, "step_id", id)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}
	if step == nil {
		Error(w, http.StatusNotFound, "step not found")
		return
	}

	audioURL := step.AudioURL
	durationFrames := step.DurationFrames
	warning := ""
	if res, ttsErr := h.tts.Synthesize(ctx, script); ttsErr != nil {
		warning = "narration synthesis failed, audio not updated"
		slog.Warn("Narration synthesis failed for script update", "error", ttsErr, "step_id", id)
	} else {
		audioURL = res.AudioURL
		durationFrames = res.DurationFrames
	}

	if err := h.repo.UpdateStepScript(ctx, id, script, audioURL, durationFrames); err != nil {
		slog.Error("Failed to update step script", "error", err, "step_id", id)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	resp := map[string]interface{}{
		"id":             id,
		"scriptText":     script,
		"audioUrl":       audioURL,
		"durationFrames": durationFrames,
	}
	if warning != "" {
		resp["warning"] = warning
	}
	JSON(w, http.StatusOK, resp)
}
