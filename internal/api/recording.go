package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/acrolabs/flowcap/internal/media"
	"github.com/acrolabs/flowcap/internal/recording"
	"github.com/go-chi/chi/v5"
)

// RecordingHandler handles recording lifecycle endpoints.
type RecordingHandler struct {
	*Handler
	maxUploadBytes int64
}

// NewRecordingHandler creates a recording handler. maxUploadBytes caps
// the chunk request body (screenshots arrive base64-encoded).
func NewRecordingHandler(base *Handler, maxUploadBytes int64) *RecordingHandler {
	return &RecordingHandler{Handler: base, maxUploadBytes: maxUploadBytes}
}

// RegisterRoutes registers recording routes.
func (h *RecordingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/recording", func(r chi.Router) {
		r.Post("/start", h.Start)
		r.Post("/chunk", h.Chunk)
		r.Post("/stop", h.Stop)
		r.Post("/finish", h.Finish)
		r.Get("/status/{sessionID}", h.Status)
	})
}

// Start begins a new recording session.
func (h *RecordingHandler) Start(w http.ResponseWriter, r *http.Request) {
	sessionID := h.mgr.Start()
	JSON(w, http.StatusOK, map[string]string{
		"sessionId": sessionID,
		"status":    string(recording.StatusActive),
	})
}

// chunkRequest uses pointers so absent fields are distinguishable from
// zero values.
type chunkRequest struct {
	SessionID  *string `json:"sessionId"`
	OrderIndex *int    `json:"orderIndex"`
	ActionType *string `json:"actionType"`
	TargetText string  `json:"targetText"`
	PosX       *int    `json:"posX"`
	PosY       *int    `json:"posY"`
	Screenshot *string `json:"screenshotBase64"`
}

func (c *chunkRequest) missingFields() []string {
	var missing []string
	if c.SessionID == nil {
		missing = append(missing, "sessionId")
	}
	if c.OrderIndex == nil {
		missing = append(missing, "orderIndex")
	}
	if c.ActionType == nil {
		missing = append(missing, "actionType")
	}
	if c.PosX == nil {
		missing = append(missing, "posX")
	}
	if c.PosY == nil {
		missing = append(missing, "posY")
	}
	if c.Screenshot == nil {
		missing = append(missing, "screenshotBase64")
	}
	return missing
}

// Chunk ingests one captured interaction during recording.
func (h *RecordingHandler) Chunk(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	var req chunkRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "request body must contain JSON data")
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		Error(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	result, err := h.mgr.UploadChunk(r.Context(), recording.Chunk{
		SessionID:  *req.SessionID,
		OrderIndex: *req.OrderIndex,
		ActionType: *req.ActionType,
		TargetText: req.TargetText,
		PosX:       *req.PosX,
		PosY:       *req.PosY,
		Screenshot: *req.Screenshot,
	})
	if err != nil {
		h.chunkError(w, err)
		return
	}

	resp := map[string]interface{}{
		"stepId":   result.StepID,
		"imageUrl": result.ImageURL,
		"status":   "saved",
	}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}
	JSON(w, http.StatusOK, resp)
}

func (h *RecordingHandler) chunkError(w http.ResponseWriter, err error) {
	var validation *recording.ValidationError
	switch {
	case errors.Is(err, recording.ErrUnknownSession):
		Error(w, http.StatusBadRequest, "invalid session ID")
	case errors.As(err, &validation):
		Error(w, http.StatusBadRequest, validation.Message)
	case errors.Is(err, media.ErrDecode):
		Error(w, http.StatusBadRequest, "invalid base64 image data")
	default:
		slog.Error("Failed to upload chunk", "error", err)
		Error(w, http.StatusInternalServerError, "failed to upload chunk")
	}
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

func decodeSessionID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		Error(w, http.StatusBadRequest, "missing required field: sessionId")
		return "", false
	}
	return req.SessionID, true
}

// Stop records the client's intent to end the recording. Uploads may
// still be in flight; the session stays alive for them.
func (h *RecordingHandler) Stop(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := decodeSessionID(w, r)
	if !ok {
		return
	}

	result, err := h.mgr.Stop(r.Context(), sessionID)
	if err != nil {
		if errors.Is(err, recording.ErrUnknownSession) {
			Error(w, http.StatusBadRequest, "invalid session ID")
			return
		}
		slog.Error("Failed to stop recording", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to stop recording")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"projectId":   result.ProjectID,
		"uuid":        result.ProjectUUID,
		"redirectUrl": result.RedirectURL,
		"status":      string(result.Status),
	})
}

// Finish signals that all queued chunk uploads have resolved.
func (h *RecordingHandler) Finish(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := decodeSessionID(w, r)
	if !ok {
		return
	}

	status, err := h.mgr.Finish(sessionID)
	if err != nil {
		if errors.Is(err, recording.ErrUnknownSession) {
			Error(w, http.StatusBadRequest, "invalid session ID")
			return
		}
		slog.Error("Failed to finish recording", "error", err, "session_id", sessionID)
		Error(w, http.StatusInternalServerError, "failed to finish recording")
		return
	}

	JSON(w, http.StatusOK, map[string]string{"status": string(status)})
}

// Status reports finalize progress. Repeatable: once a session has
// completed (or never existed), every poll reads completed.
func (h *RecordingHandler) Status(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	result := h.mgr.Status(r.Context(), sessionID)

	resp := map[string]interface{}{"status": string(result.Status)}
	if result.Status == recording.StatusCompleted && result.ProjectID != 0 {
		resp["projectId"] = result.ProjectID
		resp["uuid"] = result.ProjectUUID
		resp["stepCount"] = result.StepCount
	}
	JSON(w, http.StatusOK, resp)
}
