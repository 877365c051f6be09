package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/acrolabs/flowcap/internal/domain"
	"github.com/acrolabs/flowcap/internal/store"
	"github.com/go-chi/chi/v5"
)

// FoldersHandler handles folder CRUD endpoints.
type FoldersHandler struct {
	*Handler
}

// NewFoldersHandler creates a new folders handler.
func NewFoldersHandler(base *Handler) *FoldersHandler {
	return &FoldersHandler{Handler: base}
}

// RegisterRoutes registers folder routes.
func (h *FoldersHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/folders", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Put("/{folderID}", h.Rename)
		r.Delete("/{folderID}", h.Delete)
	})
}

// List returns all folders ordered by creation time.
func (h *FoldersHandler) List(w http.ResponseWriter, r *http.Request) {
	folders, err := h.repo.ListFolders(r.Context())
	if err != nil {
		slog.Error("Failed to list folders", "error", err)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}
	if folders == nil {
		folders = []*domain.Folder{}
	}
	JSON(w, http.StatusOK, map[string]interface{}{"folders": folders})
}

type folderNameRequest struct {
	Name *string `json:"name"`
}

// Create creates a new user folder.
func (h *FoldersHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req folderNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == nil {
		Error(w, http.StatusBadRequest, "missing required field: name")
		return
	}

	name, ok := validFolderName(w, *req.Name)
	if !ok {
		return
	}

	folder, err := h.repo.CreateFolder(r.Context(), name, domain.FolderTypeUser)
	if err != nil {
		slog.Error("Failed to create folder", "error", err)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	slog.Info("Created folder", "folder_id", folder.ID, "name", folder.Name)
	JSON(w, http.StatusCreated, folder)
}

// Rename updates a folder's name.
func (h *FoldersHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "folderID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "folder id must be an integer")
		return
	}

	var req folderNameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == nil {
		Error(w, http.StatusBadRequest, "missing required field: name")
		return
	}

	name, ok := validFolderName(w, *req.Name)
	if !ok {
		return
	}

	if err := h.repo.RenameFolder(r.Context(), id, name); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "folder not found")
			return
		}
		slog.Error("Failed to rename folder", "error", err, "folder_id", id)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	folder, err := h.repo.GetFolder(r.Context(), id)
	if err != nil || folder == nil {
		slog.Error("Failed to reload renamed folder", "error", err, "folder_id", id)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	slog.Info("Renamed folder", "folder_id", id, "name", name)
	JSON(w, http.StatusOK, folder)
}

// Delete hard-deletes a user folder. System folders are protected.
func (h *FoldersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "folderID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "folder id must be an integer")
		return
	}

	if err := h.repo.DeleteFolder(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			Error(w, http.StatusNotFound, "folder not found")
		case errors.Is(err, store.ErrSystemFolder):
			Error(w, http.StatusBadRequest, "cannot delete system folder")
		default:
			slog.Error("Failed to delete folder", "error", err, "folder_id", id)
			Error(w, http.StatusInternalServerError, "database error occurred")
		}
		return
	}

	slog.Info("Deleted folder", "folder_id", id)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":  "Folder deleted successfully",
		"folderId": id,
	})
}

// validFolderName trims and validates a folder name, writing the error
// response itself on failure.
func validFolderName(w http.ResponseWriter, name string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		Error(w, http.StatusBadRequest, "folder name cannot be empty")
		return "", false
	}
	if len(name) > maxTitleLength {
		Error(w, http.StatusBadRequest, "folder name cannot exceed 255 characters")
		return "", false
	}
	return name, true
}
