package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
	"github.com/acrolabs/flowcap/internal/store"
	"github.com/go-chi/chi/v5"
)

const maxTitleLength = 255

// ProjectsHandler handles project CRUD endpoints.
type ProjectsHandler struct {
	*Handler
}

// NewProjectsHandler creates a new projects handler.
func NewProjectsHandler(base *Handler) *ProjectsHandler {
	return &ProjectsHandler{Handler: base}
}

// RegisterRoutes registers project routes.
func (h *ProjectsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/projects", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/{projectID}", h.Get)
		r.Get("/{identifier}/details", h.Details)
		r.Put("/{projectID}", h.Update)
		r.Delete("/{projectID}", h.Delete)
	})
}

type createProjectRequest struct {
	Title    *string `json:"title"`
	FolderID *int64  `json:"folderId"`
}

// Create creates a new project, defaulting to the system folder when no
// folder is given.
func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Title == nil {
		Error(w, http.StatusBadRequest, "missing required field: title")
		return
	}

	title, ok := validTitle(w, *req.Title)
	if !ok {
		return
	}

	ctx := r.Context()
	var folderID int64
	if req.FolderID == nil {
		folder, err := h.repo.FindSystemFolder(ctx, domain.DefaultFolderName)
		if err != nil {
			slog.Error("Failed to find default folder", "error", err)
			Error(w, http.StatusInternalServerError, "database error occurred")
			return
		}
		if folder == nil {
			Error(w, http.StatusInternalServerError, "default folder not found")
			return
		}
		folderID = folder.ID
	} else {
		folder, err := h.repo.GetFolder(ctx, *req.FolderID)
		if err != nil {
			slog.Error("Failed to get folder", "error", err, "folder_id", *req.FolderID)
			Error(w, http.StatusInternalServerError, "database error occurred")
			return
		}
		if folder == nil {
			Error(w, http.StatusBadRequest, "folder with id "+strconv.FormatInt(*req.FolderID, 10)+" not found")
			return
		}
		folderID = folder.ID
	}

	project := &domain.Project{Title: title, FolderID: folderID}
	if err := h.repo.CreateProject(ctx, project); err != nil {
		slog.Error("Failed to create project", "error", err)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	slog.Info("Created project", "project_id", project.ID, "title", project.Title)
	JSON(w, http.StatusCreated, project)
}

// List returns non-deleted projects, optionally filtered by folder.
// Trash never shows up in the default view.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	var filter store.ProjectFilter
	if raw := r.URL.Query().Get("folderId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			Error(w, http.StatusBadRequest, "folderId must be an integer")
			return
		}
		filter.FolderID = &id
	}

	projects, err := h.repo.ListProjects(r.Context(), filter)
	if err != nil {
		slog.Error("Failed to list projects", "error", err)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}
	if projects == nil {
		projects = []*store.ProjectSummary{}
	}

	JSON(w, http.StatusOK, map[string]interface{}{"projects": projects})
}

// Get returns a single project by ID.
func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}
	JSON(w, http.StatusOK, project)
}

// Details returns a project with its ordered steps and total duration.
// Accepts either the numeric ID or the external UUID.
func (h *ProjectsHandler) Details(w http.ResponseWriter, r *http.Request) {
	identifier := chi.URLParam(r, "identifier")
	ctx := r.Context()

	var project *domain.Project
	var err error
	if id, parseErr := strconv.ParseInt(identifier, 10, 64); parseErr == nil {
		project, err = h.repo.GetProject(ctx, id)
	} else {
		project, err = h.repo.GetProjectByUUID(ctx, identifier)
	}
	if err != nil {
		slog.Error("Failed to get project details", "error", err, "identifier", identifier)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}
	if project == nil {
		Error(w, http.StatusNotFound, "project not found")
		return
	}

	steps, err := h.repo.ListSteps(ctx, project.ID)
	if err != nil {
		slog.Error("Failed to list steps", "error", err, "project_id", project.ID)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}
	if steps == nil {
		steps = []*domain.Step{}
	}

	totalDuration := 0
	for _, step := range steps {
		totalDuration += step.DurationFrames
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"id":                  project.ID,
		"uuid":                project.UUID,
		"title":               project.Title,
		"folderId":            project.FolderID,
		"thumbnailUrl":        project.ThumbnailURL,
		"createdAt":           project.CreatedAt,
		"steps":               steps,
		"totalDurationFrames": totalDuration,
	})
}

type updateProjectRequest struct {
	Title    *string `json:"title"`
	FolderID *int64  `json:"folderId"`
}

// Update changes a project's title and/or folder.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req updateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		Error(w, http.StatusBadRequest, "request body is required")
		return
	}

	project, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	if req.Title != nil {
		title, valid := validTitle(w, *req.Title)
		if !valid {
			return
		}
		project.Title = title
	}

	if req.FolderID != nil {
		folder, err := h.repo.GetFolder(ctx, *req.FolderID)
		if err != nil {
			slog.Error("Failed to get folder", "error", err, "folder_id", *req.FolderID)
			Error(w, http.StatusInternalServerError, "database error occurred")
			return
		}
		if folder == nil {
			Error(w, http.StatusBadRequest, "folder with id "+strconv.FormatInt(*req.FolderID, 10)+" not found")
			return
		}
		project.FolderID = folder.ID
	}

	if err := h.repo.UpdateProject(ctx, project); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "project not found")
			return
		}
		slog.Error("Failed to update project", "error", err, "project_id", project.ID)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	slog.Info("Updated project", "project_id", project.ID)
	JSON(w, http.StatusOK, project)
}

// Delete soft-deletes a project. The row and its steps are retained.
func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	project, ok := h.projectFromPath(w, r)
	if !ok {
		return
	}

	if err := h.repo.SoftDeleteProject(r.Context(), project.ID, time.Now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			Error(w, http.StatusNotFound, "project not found")
			return
		}
		slog.Error("Failed to delete project", "error", err, "project_id", project.ID)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return
	}

	slog.Info("Soft deleted project", "project_id", project.ID)
	JSON(w, http.StatusOK, map[string]interface{}{
		"message":   "Project deleted successfully",
		"projectId": project.ID,
	})
}

// projectFromPath loads the project referenced by the projectID path
// parameter, writing the error response itself on failure.
func (h *ProjectsHandler) projectFromPath(w http.ResponseWriter, r *http.Request) (*domain.Project, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		Error(w, http.StatusBadRequest, "project id must be an integer")
		return nil, false
	}

	project, err := h.repo.GetProject(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get project", "error", err, "project_id", id)
		Error(w, http.StatusInternalServerError, "database error occurred")
		return nil, false
	}
	if project == nil {
		Error(w, http.StatusNotFound, "project not found")
		return nil, false
	}
	return project, true
}

// validTitle trims and validates a project title, writing the error
// response itself on failure.
func validTitle(w http.ResponseWriter, title string) (string, bool) {
	title = strings.TrimSpace(title)
	if title == "" {
		Error(w, http.StatusBadRequest, "title cannot be empty")
		return "", false
	}
	if len(title) > maxTitleLength {
		Error(w, http.StatusBadRequest, "title cannot exceed 255 characters")
		return "", false
	}
	return title, true
}
