// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/acrolabs/flowcap/internal/domain"
)

var (
	// ErrNotFound is returned when a referenced entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrSystemFolder is returned when an operation would modify a
	// protected system folder.
	ErrSystemFolder = errors.New("system folder is protected")
)

// ProjectFilter narrows project listings. A nil FolderID selects the
// default view: every non-deleted project outside the trash folder.
type ProjectFilter struct {
	FolderID *int64
}

// ProjectSummary is a listing entry: the project plus its step count.
type ProjectSummary struct {
	domain.Project
	StepCount int `json:"stepCount"`
}

// Repository defines the interface for persisting folders, projects and steps.
type Repository interface {
	// ListFolders returns all folders ordered by creation time.
	ListFolders(ctx context.Context) ([]*domain.Folder, error)

	// GetFolder retrieves a folder by ID. Returns (nil, nil) if absent.
	GetFolder(ctx context.Context, id int64) (*domain.Folder, error)

	// CreateFolder inserts a new folder and returns it with its ID set.
	CreateFolder(ctx context.Context, name string, typ domain.FolderType) (*domain.Folder, error)

	// RenameFolder updates a folder's name. Returns ErrNotFound if absent.
	RenameFolder(ctx context.Context, id int64, name string) error

	// DeleteFolder hard-deletes a folder. Returns ErrSystemFolder for
	// folders of type system and ErrNotFound if absent.
	DeleteFolder(ctx context.Context, id int64) error

	// FindSystemFolder retrieves a system folder by name. Returns
	// (nil, nil) if absent.
	FindSystemFolder(ctx context.Context, name string) (*domain.Folder, error)

	// EnsureSystemFolders seeds the default and trash system folders.
	// Safe to call repeatedly.
	EnsureSystemFolders(ctx context.Context) error

	// CreateProject inserts a project and fills in its generated ID.
	CreateProject(ctx context.Context, p *domain.Project) error

	// GetProject retrieves a project by ID. Returns (nil, nil) if absent.
	GetProject(ctx context.Context, id int64) (*domain.Project, error)

	// GetProjectByUUID retrieves a project by its external UUID.
	// Returns (nil, nil) if absent.
	GetProjectByUUID(ctx context.Context, uuid string) (*domain.Project, error)

	// ListProjects returns non-deleted projects newest-first. With a
	// FolderID filter it returns that folder's projects; the default
	// folder and the nil filter both mean "everything except trash".
	ListProjects(ctx context.Context, filter ProjectFilter) ([]*ProjectSummary, error)

	// UpdateProject persists title and folder changes.
	UpdateProject(ctx context.Context, p *domain.Project) error

	// SetProjectThumbnail records the derived thumbnail reference.
	SetProjectThumbnail(ctx context.Context, id int64, url string) error

	// SoftDeleteProject sets the deletion timestamp. The row and its
	// steps are retained.
	SoftDeleteProject(ctx context.Context, id int64, at time.Time) error

	// CreateStep inserts a step and fills in its generated ID.
	CreateStep(ctx context.Context, s *domain.Step) error

	// GetStep retrieves a step by ID. Returns (nil, nil) if absent.
	GetStep(ctx context.Context, id int64) (*domain.Step, error)

	// ListSteps returns a project's steps ordered by order_index.
	ListSteps(ctx context.Context, projectID int64) ([]*domain.Step, error)

	// CountSteps returns the number of steps in a project.
	CountSteps(ctx context.Context, projectID int64) (int, error)

	// UpdateStepScript updates a step's narration text, audio reference
	// and duration.
	UpdateStepScript(ctx context.Context, id int64, script, audioURL string, durationFrames int) error

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
