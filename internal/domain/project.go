package domain

import (
	"time"
)

// Project is a recorded demo: an ordered set of steps plus presentation
// metadata. Deletion is always soft; the row and its steps are retained.
type Project struct {
	ID           int64      `json:"id"`
	UUID         string     `json:"uuid"`
	Title        string     `json:"title"`
	FolderID     int64      `json:"folderId"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	DeletedAt    *time.Time `json:"deletedAt,omitempty"`
}

// IsDeleted returns true if the project has been soft-deleted.
func (p *Project) IsDeleted() bool {
	return p.DeletedAt != nil
}

// NewProjectTitle builds the auto-generated title used when a recording
// session lazily creates its backing project.
func NewProjectTitle(now time.Time) string {
	return "New Demo - " + now.Format("2006/01/02 15:04")
}
