// Package domain contains core domain types for the flowcap backend.
package domain

import (
	"time"
)

// FolderType distinguishes protected system folders from user-created ones.
type FolderType string

const (
	FolderTypeSystem FolderType = "system"
	FolderTypeUser   FolderType = "user"
)

// Names of the two seeded system folders.
const (
	DefaultFolderName = "All Flows"
	TrashFolderName   = "Trash"
)

// Folder groups projects. System folders are seeded once and never deletable.
type Folder struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      FolderType `json:"type"`
	CreatedAt time.Time  `json:"createdAt"`
}

// IsSystem returns true for protected system folders.
func (f *Folder) IsSystem() bool {
	return f.Type == FolderTypeSystem
}
