package registry

import (
	"time"

	"github.com/gurisko/fide/internal/templates"
)

// Project represents one scaffolded project held by the registry
type Project struct {
	ID           string    `json:"id"`           // UUID v4
	ContainerID  string    `json:"container_id"` // Opaque workspace handle, UUID v4
	Name         string    `json:"name"`         // Display name, also the placeholder value
	BoardID      string    `json:"board_id"`     // Board chosen at creation; not re-validated
	TemplateRoot string    `json:"-"`            // Captured at creation
	CreatedAt    time.Time `json:"created_at"`   // When the project was created
}

// Created is the result of a successful Create
type Created struct {
	Project      *Project
	FileTree     []templates.FileNode
	WorkspaceURL string
}
