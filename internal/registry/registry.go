package registry

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/gurisko/fide/internal/boards"
	"github.com/gurisko/fide/internal/templates"
)

var (
	// ErrProjectNotFound indicates the project ID doesn't exist
	ErrProjectNotFound = errors.New("project not found")
	// ErrBoardNotFound indicates the board ID has no catalog entry
	ErrBoardNotFound = errors.New("board not found")
)

// WorkspacePrefix is prepended to a project ID to form its workspace URL
const WorkspacePrefix = "/workspace/"

// BoardLookup resolves a board id to its catalog entry
type BoardLookup interface {
	Get(id string) (boards.BoardConfig, bool)
}

// Registry manages the in-memory collection of scaffolded projects.
// Records are immutable once inserted; the map is the only shared state.
// Nothing is persisted: a restart starts from an empty registry.
type Registry struct {
	boards   BoardLookup
	projects map[string]*Project
	mu       sync.RWMutex
	now      func() time.Time
}

// New creates an empty Registry resolving boards through lookup
func New(lookup BoardLookup) *Registry {
	return &Registry{
		boards:   lookup,
		projects: make(map[string]*Project),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Create scaffolds a new project for boardID. The board's template is
// snapshotted before the write lock is taken; only the final insertion is
// serialized. On any failure no record is inserted.
func (r *Registry) Create(name, boardID string) (*Created, error) {
	board, ok := r.boards.Get(boardID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBoardNotFound, boardID)
	}

	tree, err := templates.Snapshot(board.TemplateRoot)
	if err != nil {
		return nil, fmt.Errorf("snapshot template for board %s: %w", boardID, err)
	}

	project := &Project{
		ID:           GenerateID(),
		ContainerID:  GenerateID(),
		Name:         name,
		BoardID:      board.ID,
		TemplateRoot: board.TemplateRoot,
		CreatedAt:    r.now(),
	}

	r.mu.Lock()
	r.projects[project.ID] = project
	r.mu.Unlock()

	return &Created{
		Project:      project.clone(),
		FileTree:     tree,
		WorkspaceURL: WorkspacePrefix + project.ID,
	}, nil
}

// Get returns a copy of the project with the given ID
func (r *Registry) Get(projectID string) (*Project, error) {
	p, err := r.lookup(projectID)
	if err != nil {
		return nil, err
	}
	return p.clone(), nil
}

// Tree returns a fresh snapshot of the project's template
func (r *Registry) Tree(projectID string) ([]templates.FileNode, error) {
	p, err := r.lookup(projectID)
	if err != nil {
		return nil, err
	}
	return templates.Snapshot(p.TemplateRoot)
}

// GetFile returns the rendered content of relPath within the project's
// template. The registry lock is held only for the lookup.
func (r *Registry) GetFile(projectID, relPath string) (string, error) {
	p, err := r.lookup(projectID)
	if err != nil {
		return "", err
	}
	return templates.ReadRendered(p.TemplateRoot, relPath, p.Name)
}

// List returns copies of all projects sorted by name then ID
func (r *Registry) List() []*Project {
	r.mu.RLock()
	projects := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		projects = append(projects, p.clone())
	}
	r.mu.RUnlock()

	sort.Slice(projects, func(i, j int) bool {
		if projects[i].Name == projects[j].Name {
			return projects[i].ID < projects[j].ID
		}
		return projects[i].Name < projects[j].Name
	})

	return projects
}

// Len returns the number of projects
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.projects)
}

func (r *Registry) lookup(projectID string) (*Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.projects[projectID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, projectID)
	}
	return p, nil
}

func (p *Project) clone() *Project {
	c := *p
	return &c
}
