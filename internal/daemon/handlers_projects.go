//go:build unix

package daemon

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/limits"
	"github.com/gurisko/fide/internal/registry"
	"github.com/gurisko/fide/internal/templates"
)

// Request/Response types

type CreateProjectRequest struct {
	ProjectName string `json:"project_name"`
	BoardID     string `json:"board_id"`
}

type CreateProjectResponse struct {
	ProjectID    string               `json:"project_id"`
	ContainerID  string               `json:"container_id"`
	FileTree     []templates.FileNode `json:"file_tree"`
	WorkspaceURL string               `json:"workspace_url"`
}

type ListProjectsResponse struct {
	Projects []*registry.Project `json:"projects"`
}

type ProjectResponse struct {
	Project  *registry.Project    `json:"project"`
	FileTree []templates.FileNode `json:"file_tree"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

// Handler methods

func (d *Daemon) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()

	var req CreateProjectRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, limits.JSON))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	// Validate required fields
	if strings.TrimSpace(req.ProjectName) == "" {
		writeError(w, "project_name is required", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.BoardID) == "" {
		writeError(w, "board_id is required", http.StatusBadRequest)
		return
	}

	created, err := d.registry.Create(req.ProjectName, req.BoardID)
	if err != nil {
		d.metrics.createFailures.Inc()
		d.writeFacadeError(w, r, err)
		return
	}

	d.metrics.projectsCreated.WithLabelValues(created.Project.BoardID).Inc()
	d.logger.Info("project created",
		zap.String("project_id", created.Project.ID),
		zap.String("board_id", created.Project.BoardID),
		zap.String("name", created.Project.Name))

	// Return response with Location header
	resp := CreateProjectResponse{
		ProjectID:    created.Project.ID,
		ContainerID:  created.Project.ContainerID,
		FileTree:     created.FileTree,
		WorkspaceURL: created.WorkspaceURL,
	}
	w.Header().Set("Location", "/api/projects/"+created.Project.ID)
	writeJSON(w, resp, http.StatusCreated)
}

func (d *Daemon) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects := d.registry.List()

	resp := ListProjectsResponse{
		Projects: projects,
	}
	writeJSON(w, resp, http.StatusOK)
}

func (d *Daemon) handleGetProject(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")

	project, err := d.registry.Get(projectID)
	if err != nil {
		d.writeFacadeError(w, r, err)
		return
	}
	tree, err := d.registry.Tree(projectID)
	if err != nil {
		d.writeFacadeError(w, r, err)
		return
	}

	writeJSON(w, ProjectResponse{Project: project, FileTree: tree}, http.StatusOK)
}

func (d *Daemon) handleGetProjectFile(w http.ResponseWriter, r *http.Request) {
	projectID := r.PathValue("id")
	relPath := r.PathValue("path")

	content, err := d.registry.GetFile(projectID, relPath)
	if err != nil {
		outcome := outcomeRejected
		if statusFor(err) >= http.StatusInternalServerError {
			outcome = outcomeError
		}
		d.metrics.fileReads.WithLabelValues(outcome).Inc()
		d.writeFacadeError(w, r, err)
		return
	}
	d.metrics.fileReads.WithLabelValues(outcomeOK).Inc()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(content))
}

// Helper functions

func writeJSON(w http.ResponseWriter, data interface{}, status int) {
	buf, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf)
}

func writeError(w http.ResponseWriter, message string, status int) {
	resp := ErrorResponse{
		Error: message,
	}
	writeJSON(w, resp, status)
}
