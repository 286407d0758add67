//go:build unix

package apiclient

import (
	"context"
	"net/url"
	"strings"

	"github.com/gurisko/fide/internal/boards"
	"github.com/gurisko/fide/internal/registry"
	"github.com/gurisko/fide/internal/templates"
)

// CreateProjectResult mirrors the daemon's project creation response.
type CreateProjectResult struct {
	ProjectID    string               `json:"project_id"`
	ContainerID  string               `json:"container_id"`
	FileTree     []templates.FileNode `json:"file_tree"`
	WorkspaceURL string               `json:"workspace_url"`
}

// ProjectDetail is a project together with a current snapshot of its files.
type ProjectDetail struct {
	Project  *registry.Project    `json:"project"`
	FileTree []templates.FileNode `json:"file_tree"`
}

func (c *Client) ListBoards(ctx context.Context) ([]boards.BoardConfig, error) {
	var list []boards.BoardConfig
	if err := c.GetJSON(ctx, "/api/boards", &list); err != nil {
		return nil, err
	}
	return list, nil
}

func (c *Client) CreateProject(ctx context.Context, name, boardID string) (*CreateProjectResult, error) {
	req := map[string]string{
		"project_name": name,
		"board_id":     boardID,
	}
	var out CreateProjectResult
	if err := c.PostJSON(ctx, "/api/projects", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListProjects(ctx context.Context) ([]*registry.Project, error) {
	var resp struct {
		Projects []*registry.Project `json:"projects"`
	}
	if err := c.GetJSON(ctx, "/api/projects", &resp); err != nil {
		return nil, err
	}
	return resp.Projects, nil
}

func (c *Client) Project(ctx context.Context, projectID string) (*ProjectDetail, error) {
	var out ProjectDetail
	if err := c.GetJSON(ctx, "/api/projects/"+url.PathEscape(projectID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Tree returns a current snapshot of the project's files.
func (c *Client) Tree(ctx context.Context, projectID string) ([]templates.FileNode, error) {
	detail, err := c.Project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return detail.FileTree, nil
}

// File returns the rendered content of relPath, a slash-separated path
// within the project's template.
func (c *Client) File(ctx context.Context, projectID, relPath string) (string, error) {
	return c.GetText(ctx, "/api/projects/"+url.PathEscape(projectID)+"/files/"+escapePath(relPath))
}

func escapePath(p string) string {
	segs := strings.Split(p, "/")
	for i, s := range segs {
		segs[i] = url.PathEscape(s)
	}
	return strings.Join(segs, "/")
}
