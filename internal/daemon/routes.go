//go:build unix

package daemon

import (
	"net/http"
	"time"
)

// Handler returns the daemon's HTTP handler with request logging and
// metrics applied. CORS is added only for the TCP listener.
func (d *Daemon) Handler() http.Handler {
	mux := http.NewServeMux()
	d.setupRoutes(mux)
	return d.instrument(mux)
}

func (d *Daemon) setupRoutes(mux *http.ServeMux) {
	// Health endpoint
	mux.HandleFunc("GET /health", d.handleHealth)
	mux.Handle("GET /metrics", d.metrics.handler())

	mux.HandleFunc("GET /api/boards", d.handleListBoards)
	mux.HandleFunc("GET /api/boards/{id}", d.handleGetBoard)

	mux.HandleFunc("POST /api/projects", d.handleCreateProject)
	mux.HandleFunc("GET /api/projects", d.handleListProjects)
	mux.HandleFunc("GET /api/projects/{id}", d.handleGetProject)
	mux.HandleFunc("GET /api/projects/{id}/files/{path...}", d.handleGetProjectFile)
}

func (d *Daemon) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{
		Status:   "ok",
		Uptime:   time.Since(d.startTime).Seconds(),
		Projects: d.registry.Len(),
	}, http.StatusOK)
}
