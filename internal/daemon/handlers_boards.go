//go:build unix

package daemon

import (
	"net/http"

	"github.com/gurisko/fide/internal/boards"
)

type BoardResponse struct {
	Board boards.BoardConfig `json:"board"`
}

func (d *Daemon) handleListBoards(w http.ResponseWriter, r *http.Request) {
	list := d.catalog.List()
	d.metrics.boards.Set(float64(len(list)))

	// a bare array, as the browser IDE expects
	writeJSON(w, list, http.StatusOK)
}

func (d *Daemon) handleGetBoard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	board, ok := d.catalog.Get(id)
	if !ok {
		writeError(w, "board not found: "+id, http.StatusNotFound)
		return
	}

	writeJSON(w, BoardResponse{Board: board}, http.StatusOK)
}
