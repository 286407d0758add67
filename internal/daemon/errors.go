//go:build unix

package daemon

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/gurisko/fide/internal/registry"
	"github.com/gurisko/fide/internal/templates"
)

// statusFor maps a facade error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, registry.ErrBoardNotFound),
		errors.Is(err, registry.ErrProjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, templates.ErrPathEscapesRoot),
		errors.Is(err, templates.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, templates.ErrTemplateNotFound):
		return http.StatusInternalServerError
	case errors.Is(err, templates.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, templates.ErrNotText):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, templates.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// writeFacadeError writes err with its mapped status. Server-side failures
// are logged in full and reported with a generic message.
func (d *Daemon) writeFacadeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		d.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		writeError(w, http.StatusText(status), status)
		return
	}
	writeError(w, err.Error(), status)
}
