package handlers

import (
	"net/http"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
)

// APIHandler provides the service-level endpoints that do not touch the
// document index: version, health, and the API catch-all.
type APIHandler struct {
	logger arbor.ILogger
}

func NewAPIHandler() *APIHandler {
	return &APIHandler{
		logger: common.GetLogger(),
	}
}

// VersionHandler returns build information for the running binary.
func (h *APIHandler) VersionHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{
		"version":    common.GetVersion(),
		"build":      common.GetBuild(),
		"git_commit": common.GetGitCommit(),
	})
}

// HealthHandler reports liveness of the API process itself. It does not probe
// the index engine; /api/stats does that.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// NotFoundHandler answers unmatched /api/ routes with a JSON 404 instead of
// the default HTML error page.
func (h *APIHandler) NotFoundHandler(w http.ResponseWriter, r *http.Request) {
	if h.logger != nil {
		h.logger.Debug().Str("path", r.URL.Path).Msg("Unknown API route")
	}
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"error":   "Not Found",
		"path":    r.URL.Path,
		"message": "The requested API endpoint does not exist",
	})
}
