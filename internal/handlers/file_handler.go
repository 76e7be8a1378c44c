package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
)

// pdfViewerBaseURL is the hosted pdf.js viewer the frontend embeds for
// in-browser PDF rendering with search-term highlighting.
const pdfViewerBaseURL = "https://cdn.jsdelivr.net/npm/pdfjs-dist@4.6.82/web/viewer.html?file="

// fileMIMETypes maps the handled document extensions onto explicit content
// types. Browsers mis-sniff legacy Office formats, so these are never left to
// detection.
var fileMIMETypes = map[string]string{
	".pdf":  "application/pdf",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".doc":  "application/msword",
}

// FileHandler serves original documents off the disk tree. Every request is
// checked for containment inside the document root before anything is opened.
type FileHandler struct {
	root         string
	resolvedRoot string
	logger       arbor.ILogger
}

// NewFileHandler creates a file handler rooted at the document tree. The root
// is resolved to an absolute, symlink-free path once so containment checks
// are stable even if the working directory changes.
func NewFileHandler(root string, logger arbor.ILogger) *FileHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		abs = filepath.Clean(root)
	}
	resolvedRoot := abs
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		resolvedRoot = resolved
	}
	return &FileHandler{
		root:         abs,
		resolvedRoot: resolvedRoot,
		logger:       logger,
	}
}

// DownloadHandler handles GET /api/file?path=...
// Serves the document as an attachment.
func (h *FileHandler) DownloadHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	path, ok := h.resolvePath(w, r)
	if !ok {
		return
	}
	h.serveFile(w, r, path, "attachment")
}

// InlineHandler handles GET /api/file/inline?path=...
// Serves the document for in-browser display (PDF viewers, print dialogs).
func (h *FileHandler) InlineHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}
	path, ok := h.resolvePath(w, r)
	if !ok {
		return
	}
	h.serveFile(w, r, path, "inline")
}

// ViewerHandler handles GET /api/viewer?file=...&q=...
// Redirects to the hosted pdf.js viewer. The file param is a pre-encoded URL
// back to /api/file/inline, concatenated as-is; an optional q is appended as
// the viewer's search fragment.
func (h *FileHandler) ViewerHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	file := r.URL.Query().Get("file")
	if file == "" {
		WriteError(w, http.StatusBadRequest, "file parameter is required")
		return
	}

	target := pdfViewerBaseURL + file
	if q := r.URL.Query().Get("q"); q != "" {
		target += "#search=" + q
	}

	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// resolvePath validates the path query param: it must resolve to a regular
// file inside the document root. Writes the error response itself and returns
// ok=false on any failure.
func (h *FileHandler) resolvePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	raw := r.URL.Query().Get("path")
	if raw == "" {
		WriteError(w, http.StatusBadRequest, "path parameter is required")
		return "", false
	}

	abs, err := filepath.Abs(raw)
	if err != nil {
		WriteError(w, http.StatusForbidden, "Path not allowed")
		return "", false
	}

	if !underRoot(h.root, abs) {
		if h.logger != nil {
			h.logger.Warn().Str("path", raw).Msg("Rejected file request outside document root")
		}
		WriteError(w, http.StatusForbidden, "Path not allowed")
		return "", false
	}

	// Resolve symlinks and check containment again on the real path, so a
	// link planted inside the root cannot serve files outside it.
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		WriteError(w, http.StatusNotFound, "File not found")
		return "", false
	}
	if !underRoot(h.resolvedRoot, resolved) {
		if h.logger != nil {
			h.logger.Warn().Str("path", raw).Str("resolved", resolved).Msg("Rejected symlink escaping document root")
		}
		WriteError(w, http.StatusForbidden, "Path not allowed")
		return "", false
	}

	info, err := os.Stat(resolved)
	if err != nil || !info.Mode().IsRegular() {
		WriteError(w, http.StatusNotFound, "File not found")
		return "", false
	}

	return resolved, true
}

func underRoot(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// serveFile writes the document with an explicit content type and the given
// disposition. Range and conditional requests are delegated to the stdlib.
func (h *FileHandler) serveFile(w http.ResponseWriter, r *http.Request, path, disposition string) {
	name := filepath.Base(path)
	w.Header().Set("Content-Type", mimeTypeFor(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, name))
	http.ServeFile(w, r, path)
}

func mimeTypeFor(name string) string {
	if mt, ok := fileMIMETypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mt
	}
	return "application/octet-stream"
}
