package server

import (
	"net/http"
	"os"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// API routes - Search
	mux.HandleFunc("/api/search", s.app.SearchHandler.SearchHandler)
	mux.HandleFunc("/api/suggest", s.app.SearchHandler.SuggestHandler)
	mux.HandleFunc("/api/filters", s.app.SearchHandler.FiltersHandler)

	// API routes - Documents
	mux.HandleFunc("/api/document/", s.app.DocumentHandler.GetDocumentHandler) // GET /{id}
	mux.HandleFunc("/api/stats", s.app.StatsHandler.GetStatsHandler)

	// API routes - Files (originals served off the document tree)
	mux.HandleFunc("/api/file", s.app.FileHandler.DownloadHandler)
	mux.HandleFunc("/api/file/inline", s.app.FileHandler.InlineHandler)
	mux.HandleFunc("/api/viewer", s.app.FileHandler.ViewerHandler)

	// API routes - System
	mux.HandleFunc("/api/version", s.app.APIHandler.VersionHandler)
	mux.HandleFunc("/api/health", s.app.APIHandler.HealthHandler)

	// 404 handler for unmatched API routes
	mux.HandleFunc("/api/", s.app.APIHandler.NotFoundHandler)

	// Static frontend at the root. Directory requests fall through to
	// index.html via the file server.
	staticDir := s.app.Config.Server.StaticDir
	if _, err := os.Stat(staticDir); err != nil {
		s.app.Logger.Warn().
			Str("dir", staticDir).
			Msg("Static directory not found, frontend will not be served")
	}
	mux.Handle("/", http.FileServer(http.Dir(staticDir)))

	return mux
}
