package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
)

// DocumentHandler serves single-document lookups by content hash.
type DocumentHandler struct {
	index  interfaces.DocumentIndex
	logger arbor.ILogger
}

func NewDocumentHandler(index interfaces.DocumentIndex, logger arbor.ILogger) *DocumentHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &DocumentHandler{
		index:  index,
		logger: logger,
	}
}

// GetDocumentHandler handles GET /api/document/{id}
// The id is the document's content hash; the response is the stored source.
func (h *DocumentHandler) GetDocumentHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/document/")
	if id == "" || strings.Contains(id, "/") {
		WriteError(w, http.StatusNotFound, "Not found")
		return
	}

	source, err := h.index.GetDocument(r.Context(), id)
	if err != nil {
		if errors.Is(err, interfaces.ErrDocumentNotFound) {
			WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		writeIndexError(w, h.logger, err, "document lookup")
		return
	}

	WriteRawJSON(w, http.StatusOK, source)
}
