package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

const (
	defaultPageSize     = 20
	suggestSize         = 5
	searchAggBucketSize = 200
)

// SearchHandler serves full-text search, filter aggregations, and
// type-ahead suggestions against the document index.
type SearchHandler struct {
	index  interfaces.DocumentIndex
	logger arbor.ILogger
}

func NewSearchHandler(index interfaces.DocumentIndex, logger arbor.ILogger) *SearchHandler {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &SearchHandler{
		index:  index,
		logger: logger,
	}
}

// SearchHandler handles GET /api/search
// Query params: q, level1 (repeatable), level2 (repeatable), from, size, sort.
// The raw engine response is passed through so the frontend keeps hits,
// aggregations, and highlights in their native shape.
func (h *SearchHandler) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	params := r.URL.Query()
	q := strings.TrimSpace(params.Get("q"))
	from := parseIntParam(params.Get("from"), 0)
	size := parseIntParam(params.Get("size"), defaultPageSize)

	body := buildSearchBody(q, params["level1"], params["level2"], from, size, params.Get("sort"))

	raw, err := h.index.Search(r.Context(), body)
	if err != nil {
		writeIndexError(w, h.logger, err, "search")
		return
	}

	if h.logger != nil {
		h.logger.Debug().
			Str("query", q).
			Int("from", from).
			Int("size", size).
			Msg("Search executed")
	}

	WriteRawJSON(w, http.StatusOK, raw)
}

// FiltersHandler handles GET /api/filters
// Returns the level1/level2 aggregations over the whole index so the frontend
// can build its category facets without running a search.
func (h *SearchHandler) FiltersHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	body := map[string]interface{}{
		"size": 0,
		"aggs": categoryAggs(searchAggBucketSize, searchAggBucketSize),
	}

	raw, err := h.index.Search(r.Context(), body)
	if err != nil {
		writeIndexError(w, h.logger, err, "filters")
		return
	}

	var envelope struct {
		Aggregations json.RawMessage `json:"aggregations"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		writeIndexError(w, h.logger, err, "filters")
		return
	}

	WriteRawJSON(w, http.StatusOK, envelope.Aggregations)
}

// SuggestHandler handles GET /api/suggest?q=...
// Runs a bool_prefix match over the search_as_you_type field and flattens the
// hits into a small list for the type-ahead dropdown.
func (h *SearchHandler) SuggestHandler(w http.ResponseWriter, r *http.Request) {
	if !RequireMethod(w, r, http.MethodGet) {
		return
	}

	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		WriteError(w, http.StatusBadRequest, "q parameter is required")
		return
	}

	body := map[string]interface{}{
		"size":    suggestSize,
		"_source": []string{"title", "level1", "level2"},
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  q,
				"type":   "bool_prefix",
				"fields": []string{"suggest", "suggest._2gram", "suggest._3gram"},
			},
		},
	}

	raw, err := h.index.Search(r.Context(), body)
	if err != nil {
		writeIndexError(w, h.logger, err, "suggest")
		return
	}

	var envelope struct {
		Hits struct {
			Hits []struct {
				ID     string `json:"_id"`
				Source struct {
					Title  string `json:"title"`
					Level1 string `json:"level1"`
					Level2 string `json:"level2"`
				} `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		writeIndexError(w, h.logger, err, "suggest")
		return
	}

	suggestions := make([]models.SuggestHit, 0, len(envelope.Hits.Hits))
	for _, hit := range envelope.Hits.Hits {
		suggestions = append(suggestions, models.SuggestHit{
			ID:     hit.ID,
			Title:  hit.Source.Title,
			Level1: hit.Source.Level1,
			Level2: hit.Source.Level2,
		})
	}

	WriteJSON(w, http.StatusOK, suggestions)
}

// buildSearchBody assembles the engine query for /api/search. An empty q
// degrades to match_all so filter-only browsing still works.
func buildSearchBody(q string, level1, level2 []string, from, size int, sort string) map[string]interface{} {
	var must []interface{}
	if q != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":     q,
				"fields":    []string{"title^3", "content"},
				"fuzziness": "AUTO",
			},
		})
	} else {
		must = append(must, map[string]interface{}{
			"match_all": map[string]interface{}{},
		})
	}

	filters := make([]interface{}, 0, 2)
	if f := termsFilter("level1", level1); f != nil {
		filters = append(filters, f)
	}
	if f := termsFilter("level2", level2); f != nil {
		filters = append(filters, f)
	}

	body := map[string]interface{}{
		"from":    from,
		"size":    size,
		"_source": []string{"title", "path", "file_name", "level1", "level2", "modified_at", "ext"},
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   must,
				"filter": filters,
			},
		},
		"aggs": categoryAggs(searchAggBucketSize, searchAggBucketSize),
		"highlight": map[string]interface{}{
			"fields": map[string]interface{}{
				"title": map[string]interface{}{},
				"content": map[string]interface{}{
					"fragment_size":       160,
					"number_of_fragments": 1,
				},
			},
			"pre_tags":  []string{"<mark>"},
			"post_tags": []string{"</mark>"},
		},
	}

	if sort == "recency" {
		body["sort"] = []interface{}{
			map[string]interface{}{
				"modified_at": map[string]interface{}{"order": "desc"},
			},
		}
	}

	return body
}

// termsFilter builds a terms clause for the given values. Values may be
// repeated query params, comma-separated lists, or both.
func termsFilter(field string, values []string) map[string]interface{} {
	expanded := make([]string, 0, len(values))
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			part = strings.TrimSpace(part)
			if part != "" {
				expanded = append(expanded, part)
			}
		}
	}
	if len(expanded) == 0 {
		return nil
	}
	return map[string]interface{}{
		"terms": map[string]interface{}{field: expanded},
	}
}

// categoryAggs builds the by_level1/by_level2 terms aggregations.
func categoryAggs(level1Size, level2Size int) map[string]interface{} {
	return map[string]interface{}{
		"by_level1": map[string]interface{}{
			"terms": map[string]interface{}{"field": "level1", "size": level1Size},
		},
		"by_level2": map[string]interface{}{
			"terms": map[string]interface{}{"field": "level2", "size": level2Size},
		},
	}
}
