package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

// Service turns classified files into indexed documents. Each file is
// hashed, run through text extraction (served from cache when the same
// bytes were seen before), and upserted under its content hash so
// repeated runs converge instead of duplicating.
type Service struct {
	extractor interfaces.ExtractorService
	index     interfaces.DocumentIndex
	cache     interfaces.ExtractionCache
	pdf       interfaces.PDFService
	logger    arbor.ILogger
}

// NewService creates an indexer service. cache and pdf may be nil when the
// extraction cache or local PDF inspection is disabled.
func NewService(extractor interfaces.ExtractorService, index interfaces.DocumentIndex, cache interfaces.ExtractionCache, pdf interfaces.PDFService, logger arbor.ILogger) interfaces.IndexerService {
	if logger == nil {
		logger = common.GetLogger()
	}
	return &Service{
		extractor: extractor,
		index:     index,
		cache:     cache,
		pdf:       pdf,
		logger:    logger,
	}
}

// EnsureIndex makes sure the backing index exists before any writes.
func (s *Service) EnsureIndex(ctx context.Context) error {
	return s.index.EnsureIndex(ctx)
}

// IndexFile ingests one classified file and returns the indexed record.
// Extraction failure is not fatal: the document is still indexed with a
// filename-derived title and empty content so it stays findable.
func (s *Service) IndexFile(ctx context.Context, ref *models.FileRef) (*models.Document, error) {
	info, err := os.Stat(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", ref.Path, err)
	}

	sha, err := common.HashFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to hash %s: %w", ref.Path, err)
	}

	extraction := s.extract(ctx, ref, sha)

	doc := &models.Document{
		ID:         sha,
		Path:       ref.Path,
		FileName:   ref.FileName,
		Level1:     ref.Level1,
		Level2:     ref.Level2,
		Title:      extraction.Title,
		Content:    extraction.Content,
		MediaType:  extraction.MediaType,
		Ext:        ref.Ext,
		ModifiedAt: info.ModTime().UTC(),
		SizeBytes:  info.Size(),
		SHA256:     sha,
		Suggest:    models.SuggestionTerms(ref.Level1, ref.Level2, extraction.Title),
	}

	if s.pdf != nil && ref.Ext == "pdf" {
		if count, err := s.pdf.PageCount(ref.Path); err != nil {
			s.logger.Debug().Err(err).Str("path", ref.Path).Msg("Page count unavailable")
		} else {
			doc.PageCount = count
		}
	}

	if err := s.index.UpsertDocument(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// extract returns the text extraction for the file, consulting the
// hash-keyed cache first. The cache only ever short-circuits remote
// work; index contents are identical with or without it.
func (s *Service) extract(ctx context.Context, ref *models.FileRef, sha string) *models.Extraction {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, sha)
		if err != nil {
			s.logger.Warn().Err(err).Str("path", ref.Path).Msg("Extraction cache read failed")
		} else if cached != nil {
			s.logger.Debug().Str("path", ref.Path).Str("sha256", sha).Msg("Extraction cache hit")
			return cached
		}
	}

	extraction, err := s.extractor.Extract(ctx, ref.Path)
	if err != nil {
		s.logger.Warn().Err(err).Str("path", ref.Path).Msg("Extraction failed, indexing filename only")
		return &models.Extraction{Title: fileStem(ref.FileName)}
	}

	// Size-skipped results stay out of the cache so the file gets a real
	// extraction once the threshold is raised.
	if s.cache != nil && !extraction.Skipped {
		if err := s.cache.Put(ctx, sha, extraction); err != nil {
			s.logger.Warn().Err(err).Str("path", ref.Path).Msg("Extraction cache write failed")
		}
	}
	return extraction
}

func fileStem(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
