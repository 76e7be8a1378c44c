package classifier

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/interfaces"
	"github.com/ternarybob/impensa/internal/models"
)

// tempLockPrefix marks office-suite lock/autosave companions ("~$Report.xlsx")
const tempLockPrefix = "~$"

// errWalkLimit stops a walk early once the document cap is reached
var errWalkLimit = errors.New("document cap reached")

// Service walks the document root and classifies files by path position:
// the first directory level below the root is level1, the second is
// level2, and everything below level2 belongs to that category pair.
type Service struct {
	root         string
	allowedExts  map[string]struct{}
	level1Filter map[string]struct{}
	level2Filter map[string]struct{}
	maxDocuments int
	logger       arbor.ILogger
}

// NewService creates a classifier for the configured document tree.
func NewService(config *common.Config, logger arbor.ILogger) interfaces.ClassifierService {
	root := config.Documents.Root
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}

	return &Service{
		root:         root,
		allowedExts:  toSet(normalizeExts(config.Documents.AllowedExtensions)),
		level1Filter: toSet(config.Documents.Level1),
		level2Filter: toSet(config.Documents.Level2),
		maxDocuments: config.Documents.MaxDocuments,
		logger:       logger,
	}
}

// Root returns the absolute document root the classifier operates on.
func (s *Service) Root() string {
	return s.root
}

// Walk traverses level1 and level2 directories in iteration order, then
// descends recursively below each level2 directory. Allow-list pruning
// happens at the directory level, so excluded branches are never read.
func (s *Service) Walk(ctx context.Context, fn func(ref *models.FileRef) error) error {
	level1Entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Warn().Str("root", s.root).Msg("Document root does not exist, nothing to walk")
			return nil
		}
		return err
	}

	yielded := 0
	for _, level1 := range level1Entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if !level1.IsDir() || strings.HasPrefix(level1.Name(), ".") {
			continue
		}
		if !allowed(s.level1Filter, level1.Name()) {
			continue
		}

		level2Entries, err := os.ReadDir(filepath.Join(s.root, level1.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("level1", level1.Name()).Msg("Skipping unreadable level1 directory")
			continue
		}
		for _, level2 := range level2Entries {
			if !level2.IsDir() || strings.HasPrefix(level2.Name(), ".") {
				continue
			}
			if !allowed(s.level2Filter, level2.Name()) {
				continue
			}

			done, err := s.walkCategory(ctx, level1.Name(), level2.Name(), &yielded, fn)
			if err != nil {
				return err
			}
			if done {
				return nil
			}
		}
	}
	return nil
}

// walkCategory descends below one level1/level2 pair. Returns done=true
// when the document cap cut the walk short.
func (s *Service) walkCategory(ctx context.Context, level1, level2 string, yielded *int, fn func(ref *models.FileRef) error) (bool, error) {
	categoryDir := filepath.Join(s.root, level1, level2)

	err := filepath.WalkDir(categoryDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			s.logger.Warn().Err(walkErr).Str("path", path).Msg("Skipping unreadable entry")
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		name := d.Name()
		if d.IsDir() {
			if path != categoryDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, tempLockPrefix) {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(name))
		if _, ok := s.allowedExts[ext]; !ok {
			return nil
		}

		relSub := ""
		if parent := filepath.Dir(path); parent != categoryDir {
			if rel, relErr := filepath.Rel(categoryDir, parent); relErr == nil {
				relSub = rel
			}
		}

		ref := &models.FileRef{
			Path:            path,
			FileName:        name,
			Ext:             strings.TrimPrefix(ext, "."),
			Level1:          level1,
			Level2:          level2,
			RelativeSubpath: relSub,
		}
		if err := fn(ref); err != nil {
			return err
		}

		*yielded++
		if s.maxDocuments > 0 && *yielded >= s.maxDocuments {
			return errWalkLimit
		}
		return nil
	})

	if errors.Is(err, errWalkLimit) {
		return true, nil
	}
	return false, err
}

// Classify evaluates one path against the same rules the walk applies.
// The path does not need to come from a walk; watcher events land here.
func (s *Service) Classify(path string) (*models.FileRef, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, false
	}

	info, err := os.Stat(abs)
	if err != nil || !info.Mode().IsRegular() {
		return nil, false
	}

	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return nil, false
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) > 0 && parts[0] == ".." {
		return nil, false
	}
	// Need at least level1/level2/filename
	if len(parts) < 3 {
		return nil, false
	}
	for _, part := range parts {
		if strings.HasPrefix(part, ".") {
			return nil, false
		}
	}

	name := parts[len(parts)-1]
	if strings.HasPrefix(name, tempLockPrefix) {
		return nil, false
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := s.allowedExts[ext]; !ok {
		return nil, false
	}

	level1, level2 := parts[0], parts[1]
	if !allowed(s.level1Filter, level1) || !allowed(s.level2Filter, level2) {
		return nil, false
	}

	relSub := ""
	if len(parts) > 3 {
		relSub = filepath.Join(parts[2 : len(parts)-1]...)
	}

	return &models.FileRef{
		Path:            abs,
		FileName:        name,
		Ext:             strings.TrimPrefix(ext, "."),
		Level1:          level1,
		Level2:          level2,
		RelativeSubpath: relSub,
	}, true
}

// DiskStats counts every eligible file in the tree. The allow-lists and
// document cap are ingestion controls and deliberately do not apply here;
// the stats describe what is on disk, not what a filtered run would ingest.
func (s *Service) DiskStats(ctx context.Context) *models.DiskStats {
	stats := models.NewDiskStats(s.root)

	level1Entries, err := os.ReadDir(s.root)
	if err != nil {
		return stats
	}

	for _, level1 := range level1Entries {
		if ctx.Err() != nil {
			return stats
		}
		if !level1.IsDir() || strings.HasPrefix(level1.Name(), ".") {
			continue
		}

		level1Total := 0
		level2Entries, err := os.ReadDir(filepath.Join(s.root, level1.Name()))
		if err != nil {
			continue
		}
		for _, level2 := range level2Entries {
			if !level2.IsDir() || strings.HasPrefix(level2.Name(), ".") {
				continue
			}

			level2Count := s.countCategory(level1.Name(), level2.Name())
			if level2Count > 0 {
				stats.Total += level2Count
				level1Total += level2Count
				stats.ByLevel2[level2.Name()] += level2Count
				if _, ok := stats.ByLevel1Level2[level1.Name()]; !ok {
					stats.ByLevel1Level2[level1.Name()] = make(map[string]int)
				}
				stats.ByLevel1Level2[level1.Name()][level2.Name()] = level2Count
			}
		}
		if level1Total > 0 {
			stats.ByLevel1[level1.Name()] += level1Total
		}
	}
	return stats
}

// countCategory counts eligible files below one level1/level2 pair.
func (s *Service) countCategory(level1, level2 string) int {
	categoryDir := filepath.Join(s.root, level1, level2)
	count := 0

	filepath.WalkDir(categoryDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		name := d.Name()
		if d.IsDir() {
			if path != categoryDir && strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if strings.HasPrefix(name, ".") || strings.HasPrefix(name, tempLockPrefix) {
			return nil
		}
		if _, ok := s.allowedExts[strings.ToLower(filepath.Ext(name))]; !ok {
			return nil
		}
		count++
		return nil
	})

	return count
}

func allowed(filter map[string]struct{}, value string) bool {
	if len(filter) == 0 {
		return true
	}
	_, ok := filter[value]
	return ok
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}

// normalizeExts lowercases extensions and guarantees the leading dot, so
// config accepts both "pdf" and ".pdf".
func normalizeExts(exts []string) []string {
	normalized := make([]string, 0, len(exts))
	for _, ext := range exts {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	return normalized
}
