package models

import (
	"time"
)

// DiskStats aggregates eligible-file counts from a live scan of the
// document root. A missing or empty root yields zeroed stats, not an error.
type DiskStats struct {
	Root           string                    `json:"root"`
	Total          int                       `json:"total"`
	ByLevel1       map[string]int            `json:"by_level1"`
	ByLevel2       map[string]int            `json:"by_level2"`
	ByLevel1Level2 map[string]map[string]int `json:"by_level1_level2"`
}

// NewDiskStats returns DiskStats for the given root with initialized maps.
func NewDiskStats(root string) *DiskStats {
	return &DiskStats{
		Root:           root,
		ByLevel1:       make(map[string]int),
		ByLevel2:       make(map[string]int),
		ByLevel1Level2: make(map[string]map[string]int),
	}
}

// IndexStats aggregates indexed-document counts per category bucket,
// as reported by the search index terms aggregations.
type IndexStats struct {
	Total    int            `json:"total"`
	ByLevel1 map[string]int `json:"by_level1"`
	ByLevel2 map[string]int `json:"by_level2"`
}

// NewIndexStats returns IndexStats with initialized maps.
func NewIndexStats() *IndexStats {
	return &IndexStats{
		ByLevel1: make(map[string]int),
		ByLevel2: make(map[string]int),
	}
}

// StatsDiff is the per-category disk-minus-index delta. Positive values
// mean under-indexed files; negative values mean the index holds entries
// no longer present on disk. The diff is a point-in-time approximation:
// the disk scan and index aggregation are independent reads.
type StatsDiff struct {
	TotalMissing    int            `json:"total_missing"`
	ByLevel1Missing map[string]int `json:"by_level1_missing"`
	ByLevel2Missing map[string]int `json:"by_level2_missing"`
}

// StatsReport is the full reconciliation output.
type StatsReport struct {
	DocRoot string      `json:"doc_root"`
	Disk    *DiskStats  `json:"disk"`
	Index   *IndexStats `json:"index"`
	Diff    *StatsDiff  `json:"diff"`
}

// IngestReport summarizes one batch ingestion pass.
type IngestReport struct {
	Indexed  int           `json:"indexed"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}
