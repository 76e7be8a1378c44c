package classifier

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/impensa/internal/common"
	"github.com/ternarybob/impensa/internal/models"
)

func testConfig(root string) *common.Config {
	config := common.NewDefaultConfig()
	config.Documents.Root = root
	return config
}

func writeFile(t *testing.T, root string, parts ...string) string {
	t.Helper()
	path := filepath.Join(append([]string{root}, parts...)...)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("report bytes"), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func collectRefs(t *testing.T, svc *Service) []*models.FileRef {
	t.Helper()
	var refs []*models.FileRef
	err := svc.Walk(context.Background(), func(ref *models.FileRef) error {
		refs = append(refs, ref)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error: %v", err)
	}
	return refs
}

func TestWalkClassifiesByPathPosition(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024", "Mars", "note.pdf")
	writeFile(t, root, "2024", "Avril", "sub", "deep.xlsx")

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want 2", len(refs))
	}

	byName := map[string]*models.FileRef{}
	for _, ref := range refs {
		byName[ref.FileName] = ref
	}

	note := byName["note.pdf"]
	if note == nil || note.Level1 != "2024" || note.Level2 != "Mars" {
		t.Errorf("note.pdf classification = %+v, want 2024/Mars", note)
	}
	if note.Ext != "pdf" {
		t.Errorf("note.pdf ext = %q, want \"pdf\"", note.Ext)
	}
	if note.RelativeSubpath != "" {
		t.Errorf("note.pdf relative subpath = %q, want empty", note.RelativeSubpath)
	}

	deep := byName["deep.xlsx"]
	if deep == nil || deep.Level1 != "2024" || deep.Level2 != "Avril" {
		t.Errorf("deep.xlsx classification = %+v, want 2024/Avril", deep)
	}
	if deep.RelativeSubpath != "sub" {
		t.Errorf("deep.xlsx relative subpath = %q, want \"sub\"", deep.RelativeSubpath)
	}
}

func TestWalkSkipsShallowFiles(t *testing.T) {
	root := t.TempDir()
	// Depth 1 and 2: directly under root, and directly under a level1 dir
	writeFile(t, root, "orphan.pdf")
	writeFile(t, root, "2024", "toplevel.pdf")
	writeFile(t, root, "2024", "Mars", "valid.pdf")

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 1 || refs[0].FileName != "valid.pdf" {
		t.Fatalf("refs = %+v, want only valid.pdf", refs)
	}
}

func TestWalkSkipsHiddenAndLockEntries(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024", "Mars", ".hidden.pdf")
	writeFile(t, root, "2024", "Mars", "~$lock.xlsx")
	writeFile(t, root, "2024", ".archive", "inside.pdf")
	writeFile(t, root, ".trash", "Mars", "other.pdf")
	writeFile(t, root, "2024", "Mars", ".cache", "nested.pdf")
	writeFile(t, root, "2024", "Mars", "kept.pdf")

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 1 || refs[0].FileName != "kept.pdf" {
		t.Fatalf("refs = %+v, want only kept.pdf", refs)
	}
}

func TestWalkSkipsDisallowedExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024", "Mars", "notes.txt")
	writeFile(t, root, "2024", "Mars", "photo.jpg")
	writeFile(t, root, "2024", "Mars", "report.PDF") // uppercase extension allowed

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 1 || refs[0].FileName != "report.PDF" {
		t.Fatalf("refs = %+v, want only report.PDF", refs)
	}
	if refs[0].Ext != "pdf" {
		t.Errorf("ext = %q, want lowercased \"pdf\"", refs[0].Ext)
	}
}

func TestWalkPrunesFilteredCategories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2023", "Mars", "old.pdf")
	writeFile(t, root, "2024", "Mars", "kept.pdf")
	writeFile(t, root, "2024", "Avril", "skipped.pdf")

	config := testConfig(root)
	config.Documents.Level1 = []string{"2024"}
	config.Documents.Level2 = []string{"Mars"}

	svc := NewService(config, arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 1 || refs[0].FileName != "kept.pdf" {
		t.Fatalf("refs = %+v, want only kept.pdf", refs)
	}
}

func TestWalkHonorsDocumentCap(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"a.pdf", "b.pdf", "c.pdf", "d.pdf"} {
		writeFile(t, root, "2024", "Mars", name)
	}

	config := testConfig(root)
	config.Documents.MaxDocuments = 2

	svc := NewService(config, arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)

	if len(refs) != 2 {
		t.Fatalf("got %d refs, want cap of 2", len(refs))
	}
}

func TestWalkMissingRoot(t *testing.T) {
	svc := NewService(testConfig(filepath.Join(t.TempDir(), "absent")), arbor.NewLogger()).(*Service)
	refs := collectRefs(t, svc)
	if len(refs) != 0 {
		t.Fatalf("refs = %+v, want none for missing root", refs)
	}
}

func TestClassifySinglePath(t *testing.T) {
	root := t.TempDir()
	valid := writeFile(t, root, "2024", "Mars", "note.pdf")
	nested := writeFile(t, root, "2024", "Mars", "sub", "deep.pdf")
	shallow := writeFile(t, root, "2024", "toplevel.pdf")
	wrongExt := writeFile(t, root, "2024", "Mars", "notes.txt")
	lock := writeFile(t, root, "2024", "Mars", "~$note.xlsx")
	outside := filepath.Join(t.TempDir(), "elsewhere.pdf")
	if err := os.WriteFile(outside, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)

	ref, ok := svc.Classify(valid)
	if !ok {
		t.Fatal("valid file should classify")
	}
	if ref.Level1 != "2024" || ref.Level2 != "Mars" || ref.Ext != "pdf" {
		t.Errorf("ref = %+v", ref)
	}

	ref, ok = svc.Classify(nested)
	if !ok || ref.RelativeSubpath != "sub" {
		t.Errorf("nested ref = %+v ok=%v, want subpath \"sub\"", ref, ok)
	}

	for name, path := range map[string]string{
		"shallow":   shallow,
		"wrong ext": wrongExt,
		"lock file": lock,
		"outside":   outside,
		"directory": filepath.Join(root, "2024", "Mars"),
		"missing":   filepath.Join(root, "2024", "Mars", "ghost.pdf"),
	} {
		if _, ok := svc.Classify(path); ok {
			t.Errorf("%s (%s) should not classify", name, path)
		}
	}
}

func TestClassifyRespectsFilters(t *testing.T) {
	root := t.TempDir()
	kept := writeFile(t, root, "2024", "Mars", "kept.pdf")
	filtered := writeFile(t, root, "2023", "Mars", "old.pdf")

	config := testConfig(root)
	config.Documents.Level1 = []string{"2024"}

	svc := NewService(config, arbor.NewLogger()).(*Service)

	if _, ok := svc.Classify(kept); !ok {
		t.Error("kept.pdf should classify")
	}
	if _, ok := svc.Classify(filtered); ok {
		t.Error("old.pdf in filtered level1 should not classify")
	}
}

func TestDiskStats(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2024", "Mars", "a.pdf")
	writeFile(t, root, "2024", "Mars", "b.pdf")
	writeFile(t, root, "2024", "Avril", "c.pdf")
	writeFile(t, root, "2023", "Mars", "d.pdf")
	writeFile(t, root, "2024", "Mars", ".hidden.pdf")
	writeFile(t, root, "2024", "Mars", "notes.txt")

	svc := NewService(testConfig(root), arbor.NewLogger()).(*Service)
	stats := svc.DiskStats(context.Background())

	if stats.Total != 4 {
		t.Errorf("total = %d, want 4", stats.Total)
	}
	if stats.ByLevel1["2024"] != 3 || stats.ByLevel1["2023"] != 1 {
		t.Errorf("by_level1 = %v", stats.ByLevel1)
	}
	// Same level2 name under different level1 dirs accumulates
	if stats.ByLevel2["Mars"] != 3 || stats.ByLevel2["Avril"] != 1 {
		t.Errorf("by_level2 = %v", stats.ByLevel2)
	}
	if stats.ByLevel1Level2["2024"]["Mars"] != 2 {
		t.Errorf("by_level1_level2 = %v", stats.ByLevel1Level2)
	}
}

func TestDiskStatsIgnoresFiltersAndCap(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "2023", "Mars", "a.pdf")
	writeFile(t, root, "2024", "Mars", "b.pdf")

	config := testConfig(root)
	config.Documents.Level1 = []string{"2024"}
	config.Documents.MaxDocuments = 1

	svc := NewService(config, arbor.NewLogger()).(*Service)
	stats := svc.DiskStats(context.Background())

	if stats.Total != 2 {
		t.Errorf("total = %d, want 2 (stats scan the whole tree)", stats.Total)
	}
}

func TestDiskStatsMissingRoot(t *testing.T) {
	svc := NewService(testConfig(filepath.Join(t.TempDir(), "absent")), arbor.NewLogger()).(*Service)
	stats := svc.DiskStats(context.Background())

	if stats.Total != 0 || len(stats.ByLevel1) != 0 || len(stats.ByLevel2) != 0 {
		t.Errorf("stats = %+v, want empty", stats)
	}
}
