package checklist

import (
	"os"
	"path/filepath"
	"testing"
)

func writeCatalogFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "checklist.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write catalog fixture: %v", err)
	}
	return path
}

func TestLoadCatalog(t *testing.T) {
	path := writeCatalogFile(t, `
categories:
  - name: Shelter
    items:
      - Tent pitched
      - Stretchers set up
  - name: Communications
    items:
      - Radio check done
`)

	cat, err := LoadCatalog(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cat.Categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(cat.Categories))
	}
	if cat.Categories[0].Name != "Shelter" {
		t.Errorf("expected Shelter first, got %s", cat.Categories[0].Name)
	}
	if cat.TotalItems() != 3 {
		t.Errorf("expected 3 items, got %d", cat.TotalItems())
	}
}

func TestLoadCatalog_MissingFile(t *testing.T) {
	if _, err := LoadCatalog(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadCatalog_InvalidYAML(t *testing.T) {
	path := writeCatalogFile(t, "categories: [unterminated")
	if _, err := LoadCatalog(path); err == nil {
		t.Fatal("expected error for malformed yaml")
	}
}

func TestCatalogLookups(t *testing.T) {
	cat := testCatalog()

	if !cat.HasItem("Oxygen checked") {
		t.Error("expected item to be found")
	}
	if cat.HasItem("Kitchen sink") {
		t.Error("expected unknown item to be absent")
	}

	items := cat.CategoryItems("Shelter")
	if len(items) != 2 || items[0] != "Tent pitched" {
		t.Errorf("unexpected Shelter items: %v", items)
	}
	if cat.CategoryItems("Nope") != nil {
		t.Error("expected nil for unknown category")
	}
}
