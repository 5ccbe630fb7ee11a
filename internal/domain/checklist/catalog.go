package checklist

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the ordered category -> item-labels mapping describing the
// physical readiness of a post (tents, supplies, communications, power).
// It is supplied by an external configuration component and read-only here.
type Catalog struct {
	Categories []Category `yaml:"categories" json:"categories"`
}

type Category struct {
	Name  string   `yaml:"name" json:"name"`
	Items []string `yaml:"items" json:"items"`
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read checklist catalog %s: %w", path, err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("parse checklist catalog %s: %w", path, err)
	}
	return &cat, nil
}

// TotalItems returns the number of items across all categories.
func (c *Catalog) TotalItems() int {
	n := 0
	for _, cat := range c.Categories {
		n += len(cat.Items)
	}
	return n
}

// CategoryItems returns the ordered item labels of one category, or nil if
// the category is unknown.
func (c *Catalog) CategoryItems(name string) []string {
	for _, cat := range c.Categories {
		if cat.Name == name {
			return cat.Items
		}
	}
	return nil
}

// HasItem reports whether label appears in any category.
func (c *Catalog) HasItem(label string) bool {
	for _, cat := range c.Categories {
		for _, it := range cat.Items {
			if it == label {
				return true
			}
		}
	}
	return false
}
