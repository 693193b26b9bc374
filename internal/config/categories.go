package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultCategories is the set offered when no categories file is configured.
func DefaultCategories() []string {
	return []string{"food", "transport", "shopping", "entertainment", "other"}
}

type categoriesFile struct {
	Categories []string `yaml:"categories"`
}

// LoadCategories reads the closed set of categories shown to the user. The file
// holds either a top-level list or a "categories:" key. Order is kept; blanks and
// duplicates are dropped.
func LoadCategories(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read categories file: %w", err)
	}
	return ParseCategories(data)
}

func ParseCategories(data []byte) ([]string, error) {
	var list []string
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&list); err != nil {
		var doc categoriesFile
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse categories: %w", err)
		}
		list = doc.Categories
	}
	out := dedupe(list)
	if len(out) == 0 {
		return nil, fmt.Errorf("parse categories: no categories defined")
	}
	return out, nil
}

// ApplyCategoriesFile replaces the defaults when CATEGORIES_FILE is set.
func (c *Config) ApplyCategoriesFile() error {
	if c.CategoriesFile == "" {
		return nil
	}
	cats, err := LoadCategories(c.CategoriesFile)
	if err != nil {
		return err
	}
	c.Categories = cats
	return nil
}

func dedupe(in []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
