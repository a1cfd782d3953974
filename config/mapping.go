package config

import (
	_ "embed"
	"fmt"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed import_map.yaml
var defaultMappingYAML []byte

// MappingEntry maps one archive file to its canonical location
type MappingEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

// Mapping is the ordered import table
type Mapping struct {
	Entries []MappingEntry `yaml:"entries"`
}

// DuplicateDestination lists every source that targets the same destination.
// The last source in the list is the one that ends up on disk.
type DuplicateDestination struct {
	To      string
	Sources []string
}

// DefaultMapping returns the embedded import table
func DefaultMapping() (*Mapping, error) {
	return ParseMapping(defaultMappingYAML)
}

// LoadMapping reads an import table from a YAML file
func LoadMapping(filePath string) (*Mapping, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read mapping file: %w", err)
	}
	return ParseMapping(data)
}

// ParseMapping decodes and validates an import table
func ParseMapping(data []byte) (*Mapping, error) {
	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse mapping: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mapping: %w", err)
	}
	return &m, nil
}

// Validate rejects entries that cannot be copied safely
func (m *Mapping) Validate() error {
	for i, e := range m.Entries {
		if strings.TrimSpace(e.From) == "" || strings.TrimSpace(e.To) == "" {
			return fmt.Errorf("entry %d: from and to are required", i+1)
		}
		for _, p := range []string{e.From, e.To} {
			if escapesRoot(p) {
				return fmt.Errorf("entry %d: path %q must stay inside its root", i+1, p)
			}
		}
	}
	return nil
}

// Duplicates reports destinations that more than one entry writes to, in
// order of first appearance
func (m *Mapping) Duplicates() []DuplicateDestination {
	sources := make(map[string][]string)
	var order []string
	for _, e := range m.Entries {
		key := path.Clean(e.To)
		if _, seen := sources[key]; !seen {
			order = append(order, key)
		}
		sources[key] = append(sources[key], e.From)
	}

	var dups []DuplicateDestination
	for _, key := range order {
		if len(sources[key]) > 1 {
			dups = append(dups, DuplicateDestination{To: key, Sources: sources[key]})
		}
	}
	return dups
}

func escapesRoot(p string) bool {
	p = strings.ReplaceAll(p, "\\", "/")
	if strings.HasPrefix(p, "/") {
		return true
	}
	clean := path.Clean(p)
	return clean == ".." || strings.HasPrefix(clean, "../")
}
