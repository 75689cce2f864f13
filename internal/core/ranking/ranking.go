package ranking

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed data/ranks.yaml
var embeddedRanks []byte

// Provider looks up popularity ranks by target name.
type Provider interface {
	Rank(name string) (int, bool)
}

// Table is a read-only, case-insensitive rank lookup.
type Table struct {
	version string
	ranks   map[string]int
}

type document struct {
	Version string         `yaml:"version"`
	Ranks   map[string]int `yaml:"ranks"`
}

// NewTable builds a table from a name to rank map.
func NewTable(ranks map[string]int) *Table {
	table := &Table{ranks: make(map[string]int, len(ranks))}
	for name, rank := range ranks {
		key := normalize(name)
		if key == "" || rank < 0 {
			continue
		}
		table.ranks[key] = rank
	}
	return table
}

// Default loads the table bundled with the binary.
func Default() (*Table, error) {
	return Load(embeddedRanks)
}

// Open returns the table at path, or the bundled one when path is empty.
func Open(path string) (*Table, error) {
	if strings.TrimSpace(path) == "" {
		return Default()
	}
	data, err := os.ReadFile(path) // #nosec G304 -- operator supplied ranking path
	if err != nil {
		return nil, fmt.Errorf("read ranking %s: %w", path, err)
	}
	return Load(data)
}

// Load decodes a YAML ranking document.
func Load(data []byte) (*Table, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode ranking: %w", err)
	}
	table := NewTable(doc.Ranks)
	table.version = strings.TrimSpace(doc.Version)
	return table, nil
}

// Rank returns the rank for name and whether it is known.
func (t *Table) Rank(name string) (int, bool) {
	if t == nil {
		return 0, false
	}
	rank, ok := t.ranks[normalize(name)]
	return rank, ok
}

// Version returns the ranking data version.
func (t *Table) Version() string {
	if t == nil {
		return ""
	}
	return t.version
}

// Len returns the number of ranked names.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.ranks)
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
