// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Tables is the compiled form of a Definition.
//
// Entities maps a keyword to the values it carries per entity name; one
// keyword may belong to several entities. Alternatives maps an alternative
// spelling to the keyword it stands for and never carries entity values
// itself.
type Tables struct {
	Entities     map[string]map[string]any `json:"entities"`
	Alternatives map[string]string         `json:"alternatives"`
}

// NewTables returns empty tables.
func NewTables() *Tables {
	return &Tables{
		Entities:     make(map[string]map[string]any),
		Alternatives: make(map[string]string),
	}
}

// Empty reports whether no keyword was compiled.
func (t *Tables) Empty() bool {
	return t == nil || len(t.Entities) == 0
}

// Values returns the per-entity values of a keyword.
func (t *Tables) Values(keyword string) (map[string]any, bool) {
	v, ok := t.Entities[keyword]
	return v, ok
}

// register ensures keyword exists and, when entity is not empty, binds it.
func (t *Tables) register(keyword, entity string, value any) {
	values, ok := t.Entities[keyword]
	if !ok {
		values = make(map[string]any)
		t.Entities[keyword] = values
	}
	if entity != "" {
		values[entity] = value
	}
}

func (t *Tables) alternative(spelling, keyword string) {
	t.Alternatives[spelling] = keyword
}

// Save writes the tables as JSON.
func (t *Tables) Save(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal entity tables: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write entity tables %q: %w", path, err)
	}
	return nil
}

// LoadTables reads tables written by Save. A missing file yields empty
// tables.
func LoadTables(path string) (*Tables, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return NewTables(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read entity tables %q: %w", path, err)
	}
	t := NewTables()
	if err := json.Unmarshal(data, t); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entity tables %q: %w", path, err)
	}
	if t.Entities == nil {
		t.Entities = make(map[string]map[string]any)
	}
	if t.Alternatives == nil {
		t.Alternatives = make(map[string]string)
	}
	return t, nil
}
