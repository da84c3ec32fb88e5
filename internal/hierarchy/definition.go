// SPDX-License-Identifier: Apache-2.0

// Package hierarchy reads nested entity definitions and compiles them into
// the flat keyword tables used for extraction.
//
// A definition maps an entity name to a list of value groups:
//
//	product:
//	  - value: mobile
//	    examples:
//	      - text: handy
//	        alternatives: [hendy]
//	      - ref: smartphone
//	      - composite: "{brand} phone"
//	  - _NO_ENTITY_
package hierarchy

import (
	"fmt"
	"strconv"

	"github.com/goccy/go-yaml"
)

// Keys of the definition format.
const (
	KeyValue        = "value"
	KeyExamples     = "examples"
	KeyText         = "text"
	KeyAlternatives = "alternatives"
	KeyRef          = "ref"
	KeyComposite    = "composite"

	// NoEntityMarker in an entity's group list registers that entity's
	// texts for matching without binding them to the entity.
	NoEntityMarker = "_NO_ENTITY_"
)

// Example is one example specifier. Any combination of Text, Ref and
// Composite may be set; each one present is processed.
type Example struct {
	Text         string
	Alternatives []string
	Ref          string
	Composite    string
}

// Group is one value group of an entity.
type Group struct {
	Value    any
	HasValue bool
	Examples []Example
}

// Entity is a named entry of a definition.
type Entity struct {
	Name       string
	Suppressed bool
	Groups     []Group
}

// Definition is an ordered set of entities.
type Definition struct {
	names    []string
	entities map[string]*Entity
}

// NewDefinition returns an empty definition.
func NewDefinition() *Definition {
	return &Definition{entities: make(map[string]*Entity)}
}

// Add appends an entity. Adding a name twice is an error.
func (d *Definition) Add(e Entity) error {
	if _, exists := d.entities[e.Name]; exists {
		return definitionErrorf(ErrDuplicateEntity, e.Name, "entity is defined more than once")
	}
	d.names = append(d.names, e.Name)
	d.entities[e.Name] = &e
	return nil
}

// Merge adds all entities of other, in order. It fails on the first name
// already present in d.
func (d *Definition) Merge(other *Definition) error {
	var dups []string
	for _, name := range other.names {
		if _, exists := d.entities[name]; exists {
			dups = append(dups, name)
		}
	}
	if len(dups) > 0 {
		return &DefinitionError{Kind: ErrDuplicateEntity, Msg: fmt.Sprintf("duplicate key(s) %v", dups)}
	}
	for _, name := range other.names {
		_ = d.Add(*other.entities[name])
	}
	return nil
}

// Names returns entity names in definition order.
func (d *Definition) Names() []string {
	return append([]string(nil), d.names...)
}

// Lookup returns the entity with the given name.
func (d *Definition) Lookup(name string) (*Entity, bool) {
	e, ok := d.entities[name]
	return e, ok
}

// Len returns the number of entities.
func (d *Definition) Len() int {
	return len(d.names)
}

// decodeDefinition converts an ordered top-level mapping into a Definition.
func decodeDefinition(doc yaml.MapSlice) (*Definition, error) {
	def := NewDefinition()
	for _, item := range doc {
		name, ok := item.Key.(string)
		if !ok {
			return nil, definitionErrorf(ErrInvalidDefinition, "", "entity name %v is not a string", item.Key)
		}
		ent, err := decodeEntity(name, item.Value)
		if err != nil {
			return nil, err
		}
		if err := def.Add(ent); err != nil {
			return nil, err
		}
	}
	return def, nil
}

func decodeEntity(name string, raw any) (Entity, error) {
	ent := Entity{Name: name}
	if raw == nil {
		return ent, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return ent, definitionErrorf(ErrInvalidDefinition, name, "value groups must be a list, got %T", raw)
	}
	for i, elem := range list {
		if s, ok := elem.(string); ok {
			if s != NoEntityMarker {
				return ent, definitionErrorf(ErrInvalidDefinition, name, "group %d: unexpected string %q", i, s)
			}
			ent.Suppressed = true
			continue
		}
		m, ok := asStringMap(elem)
		if !ok {
			return ent, definitionErrorf(ErrInvalidDefinition, name, "group %d must be a mapping, got %T", i, elem)
		}
		g, err := decodeGroup(name, i, m)
		if err != nil {
			return ent, err
		}
		ent.Groups = append(ent.Groups, g)
	}
	return ent, nil
}

func decodeGroup(entity string, idx int, m map[string]any) (Group, error) {
	var g Group
	if v, ok := m[KeyValue]; ok && v != nil {
		g.Value, g.HasValue = v, true
	}
	raw, ok := m[KeyExamples]
	if !ok || raw == nil {
		return g, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return g, definitionErrorf(ErrInvalidDefinition, entity, "group %d: examples must be a list", idx)
	}
	for j, elem := range list {
		em, ok := asStringMap(elem)
		if !ok {
			return g, definitionErrorf(ErrInvalidDefinition, entity, "group %d example %d must be a mapping", idx, j)
		}
		ex := Example{
			Text:      scalarString(em[KeyText]),
			Ref:       scalarString(em[KeyRef]),
			Composite: scalarString(em[KeyComposite]),
		}
		if alts, ok := em[KeyAlternatives].([]any); ok {
			for _, a := range alts {
				if s := scalarString(a); s != "" {
					ex.Alternatives = append(ex.Alternatives, s)
				}
			}
		}
		g.Examples = append(g.Examples, ex)
	}
	return g, nil
}

func asStringMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	case yaml.MapSlice:
		out := make(map[string]any, len(m))
		for _, item := range m {
			out[fmt.Sprint(item.Key)] = item.Value
		}
		return out, true
	}
	return nil, false
}

// scalarString renders YAML scalars such as "text: 5" as strings.
func scalarString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return fmt.Sprint(s)
	}
}
