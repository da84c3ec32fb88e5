// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/goccy/go-yaml"
	"go.uber.org/zap"
)

// Source is one raw definition document.
type Source struct {
	// Content is the raw document content. YAML and JSON are both accepted.
	Content []byte
	Format  string
	ID      string
}

// ReadSource reads a definition document from disk.
func ReadSource(path string) (Source, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read definition %q: %w", path, err)
	}
	format := "yaml"
	if strings.HasSuffix(strings.ToLower(path), ".json") {
		format = "json"
	}
	return Source{Content: content, Format: format, ID: path}, nil
}

// Glob expands a file pattern, including "**", into a sorted list of paths.
func Glob(pattern string) ([]string, error) {
	matches, err := doublestar.FilepathGlob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid entity file pattern %q: %w", pattern, err)
	}
	sort.Strings(matches)
	return matches, nil
}

// Loader turns definition sources into a single merged Definition.
type Loader struct {
	validator *Validator
	logger    *zap.Logger
}

// NewLoader creates a Loader. validator may be nil to skip schema checks.
func NewLoader(validator *Validator, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{validator: validator, logger: logger}
}

// Parse decodes one source, keeping the order of its top-level entities.
func (l *Loader) Parse(source Source) (*Definition, error) {
	var generic any
	if err := yaml.Unmarshal(source.Content, &generic); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition %q: %w", source.ID, err)
	}
	doc, ok := asStringMap(generic)
	if !ok {
		return nil, fmt.Errorf("%s: %w", source.ID, ErrNotMapping)
	}
	if l.validator != nil {
		if err := l.validator.Validate(source.ID, doc); err != nil {
			return nil, err
		}
	}

	var ordered yaml.MapSlice
	if err := yaml.Unmarshal(source.Content, &ordered); err != nil {
		return nil, fmt.Errorf("failed to unmarshal definition %q: %w", source.ID, err)
	}
	return decodeDefinition(ordered)
}

// Load parses and merges sources in order. Sources that are not mappings
// are skipped with a warning; duplicate entity names across sources fail.
func (l *Loader) Load(sources ...Source) (*Definition, error) {
	merged := NewDefinition()
	for _, src := range sources {
		l.logger.Debug("reading definition", zap.String("source", src.ID))
		def, err := l.Parse(src)
		if errors.Is(err, ErrNotMapping) {
			l.logger.Warn("invalid definition format: must be a mapping", zap.String("source", src.ID))
			continue
		}
		if err != nil {
			return nil, err
		}
		if err := merged.Merge(def); err != nil {
			return nil, fmt.Errorf("%s: %w", src.ID, err)
		}
		l.logger.Info("processed definition", zap.String("source", src.ID), zap.Int("entities", def.Len()))
	}
	return merged, nil
}

// LoadFiles expands pattern and loads every matching file.
func (l *Loader) LoadFiles(pattern string) (*Definition, error) {
	paths, err := Glob(pattern)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(paths))
	for _, p := range paths {
		src, err := ReadSource(p)
		if err != nil {
			return nil, err
		}
		sources = append(sources, src)
	}
	return l.Load(sources...)
}
