// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/hierarchy"
)

// Options configures the EntityHierarchy component.
type Options struct {
	// EntityFile is a file name or doublestar pattern of definition files.
	EntityFile string
	Compiler   hierarchy.CompilerOptions
	Extraction extraction.Options
}

// Meta is what Persist returns and Load consumes. File is empty when
// nothing was written.
type Meta struct {
	File string `json:"file,omitempty"`
}

// EntityHierarchy compiles entity hierarchy definitions and annotates
// messages with the entities found in their text.
type EntityHierarchy struct {
	opts      Options
	logger    *zap.Logger
	extractor *extraction.Extractor
}

// NewEntityHierarchy creates a component that matches nothing until it is
// trained or loaded.
func NewEntityHierarchy(opts Options, logger *zap.Logger) (*EntityHierarchy, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &EntityHierarchy{opts: opts, logger: logger}
	if err := c.use(hierarchy.NewTables()); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *EntityHierarchy) Name() string {
	return "entity_hierarchy"
}

// Train loads and compiles the configured definition files. Without an
// entity file the component stays empty.
func (c *EntityHierarchy) Train() error {
	if c.opts.EntityFile == "" {
		c.logger.Warn("entity hierarchy has no entity file configured, nothing to compile")
		return c.use(hierarchy.NewTables())
	}

	tables, err := Compile(c.opts.EntityFile, c.opts.Compiler, c.logger)
	if err != nil {
		return err
	}
	return c.use(tables)
}

// Process merges the entities found in msg.Text into msg.Entities.
func (c *EntityHierarchy) Process(msg *extraction.Message) error {
	msg.Entities = c.extractor.ExtractAndMerge(msg.Text, msg.Entities)
	return nil
}

// Persist writes the compiled tables to dir as <name>.json. Nothing is
// written for empty tables.
func (c *EntityHierarchy) Persist(dir, name string) (Meta, error) {
	tables := c.extractor.Tables()
	if tables.Empty() {
		return Meta{}, nil
	}
	file := name + ".json"
	if err := tables.Save(filepath.Join(dir, file)); err != nil {
		return Meta{}, err
	}
	return Meta{File: file}, nil
}

// Load restores a component persisted to dir. A meta without a file or a
// missing tables file yields an empty component.
func Load(meta Meta, dir string, opts Options, logger *zap.Logger) (*EntityHierarchy, error) {
	c, err := NewEntityHierarchy(opts, logger)
	if err != nil {
		return nil, err
	}
	if meta.File == "" {
		return c, nil
	}
	path := filepath.Join(dir, meta.File)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		c.logger.Warn("persisted entity tables not found", zap.String("path", path))
		return c, nil
	}
	tables, err := hierarchy.LoadTables(path)
	if err != nil {
		return nil, err
	}
	if err := c.use(tables); err != nil {
		return nil, err
	}
	return c, nil
}

// Extractor returns the current extractor.
func (c *EntityHierarchy) Extractor() *extraction.Extractor {
	return c.extractor
}

func (c *EntityHierarchy) use(tables *hierarchy.Tables) error {
	ex, err := extraction.New(tables, c.opts.Extraction, c.logger)
	if err != nil {
		return err
	}
	c.extractor = ex
	return nil
}

// Compile loads every definition file matching pattern and compiles the
// merged definition.
func Compile(pattern string, opts hierarchy.CompilerOptions, logger *zap.Logger) (*hierarchy.Tables, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	validator, err := hierarchy.NewValidator()
	if err != nil {
		return nil, err
	}
	def, err := hierarchy.NewLoader(validator, logger).LoadFiles(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to load entity hierarchy %q: %w", pattern, err)
	}
	tables, err := hierarchy.NewCompiler(opts, logger).Compile(def)
	if err != nil {
		return nil, fmt.Errorf("failed to compile entity hierarchy %q: %w", pattern, err)
	}
	if tables.Empty() {
		logger.Warn("entity hierarchy compiled to no keywords", zap.String("pattern", pattern))
	}
	return tables, nil
}
