// SPDX-License-Identifier: Apache-2.0

package hierarchy

import (
	"regexp"
	"slices"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultMaxDepth      = 32
	DefaultMaxExpansions = 10000
)

var placeholderPattern = regexp.MustCompile(`\{(.*?)\}`)

// CompilerOptions bounds the work done for a single definition.
type CompilerOptions struct {
	// MaxDepth is the longest reference or placeholder chain followed from a
	// top-level entity.
	MaxDepth int
	// MaxExpansions is the largest number of strings a single composite
	// template may expand into.
	MaxExpansions int
	// NormalizeUnicode stores keywords in NFC form.
	NormalizeUnicode bool
}

// DefaultCompilerOptions returns the default limits.
func DefaultCompilerOptions() CompilerOptions {
	return CompilerOptions{MaxDepth: DefaultMaxDepth, MaxExpansions: DefaultMaxExpansions}
}

// Compiler flattens a Definition into Tables.
type Compiler struct {
	opts   CompilerOptions
	logger *zap.Logger
}

// NewCompiler creates a Compiler. Zero limits fall back to the defaults.
func NewCompiler(opts CompilerOptions, logger *zap.Logger) *Compiler {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxExpansions <= 0 {
		opts.MaxExpansions = DefaultMaxExpansions
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Compiler{opts: opts, logger: logger}
}

// Compile walks every entity in definition order. Any definition error
// aborts compilation.
func (c *Compiler) Compile(def *Definition) (*Tables, error) {
	run := &compilation{def: def, opts: c.opts, tables: NewTables()}
	for _, name := range def.Names() {
		ent, _ := def.Lookup(name)
		target := name
		if ent.Suppressed {
			target = ""
		}
		run.path = []string{name}
		if err := run.parseEntity(target, ent, inherited{}); err != nil {
			return nil, err
		}
	}
	c.logger.Debug("compiled entity hierarchy",
		zap.Int("entities", def.Len()),
		zap.Int("keywords", len(run.tables.Entities)),
		zap.Int("alternatives", len(run.tables.Alternatives)))
	return run.tables, nil
}

// inherited is the target value handed down through a reference.
type inherited struct {
	value any
	ok    bool
}

type compilation struct {
	def    *Definition
	opts   CompilerOptions
	tables *Tables
	// path holds the reference chain from the current top-level entity.
	path []string
}

// parseEntity registers the examples of ent under target. An empty target
// registers texts without an entity binding.
func (r *compilation) parseEntity(target string, ent *Entity, inh inherited) error {
	for _, g := range ent.Groups {
		value := inh
		if !value.ok && g.HasValue {
			value = inherited{value: g.Value, ok: true}
		}

		for _, ex := range g.Examples {
			if ex.Text != "" {
				r.register(ex.Text, target, value)
				for _, alt := range ex.Alternatives {
					r.tables.alternative(r.normalize(alt), r.normalize(ex.Text))
				}
			}

			if ex.Ref != "" {
				refEnt, err := r.enter(ex.Ref, r.path)
				if err != nil {
					return err
				}
				r.path = append(r.path, ex.Ref)
				err = r.parseEntity(target, refEnt, value)
				r.path = r.path[:len(r.path)-1]
				if err != nil {
					return err
				}
			}

			if ex.Composite != "" {
				words, err := r.expand(ex.Composite, r.path)
				if err != nil {
					return err
				}
				// Composed strings take the sibling text as value when
				// nothing else is bound.
				composed := value
				if !composed.ok && ex.Text != "" {
					composed = inherited{value: r.normalize(ex.Text), ok: true}
				}
				for _, w := range words {
					r.register(w, target, composed)
				}
			}
		}
	}
	return nil
}

func (r *compilation) register(text, target string, value inherited) {
	text = r.normalize(text)
	v := any(text)
	if value.ok {
		v = value.value
	}
	r.tables.register(text, target, v)
}

func (r *compilation) normalize(s string) string {
	if r.opts.NormalizeUnicode {
		return norm.NFC.String(s)
	}
	return s
}

// enter resolves the entity named by a reference or placeholder reached
// from path, rejecting unknown names, cycles and chains that are too deep.
func (r *compilation) enter(name string, path []string) (*Entity, error) {
	ent, ok := r.def.Lookup(name)
	if !ok {
		return nil, definitionErrorf(ErrUnknownEntity, path[len(path)-1], "%q is not defined", name)
	}
	if slices.Contains(path, name) {
		return nil, cycleError(name, path)
	}
	if len(path) >= r.opts.MaxDepth {
		return nil, definitionErrorf(ErrDepthExceeded, path[0], "more than %d levels below %q", r.opts.MaxDepth, path[0])
	}
	return ent, nil
}

// expand substitutes every combination of harvested texts into template.
func (r *compilation) expand(template string, path []string) ([]string, error) {
	var dims []Dimension[string]
	for _, m := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := m[1]
		if slices.ContainsFunc(dims, func(d Dimension[string]) bool { return d.Key == name }) {
			continue
		}
		texts, err := r.harvest(name, path)
		if err != nil {
			return nil, err
		}
		dims = append(dims, Dimension[string]{Key: name, Values: texts})
	}

	if size := ProductSize(dims); size > r.opts.MaxExpansions {
		return nil, definitionErrorf(ErrExpansionLimit, path[0], "%q expands to %d strings, limit is %d", template, size, r.opts.MaxExpansions)
	}

	combos := Product(dims)
	out := make([]string, 0, len(combos))
	for _, combo := range combos {
		out = append(out, placeholderPattern.ReplaceAllStringFunc(template, func(ph string) string {
			return combo[ph[1:len(ph)-1]]
		}))
	}
	return out, nil
}

// harvest collects the raw texts below an entity: texts, alternatives, and
// recursively the texts of references and composites. Values, bindings and
// suppression are ignored.
func (r *compilation) harvest(name string, path []string) ([]string, error) {
	ent, err := r.enter(name, path)
	if err != nil {
		return nil, err
	}
	path = append(slices.Clip(path), name)

	var out []string
	for _, g := range ent.Groups {
		for _, ex := range g.Examples {
			if ex.Text != "" {
				out = append(out, ex.Text)
				out = append(out, ex.Alternatives...)
			}
			if ex.Ref != "" {
				texts, err := r.harvest(ex.Ref, path)
				if err != nil {
					return nil, err
				}
				out = append(out, texts...)
			}
			if ex.Composite != "" {
				texts, err := r.expand(ex.Composite, path)
				if err != nil {
					return nil, err
				}
				out = append(out, texts...)
			}
		}
	}
	return out, nil
}
