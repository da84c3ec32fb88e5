// SPDX-License-Identifier: Apache-2.0

package hierarchy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/entity-hierarchy/internal/hierarchy"
)

// compileYAML parses, validates and compiles a single definition document.
func compileYAML(t *testing.T, doc string) *hierarchy.Tables {
	t.Helper()
	tables, err := tryCompileYAML(t, doc, hierarchy.DefaultCompilerOptions())
	require.NoError(t, err)
	return tables
}

func tryCompileYAML(t *testing.T, doc string, opts hierarchy.CompilerOptions) (*hierarchy.Tables, error) {
	t.Helper()
	validator, err := hierarchy.NewValidator()
	require.NoError(t, err)
	def, err := hierarchy.NewLoader(validator, nil).Load(hierarchy.Source{Content: []byte(doc), ID: "test.yml"})
	if err != nil {
		return nil, err
	}
	return hierarchy.NewCompiler(opts, nil).Compile(def)
}

// ---------------------------------------------------------------------------
// Product
// ---------------------------------------------------------------------------

func TestProduct_Order(t *testing.T) {
	dims := []hierarchy.Dimension[int]{
		{Key: "a", Values: []int{1, 2}},
		{Key: "b", Values: []int{3, 4}},
	}
	got := hierarchy.Product(dims)
	assert.Equal(t, []map[string]int{
		{"a": 1, "b": 3},
		{"a": 1, "b": 4},
		{"a": 2, "b": 3},
		{"a": 2, "b": 4},
	}, got)
}

func TestProduct_ScalarsAndSize(t *testing.T) {
	keys := []string{"a", "b", "c", "d"}
	dims := hierarchy.Dimensions(keys, map[string]any{
		"a": []any{1},
		"b": 5,
		"c": []any{3, 6},
		"d": []any{1, 2, 3, 4},
	})
	got := hierarchy.Product(dims)
	require.Len(t, got, 8)
	assert.Equal(t, 8, hierarchy.ProductSize(dims))
	assert.Equal(t, map[string]any{"a": 1, "b": 5, "c": 3, "d": 1}, got[0])
	assert.Equal(t, map[string]any{"a": 1, "b": 5, "c": 6, "d": 4}, got[7])
	for _, combo := range got {
		assert.Len(t, combo, 4)
		assert.Equal(t, 5, combo["b"])
	}
}

func TestProduct_EdgeCases(t *testing.T) {
	assert.Equal(t, []map[string]string{{}}, hierarchy.Product[string](nil))
	assert.Equal(t, 1, hierarchy.ProductSize[string](nil))

	empty := []hierarchy.Dimension[string]{
		hierarchy.Scalar("x", "a"),
		{Key: "y"},
	}
	assert.Empty(t, hierarchy.Product(empty))
	assert.Equal(t, 0, hierarchy.ProductSize(empty))
}

// ---------------------------------------------------------------------------
// Compiler
// ---------------------------------------------------------------------------

func TestCompile_Literals(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want map[string]map[string]any
	}{
		{
			name: "explicit value",
			doc: `
product:
  - value: mobile
    examples:
      - text: foo
`,
			want: map[string]map[string]any{"foo": {"product": "mobile"}},
		},
		{
			name: "value falls back to text",
			doc: `
product:
  - examples:
      - text: foo
`,
			want: map[string]map[string]any{"foo": {"product": "foo"}},
		},
		{
			name: "keyword shared by two entities",
			doc: `
product:
  - value: p
    examples:
      - text: foo
topic:
  - value: true
    examples:
      - text: foo
`,
			want: map[string]map[string]any{"foo": {"product": "p", "topic": true}},
		},
		{
			name: "last write wins for the same entity",
			doc: `
product:
  - value: first
    examples:
      - text: foo
  - value: second
    examples:
      - text: foo
`,
			want: map[string]map[string]any{"foo": {"product": "second"}},
		},
		{
			name: "numeric text is rendered as string",
			doc: `
speed:
  - value: fast
    examples:
      - text: 5
`,
			want: map[string]map[string]any{"5": {"speed": "fast"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tables := compileYAML(t, tt.doc)
			assert.Equal(t, tt.want, tables.Entities)
		})
	}
}

func TestCompile_Alternatives(t *testing.T) {
	tables := compileYAML(t, `
product:
  - value: mobile
    examples:
      - text: foo
        alternatives: [fuu, fooo]
`)
	assert.Equal(t, map[string]string{"fuu": "foo", "fooo": "foo"}, tables.Alternatives)
	assert.NotContains(t, tables.Entities, "fuu")
	assert.Contains(t, tables.Entities, "foo")
}

func TestCompile_ReferenceFlattening(t *testing.T) {
	tables := compileYAML(t, `
a:
  - value: va
    examples:
      - ref: b
b:
  - examples:
      - text: bar
      - ref: c
c:
  - value: ignored
    examples:
      - text: baz
`)
	assert.Equal(t, map[string]any{"a": "va", "b": "bar"}, tables.Entities["bar"])
	assert.Equal(t, "va", tables.Entities["baz"]["a"])
	// b has no value of its own, so c's explicit value applies when compiling b.
	assert.Equal(t, "ignored", tables.Entities["baz"]["b"])
	assert.Equal(t, "ignored", tables.Entities["baz"]["c"])
}

func TestCompile_ReferenceWithoutValueUsesReferencedGroups(t *testing.T) {
	tables := compileYAML(t, `
a:
  - examples:
      - ref: b
b:
  - value: vb
    examples:
      - text: bar
`)
	assert.Equal(t, "vb", tables.Entities["bar"]["a"])
}

func TestCompile_Composite(t *testing.T) {
	tables := compileYAML(t, `
x:
  - _NO_ENTITY_
  - examples:
      - text: a
      - text: b
product:
  - value: suffixed
    examples:
      - composite: "{x}-suffix"
`)
	assert.Equal(t, map[string]any{"product": "suffixed"}, tables.Entities["a-suffix"])
	assert.Equal(t, map[string]any{"product": "suffixed"}, tables.Entities["b-suffix"])
	assert.Len(t, tables.Entities, 4)
}

func TestCompile_CompositeFallsBackToSiblingText(t *testing.T) {
	tables := compileYAML(t, `
size:
  - examples:
      - text: xl
phone:
  - examples:
      - text: phone
        composite: "phone {size}"
      - composite: "{size} phone"
  - value: bound
    examples:
      - text: tablet
        composite: "tablet {size}"
`)
	assert.Equal(t, map[string]any{"phone": "phone"}, tables.Entities["phone xl"])
	assert.Equal(t, map[string]any{"phone": "xl phone"}, tables.Entities["xl phone"])
	assert.Equal(t, map[string]any{"phone": "bound"}, tables.Entities["tablet xl"])
}

func TestCompile_CompositeHarvestsNestedTexts(t *testing.T) {
	tables := compileYAML(t, `
brand:
  - examples:
      - text: acme
        alternatives: [akme]
      - ref: subbrand
subbrand:
  - examples:
      - composite: "{series} pro"
series:
  - examples:
      - text: s1
size:
  - examples:
      - text: xl
      - text: s
phone:
  - examples:
      - composite: "{brand} {size} {brand}"
`)
	var phones []string
	for kw, values := range tables.Entities {
		if _, ok := values["phone"]; ok {
			phones = append(phones, kw)
		}
	}
	// brand harvests [acme, akme, s1 pro]; size harvests [xl, s].
	assert.ElementsMatch(t, []string{
		"acme xl acme", "acme s acme",
		"akme xl akme", "akme s akme",
		"s1 pro xl s1 pro", "s1 pro s s1 pro",
	}, phones)
	assert.Equal(t, "acme xl acme", tables.Entities["acme xl acme"]["phone"])
}

func TestCompile_CompositeWithoutPlaceholders(t *testing.T) {
	tables := compileYAML(t, `
greeting:
  - value: hi
    examples:
      - composite: "good morning"
`)
	assert.Equal(t, map[string]any{"greeting": "hi"}, tables.Entities["good morning"])
}

func TestCompile_CompositeWithEmptyCandidates(t *testing.T) {
	tables := compileYAML(t, `
empty:
  - examples: []
phone:
  - examples:
      - composite: "{empty} phone"
`)
	assert.Empty(t, tables.Entities)
}

func TestCompile_Suppression(t *testing.T) {
	tables := compileYAML(t, `
helper:
  - _NO_ENTITY_
  - value: ignored
    examples:
      - text: handy
        alternatives: [hendy]
  - examples:
      - text: mobile
product:
  - value: phone
    examples:
      - ref: helper
`)
	assert.Equal(t, map[string]any{"product": "phone"}, tables.Entities["handy"])
	assert.Equal(t, map[string]any{"product": "phone"}, tables.Entities["mobile"])
	assert.Equal(t, "handy", tables.Alternatives["hendy"])
	for _, values := range tables.Entities {
		assert.NotContains(t, values, "helper")
	}
}

func TestCompile_SuppressedTextsStayMatchable(t *testing.T) {
	tables := compileYAML(t, `
stop:
  - _NO_ENTITY_
  - examples:
      - text: not a phone
`)
	require.Contains(t, tables.Entities, "not a phone")
	assert.Empty(t, tables.Entities["not a phone"])
}

func TestCompile_NormalizeUnicode(t *testing.T) {
	opts := hierarchy.DefaultCompilerOptions()
	opts.NormalizeUnicode = true
	// "u" followed by a combining diaeresis.
	tables, err := tryCompileYAML(t, "tarif:\n  - examples:\n      - text: \"gru\u0308n\"\n", opts)
	require.NoError(t, err)
	assert.Contains(t, tables.Entities, "gr\u00fcn")
}

func TestCompile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		opts    hierarchy.CompilerOptions
		wantErr error
	}{
		{
			name:    "unknown reference",
			doc:     "a:\n  - examples:\n      - ref: missing\n",
			wantErr: hierarchy.ErrUnknownEntity,
		},
		{
			name:    "unknown placeholder",
			doc:     "a:\n  - examples:\n      - composite: \"{missing} x\"\n",
			wantErr: hierarchy.ErrUnknownEntity,
		},
		{
			name:    "reference cycle",
			doc:     "a:\n  - examples:\n      - ref: b\nb:\n  - examples:\n      - ref: a\n",
			wantErr: hierarchy.ErrReferenceCycle,
		},
		{
			name:    "composite cycle",
			doc:     "a:\n  - examples:\n      - composite: \"{b}\"\nb:\n  - examples:\n      - composite: \"{a} x\"\n",
			wantErr: hierarchy.ErrReferenceCycle,
		},
		{
			name:    "self reference",
			doc:     "a:\n  - examples:\n      - text: x\n      - ref: a\n",
			wantErr: hierarchy.ErrReferenceCycle,
		},
		{
			name:    "depth limit",
			doc:     "a:\n  - examples:\n      - ref: b\nb:\n  - examples:\n      - ref: c\nc:\n  - examples:\n      - text: x\n",
			opts:    hierarchy.CompilerOptions{MaxDepth: 2},
			wantErr: hierarchy.ErrDepthExceeded,
		},
		{
			name:    "expansion limit",
			doc:     "n:\n  - examples:\n      - text: \"1\"\n      - text: \"2\"\n      - text: \"3\"\nx:\n  - examples:\n      - composite: \"{n}{n}\"\n      - composite: \"{n} and\"\ny:\n  - examples:\n      - composite: \"{n}-{x}\"\n",
			opts:    hierarchy.CompilerOptions{MaxExpansions: 5},
			wantErr: hierarchy.ErrExpansionLimit,
		},
		{
			name:    "schema violation",
			doc:     "a:\n  - examples:\n      - txt: typo\n",
			wantErr: hierarchy.ErrInvalidDefinition,
		},
		{
			name:    "unexpected marker string",
			doc:     "a:\n  - _SOMETHING_\n",
			wantErr: hierarchy.ErrInvalidDefinition,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tryCompileYAML(t, tt.doc, tt.opts)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCompile_DiamondReferencesAreNotCycles(t *testing.T) {
	tables := compileYAML(t, `
top:
  - value: t
    examples:
      - ref: left
      - ref: right
left:
  - examples:
      - ref: leaf
right:
  - examples:
      - ref: leaf
leaf:
  - examples:
      - text: shared
`)
	assert.Equal(t, "t", tables.Entities["shared"]["top"])
}

// ---------------------------------------------------------------------------
// Loader
// ---------------------------------------------------------------------------

func TestLoader_LoadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	writeFile(t, filepath.Join(dir, "a.yml"), "zeta:\n  - examples:\n      - text: z\nalpha:\n  - examples:\n      - text: a\n")
	writeFile(t, filepath.Join(dir, "nested", "b.yml"), "beta:\n  - examples:\n      - text: b\n")
	writeFile(t, filepath.Join(dir, "nested", "list.yml"), "- not\n- a mapping\n")

	def, err := hierarchy.NewLoader(nil, nil).LoadFiles(filepath.Join(dir, "**", "*.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"zeta", "alpha", "beta"}, def.Names())
}

func TestLoader_DuplicateAcrossFiles(t *testing.T) {
	loader := hierarchy.NewLoader(nil, nil)
	_, err := loader.Load(
		hierarchy.Source{Content: []byte("a:\n  - examples:\n      - text: x\n"), ID: "one.yml"},
		hierarchy.Source{Content: []byte("a:\n  - examples:\n      - text: y\n"), ID: "two.yml"},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, hierarchy.ErrDuplicateEntity)
	assert.Contains(t, err.Error(), "two.yml")
}

func TestLoader_AcceptsJSON(t *testing.T) {
	def, err := hierarchy.NewLoader(nil, nil).Load(hierarchy.Source{
		Content: []byte(`{"a": [{"value": 1, "examples": [{"text": "one"}]}]}`),
		Format:  "json",
		ID:      "a.json",
	})
	require.NoError(t, err)
	ent, ok := def.Lookup("a")
	require.True(t, ok)
	require.Len(t, ent.Groups, 1)
	assert.True(t, ent.Groups[0].HasValue)
	assert.Equal(t, "one", ent.Groups[0].Examples[0].Text)
}

func TestLoader_InvalidYAML(t *testing.T) {
	_, err := hierarchy.NewLoader(nil, nil).Load(hierarchy.Source{Content: []byte("a: [unclosed"), ID: "bad.yml"})
	require.Error(t, err)
}

// ---------------------------------------------------------------------------
// Tables persistence
// ---------------------------------------------------------------------------

func TestTables_SaveLoad(t *testing.T) {
	tables := compileYAML(t, `
product:
  - value: mobile
    examples:
      - text: handy
        alternatives: [hendy]
`)
	path := filepath.Join(t.TempDir(), "model.json")
	require.NoError(t, tables.Save(path))

	loaded, err := hierarchy.LoadTables(path)
	require.NoError(t, err)
	assert.Equal(t, tables, loaded)
}

func TestTables_LoadMissingFile(t *testing.T) {
	loaded, err := hierarchy.LoadTables(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.True(t, loaded.Empty())
	assert.NotNil(t, loaded.Alternatives)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
