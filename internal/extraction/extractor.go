// SPDX-License-Identifier: Apache-2.0

// Package extraction annotates texts with the entities of compiled hierarchy
// tables and merges them into existing entity lists.
package extraction

import (
	"fmt"
	"slices"
	"sort"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"

	"github.com/gemaraproj/entity-hierarchy/internal/hierarchy"
	"github.com/gemaraproj/entity-hierarchy/internal/matcher"
)

const (
	DefaultExtractorName     = "EntityHierarchy"
	DefaultNonWordBoundaries = "_öäüÖÄÜß-"
)

// Options configures an Extractor.
type Options struct {
	CaseSensitive         bool
	AllowRepeatedEntities bool
	// ExtractorName is recorded as provenance on emitted and updated entities.
	ExtractorName string
	// NonWordBoundaries lists characters that count as part of a word.
	NonWordBoundaries string
	// CacheSize is the number of texts whose hits are cached; 0 disables it.
	CacheSize int
	// NormalizeUnicode matches against the NFC form of the text. Reported
	// offsets still refer to the text as given.
	NormalizeUnicode bool
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		ExtractorName:     DefaultExtractorName,
		NonWordBoundaries: DefaultNonWordBoundaries,
	}
}

type payloadKind int

const (
	payloadValues payloadKind = iota
	payloadCanonical
)

// payload is what the index returns for a keyword: the per-entity values of
// a canonical keyword, or the canonical keyword an alternative spelling
// stands for.
type payload struct {
	kind      payloadKind
	values    map[string]any
	canonical string
}

// hit is an index hit with its payload resolved to per-entity values.
type hit struct {
	values map[string]any
	start  int
	end    int
}

// Extractor finds entities of compiled tables in texts. It is immutable once
// created and safe for concurrent use.
type Extractor struct {
	tables *hierarchy.Tables
	index  *matcher.Index[payload]
	opts   Options
	cache  *lru.Cache
	logger *zap.Logger
}

// New builds the keyword index for tables.
func New(tables *hierarchy.Tables, opts Options, logger *zap.Logger) (*Extractor, error) {
	if tables == nil {
		tables = hierarchy.NewTables()
	}
	if opts.ExtractorName == "" {
		opts.ExtractorName = DefaultExtractorName
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Extractor{tables: tables, opts: opts, logger: logger}
	if opts.CacheSize > 0 {
		cache, err := lru.New(opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("failed to create extraction cache: %w", err)
		}
		e.cache = cache
	}

	builder := matcher.NewBuilder[payload](opts.CaseSensitive)
	for _, r := range opts.NonWordBoundaries {
		builder.SetNonWordBoundary(r)
	}
	for _, kw := range sortedKeys(tables.Entities) {
		builder.AddKeyword(kw, payload{kind: payloadValues, values: tables.Entities[kw]})
	}
	if builder.KeywordCount() == 0 {
		logger.Warn("no entity hierarchies with text examples defined, extractor will match nothing")
	}
	for _, alt := range sortedKeys(tables.Alternatives) {
		builder.AddKeyword(alt, payload{kind: payloadCanonical, canonical: tables.Alternatives[alt]})
	}
	e.index = builder.Build()

	logger.Debug("built entity index", zap.Int("keywords", e.index.KeywordCount()))
	return e, nil
}

// Tables returns the tables the extractor was built from.
func (e *Extractor) Tables() *hierarchy.Tables {
	return e.tables
}

// Keywords returns every matchable keyword with the per-entity values it
// resolves to.
func (e *Extractor) Keywords() map[string]map[string]any {
	all := e.index.AllKeywords()
	out := make(map[string]map[string]any, len(all))
	for kw, p := range all {
		out[kw] = e.resolve(p)
	}
	return out
}

// Extract returns the entities found in text, ordered by position. Unless
// repeated entities are allowed, each entity type is reported once, at its
// earliest occurrence.
func (e *Extractor) Extract(text string) []Entity {
	if e.tables.Empty() {
		return nil
	}

	hits := e.hits(text)
	if !e.opts.AllowRepeatedEntities {
		hits = slices.Clone(hits)
		sort.SliceStable(hits, func(i, j int) bool { return hits[i].start < hits[j].start })
	}

	var out []Entity
	seen := make(map[string]bool)
	for _, h := range hits {
		for _, typ := range sortedKeys(h.values) {
			if seen[typ] {
				continue
			}
			if !e.opts.AllowRepeatedEntities {
				seen[typ] = true
			}
			out = append(out, Entity{
				Type:       typ,
				Start:      h.start,
				End:        h.end,
				Value:      h.values[typ],
				Confidence: 1.0,
				Extractor:  e.opts.ExtractorName,
			})
		}
	}
	return out
}

// ExtractAndMerge extracts entities from text and merges them into existing.
// With empty tables existing is returned as is.
func (e *Extractor) ExtractAndMerge(text string, existing []Item) []Item {
	if e.tables.Empty() {
		return existing
	}
	return e.Merge(existing, e.Extract(text))
}

// Merge adds found to existing and returns the combined list. An entity type
// already present is updated in place when repeats are disallowed: its value
// is replaced, its span kept, and the extractor is recorded as processor.
// If existing holds a bare label the list is returned unchanged.
func (e *Extractor) Merge(existing []Item, found []Entity) []Item {
	for _, it := range existing {
		if it.IsBare() {
			e.logger.Debug("entity list is not normalized yet, skipping merge", zap.String("label", it.Label))
			return existing
		}
	}

	out := slices.Clone(existing)
	positions := make(map[string]int, len(existing))
	for i, it := range existing {
		if _, ok := positions[it.Entity.Type]; !ok {
			positions[it.Entity.Type] = i
		}
	}

	for _, ent := range found {
		pos, present := positions[ent.Type]
		if e.opts.AllowRepeatedEntities || !present {
			ent.Extractor = e.opts.ExtractorName
			out = append(out, EntityItem(ent))
			continue
		}
		updated := *out[pos].Entity
		updated.Value = ent.Value
		updated.Processors = append(slices.Clone(updated.Processors), e.opts.ExtractorName)
		out[pos] = EntityItem(updated)
	}
	return out
}

// hits queries the index, resolving alternative spellings. Offsets always
// refer to text as given, also when it is matched in NFC form.
func (e *Extractor) hits(text string) []hit {
	if e.cache != nil {
		if cached, ok := e.cache.Get(text); ok {
			return cached.([]hit)
		}
	}

	haystack, offsets := text, []int(nil)
	if e.opts.NormalizeUnicode && !norm.NFC.IsNormalString(text) {
		haystack, offsets = normalize(text)
	}

	raw := e.index.Extract(haystack)
	hits := make([]hit, 0, len(raw))
	for _, h := range raw {
		start, end := h.Start, h.End
		if offsets != nil {
			start, end = offsets[start], offsets[end]
		}
		hits = append(hits, hit{values: e.resolve(h.Payload), start: start, end: end})
	}

	if e.cache != nil {
		e.cache.Add(text, hits)
	}
	return hits
}

// normalize returns the NFC form of text and, for every rune offset into
// it plus the end offset, the rune offset into text it stems from. Text is
// normalized chunk by chunk between normalization boundaries, so a composed
// rune maps to the start of the runes it was composed from.
func normalize(text string) (string, []int) {
	var b strings.Builder
	b.Grow(len(text))
	offsets := make([]int, 0, len(text)+1)
	consumed := 0
	for rest := text; rest != ""; {
		n := norm.NFC.NextBoundaryInString(rest, true)
		if n <= 0 {
			n = len(rest)
		}
		chunk := norm.NFC.String(rest[:n])
		width := utf8.RuneCountInString(rest[:n])
		for i := range utf8.RuneCountInString(chunk) {
			offsets = append(offsets, consumed+min(i, width))
		}
		consumed += width
		b.WriteString(chunk)
		rest = rest[n:]
	}
	return b.String(), append(offsets, consumed)
}

// resolve is the single place where alternative spellings are mapped to the
// values of their canonical keyword.
func (e *Extractor) resolve(p payload) map[string]any {
	switch p.kind {
	case payloadCanonical:
		if values, ok := e.tables.Values(p.canonical); ok {
			return values
		}
		return map[string]any{}
	default:
		return p.values
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
