// SPDX-License-Identifier: Apache-2.0

// Package matcher finds every occurrence of a set of keywords in a text with
// a single Aho-Corasick automaton. Hits respect word boundaries and report
// character offsets.
package matcher

import (
	"unicode"
	"unicode/utf8"

	ahocorasick "github.com/petar-dambovaliev/aho-corasick"
)

// Hit is one keyword occurrence. Start and End are rune offsets into the
// searched text, End exclusive.
type Hit[P any] struct {
	Payload P
	Start   int
	End     int
}

// Builder collects keywords and their payloads.
type Builder[P any] struct {
	caseSensitive bool
	wordChars     map[rune]bool
	keywords      []string
	payloads      []P
	positions     map[string]int
}

// NewBuilder creates an empty Builder.
func NewBuilder[P any](caseSensitive bool) *Builder[P] {
	return &Builder[P]{
		caseSensitive: caseSensitive,
		wordChars:     make(map[rune]bool),
		positions:     make(map[string]int),
	}
}

// SetNonWordBoundary marks r as part of a word, so a keyword next to it does
// not match. ASCII letters, digits and '_' are always word characters.
func (b *Builder[P]) SetNonWordBoundary(r rune) {
	b.wordChars[r] = true
	if !b.caseSensitive {
		b.wordChars[fold(r)] = true
	}
}

// AddKeyword registers text with payload. Registering the same keyword
// again replaces its payload. Empty keywords are ignored.
func (b *Builder[P]) AddKeyword(text string, payload P) {
	if text == "" {
		return
	}
	key := b.key(text)
	if i, ok := b.positions[key]; ok {
		b.payloads[i] = payload
		return
	}
	b.positions[key] = len(b.keywords)
	b.keywords = append(b.keywords, key)
	b.payloads = append(b.payloads, payload)
}

// KeywordCount returns the number of distinct keywords.
func (b *Builder[P]) KeywordCount() int {
	return len(b.keywords)
}

// AllKeywords returns every keyword, in its matching form, with its payload.
func (b *Builder[P]) AllKeywords() map[string]P {
	return allKeywords(b.keywords, b.payloads)
}

// Build compiles the automaton. The Builder may be reused afterwards; the
// returned Index does not share mutable state with it.
func (b *Builder[P]) Build() *Index[P] {
	ix := &Index[P]{
		caseSensitive: b.caseSensitive,
		wordChars:     make(map[rune]bool, len(b.wordChars)),
		keywords:      append([]string(nil), b.keywords...),
		payloads:      append([]P(nil), b.payloads...),
		lookup:        make(map[string]int, len(b.positions)),
	}
	for k, i := range b.positions {
		ix.lookup[k] = i
	}
	for r := range b.wordChars {
		ix.wordChars[r] = true
	}
	if len(ix.keywords) > 0 {
		builder := ahocorasick.NewAhoCorasickBuilder(ahocorasick.Opts{
			AsciiCaseInsensitive: false,
			MatchOnlyWholeWords:  false,
			MatchKind:            ahocorasick.LeftMostLongestMatch,
		})
		ac := builder.Build(ix.keywords)
		ix.ac = &ac
	}
	return ix
}

func (b *Builder[P]) key(text string) string {
	if b.caseSensitive {
		return text
	}
	return foldString(text)
}

// Index is an immutable keyword automaton. It is safe for concurrent use.
type Index[P any] struct {
	ac            *ahocorasick.AhoCorasick
	caseSensitive bool
	wordChars     map[rune]bool
	keywords      []string
	payloads      []P
	lookup        map[string]int
}

// KeywordCount returns the number of distinct keywords.
func (ix *Index[P]) KeywordCount() int {
	return len(ix.keywords)
}

// AllKeywords returns every keyword, in its matching form, with its payload.
func (ix *Index[P]) AllKeywords() map[string]P {
	return allKeywords(ix.keywords, ix.payloads)
}

// Extract returns the leftmost-longest, non-overlapping keyword hits in
// text that start and end on a word boundary, ordered by position.
func (ix *Index[P]) Extract(text string) []Hit[P] {
	if ix.ac == nil || text == "" {
		return nil
	}
	haystack := text
	if !ix.caseSensitive {
		haystack = foldString(text)
	}

	var hits []Hit[P]
	runeCursor, byteCursor := 0, 0
	toRunes := func(off int) int {
		runeCursor += utf8.RuneCountInString(haystack[byteCursor:off])
		byteCursor = off
		return runeCursor
	}

	add := func(pattern, start, end int) {
		s := toRunes(start)
		hits = append(hits, Hit[P]{Payload: ix.payloads[pattern], Start: s, End: s + utf8.RuneCountInString(haystack[start:end])})
	}

	pos := 0
	for pos < len(haystack) {
		next := -1
		for _, m := range ix.ac.FindAll(haystack[pos:]) {
			start, end := pos+m.Start(), pos+m.End()
			if ix.isBoundary(haystack, start, end) {
				add(m.Pattern(), start, end)
				continue
			}
			// Rejected: fall back to the longest keyword that is a prefix of
			// the hit, else rescan from the next rune.
			if pattern, prefixEnd, ok := ix.longestPrefix(haystack, start, end); ok {
				add(pattern, start, prefixEnd)
				next = prefixEnd
			} else {
				_, width := utf8.DecodeRuneInString(haystack[start:])
				next = start + width
			}
			break
		}
		if next < 0 {
			break
		}
		pos = next
	}
	return hits
}

// longestPrefix returns the longest keyword in s[start:end) that starts at
// start and ends on a word boundary.
func (ix *Index[P]) longestPrefix(s string, start, end int) (int, int, bool) {
	for e := end - 1; e > start; e-- {
		if !utf8.RuneStart(s[e]) {
			continue
		}
		if i, ok := ix.lookup[s[start:e]]; ok && ix.isBoundary(s, start, e) {
			return i, e, true
		}
	}
	return 0, 0, false
}

func (ix *Index[P]) isBoundary(s string, start, end int) bool {
	if start > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:start])
		if ix.isWordChar(r) {
			return false
		}
	}
	if end < len(s) {
		r, _ := utf8.DecodeRuneInString(s[end:])
		if ix.isWordChar(r) {
			return false
		}
	}
	return true
}

func (ix *Index[P]) isWordChar(r rune) bool {
	if r == '_' || (r < utf8.RuneSelf && (unicode.IsLetter(r) || unicode.IsDigit(r))) {
		return true
	}
	return ix.wordChars[r]
}

func allKeywords[P any](keywords []string, payloads []P) map[string]P {
	out := make(map[string]P, len(keywords))
	for i, k := range keywords {
		out[k] = payloads[i]
	}
	return out
}

// fold lowercases r unless that would change its encoded length, which keeps
// byte and rune offsets of folded text aligned with the input.
func fold(r rune) rune {
	l := unicode.ToLower(r)
	if utf8.RuneLen(l) != utf8.RuneLen(r) {
		return r
	}
	return l
}

func foldString(s string) string {
	buf := make([]byte, 0, len(s))
	for _, r := range s {
		buf = utf8.AppendRune(buf, fold(r))
	}
	return string(buf)
}
