// SPDX-License-Identifier: Apache-2.0

package matcher_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gemaraproj/entity-hierarchy/internal/matcher"
)

func build(caseSensitive bool, boundaries string, keywords ...string) *matcher.Index[string] {
	b := matcher.NewBuilder[string](caseSensitive)
	for _, r := range boundaries {
		b.SetNonWordBoundary(r)
	}
	for _, k := range keywords {
		b.AddKeyword(k, "p:"+k)
	}
	return b.Build()
}

func TestIndex_Extract(t *testing.T) {
	tests := []struct {
		name          string
		caseSensitive bool
		boundaries    string
		keywords      []string
		text          string
		want          []matcher.Hit[string]
	}{
		{
			name:     "single keyword with span",
			keywords: []string{"handy"},
			text:     "mein handy ist kaputt",
			want:     []matcher.Hit[string]{{Payload: "p:handy", Start: 5, End: 10}},
		},
		{
			name:     "case insensitive by default",
			keywords: []string{"Handy"},
			text:     "HANDY kaputt",
			want:     []matcher.Hit[string]{{Payload: "p:Handy", Start: 0, End: 5}},
		},
		{
			name:          "case sensitive",
			caseSensitive: true,
			keywords:      []string{"Handy"},
			text:          "handy Handy",
			want:          []matcher.Hit[string]{{Payload: "p:Handy", Start: 6, End: 11}},
		},
		{
			name:     "longest match wins",
			keywords: []string{"new york", "new"},
			text:     "new york and new",
			want: []matcher.Hit[string]{
				{Payload: "p:new york", Start: 0, End: 8},
				{Payload: "p:new", Start: 13, End: 16},
			},
		},
		{
			name:     "no match inside a word",
			keywords: []string{"tv"},
			text:     "tvs and tv",
			want:     []matcher.Hit[string]{{Payload: "p:tv", Start: 8, End: 10}},
		},
		{
			name:     "non-ascii letters are boundaries unless configured",
			keywords: []string{"tarif"},
			text:     "tarifä",
			want:     []matcher.Hit[string]{{Payload: "p:tarif", Start: 0, End: 5}},
		},
		{
			name:       "configured non-word boundary",
			boundaries: "ä-",
			keywords:   []string{"tarif"},
			text:       "tarifä tarif-x tarif",
			want:       []matcher.Hit[string]{{Payload: "p:tarif", Start: 15, End: 20}},
		},
		{
			name:     "rejected long hit does not hide a later valid hit",
			keywords: []string{"foo bar", "bar"},
			text:     "xfoo bar",
			want:     []matcher.Hit[string]{{Payload: "p:bar", Start: 5, End: 8}},
		},
		{
			name:     "shorter keyword at same start survives a rejected longer one",
			keywords: []string{"new", "new york"},
			text:     "new yorkers",
			want:     []matcher.Hit[string]{{Payload: "p:new", Start: 0, End: 3}},
		},
		{
			name:     "scan continues after a shorter keyword",
			keywords: []string{"new", "new york", "york"},
			text:     "new yorkers in york",
			want: []matcher.Hit[string]{
				{Payload: "p:new", Start: 0, End: 3},
				{Payload: "p:york", Start: 15, End: 19},
			},
		},
		{
			name:     "offsets are runes",
			keywords: []string{"grün"},
			text:     "öl grün",
			want:     []matcher.Hit[string]{{Payload: "p:grün", Start: 3, End: 7}},
		},
		{
			name:     "umlaut folding",
			keywords: []string{"ÄRGER"},
			text:     "so ein ärger",
			want:     []matcher.Hit[string]{{Payload: "p:ÄRGER", Start: 7, End: 12}},
		},
		{
			name:     "no keywords",
			keywords: nil,
			text:     "anything",
			want:     nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ix := build(tt.caseSensitive, tt.boundaries, tt.keywords...)
			assert.Equal(t, tt.want, ix.Extract(tt.text))
		})
	}
}

func TestBuilder_ReplacesPayload(t *testing.T) {
	b := matcher.NewBuilder[int](false)
	b.AddKeyword("Foo", 1)
	b.AddKeyword("foo", 2)
	b.AddKeyword("", 3)
	require.Equal(t, 1, b.KeywordCount())
	assert.Equal(t, map[string]int{"foo": 2}, b.AllKeywords())

	ix := b.Build()
	b.AddKeyword("bar", 4)
	assert.Equal(t, 1, ix.KeywordCount(), "index is isolated from later builder changes")
	assert.Equal(t, []matcher.Hit[int]{{Payload: 2, Start: 0, End: 3}}, ix.Extract("FOO"))
}
