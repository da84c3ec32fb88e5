// SPDX-License-Identifier: Apache-2.0

package intent

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/jdkato/prose/v2"
)

// Token is a word of a text. Start and End are rune offsets, End exclusive,
// or -1 when the tokenizer rewrote the word.
type Token struct {
	Text  string
	Start int
	End   int
}

// Tokenize splits text into words. Punctuation-only tokens are dropped.
func Tokenize(text string) ([]Token, error) {
	doc, err := prose.NewDocument(text,
		prose.WithTagging(false),
		prose.WithSegmentation(false),
		prose.WithExtraction(false))
	if err != nil {
		return nil, fmt.Errorf("failed to tokenize text: %w", err)
	}

	var out []Token
	cursor := 0
	runes := 0
	for _, tok := range doc.Tokens() {
		if isPunct(tok.Text) {
			continue
		}
		t := Token{Text: tok.Text, Start: -1, End: -1}
		if i := strings.Index(text[cursor:], tok.Text); i >= 0 {
			runes += utf8.RuneCountInString(text[cursor : cursor+i])
			t.Start = runes
			runes += utf8.RuneCountInString(tok.Text)
			t.End = runes
			cursor += i + len(tok.Text)
		}
		out = append(out, t)
	}
	return out, nil
}

func isPunct(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) {
			return false
		}
	}
	return true
}
