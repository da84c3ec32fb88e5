// SPDX-License-Identifier: Apache-2.0

package document

import (
	"context"
	"strings"
)

// TextParser treats the whole content as a single segment. It handles
// sources without a format hint and the "text", "txt" and "plain" hints.
type TextParser struct{}

func NewTextParser() *TextParser {
	return &TextParser{}
}

func (p *TextParser) Name() string {
	return "text"
}

func (p *TextParser) CanHandle(source Source) bool {
	switch strings.ToLower(source.Format) {
	case "", "text", "txt", "plain":
		return true
	}
	return false
}

func (p *TextParser) Parse(_ context.Context, source Source) ([]Segment, error) {
	if len(source.Content) == 0 {
		return nil, nil
	}
	return []Segment{{
		Text:        string(source.Content),
		SourceID:    source.ID,
		SectionPath: "document",
	}}, nil
}
