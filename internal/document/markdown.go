// SPDX-License-Identifier: Apache-2.0

package document

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"
)

// MarkdownParser splits a Markdown document on headings (lines starting
// with '#'). Each section becomes a segment whose SectionPath is the heading
// text.
type MarkdownParser struct{}

func NewMarkdownParser() *MarkdownParser {
	return &MarkdownParser{}
}

func (p *MarkdownParser) Name() string {
	return "markdown"
}

// CanHandle returns true for the "markdown" and "md" format hints, or when
// the content contains a heading line.
func (p *MarkdownParser) CanHandle(source Source) bool {
	if strings.EqualFold(source.Format, "markdown") || strings.EqualFold(source.Format, "md") {
		return true
	}
	if source.Format != "" {
		return false
	}
	content := strings.TrimSpace(string(source.Content))
	return strings.HasPrefix(content, "#") || strings.Contains(content, "\n#")
}

func (p *MarkdownParser) Parse(_ context.Context, source Source) ([]Segment, error) {
	lines := strings.Split(string(source.Content), "\n")

	var segments []Segment
	var heading string
	var section []string
	sectionStart := 0

	flush := func() {
		raw := strings.Join(section, "\n")
		trimmed := strings.TrimLeftFunc(raw, unicode.IsSpace)
		text := strings.TrimRightFunc(trimmed, unicode.IsSpace)
		if text == "" {
			return
		}
		path := heading
		if path == "" {
			path = "preamble"
		}
		segments = append(segments, Segment{
			Text:        text,
			SourceID:    source.ID,
			SectionPath: path,
			Offset:      sectionStart + utf8.RuneCountInString(raw) - utf8.RuneCountInString(trimmed),
		})
	}

	offset := 0
	for _, line := range lines {
		next := offset + utf8.RuneCountInString(line) + 1
		if strings.HasPrefix(line, "#") {
			flush()
			heading = strings.TrimSpace(strings.TrimLeft(line, "#"))
			section = nil
			sectionStart = next
		} else {
			section = append(section, line)
		}
		offset = next
	}
	flush()

	return segments, nil
}
