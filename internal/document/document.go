// SPDX-License-Identifier: Apache-2.0

// Package document splits documents into segments that are annotated with
// entities one at a time.
package document

import (
	"context"
	"fmt"
)

// Source describes a raw document.
type Source struct {
	Content []byte
	// Format is an optional hint such as "markdown" or "text".
	Format string
	ID     string
}

// Segment is a section of a document. Offset is the rune offset of Text's
// first character within the document.
type Segment struct {
	Text        string `json:"text"`
	SourceID    string `json:"source"`
	SectionPath string `json:"section"`
	Offset      int    `json:"offset"`
}

// Parser splits one kind of document.
type Parser interface {
	CanHandle(source Source) bool
	Parse(ctx context.Context, source Source) ([]Segment, error)
	Name() string
}

// Splitter selects the first registered parser that can handle a source.
type Splitter struct {
	parsers []Parser
}

// NewSplitter creates a Splitter. Parser order matters; put the generic
// fallback last.
func NewSplitter(parsers ...Parser) *Splitter {
	return &Splitter{parsers: parsers}
}

// DefaultSplitter handles markdown and falls back to plain text.
func DefaultSplitter() *Splitter {
	return NewSplitter(NewMarkdownParser(), NewTextParser())
}

// Split parses source and reports the parser used.
func (s *Splitter) Split(ctx context.Context, source Source) ([]Segment, string, error) {
	parser, err := s.selectParser(source)
	if err != nil {
		return nil, "", err
	}
	segments, err := parser.Parse(ctx, source)
	if err != nil {
		return nil, "", fmt.Errorf("parser %q failed: %w", parser.Name(), err)
	}
	return segments, parser.Name(), nil
}

func (s *Splitter) selectParser(source Source) (Parser, error) {
	for _, parser := range s.parsers {
		if parser.CanHandle(source) {
			return parser, nil
		}
	}
	return nil, fmt.Errorf("unsupported document format: no parser found for source %q (format hint: %q)", source.ID, source.Format)
}

// RegisteredParsers returns the names of all registered parsers.
func (s *Splitter) RegisteredParsers() []string {
	names := make([]string, len(s.parsers))
	for i, parser := range s.parsers {
		names[i] = parser.Name()
	}
	return names
}
