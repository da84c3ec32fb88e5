// SPDX-License-Identifier: Apache-2.0

// Package intent reclassifies messages that consist only of extracted
// entities.
package intent

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
)

// ErrMissingIntentName is returned when no target intent is configured.
var ErrMissingIntentName = errors.New("no target intent configured")

// Options configures EntityOnly.
type Options struct {
	// Name is the intent assigned to entity-only messages. Required.
	Name string
	// ConfidenceThreshold is the confidence above which a classified intent
	// is kept.
	ConfidenceThreshold float64
	// AlwaysReplace names an intent that is replaced regardless of its
	// confidence.
	AlwaysReplace string
	Stopwords     []string
	// MaxStopwords is how many stopword tokens may be left uncovered.
	MaxStopwords int
}

// EntityOnly sets a fixed intent on messages whose tokens are all covered by
// entity spans, apart from a few stopwords.
type EntityOnly struct {
	opts      Options
	stopwords map[string]bool
	logger    *zap.Logger
}

// NewEntityOnly creates the heuristic.
func NewEntityOnly(opts Options, logger *zap.Logger) (*EntityOnly, error) {
	if opts.Name == "" {
		return nil, fmt.Errorf("entity-only intent: %w", ErrMissingIntentName)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	stop := make(map[string]bool, len(opts.Stopwords))
	for _, w := range opts.Stopwords {
		stop[strings.ToLower(w)] = true
	}
	return &EntityOnly{opts: opts, stopwords: stop, logger: logger}, nil
}

// Process replaces the intent of msg when it is entity-only. It reports
// whether the intent was changed.
func (c *EntityOnly) Process(msg *extraction.Message) (bool, error) {
	if msg.Intent == nil {
		return false, nil
	}
	if msg.Intent.Confidence > c.opts.ConfidenceThreshold && msg.Intent.Name != c.opts.AlwaysReplace {
		return false, nil
	}

	var spans [][2]int
	for _, it := range msg.Entities {
		if it.IsBare() {
			return false, nil
		}
		spans = append(spans, [2]int{it.Entity.Start, it.Entity.End})
	}

	tokens, err := Tokenize(msg.Text)
	if err != nil {
		return false, err
	}

	stopwordHits := 0
	left := 0
	for _, tok := range tokens {
		covered := slices.ContainsFunc(spans, func(s [2]int) bool {
			return tok.Start >= s[0] && tok.End <= s[1]
		})
		switch {
		case covered:
		case c.stopwords[strings.ToLower(tok.Text)] && stopwordHits < c.opts.MaxStopwords:
			stopwordHits++
		default:
			left++
		}
	}
	if left > 0 {
		return false, nil
	}

	replaced := extraction.Intent{Name: c.opts.Name, Confidence: 1.0}
	msg.Intent = &replaced
	msg.IntentRanking = append([]extraction.Intent{replaced}, msg.IntentRanking...)
	c.logger.Debug("changed intent", zap.String("intent", c.opts.Name))
	return true, nil
}
