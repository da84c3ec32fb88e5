// SPDX-License-Identifier: Apache-2.0

// Package pipeline runs messages through the configured components: entity
// hierarchy extraction followed by the optional entity-only intent
// heuristic.
package pipeline

import (
	"context"
	"fmt"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
	"github.com/gemaraproj/entity-hierarchy/internal/intent"
)

// Component processes one message in place.
type Component interface {
	Process(msg *extraction.Message) error
	Name() string
}

type Pipeline struct {
	components []Component
}

// New creates a Pipeline running components in order.
func New(components ...Component) *Pipeline {
	return &Pipeline{components: components}
}

// Run passes msg through every component.
func (p *Pipeline) Run(ctx context.Context, msg *extraction.Message) error {
	for _, c := range p.components {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := c.Process(msg); err != nil {
			return fmt.Errorf("component %q failed: %w", c.Name(), err)
		}
	}
	return nil
}

// Components returns the names of all components.
func (p *Pipeline) Components() []string {
	names := make([]string, len(p.components))
	for i, c := range p.components {
		names[i] = c.Name()
	}
	return names
}

// IntentComponent adapts the entity-only heuristic to a Component.
type IntentComponent struct {
	*intent.EntityOnly
}

func (c IntentComponent) Name() string {
	return "entity_only_intent"
}

func (c IntentComponent) Process(msg *extraction.Message) error {
	_, err := c.EntityOnly.Process(msg)
	return err
}
