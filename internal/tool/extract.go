// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
)

// MetadataExtractEntities describes the extract_entities tool.
var MetadataExtractEntities = &mcp.Tool{
	Name: "extract_entities",
	Description: "Find the entities of the configured entity hierarchy in a text. " +
		"Every keyword match yields one entity per entity type the keyword belongs to, with its " +
		"character span and canonical value. Entities passed in are merged with the matches: an " +
		"entity type that is already present has its value replaced instead of being added twice. " +
		"If an intent is passed and the text consists only of entities, the intent may be replaced.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"text"},
		"properties": map[string]interface{}{
			"text": map[string]interface{}{
				"type":        "string",
				"description": "The text to search for entities",
			},
			"entities": map[string]interface{}{
				"type":        "array",
				"description": "Entities already known for the text, e.g. from other extractors.",
				"items": map[string]interface{}{
					"type":     "object",
					"required": []string{"entity", "start", "end"},
					"properties": map[string]interface{}{
						"entity":            map[string]interface{}{"type": "string"},
						"start":             map[string]interface{}{"type": "integer"},
						"end":               map[string]interface{}{"type": "integer"},
						"value":             map[string]interface{}{},
						"confidence_entity": map[string]interface{}{"type": "number"},
						"extractor":         map[string]interface{}{"type": "string"},
						"processors":        map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
					},
				},
			},
			"intent": map[string]interface{}{
				"type":        "object",
				"description": "Optional classified intent of the text.",
				"properties": map[string]interface{}{
					"name":       map[string]interface{}{"type": "string"},
					"confidence": map[string]interface{}{"type": "number"},
				},
			},
		},
	},
}

// InputExtractEntities is the input for the ExtractEntities tool.
type InputExtractEntities struct {
	Text     string              `json:"text"`
	Entities []extraction.Entity `json:"entities,omitempty"`
	Intent   *extraction.Intent  `json:"intent,omitempty"`
}

// OutputExtractEntities is the output for the ExtractEntities tool.
type OutputExtractEntities struct {
	Entities []extraction.Entity `json:"entities"`
	Intent   *extraction.Intent  `json:"intent,omitempty"`
	// Found is the number of entities contributed by the hierarchy.
	Found int `json:"found"`
}

// ExtractEntities runs the backend over a single text.
func (h *Handlers) ExtractEntities(ctx context.Context, _ *mcp.CallToolRequest, input InputExtractEntities) (*mcp.CallToolResult, OutputExtractEntities, error) {
	if input.Text == "" {
		return nil, OutputExtractEntities{}, fmt.Errorf("text is required")
	}

	msg := &extraction.Message{Text: input.Text, Intent: input.Intent}
	for _, e := range input.Entities {
		msg.Entities = append(msg.Entities, extraction.EntityItem(e))
	}
	if msg.Intent != nil {
		msg.IntentRanking = []extraction.Intent{*msg.Intent}
	}

	if err := h.backend.Process(ctx, msg); err != nil {
		return nil, OutputExtractEntities{}, err
	}

	entities := extraction.Entities(msg.Entities)
	if entities == nil {
		entities = []extraction.Entity{}
	}
	return nil, OutputExtractEntities{
		Entities: entities,
		Intent:   msg.Intent,
		Found:    contributed(input.Entities, entities),
	}, nil
}

// contributed counts the records the backend added to or updated in before.
func contributed(before, after []extraction.Entity) int {
	n := 0
	for i, e := range after {
		if i >= len(before) || len(e.Processors) > len(before[i].Processors) {
			n++
		}
	}
	return n
}
