// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"sort"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// MetadataListKeywords describes the list_keywords tool.
var MetadataListKeywords = &mcp.Tool{
	Name: "list_keywords",
	Description: "List the keywords the entity hierarchy matches, with the value each keyword " +
		"resolves to per entity type. Alternative spellings are listed with the values of their " +
		"canonical keyword.",
	InputSchema: map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"contains": map[string]interface{}{
				"type":        "string",
				"description": "Only list keywords containing this text (case-insensitive).",
			},
			"entity": map[string]interface{}{
				"type":        "string",
				"description": "Only list keywords bound to this entity type.",
			},
		},
	},
}

// InputListKeywords is the input for the ListKeywords tool.
type InputListKeywords struct {
	Contains string `json:"contains"`
	Entity   string `json:"entity"`
}

// Keyword is one matchable keyword.
type Keyword struct {
	Keyword  string         `json:"keyword"`
	Entities map[string]any `json:"entities"`
}

// OutputListKeywords is the output for the ListKeywords tool.
type OutputListKeywords struct {
	Keywords []Keyword `json:"keywords"`
	Count    int       `json:"count"`
}

// ListKeywords returns the matching keywords in lexical order.
func (h *Handlers) ListKeywords(_ context.Context, _ *mcp.CallToolRequest, input InputListKeywords) (*mcp.CallToolResult, OutputListKeywords, error) {
	contains := strings.ToLower(input.Contains)

	out := OutputListKeywords{Keywords: []Keyword{}}
	for kw, entities := range h.backend.Extractor().Keywords() {
		if contains != "" && !strings.Contains(strings.ToLower(kw), contains) {
			continue
		}
		if input.Entity != "" {
			if _, ok := entities[input.Entity]; !ok {
				continue
			}
		}
		out.Keywords = append(out.Keywords, Keyword{Keyword: kw, Entities: entities})
	}
	sort.Slice(out.Keywords, func(i, j int) bool { return out.Keywords[i].Keyword < out.Keywords[j].Keyword })
	out.Count = len(out.Keywords)
	return nil, out, nil
}
