// SPDX-License-Identifier: Apache-2.0

package tool

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/entity-hierarchy/internal/document"
)

// MetadataAnnotateDocument describes the annotate_document tool.
var MetadataAnnotateDocument = &mcp.Tool{
	Name: "annotate_document",
	Description: "Split a document into sections and find the entities of the configured entity " +
		"hierarchy in each. Markdown documents are split on headings; plain text is one section. " +
		"Entity spans are character offsets into the whole document. Sections without entities " +
		"are omitted.",
	InputSchema: map[string]interface{}{
		"type":     "object",
		"required": []string{"content"},
		"properties": map[string]interface{}{
			"content": map[string]interface{}{
				"type":        "string",
				"description": "Raw content of the document to annotate",
			},
			"format": map[string]interface{}{
				"type":        "string",
				"description": "Format hint for the document. One of: markdown, text. If omitted, auto-detection is used.",
				"enum":        []string{"markdown", "md", "text"},
			},
			"source_id": map[string]interface{}{
				"type":        "string",
				"description": "Optional identifier for the document (file path, URL, etc.) used in section references.",
			},
		},
	},
}

// InputAnnotateDocument is the input for the AnnotateDocument tool.
type InputAnnotateDocument struct {
	Content  string `json:"content"`
	Format   string `json:"format"`
	SourceID string `json:"source_id"`
}

// OutputAnnotateDocument is the output for the AnnotateDocument tool.
type OutputAnnotateDocument struct {
	Annotations []document.Annotation `json:"annotations"`
	// ParserUsed is the name of the parser that was selected.
	ParserUsed  string `json:"parser_used"`
	EntityCount int    `json:"entity_count"`
}

// AnnotateDocument extracts entities section by section.
func (h *Handlers) AnnotateDocument(ctx context.Context, _ *mcp.CallToolRequest, input InputAnnotateDocument) (*mcp.CallToolResult, OutputAnnotateDocument, error) {
	if input.Content == "" {
		return nil, OutputAnnotateDocument{}, fmt.Errorf("content is required")
	}

	sourceID := input.SourceID
	if sourceID == "" {
		sourceID = "unknown"
	}

	res, err := document.Annotate(ctx, document.DefaultSplitter(), h.backend.Extractor(), document.Source{
		Content: []byte(input.Content),
		Format:  input.Format,
		ID:      sourceID,
	})
	if err != nil {
		return nil, OutputAnnotateDocument{}, err
	}

	annotations := res.Annotations
	if annotations == nil {
		annotations = []document.Annotation{}
	}
	return nil, OutputAnnotateDocument{
		Annotations: annotations,
		ParserUsed:  res.ParserUsed,
		EntityCount: res.EntityCount,
	}, nil
}
