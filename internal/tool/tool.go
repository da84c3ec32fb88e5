// SPDX-License-Identifier: Apache-2.0

// Package tool exposes entity extraction as MCP tools.
package tool

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gemaraproj/entity-hierarchy/internal/extraction"
)

// Backend is the live extraction state the tools read from.
type Backend interface {
	Extractor() *extraction.Extractor
	Process(ctx context.Context, msg *extraction.Message) error
}

// Handlers binds the tools to a Backend.
type Handlers struct {
	backend Backend
}

func NewHandlers(backend Backend) *Handlers {
	return &Handlers{backend: backend}
}

// NewServer returns an MCP server with every tool registered.
func NewServer(backend Backend, version string) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{Name: "enthier", Version: version}, nil)
	Register(server, NewHandlers(backend))
	return server
}

// Register adds the tools of h to server.
func Register(server *mcp.Server, h *Handlers) {
	mcp.AddTool(server, MetadataExtractEntities, h.ExtractEntities)
	mcp.AddTool(server, MetadataAnnotateDocument, h.AnnotateDocument)
	mcp.AddTool(server, MetadataListKeywords, h.ListKeywords)
}
