package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/mapping"
)

// registerResources adds MCP resource definitions to the server. Resources
// provide read-only data that LLM clients can load into their context.
func (s *MCPServer) registerResources(srv *server.MCPServer) {

	// -------------------------------------------------------------------
	// remodel://schema: the introspected model behind the mapping
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			"remodel://schema",
			"Introspected Schema",
			mcp.WithResourceDescription(
				"Every table selected for mapping with its columns, unique "+
					"constraints, and foreign keys, as one JSON document.",
			),
			mcp.WithMIMEType("application/json"),
		),
		s.handleSchemaResource,
	)

	// -------------------------------------------------------------------
	// remodel://mapping: the minimized mapping document
	// -------------------------------------------------------------------
	srv.AddResource(
		mcp.NewResource(
			"remodel://mapping",
			"Mapping Document",
			mcp.WithResourceDescription(
				"The minimized YAML mapping document for the selected tables, "+
					"as written by the generate command.",
			),
			mcp.WithMIMEType("text/yaml"),
		),
		s.handleMappingResource,
	)

	// -------------------------------------------------------------------
	// remodel://entity/{name}: generated Go source per entity (template)
	// -------------------------------------------------------------------
	srv.AddResourceTemplate(
		mcp.NewResourceTemplate(
			"remodel://entity/{name}",
			"Generated Entity Source",
			mcp.WithTemplateDescription(
				"Go source for a single generated entity declaration.",
			),
			mcp.WithTemplateMIMEType("text/x-go"),
		),
		s.handleEntityResource,
	)
}

// handleSchemaResource returns the full introspected model as JSON.
func (s *MCPServer) handleSchemaResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	result, err := s.preview.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("introspect schema: %w", err)
	}

	b, err := json.MarshalIndent(result.Model.Tables(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "remodel://schema",
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}

// handleMappingResource returns the minimized mapping document.
func (s *MCPServer) handleMappingResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	result, err := s.preview.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate mapping: %w", err)
	}

	doc, err := mapping.MarshalDocument(result.Minimized)
	if err != nil {
		return nil, fmt.Errorf("serialize mapping: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "remodel://mapping",
			MIMEType: "text/yaml",
			Text:     string(doc),
		},
	}, nil
}

// handleEntityResource renders the Go source for one entity.
func (s *MCPServer) handleEntityResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	// Extract the entity name from URI: "remodel://entity/{name}"
	uri := request.Params.URI
	name := strings.TrimPrefix(uri, "remodel://entity/")
	if name == "" || name == uri {
		return nil, fmt.Errorf("invalid entity URI %q: expected remodel://entity/{name}", uri)
	}

	result, err := s.preview.Current(ctx)
	if err != nil {
		return nil, fmt.Errorf("generate entities: %w", err)
	}

	def, ok := result.Definition(name)
	if !ok {
		return nil, fmt.Errorf("entity %q not found (available: %v)", name, entityNames(result))
	}

	file, err := gen.Build([]mapping.Definition{def}, s.genOpts)
	if err != nil {
		return nil, fmt.Errorf("render entity %q: %w", name, err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/x-go",
			Text:     string(file.Content),
		},
	}, nil
}
