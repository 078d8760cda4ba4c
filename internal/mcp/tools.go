package mcp

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/service"
)

// registerTools registers all mapping MCP tools on the given server.
func (s *MCPServer) registerTools(srv *server.MCPServer) {

	// ----- Discovery tools -----

	srv.AddTool(
		mcp.NewTool("remodel_list_tables",
			mcp.WithDescription(
				"List the database tables selected for mapping, including column, "+
					"unique constraint, and foreign key counts. Use this first to see "+
					"what the generated model will cover.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("refresh",
				mcp.Description("Re-run schema introspection instead of serving the cached result"),
			),
		),
		s.handleListTables,
	)

	srv.AddTool(
		mcp.NewTool("remodel_inspect_table",
			mcp.WithDescription(
				"Get the full introspected shape of one table: columns with logical "+
					"and raw database types, nullability, defaults, unique constraints, "+
					"and foreign keys. Tables outside the connection's default schema "+
					"are addressed as \"schema.name\".",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("table",
				mcp.Required(),
				mcp.Description("Name of the table to inspect"),
			),
			mcp.WithBoolean("refresh",
				mcp.Description("Re-run schema introspection instead of serving the cached result"),
			),
		),
		s.handleInspectTable,
	)

	// ----- Generation tools -----

	srv.AddTool(
		mcp.NewTool("remodel_generate_mapping",
			mcp.WithDescription(
				"Generate the mapping document for the selected tables as YAML. By "+
					"default the document is minimized: values the generator would "+
					"rederive from naming conventions are stripped so the output stays "+
					"reviewable. Set full=true for the fully resolved form.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithBoolean("full",
				mcp.Description("Emit fully resolved definitions instead of the minimized document"),
			),
			mcp.WithBoolean("refresh",
				mcp.Description("Re-run schema introspection instead of serving the cached result"),
			),
		),
		s.handleGenerateMapping,
	)

	srv.AddTool(
		mcp.NewTool("remodel_preview_entity",
			mcp.WithDescription(
				"Render the generated Go source for the mapped entities. Pass entity "+
					"to restrict the output to a single declaration; key types referenced "+
					"from other entities are only declared in the full file.",
			),
			mcp.WithToolAnnotation(readOnlyAnnotation()),
			mcp.WithString("entity",
				mcp.Description("Entity name to render on its own (e.g. \"Customer\"). Omit for the whole file."),
			),
			mcp.WithBoolean("refresh",
				mcp.Description("Re-run schema introspection instead of serving the cached result"),
			),
		),
		s.handlePreviewEntity,
	)
}

// =========================================================================
// Tool handlers
// =========================================================================

// result fetches the shared pipeline result, re-running introspection when
// the request asks for a refresh.
func (s *MCPServer) result(ctx context.Context, request mcp.CallToolRequest) (*service.Result, error) {
	if request.GetBool("refresh", false) {
		return s.preview.Refresh(ctx)
	}
	return s.preview.Current(ctx)
}

// handleListTables summarizes every table in the current pipeline result.
func (s *MCPServer) handleListTables(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	result, err := s.result(ctx, request)
	if err != nil {
		return toolError("Failed to introspect schema: %v", err)
	}

	type tableInfo struct {
		Name       string `json:"name"`
		Columns    int    `json:"columns"`
		Uniques    int    `json:"uniques"`
		References int    `json:"references"`
	}

	names := result.Model.Names()
	tables := make([]tableInfo, len(names))
	for i, name := range names {
		t := result.Model[name]
		tables[i] = tableInfo{
			Name:       name.String(),
			Columns:    len(t.Columns),
			Uniques:    len(t.Uniques),
			References: len(t.Refs),
		}
	}

	return successJSON(struct {
		Dialect string      `json:"dialect"`
		Schema  string      `json:"schema,omitempty"`
		Tables  []tableInfo `json:"tables"`
	}{result.Dialect, result.Schema, tables})
}

// handleInspectTable returns the introspected shape of a single table.
func (s *MCPServer) handleInspectTable(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	name, err := requireString(request, "table")
	if err != nil {
		return toolError("%v", err)
	}

	result, err := s.result(ctx, request)
	if err != nil {
		return toolError("Failed to introspect schema: %v", err)
	}

	table, ok := result.Table(name)
	if !ok {
		return toolError("Table %q not found. Available tables: %v", name, tableNames(result))
	}
	return successJSON(table)
}

// handleGenerateMapping serializes the mapping document as YAML.
func (s *MCPServer) handleGenerateMapping(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	result, err := s.result(ctx, request)
	if err != nil {
		return toolError("Failed to generate mapping: %v", err)
	}

	defs := result.Minimized
	if request.GetBool("full", false) {
		defs = result.Defs
	}
	doc, err := mapping.MarshalDocument(defs)
	if err != nil {
		return toolError("Failed to serialize mapping: %v", err)
	}
	return mcp.NewToolResultText(string(doc)), nil
}

// handlePreviewEntity renders generated Go source, whole file or one entity.
func (s *MCPServer) handlePreviewEntity(
	ctx context.Context,
	request mcp.CallToolRequest,
) (*mcp.CallToolResult, error) {

	result, err := s.result(ctx, request)
	if err != nil {
		return toolError("Failed to generate entities: %v", err)
	}

	defs := result.Defs
	if name := optionalString(request, "entity"); name != "" {
		def, ok := result.Definition(name)
		if !ok {
			return toolError("Entity %q not found. Available entities: %v", name, entityNames(result))
		}
		defs = []mapping.Definition{def}
	}

	file, err := gen.Build(defs, s.genOpts)
	if err != nil {
		return toolError("Failed to render Go source: %v", err)
	}
	return mcp.NewToolResultText(string(file.Content)), nil
}

// tableNames lists the qualified table names in result order.
func tableNames(result *service.Result) []string {
	names := result.Model.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = n.String()
	}
	return out
}

// entityNames lists the generated entity names in result order.
func entityNames(result *service.Result) []string {
	out := make([]string, len(result.Defs))
	for i, def := range result.Defs {
		out[i] = def.Entity
	}
	return out
}
