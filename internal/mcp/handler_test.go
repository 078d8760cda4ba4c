package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/remodeldb/remodel/internal/gen"
	"github.com/remodeldb/remodel/internal/introspect"
	"github.com/remodeldb/remodel/internal/schema"
	"github.com/remodeldb/remodel/internal/selector"
	"github.com/remodeldb/remodel/internal/service"
)

// fakeIntrospector serves a canned schema without a database.
type fakeIntrospector struct {
	tables map[schema.QualifiedName]*schema.Table
}

func (f *fakeIntrospector) Connect(_ introspect.ConnectionConfig) error { return nil }

func (f *fakeIntrospector) Disconnect() error { return nil }

func (f *fakeIntrospector) Ping(_ context.Context) error { return nil }

func (f *fakeIntrospector) ListTables(_ context.Context, _ string) ([]string, error) {
	names := make([]string, 0, len(f.tables))
	for name := range f.tables {
		names = append(names, name.String())
	}
	return names, nil
}

func (f *fakeIntrospector) AnalyzeTable(_ context.Context, name schema.QualifiedName) (*schema.Table, error) {
	return f.tables[name], nil
}

func (f *fakeIntrospector) CurrentSchema(_ context.Context) (string, error) { return "public", nil }

func (f *fakeIntrospector) DefaultKeyType() schema.LogicalType {
	return schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}
}

func (f *fakeIntrospector) Dialect() string { return "fake" }

func newTestMCPServer(t *testing.T) *MCPServer {
	t.Helper()
	customers := &schema.Table{
		Name: schema.QualifiedName{Name: "customers"},
		Columns: []schema.Column{
			{Name: "id", Type: schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}, AutoIncrement: true},
			{Name: "email", Type: schema.LogicalType{Kind: schema.KindString}},
		},
		Uniques: []schema.Unique{{
			Kind:   schema.UniquePrimary,
			Name:   "customers_pkey",
			Fields: []schema.FieldRef{{Column: "id"}},
		}},
	}
	fake := &fakeIntrospector{
		tables: map[schema.QualifiedName]*schema.Table{customers.Name: customers},
	}
	sel, err := selector.Parse("*")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	preview := service.NewPreview(&service.Pipeline{Introspector: fake, Selector: sel})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewMCPServer(preview, gen.Options{}, "test", logger)
}

func callRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	return req
}

// resultText unwraps the single text content item of a tool result.
func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("expected single content item, got %d", len(res.Content))
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	return tc.Text
}

// ---------------------------------------------------------------------------
// Helper tests
// ---------------------------------------------------------------------------

func TestRequireString(t *testing.T) {
	req := callRequest(map[string]interface{}{"table": "users"})

	val, err := requireString(req, "table")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != "users" {
		t.Errorf("expected %q, got %q", "users", val)
	}

	if _, err := requireString(req, "missing"); err == nil {
		t.Error("expected error for missing parameter")
	}
}

func TestOptionalString(t *testing.T) {
	req := callRequest(map[string]interface{}{"entity": "Customer"})

	if got := optionalString(req, "entity"); got != "Customer" {
		t.Errorf("expected %q, got %q", "Customer", got)
	}
	if got := optionalString(req, "absent"); got != "" {
		t.Errorf("expected empty string for absent key, got %q", got)
	}
}

func TestBoolPtr(t *testing.T) {
	p := boolPtr(true)
	if p == nil || !*p {
		t.Fatalf("boolPtr(true) = %v", p)
	}
}

func TestToolErrorIsError(t *testing.T) {
	res, err := toolError("table %q not found", "users")
	if err != nil {
		t.Fatalf("tool errors must not fail the call: %v", err)
	}
	if !res.IsError {
		t.Error("expected IsError on tool error result")
	}
	if text := resultText(t, res); !strings.Contains(text, `"users"`) {
		t.Errorf("expected formatted message, got %q", text)
	}
}

func TestSuccessJSON(t *testing.T) {
	res, err := successJSON(map[string]int{"count": 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Error("success result flagged as error")
	}

	var decoded map[string]int
	if err := json.Unmarshal([]byte(resultText(t, res)), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded["count"] != 3 {
		t.Errorf("expected count 3, got %d", decoded["count"])
	}
}

// ---------------------------------------------------------------------------
// Tool handler tests
// ---------------------------------------------------------------------------

func TestHandleListTables(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleListTables(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var decoded struct {
		Dialect string `json:"dialect"`
		Tables  []struct {
			Name    string `json:"name"`
			Columns int    `json:"columns"`
		} `json:"tables"`
	}
	if err := json.Unmarshal([]byte(resultText(t, res)), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Dialect != "fake" {
		t.Errorf("expected dialect fake, got %q", decoded.Dialect)
	}
	if len(decoded.Tables) != 1 || decoded.Tables[0].Name != "customers" {
		t.Fatalf("unexpected tables: %+v", decoded.Tables)
	}
	if decoded.Tables[0].Columns != 2 {
		t.Errorf("expected 2 columns, got %d", decoded.Tables[0].Columns)
	}
}

func TestHandleInspectTableNotFound(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleInspectTable(context.Background(), callRequest(map[string]interface{}{
		"table": "invoices",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.IsError {
		t.Fatal("expected tool error for unknown table")
	}
	text := resultText(t, res)
	if !strings.Contains(text, "invoices") || !strings.Contains(text, "customers") {
		t.Errorf("error should name the table and list alternatives, got %q", text)
	}
}

func TestHandleGenerateMapping(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handleGenerateMapping(context.Background(), callRequest(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, "entity: Customer") {
		t.Errorf("expected YAML mapping document, got:\n%s", text)
	}
}

func TestHandlePreviewEntity(t *testing.T) {
	s := newTestMCPServer(t)

	res, err := s.handlePreviewEntity(context.Background(), callRequest(map[string]interface{}{
		"entity": "Customer",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}
	if text := resultText(t, res); !strings.Contains(text, "type Customer struct") {
		t.Errorf("expected Go source for Customer, got:\n%s", text)
	}
}
