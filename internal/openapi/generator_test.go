package openapi

import (
	"testing"

	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/schema"
	"github.com/remodeldb/remodel/internal/service"
)

func TestMapKind(t *testing.T) {
	tests := []struct {
		kind       schema.TypeKind
		wantType   string
		wantFormat string
	}{
		{schema.KindString, "string", ""},
		{schema.KindInt32, "integer", "int32"},
		{schema.KindInt64, "integer", "int64"},
		{schema.KindFloat, "number", "double"},
		{schema.KindBool, "boolean", ""},
		{schema.KindDate, "string", "date"},
		{schema.KindTime, "string", "time"},
		{schema.KindTimestamp, "string", "date-time"},
		{schema.KindTimestampTZ, "string", "date-time"},
		{schema.KindBytes, "string", "byte"},
		{schema.KindOther, "string", ""},
	}
	for _, tt := range tests {
		got := MapKind(tt.kind)
		if got.Type != tt.wantType || got.Format != tt.wantFormat {
			t.Errorf("MapKind(%v) = %+v, want {%s %s}", tt.kind, got, tt.wantType, tt.wantFormat)
		}
	}
}

// testResult builds a pipeline result by hand: a customers table with an
// auto key, an orders table referencing it, and a declared unique backing
// a second key type.
func testResult() *service.Result {
	customers := &schema.Table{
		Name: schema.QualifiedName{Name: "customers"},
		Columns: []schema.Column{
			{Name: "id", Type: schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}, AutoIncrement: true},
			{Name: "email", Type: schema.LogicalType{Kind: schema.KindString, Raw: "text"}},
			{Name: "name", Type: schema.LogicalType{Kind: schema.KindString, Raw: "text"}, Nullable: true},
		},
	}
	orders := &schema.Table{
		Name: schema.QualifiedName{Name: "orders"},
		Columns: []schema.Column{
			{Name: "id", Type: schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}, AutoIncrement: true},
			{Name: "customer_id", Type: schema.LogicalType{Kind: schema.KindInt64, Raw: "bigint"}},
			{Name: "region", Type: schema.LogicalType{Kind: schema.KindString, Raw: "text"}},
			{Name: "number", Type: schema.LogicalType{Kind: schema.KindInt32, Raw: "integer"}},
			{Name: "placed_at", Type: schema.LogicalType{Kind: schema.KindTimestamp, Raw: "timestamp"}},
		},
	}

	defs := []mapping.Definition{
		{
			Entity:    "Customer",
			Name:      "Customer",
			DBName:    "customers",
			AutoKey:   mapping.AutoKeyNone,
			KeyDBName: "id",
			Fields: []mapping.Field{
				{Name: "customerEmail", DBName: "email", Type: "string"},
				{Name: "customerName", DBName: "name", Type: "string", Optional: true},
			},
		},
		{
			Entity:    "Order",
			Name:      "Order",
			DBName:    "orders",
			AutoKey:   mapping.AutoKeyNone,
			KeyDBName: "id",
			Keys: []mapping.Key{
				{Name: "OrderNumberKey", Columns: []string{"region", "number"}},
			},
			Fields: []mapping.Field{
				{Name: "orderCustomerId", DBName: "customer_id", Kind: mapping.FieldKeyRef, KeyType: "CustomerKey"},
				{Name: "orderPlacedAt", DBName: "placed_at", Type: "timestamp"},
			},
		},
	}

	return &service.Result{
		Dialect: "postgres",
		Schema:  "public",
		Model: schema.Model{
			customers.Name: customers,
			orders.Name:    orders,
		},
		Defs: defs,
	}
}

func TestBuildValidOpenAPI(t *testing.T) {
	doc, err := Build(testResult(), "1.2.3")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if doc.OpenAPI != "3.1.0" {
		t.Errorf("OpenAPI version = %q, want %q", doc.OpenAPI, "3.1.0")
	}
	if doc.Info == nil {
		t.Fatal("Info is nil")
	}
	if doc.Info.Title != "Remodel Preview API" {
		t.Errorf("Info.Title = %q", doc.Info.Title)
	}
	if doc.Info.Version != "1.2.3" {
		t.Errorf("Info.Version = %q, want %q", doc.Info.Version, "1.2.3")
	}
}

func TestBuildEntityComponents(t *testing.T) {
	doc, err := Build(testResult(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	customer, ok := doc.Components.Schemas["Customer"]
	if !ok {
		t.Fatal("Customer schema not found in components")
	}
	if customer.Value.Type.Slice()[0] != "object" {
		t.Errorf("Customer type = %v, want object", customer.Value.Type)
	}

	email, ok := customer.Value.Properties["customerEmail"]
	if !ok {
		t.Fatal("customerEmail property not found")
	}
	if email.Value.Type.Slice()[0] != "string" {
		t.Errorf("customerEmail type = %v, want string", email.Value.Type)
	}

	name, ok := customer.Value.Properties["customerName"]
	if !ok {
		t.Fatal("customerName property not found")
	}
	if !name.Value.Nullable {
		t.Error("customerName should be nullable, the field is optional")
	}

	required := customer.Value.Required
	hasEmail, hasName := false, false
	for _, r := range required {
		if r == "customerEmail" {
			hasEmail = true
		}
		if r == "customerName" {
			hasName = true
		}
	}
	if !hasEmail {
		t.Errorf("required = %v, want customerEmail listed", required)
	}
	if hasName {
		t.Errorf("required = %v, optional customerName must not be listed", required)
	}
}

func TestBuildKeyComponents(t *testing.T) {
	doc, err := Build(testResult(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	customerKey, ok := doc.Components.Schemas["CustomerKey"]
	if !ok {
		t.Fatal("CustomerKey schema not found in components")
	}
	if customerKey.Value.Type.Slice()[0] != "integer" || customerKey.Value.Format != "int64" {
		t.Errorf("CustomerKey = %v/%s, want integer/int64", customerKey.Value.Type, customerKey.Value.Format)
	}

	// The keyref field points at the key component rather than inlining it.
	order := doc.Components.Schemas["Order"]
	if order == nil {
		t.Fatal("Order schema not found in components")
	}
	ref, ok := order.Value.Properties["orderCustomerId"]
	if !ok {
		t.Fatal("orderCustomerId property not found")
	}
	if ref.Ref != "#/components/schemas/CustomerKey" {
		t.Errorf("orderCustomerId ref = %q, want CustomerKey reference", ref.Ref)
	}
}

func TestBuildCompositeKeyComponent(t *testing.T) {
	doc, err := Build(testResult(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	key, ok := doc.Components.Schemas["OrderNumberKey"]
	if !ok {
		t.Fatal("OrderNumberKey schema not found in components")
	}
	if key.Value.Type.Slice()[0] != "object" {
		t.Fatalf("OrderNumberKey type = %v, want object for a composite key", key.Value.Type)
	}

	region, ok := key.Value.Properties["region"]
	if !ok {
		t.Fatal("region property not found on composite key")
	}
	if region.Value.Type.Slice()[0] != "string" {
		t.Errorf("region type = %v, want string", region.Value.Type)
	}

	number, ok := key.Value.Properties["number"]
	if !ok {
		t.Fatal("number property not found on composite key")
	}
	if number.Value.Format != "int32" {
		t.Errorf("number format = %q, want int32", number.Value.Format)
	}

	if len(key.Value.Required) != 2 {
		t.Errorf("required = %v, want both key columns", key.Value.Required)
	}
}

func TestBuildPreviewPaths(t *testing.T) {
	doc, err := Build(testResult(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	for _, path := range []string{
		"/healthz",
		"/readyz",
		"/api/v1/tables",
		"/api/v1/tables/{name}",
		"/api/v1/mapping",
		"/api/v1/entities",
		"/api/v1/entities/{name}",
	} {
		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("path %s not found", path)
			continue
		}
		if item.Get == nil {
			t.Errorf("path %s has no GET operation", path)
		}
	}

	table := doc.Paths.Find("/api/v1/tables/{name}")
	if table.Get.Responses.Value("404") == nil {
		t.Error("get_table has no 404 response")
	}
	if table.Get.Responses.Value("422") == nil {
		t.Error("get_table has no 422 response")
	}

	ready := doc.Paths.Find("/readyz")
	if ready.Get.Responses.Value("503") == nil {
		t.Error("readiness probe has no 503 response")
	}
}

func TestBuildErrorEnvelope(t *testing.T) {
	doc, err := Build(testResult(), "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	errSchema, ok := doc.Components.Schemas["ErrorResponse"]
	if !ok {
		t.Fatal("ErrorResponse schema not found in components")
	}
	errorProp, ok := errSchema.Value.Properties["error"]
	if !ok {
		t.Fatal("error property not found in ErrorResponse schema")
	}
	code, ok := errorProp.Value.Properties["code"]
	if !ok {
		t.Fatal("code property not found in error object")
	}
	if code.Value.Type.Slice()[0] != "integer" {
		t.Errorf("code type = %v, want integer", code.Value.Type)
	}
}

func TestBuildSyntheticKey(t *testing.T) {
	result := testResult()
	result.Defs = append(result.Defs, mapping.Definition{
		Entity:  "Badge",
		Name:    "Badge",
		DBName:  "badges",
		AutoKey: mapping.AutoKeySynthetic,
		Fields: []mapping.Field{
			{Name: "badgeCode", DBName: "code", Type: "string"},
		},
	})

	doc, err := Build(result, "")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	key, ok := doc.Components.Schemas["BadgeKey"]
	if !ok {
		t.Fatal("BadgeKey schema not found in components")
	}
	if key.Value.Type.Slice()[0] != "integer" || key.Value.Format != "int64" {
		t.Errorf("BadgeKey = %v/%s, want integer/int64 for a synthetic key", key.Value.Type, key.Value.Format)
	}
}
