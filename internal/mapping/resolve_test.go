package mapping

import (
	"reflect"
	"testing"

	"github.com/remodeldb/remodel/internal/naming"
	"github.com/remodeldb/remodel/internal/schema"
)

// --- fixture helpers ---

func col(name string, kind schema.TypeKind, nullable bool) schema.Column {
	return schema.Column{Name: name, Type: schema.LogicalType{Kind: kind}, Nullable: nullable}
}

func autoCol(name string) schema.Column {
	return schema.Column{Name: name, Type: schema.LogicalType{Kind: schema.KindInt64}, AutoIncrement: true}
}

func uniqueOn(kind schema.UniqueKind, name string, cols ...string) schema.Unique {
	u := schema.Unique{Kind: kind, Name: name}
	for _, c := range cols {
		u.Fields = append(u.Fields, schema.FieldRef{Column: c})
	}
	return u
}

func fk(name string, target schema.QualifiedName, pairs ...schema.ColumnPair) schema.Reference {
	return schema.Reference{Name: name, Target: target, Pairs: pairs}
}

func qn(name string) schema.QualifiedName {
	return schema.QualifiedName{Name: name}
}

// customersTable has a synthetic auto key and a named unique on email.
func customersTable() *schema.Table {
	return &schema.Table{
		Name: qn("customers"),
		Columns: []schema.Column{
			autoCol("id"),
			col("email", schema.KindString, false),
			col("name", schema.KindString, true),
		},
		Uniques: []schema.Unique{
			uniqueOn(schema.UniquePrimary, "customers_pkey", "id"),
			uniqueOn(schema.UniqueConstraint, "customers_email_key", "email"),
		},
	}
}

func testResolver(model schema.Model) *resolver {
	return newResolver(naming.Default{}, model, schema.LogicalType{Kind: schema.KindInt64}, "", "")
}

// --- reference resolution ---

func TestResolveAutoKeyReference(t *testing.T) {
	customers := customersTable()
	orders := &schema.Table{
		Name: qn("orders"),
		Columns: []schema.Column{
			autoCol("id"),
			col("customer_id", schema.KindInt64, false),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "orders_pkey", "id")},
		Refs: []schema.Reference{
			fk("orders_customer_id_fkey", qn("customers"), schema.ColumnPair{Child: "customer_id", Parent: "id"}),
		},
	}
	model := schema.Model{customers.Name: customers, orders.Name: orders}

	res := testResolver(model)
	f, err := res.resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldKeyRef {
		t.Errorf("Kind = %v, want FieldKeyRef", f.Kind)
	}
	if f.Name != "orderCustomerId" {
		t.Errorf("Name = %q, want %q", f.Name, "orderCustomerId")
	}
	if f.KeyType != "CustomerKey" {
		t.Errorf("KeyType = %q, want %q", f.KeyType, "CustomerKey")
	}
	if f.DBName != "customer_id" {
		t.Errorf("DBName = %q, want %q", f.DBName, "customer_id")
	}
	if f.Type != "" {
		t.Errorf("Type = %q, want no override for a matching key type", f.Type)
	}
	if f.Optional {
		t.Error("Optional should be false for a NOT NULL referencing column")
	}

	// Auto-key references never materialize phantom key types.
	if len(res.used) != 0 {
		t.Errorf("used = %v, want no recorded uniques", res.used)
	}
}

func TestResolveAutoKeyTypeOverride(t *testing.T) {
	customers := customersTable()
	orders := &schema.Table{
		Name: qn("orders"),
		Columns: []schema.Column{
			col("customer_id", schema.KindInt32, true),
		},
		Refs: []schema.Reference{
			fk("orders_customer_id_fkey", qn("customers"), schema.ColumnPair{Child: "customer_id", Parent: "id"}),
		},
	}
	model := schema.Model{customers.Name: customers, orders.Name: orders}

	f, err := testResolver(model).resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Type != "int32" {
		t.Errorf("Type = %q, want %q when the child column differs from the default key type", f.Type, "int32")
	}
	if !f.Optional {
		t.Error("Optional should be true for a nullable referencing column")
	}
}

func TestResolveOptionalWrapper(t *testing.T) {
	// customer_email is nullable but the referenced unique column is NOT
	// NULL: a single-column mismatch resolves to an optional key reference.
	customers := customersTable()
	orders := &schema.Table{
		Name: qn("orders"),
		Columns: []schema.Column{
			autoCol("id"),
			col("customer_email", schema.KindString, true),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "orders_pkey", "id")},
		Refs: []schema.Reference{
			fk("orders_customer_email_fkey", qn("customers"), schema.ColumnPair{Child: "customer_email", Parent: "email"}),
		},
	}
	model := schema.Model{customers.Name: customers, orders.Name: orders}

	res := testResolver(model)
	f, err := res.resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldKeyRef {
		t.Errorf("Kind = %v, want FieldKeyRef", f.Kind)
	}
	if f.KeyType != "CustomerEmailKey" {
		t.Errorf("KeyType = %q, want %q", f.KeyType, "CustomerEmailKey")
	}
	if !f.Optional {
		t.Error("Optional should be true for a nullable child referencing a NOT NULL unique")
	}

	used := res.used[qn("customers")]
	if len(used) != 1 || used[0].Name != "customers_email_key" {
		t.Errorf("used uniques = %v, want the email unique recorded once", used)
	}
}

func TestResolveNaturalPrimaryKeyPhantom(t *testing.T) {
	// badges has a natural (non-autoincrement) primary key; references to it
	// resolve onto a generated key type, not an auto key.
	badges := &schema.Table{
		Name:    qn("badges"),
		Columns: []schema.Column{col("code", schema.KindString, false)},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "badges_pkey", "code")},
	}
	awards := &schema.Table{
		Name: qn("awards"),
		Columns: []schema.Column{
			autoCol("id"),
			col("badge_code", schema.KindString, false),
		},
		Refs: []schema.Reference{
			fk("awards_badge_code_fkey", qn("badges"), schema.ColumnPair{Child: "badge_code", Parent: "code"}),
		},
	}
	model := schema.Model{badges.Name: badges, awards.Name: awards}

	res := testResolver(model)
	f, err := res.resolveReference(awards, &awards.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldKeyRef {
		t.Errorf("Kind = %v, want FieldKeyRef", f.Kind)
	}
	if f.KeyType != "BadgeKey" {
		t.Errorf("KeyType = %q, want %q", f.KeyType, "BadgeKey")
	}
	if f.Optional {
		t.Error("Optional should be false when nullability matches exactly")
	}

	used := res.used[qn("badges")]
	if len(used) != 1 || used[0].Kind != schema.UniquePrimary {
		t.Errorf("used uniques = %v, want the primary key recorded once", used)
	}
}

func TestResolveRedundantIndexPrefersPrimary(t *testing.T) {
	// A unique index covering the same column as the primary key must never
	// win the canonical choice, and must not produce its own key type.
	products := &schema.Table{
		Name:    qn("products"),
		Columns: []schema.Column{col("sku", schema.KindString, false)},
		Uniques: []schema.Unique{
			uniqueOn(schema.UniqueIndex, "products_sku_idx", "sku"),
			uniqueOn(schema.UniquePrimary, "products_pkey", "sku"),
		},
	}
	stock := &schema.Table{
		Name: qn("stock"),
		Columns: []schema.Column{
			col("sku", schema.KindString, false),
			col("on_hand", schema.KindInt64, false),
		},
		Refs: []schema.Reference{
			fk("stock_sku_fkey", qn("products"), schema.ColumnPair{Child: "sku", Parent: "sku"}),
		},
	}
	model := schema.Model{products.Name: products, stock.Name: stock}

	res := testResolver(model)
	f, err := res.resolveReference(stock, &stock.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.KeyType != "ProductKey" {
		t.Errorf("KeyType = %q, want the primary key type %q", f.KeyType, "ProductKey")
	}
	used := res.used[qn("products")]
	if len(used) != 1 {
		t.Fatalf("used uniques = %v, want exactly one", used)
	}
	if used[0].Kind != schema.UniquePrimary {
		t.Errorf("used unique kind = %v, want UniquePrimary; the redundant index must not be recorded", used[0].Kind)
	}
}

func TestResolveUnmappedParentScalar(t *testing.T) {
	orders := &schema.Table{
		Name: qn("orders"),
		Columns: []schema.Column{
			col("customer_id", schema.KindInt64, false),
		},
		Refs: []schema.Reference{
			fk("orders_customer_id_fkey", qn("customers"), schema.ColumnPair{Child: "customer_id", Parent: "id"}),
		},
	}
	model := schema.Model{orders.Name: orders} // customers absent

	f, err := testResolver(model).resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	want := Field{
		Kind:   FieldColumn,
		Name:   "orderCustomerId",
		DBName: "customer_id",
		Type:   "int64",
	}
	if !reflect.DeepEqual(f, want) {
		t.Errorf("field = %+v, want plain scalar %+v", f, want)
	}
}

func TestResolveUnmappedParentEmbedded(t *testing.T) {
	shipments := &schema.Table{
		Name: qn("shipments"),
		Columns: []schema.Column{
			col("route_code", schema.KindString, false),
			col("route_region", schema.KindString, true),
		},
		Refs: []schema.Reference{
			fk("shipments_route_fkey", schema.QualifiedName{Schema: "legacy", Name: "routes"},
				schema.ColumnPair{Child: "route_code", Parent: "code"},
				schema.ColumnPair{Child: "route_region", Parent: "region"}),
		},
	}
	model := schema.Model{shipments.Name: shipments}

	f, err := testResolver(model).resolveReference(shipments, &shipments.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldEmbedded {
		t.Fatalf("Kind = %v, want FieldEmbedded", f.Kind)
	}
	if f.Name != "shipmentRouteCode" {
		t.Errorf("Name = %q, want %q", f.Name, "shipmentRouteCode")
	}
	if f.EmbeddedType != "ShipmentRouteCode" {
		t.Errorf("EmbeddedType = %q, want %q", f.EmbeddedType, "ShipmentRouteCode")
	}
	if len(f.Fields) != 2 {
		t.Fatalf("sub-fields = %d, want 2", len(f.Fields))
	}
	if f.Fields[0].Name != "routeCode" || f.Fields[0].DBName != "route_code" {
		t.Errorf("sub-field 0 = %+v, want routeCode/route_code", f.Fields[0])
	}
	if f.Fields[1].Name != "routeRegion" || !f.Fields[1].Optional {
		t.Errorf("sub-field 1 = %+v, want optional routeRegion", f.Fields[1])
	}
}

func TestResolveNoCoveringUnique(t *testing.T) {
	// The reference targets a parent column no unique covers, so no typed key
	// can be built even though the parent is mapped.
	regions := &schema.Table{
		Name:    qn("regions"),
		Columns: []schema.Column{col("code", schema.KindString, false)},
	}
	offices := &schema.Table{
		Name:    qn("offices"),
		Columns: []schema.Column{col("region_code", schema.KindString, false)},
		Refs: []schema.Reference{
			fk("offices_region_fkey", qn("regions"), schema.ColumnPair{Child: "region_code", Parent: "code"}),
		},
	}
	model := schema.Model{regions.Name: regions, offices.Name: offices}

	res := testResolver(model)
	f, err := res.resolveReference(offices, &offices.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldColumn {
		t.Errorf("Kind = %v, want FieldColumn fallback", f.Kind)
	}
	if len(res.used) != 0 {
		t.Errorf("used = %v, want nothing recorded", res.used)
	}
}

func TestResolveMultiColumnMismatchFallsBack(t *testing.T) {
	// Nullability mismatch over a two-column reference: the optional wrapper
	// only covers single columns, so this degrades to an embedded composite.
	plans := &schema.Table{
		Name: qn("plans"),
		Columns: []schema.Column{
			col("code", schema.KindString, false),
			col("tier", schema.KindString, false),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniqueConstraint, "plans_code_tier_key", "code", "tier")},
	}
	subs := &schema.Table{
		Name: qn("subscriptions"),
		Columns: []schema.Column{
			col("plan_code", schema.KindString, true),
			col("plan_tier", schema.KindString, true),
		},
		Refs: []schema.Reference{
			fk("subscriptions_plan_fkey", qn("plans"),
				schema.ColumnPair{Child: "plan_code", Parent: "code"},
				schema.ColumnPair{Child: "plan_tier", Parent: "tier"}),
		},
	}
	model := schema.Model{plans.Name: plans, subs.Name: subs}

	res := testResolver(model)
	f, err := res.resolveReference(subs, &subs.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}

	if f.Kind != FieldEmbedded {
		t.Errorf("Kind = %v, want FieldEmbedded fallback", f.Kind)
	}
	if len(res.used) != 0 {
		t.Errorf("used = %v, want nothing recorded for a fallback", res.used)
	}
}

func TestResolveReferentialActions(t *testing.T) {
	customers := customersTable()
	ref := fk("orders_customer_id_fkey", qn("customers"), schema.ColumnPair{Child: "customer_id", Parent: "id"})
	ref.OnDelete = "cascade"
	ref.OnUpdate = "restrict"
	orders := &schema.Table{
		Name:    qn("orders"),
		Columns: []schema.Column{col("customer_id", schema.KindInt64, false)},
		Refs:    []schema.Reference{ref},
	}
	model := schema.Model{customers.Name: customers, orders.Name: orders}

	f, err := testResolver(model).resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}
	if f.OnDelete != "cascade" || f.OnUpdate != "restrict" {
		t.Errorf("actions = %q/%q, want cascade/restrict", f.OnDelete, f.OnUpdate)
	}

	// Actions matching the ambient defaults are not recorded.
	quiet := newResolver(naming.Default{}, model, schema.LogicalType{Kind: schema.KindInt64}, "cascade", "restrict")
	f, err = quiet.resolveReference(orders, &orders.Refs[0])
	if err != nil {
		t.Fatalf("resolveReference error: %v", err)
	}
	if f.OnDelete != "" || f.OnUpdate != "" {
		t.Errorf("actions = %q/%q, want both empty when they match the defaults", f.OnDelete, f.OnUpdate)
	}
}
