package mapping

import (
	"errors"
	"reflect"
	"testing"

	"github.com/remodeldb/remodel/internal/schema"
)

func TestGenerateCustomersOrders(t *testing.T) {
	customers := customersTable()
	orders := &schema.Table{
		Name: qn("orders"),
		Columns: []schema.Column{
			autoCol("id"),
			col("customer_id", schema.KindInt64, false),
			col("placed_at", schema.KindTimestamp, false),
			col("note", schema.KindString, true),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "orders_pkey", "id")},
		Refs: []schema.Reference{
			fk("orders_customer_id_fkey", qn("customers"), schema.ColumnPair{Child: "customer_id", Parent: "id"}),
		},
	}
	model := schema.Model{customers.Name: customers, orders.Name: orders}

	gen := &Generator{}
	defs, err := gen.Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	want := []Definition{
		{
			Entity:    "Customer",
			Name:      "Customer",
			DBName:    "customers",
			AutoKey:   AutoKeyNone,
			KeyDBName: "id",
			Fields: []Field{
				{Name: "customerEmail", DBName: "email", Type: "string"},
				{Name: "customerName", DBName: "name", Type: "string", Optional: true},
			},
		},
		{
			Entity:    "Order",
			Name:      "Order",
			DBName:    "orders",
			AutoKey:   AutoKeyNone,
			KeyDBName: "id",
			Fields: []Field{
				{Name: "orderCustomerId", DBName: "customer_id", Kind: FieldKeyRef, KeyType: "CustomerKey"},
				{Name: "orderPlacedAt", DBName: "placed_at", Type: "timestamp"},
				{Name: "orderNote", DBName: "note", Type: "string", Optional: true},
			},
		},
	}
	if !reflect.DeepEqual(defs, want) {
		t.Errorf("Generate =\n%+v\nwant\n%+v", defs, want)
	}
}

func TestGenerateSyntheticAutoKey(t *testing.T) {
	// No column is auto-incrementing, so the backend supplies the row
	// identity and every column stays a field.
	badges := &schema.Table{
		Name: qn("badges"),
		Columns: []schema.Column{
			col("code", schema.KindString, false),
			col("label", schema.KindString, true),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "badges_pkey", "code")},
	}
	model := schema.Model{badges.Name: badges}

	defs, err := (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("definitions = %d, want 1", len(defs))
	}

	def := defs[0]
	if def.AutoKey != AutoKeySynthetic {
		t.Errorf("AutoKey = %q, want %q", def.AutoKey, AutoKeySynthetic)
	}
	if def.KeyDBName != "" {
		t.Errorf("KeyDBName = %q, want empty for a synthetic key", def.KeyDBName)
	}
	if len(def.Fields) != 2 || def.Fields[0].Name != "badgeCode" {
		t.Errorf("fields = %+v, want the primary key column kept as a field", def.Fields)
	}
	if len(def.Keys) != 0 {
		t.Errorf("keys = %+v, want none while nothing references the table", def.Keys)
	}
}

func TestGenerateMultipleAutoKeysFatal(t *testing.T) {
	bad := &schema.Table{
		Name: qn("counters"),
		Columns: []schema.Column{
			autoCol("id"),
			autoCol("seq"),
		},
	}
	model := schema.Model{bad.Name: bad}

	defs, err := (&Generator{}).Generate(model)
	if err == nil {
		t.Fatal("expected error for a table with two auto-increment columns")
	}
	if defs != nil {
		t.Errorf("definitions = %+v, want nil on error", defs)
	}

	var mk *schema.MultipleAutoKeysError
	if !errors.As(err, &mk) {
		t.Fatalf("error = %v, want MultipleAutoKeysError", err)
	}
	if !reflect.DeepEqual(mk.Columns, []string{"id", "seq"}) {
		t.Errorf("Columns = %v, want [id seq]", mk.Columns)
	}
}

func TestGenerateAmbiguousColumnFatal(t *testing.T) {
	// plan_code participates in two foreign keys; no single field can own it.
	subs := &schema.Table{
		Name: qn("subscriptions"),
		Columns: []schema.Column{
			col("plan_code", schema.KindString, false),
		},
		Refs: []schema.Reference{
			fk("subscriptions_plan_fkey", qn("plans"), schema.ColumnPair{Child: "plan_code", Parent: "code"}),
			fk("subscriptions_promo_fkey", qn("promotions"), schema.ColumnPair{Child: "plan_code", Parent: "plan_code"}),
		},
	}
	model := schema.Model{subs.Name: subs}

	defs, err := (&Generator{}).Generate(model)
	if err == nil {
		t.Fatal("expected error for a column claimed by two foreign keys")
	}
	if defs != nil {
		t.Errorf("definitions = %+v, want nil on error", defs)
	}
	var ac *schema.AmbiguousColumnError
	if !errors.As(err, &ac) {
		t.Fatalf("error = %v, want AmbiguousColumnError", err)
	}
	if ac.Column != "plan_code" {
		t.Errorf("Column = %q, want %q", ac.Column, "plan_code")
	}
}

func TestGenerateFieldOrder(t *testing.T) {
	// A reference group appears at the position of its first column and
	// consumes the whole group, regardless of where the other columns sit.
	subs := &schema.Table{
		Name: qn("subscriptions"),
		Columns: []schema.Column{
			autoCol("id"),
			col("note", schema.KindString, true),
			col("plan_code", schema.KindString, false),
			col("qty", schema.KindInt64, false),
			col("plan_tier", schema.KindString, false),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "subscriptions_pkey", "id")},
		Refs: []schema.Reference{
			fk("subscriptions_plan_fkey", qn("plans"),
				schema.ColumnPair{Child: "plan_code", Parent: "code"},
				schema.ColumnPair{Child: "plan_tier", Parent: "tier"}),
		},
	}
	model := schema.Model{subs.Name: subs} // plans unmapped, so the group embeds

	defs, err := (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	var names []string
	for _, f := range defs[0].Fields {
		names = append(names, f.Name)
	}
	want := []string{"subscriptionNote", "subscriptionPlanCode", "subscriptionQty"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("field order = %v, want %v", names, want)
	}
	if defs[0].Fields[1].Kind != FieldEmbedded {
		t.Errorf("middle field kind = %v, want FieldEmbedded", defs[0].Fields[1].Kind)
	}
}

func TestGenerateKeysOnlyWhenReferenced(t *testing.T) {
	// A unique constraint produces a key type only once a reference in the
	// closure resolves onto it.
	alone := schema.Model{qn("customers"): customersTable()}
	defs, err := (&Generator{}).Generate(alone)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}
	if len(defs[0].Keys) != 0 || len(defs[0].Uniques) != 0 {
		t.Errorf("keys = %+v, uniques = %+v, want none without a referencing table", defs[0].Keys, defs[0].Uniques)
	}

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

	defs, err = (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	customer := defs[0]
	wantKeys := []Key{{Name: "CustomerEmailKey", Columns: []string{"email"}}}
	if !reflect.DeepEqual(customer.Keys, wantKeys) {
		t.Errorf("keys = %+v, want %+v", customer.Keys, wantKeys)
	}
	wantUniques := []UniqueDef{{Name: "CustomersEmailKey", DBName: "customers_email_key", Columns: []string{"email"}}}
	if !reflect.DeepEqual(customer.Uniques, wantUniques) {
		t.Errorf("uniques = %+v, want %+v", customer.Uniques, wantUniques)
	}
}

func TestGenerateDefaultKeyFlag(t *testing.T) {
	// The auto-increment column's unique group is a plain constraint, not a
	// primary key. Once referenced it becomes the constructor's default key.
	accounts := &schema.Table{
		Name: qn("accounts"),
		Columns: []schema.Column{
			autoCol("id"),
			col("owner", schema.KindString, false),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniqueConstraint, "accounts_id_key", "id")},
	}
	ledgers := &schema.Table{
		Name: qn("ledgers"),
		Columns: []schema.Column{
			col("account_id", schema.KindInt64, false),
		},
		Refs: []schema.Reference{
			fk("ledgers_account_id_fkey", qn("accounts"), schema.ColumnPair{Child: "account_id", Parent: "id"}),
		},
	}
	model := schema.Model{accounts.Name: accounts, ledgers.Name: ledgers}

	defs, err := (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	account := defs[0]
	wantUniques := []UniqueDef{{Name: "AccountsIdKey", DBName: "accounts_id_key", Columns: []string{"id"}, Key: true}}
	if !reflect.DeepEqual(account.Uniques, wantUniques) {
		t.Errorf("uniques = %+v, want %+v", account.Uniques, wantUniques)
	}
	wantKeys := []Key{{Name: "AccountIdKey", Columns: []string{"id"}}}
	if !reflect.DeepEqual(account.Keys, wantKeys) {
		t.Errorf("keys = %+v, want %+v", account.Keys, wantKeys)
	}

	ledger := defs[1]
	if ledger.Fields[0].KeyType != "AccountIdKey" {
		t.Errorf("ledger key type = %q, want %q", ledger.Fields[0].KeyType, "AccountIdKey")
	}
}

func TestGenerateUnnamedUnique(t *testing.T) {
	widgets := &schema.Table{
		Name: qn("widgets"),
		Columns: []schema.Column{
			autoCol("id"),
			col("serial", schema.KindString, false),
		},
		Uniques: []schema.Unique{
			uniqueOn(schema.UniquePrimary, "widgets_pkey", "id"),
			uniqueOn(schema.UniqueConstraint, "", "serial"),
		},
	}
	gadgets := &schema.Table{
		Name: qn("gadgets"),
		Columns: []schema.Column{
			col("widget_serial", schema.KindString, false),
		},
		Refs: []schema.Reference{
			fk("gadgets_widget_serial_fkey", qn("widgets"), schema.ColumnPair{Child: "widget_serial", Parent: "serial"}),
		},
	}
	model := schema.Model{widgets.Name: widgets, gadgets.Name: gadgets}

	defs, err := (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	widget := defs[1]
	wantUniques := []UniqueDef{{Name: "UniqueWidget1", Columns: []string{"serial"}}}
	if !reflect.DeepEqual(widget.Uniques, wantUniques) {
		t.Errorf("uniques = %+v, want ordinal-named unique %+v", widget.Uniques, wantUniques)
	}
	gadget := defs[0]
	if gadget.Fields[0].KeyType != "WidgetSerialKey" {
		t.Errorf("key type = %q, want %q", gadget.Fields[0].KeyType, "WidgetSerialKey")
	}
}

func TestGenerateSchemaQualified(t *testing.T) {
	archived := &schema.Table{
		Name: schema.QualifiedName{Schema: "archive", Name: "customers"},
		Columns: []schema.Column{
			autoCol("id"),
			col("email", schema.KindString, false),
		},
		Uniques: []schema.Unique{uniqueOn(schema.UniquePrimary, "customers_pkey", "id")},
	}
	model := schema.Model{archived.Name: archived}

	defs, err := (&Generator{}).Generate(model)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	def := defs[0]
	if def.Entity != "Customer" {
		t.Errorf("Entity = %q, want %q", def.Entity, "Customer")
	}
	if def.Schema != "archive" {
		t.Errorf("Schema = %q, want %q", def.Schema, "archive")
	}
	if def.DBName != "customers" {
		t.Errorf("DBName = %q, want %q", def.DBName, "customers")
	}
}
