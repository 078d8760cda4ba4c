package mssql

import (
	"reflect"
	"testing"

	"github.com/remodeldb/remodel/internal/schema"
)

func TestMapType(t *testing.T) {
	cases := []struct {
		dataType string
		kind     schema.TypeKind
		raw      string
	}{
		{"int", schema.KindInt32, "int"},
		{"TINYINT", schema.KindInt32, "tinyint"},
		{"bigint", schema.KindInt64, "bigint"},
		{"decimal", schema.KindFloat, "decimal"},
		{"money", schema.KindFloat, "money"},
		{"nvarchar", schema.KindString, "nvarchar"},
		{"ntext", schema.KindString, "ntext"},
		{"bit", schema.KindBool, "bit"},
		{"date", schema.KindDate, "date"},
		{"time", schema.KindTime, "time"},
		{"datetime2", schema.KindTimestamp, "datetime2"},
		{"smalldatetime", schema.KindTimestamp, "smalldatetime"},
		{"datetimeoffset", schema.KindTimestampTZ, "datetimeoffset"},
		{"varbinary", schema.KindBytes, "varbinary"},
		{"timestamp", schema.KindBytes, "timestamp"},
		{"uniqueidentifier", schema.KindOther, "uniqueidentifier"},
		{"xml", schema.KindOther, "xml"},
	}
	for _, tc := range cases {
		got := mapType(tc.dataType)
		if got.Kind != tc.kind || got.Raw != tc.raw {
			t.Errorf("mapType(%q) = %+v, want kind %v raw %q", tc.dataType, got, tc.kind, tc.raw)
		}
	}
}

func TestGroupUniques(t *testing.T) {
	rows := []uniqueRow{
		{IndexName: "PK_orders", ColumnName: "id", IsPrimary: true},
		{IndexName: "UQ_orders_number", ColumnName: "region", BacksConstraint: true},
		{IndexName: "UQ_orders_number", ColumnName: "number", BacksConstraint: true},
		{IndexName: "IX_orders_ext", ColumnName: "ext_id"},
	}

	got := groupUniques(rows)
	want := []schema.Unique{
		{Kind: schema.UniquePrimary, Name: "PK_orders", Fields: []schema.FieldRef{{Column: "id"}}},
		{Kind: schema.UniqueConstraint, Name: "UQ_orders_number", Fields: []schema.FieldRef{
			{Column: "region"}, {Column: "number"},
		}},
		{Kind: schema.UniqueIndex, Name: "IX_orders_ext", Fields: []schema.FieldRef{{Column: "ext_id"}}},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("groupUniques = %+v, want %+v", got, want)
	}
}

func TestGroupReferences(t *testing.T) {
	rows := []refRow{
		{
			ConstraintName:   "FK_orders_customers",
			ColumnName:       "customer_id",
			ReferencedSchema: "dbo",
			ReferencedTable:  "customers",
			ReferencedColumn: "id",
			DeleteRule:       "CASCADE",
			UpdateRule:       "NO_ACTION",
		},
		{
			ConstraintName:   "FK_orders_plans",
			ColumnName:       "plan_region",
			ReferencedSchema: "billing",
			ReferencedTable:  "plans",
			ReferencedColumn: "region",
			DeleteRule:       "SET_NULL",
			UpdateRule:       "NO_ACTION",
		},
		{
			ConstraintName:   "FK_orders_plans",
			ColumnName:       "plan_code",
			ReferencedSchema: "billing",
			ReferencedTable:  "plans",
			ReferencedColumn: "code",
			DeleteRule:       "SET_NULL",
			UpdateRule:       "NO_ACTION",
		},
	}

	got := groupReferences(rows, "dbo")
	want := []schema.Reference{
		{
			Name:   "FK_orders_customers",
			Target: schema.QualifiedName{Name: "customers"},
			Pairs: []schema.ColumnPair{
				{Child: "customer_id", Parent: "id"},
			},
			OnDelete: "cascade",
		},
		{
			Name:   "FK_orders_plans",
			Target: schema.QualifiedName{Schema: "billing", Name: "plans"},
			Pairs: []schema.ColumnPair{
				{Child: "plan_region", Parent: "region"},
				{Child: "plan_code", Parent: "code"},
			},
			OnDelete: "set null",
		},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("groupReferences = %+v, want %+v", got, want)
	}
}
