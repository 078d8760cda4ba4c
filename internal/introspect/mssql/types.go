package mssql

import (
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// mapType classifies a SQL Server data type. The raw spelling is kept
// so mapping documents stay faithful to the catalog.
func mapType(dataType string) schema.LogicalType {
	raw := strings.ToLower(dataType)
	t := schema.LogicalType{Raw: raw}

	switch raw {
	case "tinyint", "smallint", "int":
		t.Kind = schema.KindInt32
	case "bigint":
		t.Kind = schema.KindInt64
	case "decimal", "numeric", "float", "real", "money", "smallmoney":
		t.Kind = schema.KindFloat
	case "char", "varchar", "nchar", "nvarchar", "text", "ntext", "sysname":
		t.Kind = schema.KindString
	case "bit":
		t.Kind = schema.KindBool
	case "date":
		t.Kind = schema.KindDate
	case "time":
		t.Kind = schema.KindTime
	case "datetime", "datetime2", "smalldatetime":
		t.Kind = schema.KindTimestamp
	case "datetimeoffset":
		t.Kind = schema.KindTimestampTZ
	// timestamp is the legacy name for rowversion, an opaque counter.
	case "binary", "varbinary", "image", "rowversion", "timestamp":
		t.Kind = schema.KindBytes
	default:
		// uniqueidentifier, xml, sql_variant, geography and friends.
		t.Kind = schema.KindOther
	}
	return t
}
