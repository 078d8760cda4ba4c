package snowflake

import (
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// mapType classifies a Snowflake data type. The catalog reports every
// fixed-point numeric as NUMBER, so the scale decides whether a column
// is an integer. The raw spelling is kept as the catalog reports it.
func mapType(dataType string, scale *int64) schema.LogicalType {
	raw := strings.ToUpper(dataType)
	t := schema.LogicalType{Raw: raw}

	switch raw {
	case "NUMBER", "DECIMAL", "NUMERIC":
		if scale != nil && *scale == 0 {
			t.Kind = schema.KindInt64
		} else {
			t.Kind = schema.KindFloat
		}
	case "INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "BYTEINT":
		t.Kind = schema.KindInt64
	case "FLOAT", "FLOAT4", "FLOAT8", "DOUBLE", "DOUBLE PRECISION", "REAL":
		t.Kind = schema.KindFloat
	case "VARCHAR", "STRING", "TEXT", "CHAR", "CHARACTER":
		t.Kind = schema.KindString
	case "BOOLEAN":
		t.Kind = schema.KindBool
	case "DATE":
		t.Kind = schema.KindDate
	case "TIME":
		t.Kind = schema.KindTime
	case "DATETIME", "TIMESTAMP", "TIMESTAMP_NTZ":
		t.Kind = schema.KindTimestamp
	case "TIMESTAMP_TZ", "TIMESTAMP_LTZ":
		t.Kind = schema.KindTimestampTZ
	case "BINARY", "VARBINARY":
		t.Kind = schema.KindBytes
	default:
		// VARIANT, OBJECT, ARRAY, GEOGRAPHY, GEOMETRY.
		t.Kind = schema.KindOther
	}
	return t
}
