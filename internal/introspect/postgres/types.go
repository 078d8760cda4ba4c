package postgres

import (
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// mapType classifies a PostgreSQL column type. The udt name is the concrete
// type; data_type marks arrays and domains. Types without a portable
// classification (uuid, json, inet, ...) stay KindOther with the udt name
// preserved, so mapping documents carry the real type.
func mapType(udtName, dataType string) schema.LogicalType {
	raw := strings.ToLower(udtName)

	kind := schema.KindOther
	switch raw {
	case "int2", "smallint", "int4", "integer", "serial", "smallserial":
		kind = schema.KindInt32
	case "int8", "bigint", "bigserial":
		kind = schema.KindInt64
	case "float4", "real", "float8", "double precision", "numeric", "decimal":
		kind = schema.KindFloat
	case "varchar", "character varying", "char", "character", "bpchar", "text", "name", "citext":
		kind = schema.KindString
	case "bool", "boolean":
		kind = schema.KindBool
	case "date":
		kind = schema.KindDate
	case "time", "timetz", "time without time zone", "time with time zone":
		kind = schema.KindTime
	case "timestamp", "timestamp without time zone":
		kind = schema.KindTimestamp
	case "timestamptz", "timestamp with time zone":
		kind = schema.KindTimestampTZ
	case "bytea":
		kind = schema.KindBytes
	}

	if kind == schema.KindOther && strings.EqualFold(dataType, "array") {
		// Array udt names carry a leading underscore (_int4). Keep the
		// element spelling readable.
		raw = strings.TrimPrefix(raw, "_") + "[]"
	}
	return schema.LogicalType{Kind: kind, Raw: raw}
}
