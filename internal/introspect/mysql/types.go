package mysql

import (
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// mapType classifies a MySQL column type. DATA_TYPE is the bare type name;
// COLUMN_TYPE carries the display width needed to spot tinyint(1) booleans.
// MySQL TIMESTAMP columns are UTC-normalized on storage, so they classify as
// timestamptz while DATETIME stays a plain timestamp.
func mapType(dataType, columnType string) schema.LogicalType {
	raw := strings.ToLower(dataType)

	if raw == "tinyint" && strings.Contains(strings.ToLower(columnType), "tinyint(1)") {
		return schema.LogicalType{Kind: schema.KindBool, Raw: "tinyint(1)"}
	}

	kind := schema.KindOther
	switch raw {
	case "tinyint", "smallint", "mediumint", "int", "integer", "year":
		kind = schema.KindInt32
	case "bigint":
		kind = schema.KindInt64
	case "float", "double", "decimal", "numeric":
		kind = schema.KindFloat
	case "varchar", "char", "text", "tinytext", "mediumtext", "longtext", "enum", "set":
		kind = schema.KindString
	case "datetime":
		kind = schema.KindTimestamp
	case "timestamp":
		kind = schema.KindTimestampTZ
	case "date":
		kind = schema.KindDate
	case "time":
		kind = schema.KindTime
	case "blob", "tinyblob", "mediumblob", "longblob", "binary", "varbinary", "bit":
		kind = schema.KindBytes
	}
	return schema.LogicalType{Kind: kind, Raw: raw}
}
