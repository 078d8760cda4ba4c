package sqlite

import (
	"strings"

	"github.com/remodeldb/remodel/internal/schema"
)

// mapType classifies a declared SQLite type by its affinity rules
// (https://sqlite.org/datatype3.html). SQLite stores whatever it is handed,
// so the declared type is the best available signal.
func mapType(typeName string) schema.LogicalType {
	raw := strings.ToLower(strings.TrimSpace(typeName))

	upper := strings.ToUpper(raw)
	if idx := strings.IndexByte(upper, '('); idx >= 0 {
		upper = strings.TrimSpace(upper[:idx])
	}

	kind := schema.KindOther
	switch {
	case strings.Contains(upper, "BIGINT"):
		kind = schema.KindInt64
	case strings.Contains(upper, "INT"):
		kind = schema.KindInt64
	case strings.Contains(upper, "CHAR"),
		strings.Contains(upper, "CLOB"),
		strings.Contains(upper, "TEXT"):
		kind = schema.KindString
	case strings.Contains(upper, "BLOB"), upper == "":
		kind = schema.KindBytes
	case strings.Contains(upper, "REAL"),
		strings.Contains(upper, "FLOA"),
		strings.Contains(upper, "DOUB"),
		strings.Contains(upper, "NUMERIC"),
		strings.Contains(upper, "DECIMAL"):
		kind = schema.KindFloat
	case strings.Contains(upper, "BOOL"):
		kind = schema.KindBool
	case upper == "DATE":
		kind = schema.KindDate
	case strings.Contains(upper, "TIMESTAMP"), strings.Contains(upper, "DATETIME"):
		kind = schema.KindTimestamp
	case upper == "TIME":
		kind = schema.KindTime
	}
	return schema.LogicalType{Kind: kind, Raw: raw}
}
