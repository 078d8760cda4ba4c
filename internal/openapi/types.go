package openapi

import "github.com/remodeldb/remodel/internal/schema"

// TypeMapping pairs an OpenAPI type with its format qualifier.
type TypeMapping struct {
	Type   string // OpenAPI type: string, integer, number, boolean
	Format string // OpenAPI format: int32, int64, double, date, date-time, byte, etc.
}

var kindToOpenAPI = map[schema.TypeKind]TypeMapping{
	schema.KindString:      {"string", ""},
	schema.KindInt32:       {"integer", "int32"},
	schema.KindInt64:       {"integer", "int64"},
	schema.KindFloat:       {"number", "double"},
	schema.KindBool:        {"boolean", ""},
	schema.KindDate:        {"string", "date"},
	schema.KindTime:        {"string", "time"},
	schema.KindTimestamp:   {"string", "date-time"},
	schema.KindTimestampTZ: {"string", "date-time"},
	schema.KindBytes:       {"string", "byte"},
}

// MapKind converts a portable column kind to its OpenAPI rendering.
// Unclassified kinds fall back to a plain string.
func MapKind(kind schema.TypeKind) TypeMapping {
	if m, ok := kindToOpenAPI[kind]; ok {
		return m
	}
	return TypeMapping{"string", ""}
}
