// Package openapi renders the preview API as an OpenAPI 3.1 document. Every
// generated entity contributes a component schema, so API consumers see the
// record types the mapping produces, typed the way the generated Go code
// types them.
package openapi

import (
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/remodeldb/remodel/internal/mapping"
	"github.com/remodeldb/remodel/internal/schema"
	"github.com/remodeldb/remodel/internal/service"
)

// Build generates the OpenAPI document for one pipeline result. The entity
// components are derived from the resolved definitions, so they carry the
// same field names and optionality as the generated source.
func Build(result *service.Result, version string) (*openapi3.T, error) {
	if version == "" {
		version = "0.0.0"
	}

	doc := &openapi3.T{
		OpenAPI: "3.1.0",
		Info: &openapi3.Info{
			Title: "Remodel Preview API",
			Description: fmt.Sprintf(
				"Schema introspection and mapping preview for a %s database.", result.Dialect),
			Version: version,
		},
	}

	components := openapi3.NewComponents()
	components.Schemas = openapi3.Schemas{}
	doc.Components = &components
	doc.Paths = openapi3.NewPaths()

	addEnvelopeSchemas(doc)

	for _, def := range result.Defs {
		addEntitySchemas(doc, def, result.Model)
	}

	addPreviewPaths(doc)
	return doc, nil
}

// ---------------------------------------------------------------------------
// Entity components
// ---------------------------------------------------------------------------

// addEntitySchemas registers the entity record schema, its primary key
// type, and any referenced unique key types.
func addEntitySchemas(doc *openapi3.T, def mapping.Definition, model schema.Model) {
	table := model[schema.QualifiedName{Schema: def.Schema, Name: def.DBName}]

	props := openapi3.Schemas{}
	var required []string
	for _, f := range def.Fields {
		props[f.Name] = fieldSchema(f, table)
		if !f.Optional {
			required = append(required, f.Name)
		}
	}

	doc.Components.Schemas[def.Entity] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: fmt.Sprintf("Record type generated for table %s.", tableRef(def)),
			Properties:  props,
			Required:    required,
		},
	}

	doc.Components.Schemas[def.Entity+"Key"] = primaryKeySchema(def, table)
	for _, k := range def.Keys {
		doc.Components.Schemas[k.Name] = uniqueKeySchema(k, table)
	}
}

// fieldSchema renders one constructor field. Key references point at the
// registered key type component; plain columns type from the introspected
// column; embedded composites recurse.
func fieldSchema(f mapping.Field, table *schema.Table) *openapi3.SchemaRef {
	switch f.Kind {
	case mapping.FieldKeyRef:
		return openapi3.NewSchemaRef("#/components/schemas/"+f.KeyType, nil)

	case mapping.FieldEmbedded:
		props := openapi3.Schemas{}
		var required []string
		for _, sub := range f.Fields {
			props[sub.Name] = fieldSchema(sub, table)
			if !sub.Optional {
				required = append(required, sub.Name)
			}
		}
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:       &openapi3.Types{"object"},
				Properties: props,
				Required:   required,
			},
		}

	default:
		m := MapKind(columnKind(table, f.DBName))
		s := &openapi3.Schema{Type: &openapi3.Types{m.Type}}
		if m.Format != "" {
			s.Format = m.Format
		}
		if f.Optional {
			s.Nullable = true
		}
		return &openapi3.SchemaRef{Value: s}
	}
}

// primaryKeySchema renders the entity's own key type. Synthetic keys have
// no backing column and surface as 64-bit integers.
func primaryKeySchema(def mapping.Definition, table *schema.Table) *openapi3.SchemaRef {
	if def.AutoKey == mapping.AutoKeySynthetic || def.KeyDBName == "" {
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:        &openapi3.Types{"integer"},
				Format:      "int64",
				Description: fmt.Sprintf("Backend-assigned key of %s.", def.Entity),
			},
		}
	}

	m := MapKind(columnKind(table, def.KeyDBName))
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{m.Type},
			Format:      m.Format,
			Description: fmt.Sprintf("Key of %s, column %s.", def.Entity, def.KeyDBName),
		},
	}
}

// uniqueKeySchema renders a referenced unique key type. A single-column key
// types like its column; a composite key is an object of its columns.
func uniqueKeySchema(k mapping.Key, table *schema.Table) *openapi3.SchemaRef {
	if len(k.Columns) == 1 {
		m := MapKind(columnKind(table, k.Columns[0]))
		return &openapi3.SchemaRef{
			Value: &openapi3.Schema{
				Type:        &openapi3.Types{m.Type},
				Format:      m.Format,
				Description: fmt.Sprintf("Key over column %s.", k.Columns[0]),
			},
		}
	}

	props := openapi3.Schemas{}
	required := make([]string, 0, len(k.Columns))
	for _, col := range k.Columns {
		m := MapKind(columnKind(table, col))
		s := &openapi3.Schema{Type: &openapi3.Types{m.Type}}
		if m.Format != "" {
			s.Format = m.Format
		}
		props[col] = &openapi3.SchemaRef{Value: s}
		required = append(required, col)
	}
	return &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:       &openapi3.Types{"object"},
			Properties: props,
			Required:   required,
		},
	}
}

func columnKind(table *schema.Table, column string) schema.TypeKind {
	if table == nil {
		return schema.KindOther
	}
	for _, c := range table.Columns {
		if c.Name == column {
			return c.Type.Kind
		}
	}
	return schema.KindOther
}

func tableRef(def mapping.Definition) string {
	if def.Schema != "" {
		return def.Schema + "." + def.DBName
	}
	return def.DBName
}

// ---------------------------------------------------------------------------
// Fixed components
// ---------------------------------------------------------------------------

// addEnvelopeSchemas registers the response envelopes the preview API
// shares across endpoints.
func addEnvelopeSchemas(doc *openapi3.T) {
	doc.Components.Schemas["ErrorResponse"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"error": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"code":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
							"message": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"context": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
						},
					},
				},
			},
		},
	}

	doc.Components.Schemas["TableSummary"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"name":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"columns":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"uniques":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"references": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
			},
		},
	}

	doc.Components.Schemas["Table"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "One introspected table: columns, unique column groups, and foreign keys.",
			Properties: openapi3.Schemas{
				"name": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"object"},
						Properties: openapi3.Schemas{
							"schema": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
							"name":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
						},
					},
				},
				"columns": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type: &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{
							Value: &openapi3.Schema{
								Type: &openapi3.Types{"object"},
								Properties: openapi3.Schemas{
									"name":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
									"type":          &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
									"nullable":      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
									"default":       &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
									"autoIncrement": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"boolean"}}},
								},
							},
						},
					},
				},
				"uniques": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
				"refs": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
			},
		},
	}

	doc.Components.Schemas["MappingDefinition"] = &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type:        &openapi3.Types{"object"},
			Description: "One entity's mapping document entry.",
			Properties: openapi3.Schemas{
				"entity":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"name":      &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"dbName":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"schema":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"autoKey":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"keyDbName": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"keys": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
				"fields": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
				"uniques": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"object"}}},
					},
				},
			},
		},
	}
}

// ---------------------------------------------------------------------------
// Paths
// ---------------------------------------------------------------------------

// addPreviewPaths registers the fixed endpoint paths of the preview API.
func addPreviewPaths(doc *openapi3.T) {
	statusSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"status": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}

	doc.Paths.Set("/healthz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"health"},
			Summary:     "Liveness probe",
			OperationID: "get_health",
			Responses:   successOnly("Service is up", statusSchema),
		},
	})

	readyResponses := successOnly("Database connection is healthy", statusSchema)
	degradedDesc := "Database connection is degraded"
	readyResponses.Set("503", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &degradedDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(statusSchema),
		},
	})
	doc.Paths.Set("/readyz", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"health"},
			Summary:     "Readiness probe",
			OperationID: "get_ready",
			Responses:   readyResponses,
		},
	})

	tableListSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"dialect":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"schema":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"taken_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"count":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"tables": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef("#/components/schemas/TableSummary", nil),
					},
				},
			},
		},
	}
	doc.Paths.Set("/api/v1/tables", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"tables"},
			Summary:     "List introspected tables",
			Description: "Tables admitted by the selector plus everything the foreign key closure pulled in.",
			OperationID: "list_tables",
			Parameters:  openapi3.Parameters{refreshParameter()},
			Responses:   newResponses("Table listing", tableListSchema),
		},
	})

	tableResponses := newResponses("The introspected table",
		openapi3.NewSchemaRef("#/components/schemas/Table", nil))
	setNotFound(tableResponses, "No such table in the preview")
	doc.Paths.Set("/api/v1/tables/{name}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"tables"},
			Summary:     "Get one table",
			Description: "Tables outside the default schema are addressed as \"schema.name\".",
			OperationID: "get_table",
			Parameters:  openapi3.Parameters{nameParameter("Table name"), refreshParameter()},
			Responses:   tableResponses,
		},
	})

	mappingSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"dialect":  &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"schema":   &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"taken_at": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}, Format: "date-time"}},
				"count":    &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"integer"}, Format: "int32"}},
				"entities": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: openapi3.NewSchemaRef("#/components/schemas/MappingDefinition", nil),
					},
				},
			},
		},
	}
	doc.Paths.Set("/api/v1/mapping", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"mapping"},
			Summary:     "Get the generated mapping",
			OperationID: "get_mapping",
			Parameters: openapi3.Parameters{
				refreshParameter(),
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("full").
						WithDescription("Return the resolved declarations instead of the minimized document (\"1\" or \"true\").").
						WithSchema(&openapi3.Schema{Type: &openapi3.Types{"boolean"}}),
				},
				&openapi3.ParameterRef{
					Value: openapi3.NewQueryParameter("format").
						WithDescription("Set to \"yaml\" for the canonical document format.").
						WithSchema(openapi3.NewStringSchema()),
				},
			},
			Responses: newResponses("The mapping document", mappingSchema),
		},
	})

	entitiesSchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"file": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"entities": &openapi3.SchemaRef{
					Value: &openapi3.Schema{
						Type:  &openapi3.Types{"array"},
						Items: &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
					},
				},
				"source": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}
	doc.Paths.Set("/api/v1/entities", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"entities"},
			Summary:     "Get the generated entity source",
			OperationID: "list_entities",
			Parameters: openapi3.Parameters{
				refreshParameter(),
				goFormatParameter(),
			},
			Responses: newResponses("The generated file", entitiesSchema),
		},
	})

	entitySchema := &openapi3.SchemaRef{
		Value: &openapi3.Schema{
			Type: &openapi3.Types{"object"},
			Properties: openapi3.Schemas{
				"entity": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
				"source": &openapi3.SchemaRef{Value: &openapi3.Schema{Type: &openapi3.Types{"string"}}},
			},
		},
	}
	entityResponses := newResponses("Source for one entity", entitySchema)
	setNotFound(entityResponses, "No such entity in the mapping")
	doc.Paths.Set("/api/v1/entities/{name}", &openapi3.PathItem{
		Get: &openapi3.Operation{
			Tags:        []string{"entities"},
			Summary:     "Get one entity's source",
			OperationID: "get_entity",
			Parameters: openapi3.Parameters{
				nameParameter("Entity type name"),
				refreshParameter(),
				goFormatParameter(),
			},
			Responses: entityResponses,
		},
	})
}

// ---------------------------------------------------------------------------
// Parameter and response helpers
// ---------------------------------------------------------------------------

func refreshParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter("refresh").
			WithDescription("Re-run introspection instead of serving the cached preview (\"1\" or \"true\").").
			WithSchema(&openapi3.Schema{Type: &openapi3.Types{"boolean"}}),
	}
}

func goFormatParameter() *openapi3.ParameterRef {
	return &openapi3.ParameterRef{
		Value: openapi3.NewQueryParameter("format").
			WithDescription("Set to \"go\" for the raw source instead of the JSON envelope.").
			WithSchema(openapi3.NewStringSchema()),
	}
}

func nameParameter(description string) *openapi3.ParameterRef {
	p := openapi3.NewPathParameter("name").
		WithDescription(description).
		WithSchema(openapi3.NewStringSchema())
	return &openapi3.ParameterRef{Value: p}
}

// newResponses builds a Responses map with a success response plus the
// standard failure shapes of the preview API.
func newResponses(description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()

	successDesc := description
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &successDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})

	errorRef := openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)

	unmappableDesc := "Schema cannot be mapped"
	responses.Set("422", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &unmappableDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	serverErrDesc := "Internal server error"
	responses.Set("500", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &serverErrDesc,
			Content:     openapi3.NewContentWithJSONSchemaRef(errorRef),
		},
	})

	return responses
}

// successOnly builds a Responses map with a single 200 response.
func successOnly(description string, schema *openapi3.SchemaRef) *openapi3.Responses {
	responses := openapi3.NewResponses()
	desc := description
	responses.Set("200", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content:     openapi3.NewContentWithJSONSchemaRef(schema),
		},
	})
	return responses
}

func setNotFound(responses *openapi3.Responses, description string) {
	desc := description
	responses.Set("404", &openapi3.ResponseRef{
		Value: &openapi3.Response{
			Description: &desc,
			Content: openapi3.NewContentWithJSONSchemaRef(
				openapi3.NewSchemaRef("#/components/schemas/ErrorResponse", nil)),
		},
	})
}
