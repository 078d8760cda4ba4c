package mapping

import (
	"testing"
)

func diffFixture() Definition {
	return Definition{
		Entity:    "Customer",
		Name:      "Customer",
		DBName:    "customers",
		AutoKey:   AutoKeyNone,
		KeyDBName: "id",
		Keys:      []Key{{Name: "CustomerEmailKey", Columns: []string{"email"}}},
		Fields: []Field{
			{Name: "customerEmail", DBName: "email", Type: "string"},
			{Name: "customerName", DBName: "name", Type: "string", Optional: true},
		},
		Uniques: []UniqueDef{
			{Name: "CustomersEmailKey", DBName: "customers_email_key", Columns: []string{"email"}},
		},
	}
}

func categories(items []DriftItem) map[string]DriftType {
	out := make(map[string]DriftType, len(items))
	for _, item := range items {
		out[item.Category] = item.Type
	}
	return out
}

func TestDiffNoDrift(t *testing.T) {
	report := Diff([]Definition{diffFixture()}, []Definition{diffFixture()})

	if report.HasDrift {
		t.Errorf("HasDrift = true for identical documents; items: %+v", report.Entities)
	}
	if report.HasBreaking || report.BreakingCount != 0 || report.AdditiveCount != 0 {
		t.Errorf("counts = %d additive, %d breaking, want zero", report.AdditiveCount, report.BreakingCount)
	}
	if report.TotalEntities != 1 || report.DriftedEntities != 0 {
		t.Errorf("entities = %d total, %d drifted, want 1/0", report.TotalEntities, report.DriftedEntities)
	}
}

func TestDiffEntityRemovedAndAdded(t *testing.T) {
	recorded := []Definition{
		{Entity: "Customer", DBName: "customers"},
		{Entity: "Order", DBName: "orders"},
	}
	live := []Definition{
		{Entity: "Order", DBName: "orders"},
		{Entity: "Region", DBName: "regions"},
	}

	report := Diff(recorded, live)

	if !report.HasDrift || !report.HasBreaking {
		t.Fatalf("report = %+v, want drift with a breaking change", report)
	}
	if report.BreakingCount != 1 || report.AdditiveCount != 1 {
		t.Errorf("counts = %d additive, %d breaking, want 1/1", report.AdditiveCount, report.BreakingCount)
	}

	var sawRemoved, sawAdded bool
	for _, ed := range report.Entities {
		for _, item := range ed.Items {
			switch item.Category {
			case "entity_removed":
				sawRemoved = true
				if item.Entity != "Customer" || item.Type != DriftBreaking {
					t.Errorf("entity_removed item = %+v", item)
				}
			case "entity_added":
				sawAdded = true
				if item.Entity != "Region" || item.Type != DriftAdditive {
					t.Errorf("entity_added item = %+v", item)
				}
			}
		}
	}
	if !sawRemoved || !sawAdded {
		t.Errorf("removed/added = %v/%v, want both reported", sawRemoved, sawAdded)
	}
}

func TestDiffFieldChanges(t *testing.T) {
	recorded := diffFixture()
	live := diffFixture()

	live.Fields[0].Type = "bytes"
	live.Fields[1].Optional = false
	live.Fields = append(live.Fields, Field{Name: "customerPhone", Type: "string"})

	ed := DiffEntity(recorded, live)

	cats := categories(ed.Items)
	if cats["type_changed"] != DriftBreaking {
		t.Errorf("type_changed = %v, want breaking; items: %+v", cats["type_changed"], ed.Items)
	}
	if cats["optional_changed"] != DriftBreaking {
		t.Errorf("optional_changed = %v, want breaking when a field tightens", cats["optional_changed"])
	}
	if cats["field_added"] != DriftAdditive {
		t.Errorf("field_added = %v, want additive", cats["field_added"])
	}
	if !ed.HasBreaking {
		t.Error("HasBreaking should be true")
	}
}

func TestDiffOptionalLoosening(t *testing.T) {
	recorded := diffFixture()
	live := diffFixture()
	live.Fields[0].Optional = true

	ed := DiffEntity(recorded, live)

	if len(ed.Items) != 1 {
		t.Fatalf("items = %+v, want exactly one", ed.Items)
	}
	if ed.Items[0].Category != "optional_changed" || ed.Items[0].Type != DriftAdditive {
		t.Errorf("item = %+v, want additive optional_changed", ed.Items[0])
	}
	if ed.HasBreaking {
		t.Error("HasBreaking should be false for a loosened field")
	}
}

func TestDiffFieldRemovedAndBinding(t *testing.T) {
	recorded := diffFixture()
	live := diffFixture()
	live.Fields = live.Fields[:1]
	live.Fields[0].DBName = "electronic_mail"

	ed := DiffEntity(recorded, live)

	cats := categories(ed.Items)
	if cats["field_removed"] != DriftBreaking {
		t.Errorf("field_removed = %v, want breaking", cats["field_removed"])
	}
	if cats["binding_changed"] != DriftBreaking {
		t.Errorf("binding_changed = %v, want breaking", cats["binding_changed"])
	}
	if ed.BreakingCount != 2 {
		t.Errorf("BreakingCount = %d, want 2; items: %+v", ed.BreakingCount, ed.Items)
	}
}

func TestDiffKeysAndUniques(t *testing.T) {
	recorded := diffFixture()
	live := diffFixture()
	live.Keys = []Key{{Name: "CustomerPhoneKey", Columns: []string{"phone"}}}
	live.Uniques[0].Columns = []string{"email", "tenant_id"}

	ed := DiffEntity(recorded, live)

	cats := categories(ed.Items)
	if cats["key_type_removed"] != DriftBreaking {
		t.Errorf("key_type_removed = %v, want breaking", cats["key_type_removed"])
	}
	if cats["key_type_added"] != DriftAdditive {
		t.Errorf("key_type_added = %v, want additive", cats["key_type_added"])
	}
	if cats["unique_changed"] != DriftBreaking {
		t.Errorf("unique_changed = %v, want breaking", cats["unique_changed"])
	}
}

func TestDiffAutoKeyChange(t *testing.T) {
	recorded := diffFixture()
	live := diffFixture()
	live.AutoKey = AutoKeySynthetic
	live.KeyDBName = ""

	ed := DiffEntity(recorded, live)

	cats := categories(ed.Items)
	if cats["auto_key_changed"] != DriftBreaking {
		t.Errorf("auto_key_changed = %v, want breaking; items: %+v", cats["auto_key_changed"], ed.Items)
	}
}

func TestDiffEmbeddedFieldPath(t *testing.T) {
	recorded := Definition{
		Entity: "Shipment",
		Fields: []Field{{
			Name:         "shipmentRoute",
			EmbeddedType: "ShipmentRoute",
			Fields: []Field{
				{Name: "routeCode", DBName: "route_code", Type: "string"},
			},
		}},
	}
	live := recorded
	live.Fields = []Field{{
		Name:         "shipmentRoute",
		EmbeddedType: "ShipmentRoute",
		Fields: []Field{
			{Name: "routeCode", DBName: "route_code", Type: "int64"},
		},
	}}

	ed := DiffEntity(recorded, live)

	if len(ed.Items) != 1 {
		t.Fatalf("items = %+v, want exactly one", ed.Items)
	}
	if ed.Items[0].Field != "shipmentRoute.routeCode" {
		t.Errorf("Field = %q, want the dotted path %q", ed.Items[0].Field, "shipmentRoute.routeCode")
	}
}
