package mapping

import (
	"fmt"
	"time"
)

// DriftType classifies the severity of a mapping change.
type DriftType string

const (
	// DriftAdditive means the change widens the mapping without invalidating
	// declarations generated from the recorded document.
	DriftAdditive DriftType = "additive"
	// DriftBreaking means declarations or column bindings generated from the
	// recorded document no longer match the live schema.
	DriftBreaking DriftType = "breaking"
)

// DriftItem describes a single difference between the recorded and live mappings.
type DriftItem struct {
	Type        DriftType `json:"type"`
	Category    string    `json:"category"` // "entity_added", "entity_removed", "constructor_changed", "table_changed", "auto_key_changed", "field_added", "field_removed", "type_changed", "binding_changed", "optional_changed", "default_changed", "action_changed", "key_type_added", "key_type_removed", "key_type_changed", "unique_added", "unique_removed", "unique_changed"
	Entity      string    `json:"entity"`
	Field       string    `json:"field,omitempty"`
	OldValue    string    `json:"old_value,omitempty"`
	NewValue    string    `json:"new_value,omitempty"`
	Description string    `json:"description"`
}

// EntityDrift summarizes all differences for a single entity mapping.
type EntityDrift struct {
	Entity        string      `json:"entity"`
	HasDrift      bool        `json:"has_drift"`
	HasBreaking   bool        `json:"has_breaking"`
	AdditiveCount int         `json:"additive_count"`
	BreakingCount int         `json:"breaking_count"`
	Items         []DriftItem `json:"items"`
}

// Report summarizes drift across a whole mapping document.
type Report struct {
	TotalEntities   int           `json:"total_entities"`
	DriftedEntities int           `json:"drifted_entities"`
	AdditiveCount   int           `json:"additive_count"`
	BreakingCount   int           `json:"breaking_count"`
	HasDrift        bool          `json:"has_drift"`
	HasBreaking     bool          `json:"has_breaking"`
	CheckedAt       time.Time     `json:"checked_at"`
	Entities        []EntityDrift `json:"entities"`
}

// Diff compares a recorded mapping document against a freshly generated one.
// Both sides must be in applied form; minimized documents are canonicalized
// with ApplyDefaults before comparison.
func Diff(recorded, live []Definition) Report {
	report := Report{
		TotalEntities: len(recorded),
		CheckedAt:     time.Now().UTC(),
	}

	liveByEntity := make(map[string]Definition, len(live))
	for _, d := range live {
		liveByEntity[d.Entity] = d
	}
	recordedByEntity := make(map[string]Definition, len(recorded))
	for _, d := range recorded {
		recordedByEntity[d.Entity] = d
	}

	for _, rec := range recorded {
		liveDef, exists := liveByEntity[rec.Entity]
		if !exists {
			ed := EntityDrift{
				Entity:        rec.Entity,
				HasDrift:      true,
				HasBreaking:   true,
				BreakingCount: 1,
				Items: []DriftItem{{
					Type:        DriftBreaking,
					Category:    "entity_removed",
					Entity:      rec.Entity,
					Description: fmt.Sprintf("Entity %q no longer maps to any live table", rec.Entity),
				}},
			}
			report.Entities = append(report.Entities, ed)
			continue
		}
		report.Entities = append(report.Entities, DiffEntity(rec, liveDef))
	}

	for _, liveDef := range live {
		if _, exists := recordedByEntity[liveDef.Entity]; !exists {
			ed := EntityDrift{
				Entity:        liveDef.Entity,
				HasDrift:      true,
				AdditiveCount: 1,
				Items: []DriftItem{{
					Type:        DriftAdditive,
					Category:    "entity_added",
					Entity:      liveDef.Entity,
					NewValue:    liveDef.DBName,
					Description: fmt.Sprintf("Table %q is newly mapped as entity %q", liveDef.DBName, liveDef.Entity),
				}},
			}
			report.Entities = append(report.Entities, ed)
		}
	}

	for _, ed := range report.Entities {
		report.AdditiveCount += ed.AdditiveCount
		report.BreakingCount += ed.BreakingCount
		if ed.HasDrift {
			report.DriftedEntities++
		}
	}
	report.HasDrift = report.DriftedEntities > 0
	report.HasBreaking = report.BreakingCount > 0
	return report
}

// DiffEntity compares recorded and live mappings for one entity.
func DiffEntity(recorded, live Definition) EntityDrift {
	ed := EntityDrift{Entity: recorded.Entity}

	add := func(item DriftItem) {
		item.Entity = recorded.Entity
		ed.Items = append(ed.Items, item)
	}

	if recorded.Name != live.Name {
		add(DriftItem{
			Type:        DriftBreaking,
			Category:    "constructor_changed",
			OldValue:    recorded.Name,
			NewValue:    live.Name,
			Description: fmt.Sprintf("Constructor renamed from %q to %q", recorded.Name, live.Name),
		})
	}
	if recorded.DBName != live.DBName || recorded.Schema != live.Schema {
		add(DriftItem{
			Type:        DriftBreaking,
			Category:    "table_changed",
			OldValue:    qualified(recorded.Schema, recorded.DBName),
			NewValue:    qualified(live.Schema, live.DBName),
			Description: fmt.Sprintf("Backing table changed from %q to %q", qualified(recorded.Schema, recorded.DBName), qualified(live.Schema, live.DBName)),
		})
	}
	if recorded.AutoKey != live.AutoKey || recorded.KeyDBName != live.KeyDBName {
		add(DriftItem{
			Type:        DriftBreaking,
			Category:    "auto_key_changed",
			OldValue:    keySpelling(recorded),
			NewValue:    keySpelling(live),
			Description: fmt.Sprintf("Entity key changed from %s to %s", keySpelling(recorded), keySpelling(live)),
		})
	}

	diffKeys(recorded, live, add)
	diffFields("", recorded.Fields, live.Fields, add)
	diffUniques(recorded, live, add)

	for _, item := range ed.Items {
		switch item.Type {
		case DriftAdditive:
			ed.AdditiveCount++
		case DriftBreaking:
			ed.BreakingCount++
		}
	}
	ed.HasDrift = len(ed.Items) > 0
	ed.HasBreaking = ed.BreakingCount > 0
	return ed
}

func diffKeys(recorded, live Definition, add func(DriftItem)) {
	liveByName := make(map[string]Key, len(live.Keys))
	for _, k := range live.Keys {
		liveByName[k.Name] = k
	}
	recordedByName := make(map[string]Key, len(recorded.Keys))
	for _, k := range recorded.Keys {
		recordedByName[k.Name] = k
	}

	for _, rk := range recorded.Keys {
		lk, exists := liveByName[rk.Name]
		if !exists {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "key_type_removed",
				Field:       rk.Name,
				Description: fmt.Sprintf("Key type %q is no longer referenced", rk.Name),
			})
			continue
		}
		if !equalStrings(rk.Columns, lk.Columns) {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "key_type_changed",
				Field:       rk.Name,
				OldValue:    joinColumns(rk.Columns),
				NewValue:    joinColumns(lk.Columns),
				Description: fmt.Sprintf("Key type %q columns changed from %s to %s", rk.Name, joinColumns(rk.Columns), joinColumns(lk.Columns)),
			})
		}
	}
	for _, lk := range live.Keys {
		if _, exists := recordedByName[lk.Name]; !exists {
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "key_type_added",
				Field:       lk.Name,
				NewValue:    joinColumns(lk.Columns),
				Description: fmt.Sprintf("Key type %q is newly referenced", lk.Name),
			})
		}
	}
}

func diffFields(path string, recorded, live []Field, add func(DriftItem)) {
	liveByName := make(map[string]Field, len(live))
	for _, f := range live {
		liveByName[f.Name] = f
	}
	recordedByName := make(map[string]Field, len(recorded))
	for _, f := range recorded {
		recordedByName[f.Name] = f
	}

	for _, rf := range recorded {
		name := joinPath(path, rf.Name)
		lf, exists := liveByName[rf.Name]
		if !exists {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "field_removed",
				Field:       name,
				OldValue:    rf.Type,
				Description: fmt.Sprintf("Field %q was removed", name),
			})
			continue
		}

		if rf.Type != lf.Type || rf.EmbeddedType != lf.EmbeddedType {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "type_changed",
				Field:       name,
				OldValue:    typeSpelling(rf),
				NewValue:    typeSpelling(lf),
				Description: fmt.Sprintf("Field %q type changed from %s to %s", name, typeSpelling(rf), typeSpelling(lf)),
			})
		}
		if rf.DBName != lf.DBName || !equalStrings(rf.Columns, lf.Columns) {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "binding_changed",
				Field:       name,
				OldValue:    bindingSpelling(rf),
				NewValue:    bindingSpelling(lf),
				Description: fmt.Sprintf("Field %q column binding changed from %s to %s", name, bindingSpelling(rf), bindingSpelling(lf)),
			})
		}
		if rf.Optional && !lf.Optional {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "optional_changed",
				Field:       name,
				OldValue:    "optional",
				NewValue:    "required",
				Description: fmt.Sprintf("Field %q changed from optional to required", name),
			})
		} else if !rf.Optional && lf.Optional {
			// Loosening a field is safe for readers of the generated types.
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "optional_changed",
				Field:       name,
				OldValue:    "required",
				NewValue:    "optional",
				Description: fmt.Sprintf("Field %q changed from required to optional", name),
			})
		}
		if rf.Default != lf.Default {
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "default_changed",
				Field:       name,
				OldValue:    defaultSpelling(rf.Default),
				NewValue:    defaultSpelling(lf.Default),
				Description: fmt.Sprintf("Field %q column default changed from %s to %s", name, defaultSpelling(rf.Default), defaultSpelling(lf.Default)),
			})
		}
		if rf.OnDelete != lf.OnDelete || rf.OnUpdate != lf.OnUpdate {
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "action_changed",
				Field:       name,
				OldValue:    actionSpelling(rf),
				NewValue:    actionSpelling(lf),
				Description: fmt.Sprintf("Field %q referential actions changed from %s to %s", name, actionSpelling(rf), actionSpelling(lf)),
			})
		}

		diffFields(name, rf.Fields, lf.Fields, add)
	}

	for _, lf := range live {
		if _, exists := recordedByName[lf.Name]; !exists {
			name := joinPath(path, lf.Name)
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "field_added",
				Field:       name,
				NewValue:    typeSpelling(lf),
				Description: fmt.Sprintf("Field %q was added", name),
			})
		}
	}
}

func diffUniques(recorded, live Definition, add func(DriftItem)) {
	liveByName := make(map[string]UniqueDef, len(live.Uniques))
	for _, u := range live.Uniques {
		liveByName[u.Name] = u
	}
	recordedByName := make(map[string]UniqueDef, len(recorded.Uniques))
	for _, u := range recorded.Uniques {
		recordedByName[u.Name] = u
	}

	for _, ru := range recorded.Uniques {
		lu, exists := liveByName[ru.Name]
		if !exists {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "unique_removed",
				Field:       ru.Name,
				OldValue:    joinColumns(ru.Columns),
				Description: fmt.Sprintf("Unique group %q was removed", ru.Name),
			})
			continue
		}
		if !equalStrings(ru.Columns, lu.Columns) || ru.DBName != lu.DBName || ru.Key != lu.Key {
			add(DriftItem{
				Type:        DriftBreaking,
				Category:    "unique_changed",
				Field:       ru.Name,
				OldValue:    joinColumns(ru.Columns),
				NewValue:    joinColumns(lu.Columns),
				Description: fmt.Sprintf("Unique group %q changed", ru.Name),
			})
		}
	}
	for _, lu := range live.Uniques {
		if _, exists := recordedByName[lu.Name]; !exists {
			add(DriftItem{
				Type:        DriftAdditive,
				Category:    "unique_added",
				Field:       lu.Name,
				NewValue:    joinColumns(lu.Columns),
				Description: fmt.Sprintf("Unique group %q was added", lu.Name),
			})
		}
	}
}

func qualified(schema, name string) string {
	if schema == "" {
		return name
	}
	return schema + "." + name
}

func keySpelling(d Definition) string {
	if d.AutoKey == AutoKeyNone {
		return fmt.Sprintf("column %q", d.KeyDBName)
	}
	return "synthetic " + d.AutoKey
}

func typeSpelling(f Field) string {
	if f.EmbeddedType != "" {
		return "embedded " + f.EmbeddedType
	}
	if f.Type == "" {
		return "(key reference)"
	}
	return f.Type
}

func bindingSpelling(f Field) string {
	if len(f.Columns) > 0 {
		return joinColumns(f.Columns)
	}
	return f.DBName
}

func defaultSpelling(v string) string {
	if v == "" {
		return "(none)"
	}
	return v
}

func actionSpelling(f Field) string {
	onDelete, onUpdate := f.OnDelete, f.OnUpdate
	if onDelete == "" {
		onDelete = "no action"
	}
	if onUpdate == "" {
		onUpdate = "no action"
	}
	return fmt.Sprintf("delete=%s update=%s", onDelete, onUpdate)
}

func joinPath(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return "[" + out + "]"
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
