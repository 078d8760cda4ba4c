package selector

import (
	"reflect"
	"testing"

	"github.com/remodeldb/remodel/internal/schema"
)

func TestParseErrors(t *testing.T) {
	cases := []string{
		"!",
		"orders, !",
		"billing.",
		".orders",
		"!billing.",
	}
	for _, expr := range cases {
		if _, err := Parse(expr); err == nil {
			t.Errorf("Parse(%q): expected error", expr)
		}
	}
}

func unq(name string) schema.QualifiedName {
	return schema.QualifiedName{Name: name}
}

func qual(schemaName, name string) schema.QualifiedName {
	return schema.QualifiedName{Schema: schemaName, Name: name}
}

func TestMatch(t *testing.T) {
	cases := []struct {
		expr string
		name schema.QualifiedName
		want bool
	}{
		// Empty selector includes everything.
		{"", unq("orders"), true},
		{"", qual("billing", "plans"), true},

		// Exact and glob includes.
		{"orders", unq("orders"), true},
		{"orders", unq("customers"), false},
		{"ord*", unq("orders"), true},
		{"temp_?", unq("temp_a"), true},
		{"temp_?", unq("temp_ab"), false},
		{"orders,customers", unq("customers"), true},

		// Unqualified terms never match qualified names and vice versa.
		{"plans", qual("billing", "plans"), false},
		{"billing.plans", unq("plans"), false},
		{"billing.plans", qual("billing", "plans"), true},
		{"billing.*", qual("billing", "plans"), true},
		{"*.plans", qual("billing", "plans"), true},
		{"*.plans", qual("crm", "plans"), true},

		// Excludes veto includes.
		{"*,!audit_*", unq("orders"), true},
		{"*,!audit_*", unq("audit_log"), false},
		{"!audit_*", unq("orders"), true},
		{"!audit_*", unq("audit_log"), false},
		{"*,!billing.*", qual("billing", "plans"), true}, // unqualified * skips qualified names
		{"*.*,!billing.*", qual("billing", "plans"), false},

		// Case-insensitive.
		{"ORDERS", unq("orders"), true},
		{"billing.*", qual("BILLING", "PLANS"), true},
	}
	for _, tc := range cases {
		sel, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.expr, err)
		}
		if got := sel.Match(tc.name); got != tc.want {
			t.Errorf("Parse(%q).Match(%v) = %v, want %v", tc.expr, tc.name, got, tc.want)
		}
	}
}

func TestMatchGlob(t *testing.T) {
	cases := []struct {
		pattern string
		name    string
		want    bool
	}{
		{"*", "anything", true},
		{"*", "", true},
		{"", "", true},
		{"", "x", false},
		{"a*c", "abc", true},
		{"a*c", "ac", true},
		{"a*c", "abd", false},
		{"*_log", "audit_log", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "aXcYb", false},
		{"??", "ab", true},
		{"??", "a", false},
	}
	for _, tc := range cases {
		if got := matchGlob(tc.pattern, tc.name); got != tc.want {
			t.Errorf("matchGlob(%q, %q) = %v, want %v", tc.pattern, tc.name, got, tc.want)
		}
	}
}

func TestExcludes(t *testing.T) {
	cases := []struct {
		expr string
		name schema.QualifiedName
		want bool
	}{
		{"", unq("orders"), false},
		{"orders", unq("plans"), false},
		// Include terms play no part here.
		{"orders", unq("orders"), false},
		{"!audit_*", unq("audit_log"), true},
		{"!audit_*", unq("orders"), false},
		{"orders, !orders", unq("orders"), true},
		{"!billing.*", qual("billing", "plans"), true},
		{"!billing.*", unq("plans"), false},
	}
	for _, tc := range cases {
		sel, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.expr, err)
		}
		if got := sel.Excludes(tc.name); got != tc.want {
			t.Errorf("Parse(%q).Excludes(%v) = %v, want %v", tc.expr, tc.name, got, tc.want)
		}
	}
}

func TestLiteralSchemas(t *testing.T) {
	cases := []struct {
		expr string
		want []string
	}{
		{"", nil},
		{"orders, customers", nil},
		{"billing.plans", []string{"billing"}},
		{"billing.plans, billing.invoices", []string{"billing"}},
		{"billing.plans, archive.*, crm.leads", []string{"billing", "archive", "crm"}},
		// Wildcard schemas cannot be listed, only matched.
		{"bill*.plans, *.users", nil},
		// Exclusions never contribute schemas.
		{"!billing.plans", nil},
		{"Billing.plans, BILLING.invoices", []string{"Billing"}},
	}
	for _, tc := range cases {
		sel, err := Parse(tc.expr)
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.expr, err)
		}
		got := sel.LiteralSchemas()
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("Parse(%q).LiteralSchemas() = %v, want %v", tc.expr, got, tc.want)
		}
	}
}
