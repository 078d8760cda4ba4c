package introspect

import "testing"

func TestNormalizeAction(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"NO ACTION", ""},
		{"NO_ACTION", ""},
		{"CASCADE", "cascade"},
		{"Cascade", "cascade"},
		{"RESTRICT", "restrict"},
		{"SET NULL", "set null"},
		{"SET_NULL", "set null"},
		{"SET DEFAULT", "set default"},
		{"SET_DEFAULT", "set default"},
	}
	for _, tt := range tests {
		if got := NormalizeAction(tt.in); got != tt.want {
			t.Errorf("NormalizeAction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
