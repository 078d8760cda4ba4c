package naming

import (
	"strings"
	"unicode"
)

// splitWords breaks an identifier into lowercase words. Underscores, hyphens,
// spaces, and dots separate words, as do lower-to-upper case transitions, so
// both customer_id and customerId split to [customer id].
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			words = append(words, strings.ToLower(cur.String()))
			cur.Reset()
		}
	}
	var prev rune
	for _, r := range s {
		switch {
		case r == '_' || r == '-' || r == ' ' || r == '.':
			flush()
		case unicode.IsUpper(r) && (unicode.IsLower(prev) || unicode.IsDigit(prev)):
			flush()
			cur.WriteRune(r)
		default:
			cur.WriteRune(r)
		}
		prev = r
	}
	flush()
	return words
}

// UpperCamel converts an identifier to UpperCamelCase.
func UpperCamel(s string) string {
	var b strings.Builder
	for _, w := range splitWords(s) {
		b.WriteString(strings.ToUpper(w[:1]))
		b.WriteString(w[1:])
	}
	return b.String()
}

// LowerCamel converts an identifier to lowerCamelCase.
func LowerCamel(s string) string {
	out := UpperCamel(s)
	if out == "" {
		return out
	}
	return strings.ToLower(out[:1]) + out[1:]
}

// SnakeCase converts an identifier to snake_case.
func SnakeCase(s string) string {
	return strings.Join(splitWords(s), "_")
}
