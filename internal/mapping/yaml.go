package mapping

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// MarshalDocument renders definitions as the canonical YAML mapping
// document: a sequence of table mappings whose keys always appear in the
// canonical order documented in this package. Regenerating over an
// unchanged schema yields byte-identical output.
func MarshalDocument(defs []Definition) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# remodel mapping document\n")

	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(defs); err != nil {
		return nil, fmt.Errorf("encode mapping document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("close mapping encoder: %w", err)
	}
	return buf.Bytes(), nil
}

// UnmarshalDocument parses a mapping document back into definitions.
// Declaration-side attributes that never serialize (field kinds, key types)
// are not recovered; callers needing them must regenerate from a schema.
func UnmarshalDocument(data []byte) ([]Definition, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("decode mapping document: %w", err)
	}
	return defs, nil
}
