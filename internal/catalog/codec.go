package catalog

import (
	"bytes"
	"fmt"

	"go.yaml.in/yaml/v3"
)

// Encode serializes an entry in its canonical YAML form: struct field order,
// 2-space indent, block style, trailing newline. Canonical means two encodes
// of equal entries are byte-identical, so the coordinator can compare a
// freshly built entry against a checked-in file with bytes.Equal.
func Encode(entry Entry) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(entry); err != nil {
		return nil, fmt.Errorf("encoding catalog entry: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("finalizing catalog entry: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses a catalog entry file. Unknown keys are ignored so entries
// written under a newer schema still parse; SchemaVersion tells the caller
// whether the result is trustworthy (see CheckSchemaVersion).
func Decode(data []byte) (Entry, error) {
	var entry Entry
	if err := yaml.Unmarshal(data, &entry); err != nil {
		return Entry{}, fmt.Errorf("parsing catalog entry: %w", err)
	}
	return entry, nil
}
