// Package fixture reads the JSON fixtures that make up a stub profile:
// a board, its configuration and its issue set.
package fixture

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Document is a fixture JSON value kept as compacted bytes so that field
// order is served back exactly as authored.
type Document []byte

var _ json.Marshaler = Document(nil)

// MarshalJSON returns the document verbatim.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores a compacted copy of data.
func (d *Document) UnmarshalJSON(data []byte) error {
	var buf bytes.Buffer
	if err := json.Compact(&buf, data); err != nil {
		return err
	}
	*d = buf.Bytes()
	return nil
}

// Fields decodes the top level of an object document.
func (d Document) Fields() (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(d, &fields); err != nil {
		return nil, fmt.Errorf("not a JSON object: %w", err)
	}
	if fields == nil {
		return nil, fmt.Errorf("not a JSON object: null")
	}
	return fields, nil
}

// StringField returns the named top-level field rendered as a string.
// Numbers are returned in their literal form, strings unquoted. Other
// shapes, and documents that are not objects, report false.
func (d Document) StringField(name string) (string, bool) {
	fields, err := d.Fields()
	if err != nil {
		return "", false
	}
	raw, ok := fields[name]
	if !ok {
		return "", false
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String(), true
	}
	return "", false
}

// parseObject validates data as a JSON object and returns it compacted
// together with its top-level fields.
func parseObject(data []byte) (Document, map[string]json.RawMessage, error) {
	var doc Document
	if err := doc.UnmarshalJSON(data); err != nil {
		return nil, nil, fmt.Errorf("invalid JSON: %w", err)
	}
	fields, err := doc.Fields()
	if err != nil {
		return nil, nil, err
	}
	return doc, fields, nil
}
