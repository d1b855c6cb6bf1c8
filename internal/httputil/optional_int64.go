package httputil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// OptionalInt64 tracks presence and value for JSON PATCH semantics (RFC 7396).
// This enables tri-state handling that Go's *int64 cannot express:
//   - Present=false: field absent from JSON (don't change)
//   - Present=true, Value=nil: field is JSON null (move to root)
//   - Present=true, Value=&id: field has value
//
// Numeric strings ("12") are accepted as well as numbers; "" and "null" mean null.
type OptionalInt64 struct {
	Present bool
	Value   *int64
}

// UnmarshalJSON implements json.Unmarshaler.
// When this method is called, the field was present in the JSON.
func (o *OptionalInt64) UnmarshalJSON(data []byte) error {
	o.Present = true

	trimmed := bytes.TrimSpace(data)
	if string(trimmed) == "null" {
		o.Value = nil
		return nil
	}

	var s string
	if len(trimmed) > 0 && trimmed[0] == '"' {
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
	} else {
		s = string(trimmed)
	}

	id, err := ParseOptionalID(s)
	if err != nil {
		return err
	}
	o.Value = id
	return nil
}

// ParseOptionalID parses a folder reference where "" and "null" mean the root
func ParseOptionalID(raw string) (*int64, error) {
	if raw == "" || raw == "null" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("invalid id %q", raw)
	}
	return &id, nil
}
