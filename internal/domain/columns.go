package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// marshalColumn encodes v as a JSON text column, writing fallback for nil values.
func marshalColumn(v interface{}, isNil bool, fallback string) (driver.Value, error) {
	if isNil {
		return fallback, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// scanColumn decodes a JSON text or blob column into dest.
func scanColumn(value interface{}, dest interface{}, name string) error {
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan %s: unexpected type %T", name, value)
	}
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dest)
}
