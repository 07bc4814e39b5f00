package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// NullableRawMessage is a raw JSON column that maps SQL NULL to an empty value.
type NullableRawMessage json.RawMessage

// Scan implements sql.Scanner.
func (m *NullableRawMessage) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*m = nil
	case []byte:
		*m = append((*m)[:0], v...)
	case string:
		*m = NullableRawMessage(v)
	default:
		return fmt.Errorf("cannot scan %T into NullableRawMessage", src)
	}
	return nil
}

// Value implements driver.Valuer. An empty message is stored as NULL.
func (m NullableRawMessage) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return []byte(m), nil
}

func (m NullableRawMessage) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

func (m *NullableRawMessage) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*m = nil
		return nil
	}
	*m = append((*m)[:0], b...)
	return nil
}
