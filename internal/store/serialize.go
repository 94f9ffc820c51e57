package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// StringList is a JSON-serialized list of book identifiers stored in a
// single text column, mirroring the document-store array shape.
type StringList []string

// Value implements driver.Valuer
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize string list: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = StringList{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for string list: %T", value)
	}
	if len(data) == 0 {
		*l = StringList{}
		return nil
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list holds id, by exact string match
func (l StringList) Contains(id string) bool {
	for _, v := range l {
		if v == id {
			return true
		}
	}
	return false
}

// StringMap is a JSON-serialized string-to-string mapping stored in a
// single text column. It backs the book-to-review index.
type StringMap map[string]string

// Value implements driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		m = StringMap{}
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize string map: %w", err)
	}
	return string(data), nil
}

// Scan implements sql.Scanner
func (m *StringMap) Scan(value interface{}) error {
	if value == nil {
		*m = StringMap{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for string map: %T", value)
	}
	if len(data) == 0 {
		*m = StringMap{}
		return nil
	}
	return json.Unmarshal(data, m)
}
