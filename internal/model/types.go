package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// Weekdays lists plan day keys in display order. Every seven-day structure
// in the system is keyed by exactly this set.
var Weekdays = []string{
	"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
}

// IsWeekday reports whether key is one of the seven plan day keys.
func IsWeekday(key string) bool {
	for _, day := range Weekdays {
		if day == key {
			return true
		}
	}
	return false
}

// JSONMap is a custom type for JSON object columns.
type JSONMap map[string]interface{}

// Scan implements the sql.Scanner interface for JSONMap
func (j *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONMap)
		return nil
	}

	bytes, ok := toBytes(value)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for JSONMap
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// JSONSlice is a custom type for JSON array columns.
type JSONSlice []interface{}

// Scan implements the sql.Scanner interface for JSONSlice
func (j *JSONSlice) Scan(value interface{}) error {
	if value == nil {
		*j = make(JSONSlice, 0)
		return nil
	}

	bytes, ok := toBytes(value)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface for JSONSlice
func (j JSONSlice) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// StringSlice is a custom type for JSON string-array columns.
type StringSlice []string

// Scan implements the sql.Scanner interface for StringSlice
func (s *StringSlice) Scan(value interface{}) error {
	if value == nil {
		*s = make(StringSlice, 0)
		return nil
	}

	bytes, ok := toBytes(value)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}

	return json.Unmarshal(bytes, s)
}

// Value implements the driver.Valuer interface for StringSlice
func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Postgres text/jsonb columns surface as either []byte or string
// depending on the driver path.
func toBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
