package valueobject

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
)

// ErrScanValueNotBytes indicates the database value is not a byte slice.
var ErrScanValueNotBytes = errors.New("valueobject: jsonmap scan value is not []byte")

// JSONMap stores arbitrary JSON object data in a jsonb column.
type JSONMap map[string]any

// Value implements driver.Valuer for JSONMap.
func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONMap.
func (j *JSONMap) Scan(value any) error {
	var raw []byte

	switch v := value.(type) {
	case nil:
		*j = JSONMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	case map[string]any:
		// pgx decodes jsonb into a map already
		*j = JSONMap(v)
		return nil
	default:
		return ErrScanValueNotBytes
	}

	var result JSONMap
	if err := json.Unmarshal(raw, &result); err != nil {
		return err
	}

	*j = result
	return nil
}

// Set adds or updates a key-value pair.
func (j JSONMap) Set(key string, value any) {
	j[key] = value
}

// GetString returns the value as a string, or "" when missing or not a string.
func (j JSONMap) GetString(key string) string {
	s, _ := j[key].(string)
	return s
}

// GetInt handles both int and the float64 produced by JSON decoding.
func (j JSONMap) GetInt(key string) int {
	switch v := j[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
