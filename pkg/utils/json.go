package utils

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// EncodeJSON marshals v into a JSONB column value.
func EncodeJSON(v any) (datatypes.JSON, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// DecodeJSONSlice unmarshals a JSONB column holding an array. A null or empty
// column decodes to an empty slice.
func DecodeJSONSlice[T any](raw datatypes.JSON) ([]T, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
