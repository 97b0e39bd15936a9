package molder

import (
	"encoding/json"
	"fmt"
)

// Decode validates input against model and decodes the sanitized instance
// into a T through its JSON tags.
func Decode[T any](m *Molder, model string, input any) (T, error) {
	var out T
	instance, err := m.Validate(model, input)
	if err != nil {
		return out, err
	}
	data, err := json.Marshal(instance)
	if err != nil {
		return out, fmt.Errorf("decode %s: %w", model, err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return out, fmt.Errorf("decode %s: %w", model, err)
	}
	return out, nil
}
