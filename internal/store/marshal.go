package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/sigma/internal/ir"
)

// marshalModel converts a model to canonical JSON TEXT for storage.
// Uses the same encoding ir.ModelHash hashes, so a stored body always
// rehashes to its key.
func marshalModel(m *ir.Model) (string, error) {
	data, err := ir.MarshalCanonical(m.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("marshal model: %w", err)
	}
	return string(data), nil
}

// marshalTuple converts an index tuple to canonical JSON TEXT, keeping
// the integer 1 and the string "1" apart.
func marshalTuple(t ir.Tuple) (string, error) {
	if t == nil {
		t = ir.Tuple{}
	}
	data, err := ir.MarshalCanonical(t)
	if err != nil {
		return "", fmt.Errorf("marshal tuple: %w", err)
	}
	return string(data), nil
}

// unmarshalTuple parses tuple TEXT back into index values.
func unmarshalTuple(data string) (ir.Tuple, error) {
	var t ir.Tuple
	if err := json.Unmarshal([]byte(data), &t); err != nil {
		return nil, fmt.Errorf("unmarshal tuple: %w", err)
	}
	if len(t) == 0 {
		return nil, nil
	}
	return t, nil
}
