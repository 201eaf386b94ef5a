package store

import (
	"fmt"

	"github.com/roach88/weft/internal/ir"
)

// marshalRecord converts a record to canonical JSON TEXT for storage.
// A nil record is stored as {}.
func marshalRecord(rec ir.Record) (string, error) {
	if rec == nil {
		return "{}", nil
	}
	data, err := ir.MarshalCanonical(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return string(data), nil
}

// unmarshalRecord parses a stored record. Floats are rejected.
func unmarshalRecord(text string) (ir.Record, error) {
	var rec ir.Record
	if err := rec.UnmarshalJSON([]byte(text)); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return rec, nil
}
