package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
)

// PatientRecord is an immutable set of measurements for one assessment.
// A feature that is absent, null or NaN has no value and is skipped by the
// rule engine; it is never replaced by a default.
type PatientRecord struct {
	values map[Feature]float64
}

// NewPatientRecord copies values into a new record, dropping NaN entries.
func NewPatientRecord(values map[Feature]float64) PatientRecord {
	r := PatientRecord{values: make(map[Feature]float64, len(values))}
	for f, v := range values {
		if math.IsNaN(v) {
			continue
		}
		r.values[f] = v
	}
	return r
}

// RecordFromOptional builds a record from nullable values; nil entries are missing.
func RecordFromOptional(values map[Feature]*float64) PatientRecord {
	plain := make(map[Feature]float64, len(values))
	for f, v := range values {
		if v != nil {
			plain[f] = *v
		}
	}
	return NewPatientRecord(plain)
}

// Value returns the measurement of f and whether it is present.
func (r PatientRecord) Value(f Feature) (float64, bool) {
	v, ok := r.values[f]
	return v, ok
}

// Has reports whether f has a value.
func (r PatientRecord) Has(f Feature) bool {
	_, ok := r.values[f]
	return ok
}

// Len returns the number of present measurements.
func (r PatientRecord) Len() int {
	return len(r.values)
}

// Features returns the present features sorted by name.
func (r PatientRecord) Features() []Feature {
	features := make([]Feature, 0, len(r.values))
	for f := range r.values {
		features = append(features, f)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
	return features
}

// MarshalJSON encodes the record as a feature-name object.
func (r PatientRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]float64, len(r.values))
	for f, v := range r.values {
		out[string(f)] = v
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a feature-name object. Values may be numbers,
// booleans (flags: true=1, false=0) or null (missing).
func (r *PatientRecord) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding patient record: %w", err)
	}

	values := make(map[Feature]float64, len(raw))
	for name, msg := range raw {
		trimmed := bytes.TrimSpace(msg)
		switch {
		case bytes.Equal(trimmed, []byte("null")):
			continue
		case bytes.Equal(trimmed, []byte("true")):
			values[Feature(name)] = 1
		case bytes.Equal(trimmed, []byte("false")):
			values[Feature(name)] = 0
		default:
			var v float64
			if err := json.Unmarshal(trimmed, &v); err != nil {
				return NewValidationError(name, "must be a number, boolean or null", string(trimmed))
			}
			values[Feature(name)] = v
		}
	}

	*r = NewPatientRecord(values)
	return nil
}
