package classifier

import (
	"encoding/json"
	"fmt"
	"os"
)

// ReasonTable maps reason indices predicted by the model to their texts.
// The index of a reason is its position in the source list.
type ReasonTable struct {
	reasons []string
}

// NewReasonTable creates a table from an ordered list of reasons
func NewReasonTable(reasons []string) *ReasonTable {
	return &ReasonTable{reasons: append([]string(nil), reasons...)}
}

// LoadReasonTable reads a JSON list of reason texts
func LoadReasonTable(path string) (*ReasonTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reason table: %w", err)
	}
	var reasons []string
	if err := json.Unmarshal(data, &reasons); err != nil {
		return nil, fmt.Errorf("failed to parse reason table %s: %w", path, err)
	}
	return NewReasonTable(reasons), nil
}

// Lookup returns the reason at index
func (t *ReasonTable) Lookup(index int) (string, bool) {
	if index < 0 || index >= len(t.reasons) {
		return "", false
	}
	return t.reasons[index], true
}

// Len returns the number of reasons
func (t *ReasonTable) Len() int {
	return len(t.reasons)
}
