package classifier

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/maternal-risk-advisor/internal/domain"
)

// ColumnManifest is the ordered list of columns a model was trained on.
// Plain columns carry a feature value; "Feature_category" columns are one-hot
// indicators of a categorical feature.
type ColumnManifest struct {
	columns []string
}

// NewColumnManifest creates a manifest from column names
func NewColumnManifest(columns []string) (*ColumnManifest, error) {
	if len(columns) == 0 {
		return nil, fmt.Errorf("column manifest is empty")
	}
	seen := make(map[string]bool, len(columns))
	for _, column := range columns {
		if strings.TrimSpace(column) == "" {
			return nil, fmt.Errorf("column manifest contains an empty column name")
		}
		if seen[column] {
			return nil, fmt.Errorf("column manifest lists %s twice", column)
		}
		seen[column] = true
	}
	return &ColumnManifest{columns: append([]string(nil), columns...)}, nil
}

// LoadColumnManifest reads a JSON list of column names
func LoadColumnManifest(path string) (*ColumnManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read column manifest: %w", err)
	}
	var columns []string
	if err := json.Unmarshal(data, &columns); err != nil {
		return nil, fmt.Errorf("failed to parse column manifest %s: %w", path, err)
	}
	return NewColumnManifest(columns)
}

// ManifestForFeatures builds a manifest with one plain column per feature
func ManifestForFeatures(features []domain.Feature) *ColumnManifest {
	columns := make([]string, len(features))
	for i, feature := range features {
		columns[i] = string(feature)
	}
	return &ColumnManifest{columns: columns}
}

// Columns returns the column order
func (m *ColumnManifest) Columns() []string {
	return append([]string(nil), m.columns...)
}

// Align expands a record into the manifest's column order. Missing values and
// columns without a matching field are zero-filled; fields without a column
// are dropped.
func (m *ColumnManifest) Align(record domain.PatientRecord) FeatureVector {
	vector := FeatureVector{
		Columns: m.Columns(),
		Values:  make([]float64, len(m.columns)),
	}
	for i, column := range m.columns {
		vector.Values[i] = alignColumn(column, record)
	}
	return vector
}

func alignColumn(column string, record domain.PatientRecord) float64 {
	if value, ok := record.Value(domain.Feature(column)); ok {
		return value
	}

	cut := strings.LastIndex(column, "_")
	if cut <= 0 || cut == len(column)-1 {
		return 0
	}
	value, ok := record.Value(domain.Feature(column[:cut]))
	if !ok {
		return 0
	}
	if strconv.FormatFloat(value, 'f', -1, 64) == column[cut+1:] {
		return 1
	}
	return 0
}
