package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// ModelHead is one linear output of a multi-output model: the predicted
// class is the one with the highest score coefficients·x + intercept.
type ModelHead struct {
	Classes      []int       `json:"classes"`
	Coefficients [][]float64 `json:"coefficients"`
	Intercepts   []float64   `json:"intercepts"`
}

// ModelArtifact is the serialized form of a local model.
type ModelArtifact struct {
	Name    string               `json:"name"`
	Columns []string             `json:"columns"`
	Heads   map[string]ModelHead `json:"heads"`
}

// Output head names
const (
	HeadRisk   = "risk"
	HeadReason = "reason"
)

// LocalModel evaluates a pre-trained linear model in process.
type LocalModel struct {
	name     string
	risk     ModelHead
	reason   *ModelHead
	width    int
	manifest *ColumnManifest
}

// LoadLocalModel reads a model artifact from a JSON file
func LoadLocalModel(path string) (*LocalModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read model artifact: %w", err)
	}
	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("failed to parse model artifact %s: %w", path, err)
	}
	return NewLocalModel(artifact)
}

// NewLocalModel validates an artifact and builds the model
func NewLocalModel(artifact ModelArtifact) (*LocalModel, error) {
	manifest, err := NewColumnManifest(artifact.Columns)
	if err != nil {
		return nil, fmt.Errorf("invalid model columns: %w", err)
	}
	width := len(artifact.Columns)

	risk, ok := artifact.Heads[HeadRisk]
	if !ok {
		return nil, fmt.Errorf("model artifact has no %q head", HeadRisk)
	}
	if err := validateHead(HeadRisk, risk, width); err != nil {
		return nil, err
	}

	model := &LocalModel{
		name:     artifact.Name,
		risk:     risk,
		width:    width,
		manifest: manifest,
	}
	if model.name == "" {
		model.name = "local"
	}

	if reason, ok := artifact.Heads[HeadReason]; ok {
		if err := validateHead(HeadReason, reason, width); err != nil {
			return nil, err
		}
		model.reason = &reason
	}
	return model, nil
}

func validateHead(name string, head ModelHead, width int) error {
	n := len(head.Classes)
	if n == 0 {
		return fmt.Errorf("model head %s has no classes", name)
	}
	if len(head.Coefficients) != n || len(head.Intercepts) != n {
		return fmt.Errorf("model head %s needs %d coefficient rows and intercepts", name, n)
	}
	for i, row := range head.Coefficients {
		if len(row) != width {
			return fmt.Errorf("model head %s row %d has %d coefficients, want %d", name, i, len(row), width)
		}
	}
	return nil
}

// Name returns the model name
func (m *LocalModel) Name() string {
	return m.name
}

// Manifest returns the training column order of the model
func (m *LocalModel) Manifest() *ColumnManifest {
	return m.manifest
}

// HasReasonHead reports whether the model predicts a reason index
func (m *LocalModel) HasReasonHead() bool {
	return m.reason != nil
}

// Predict scores the vector on every head and returns the argmax classes
func (m *LocalModel) Predict(ctx context.Context, vector FeatureVector) (Prediction, error) {
	if err := ctx.Err(); err != nil {
		return Prediction{}, err
	}
	if len(vector.Values) != m.width {
		return Prediction{}, fmt.Errorf("feature vector has %d values, model expects %d", len(vector.Values), m.width)
	}

	prediction := Prediction{RiskClass: argmax(m.risk, vector.Values)}
	if m.reason != nil {
		prediction.ReasonIndex = argmax(*m.reason, vector.Values)
		prediction.HasReason = true
	}
	return prediction, nil
}

func argmax(head ModelHead, x []float64) int {
	best := 0
	bestScore := 0.0
	for i, row := range head.Coefficients {
		score := head.Intercepts[i]
		for j, w := range row {
			score += w * x[j]
		}
		if i == 0 || score > bestScore {
			best, bestScore = i, score
		}
	}
	return head.Classes[best]
}
