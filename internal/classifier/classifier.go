// Package classifier adapts pre-trained risk models to the advisor: it aligns
// patient records to the model's training columns and decodes predictions into
// class and reason indices.
package classifier

import (
	"context"
	"fmt"
)

// FeatureVector is one row aligned to a model's column order.
type FeatureVector struct {
	Columns []string  `json:"columns"`
	Values  []float64 `json:"values"`
}

// Prediction is the raw classifier output for one row.
type Prediction struct {
	RiskClass   int  `json:"risk_class"`
	ReasonIndex int  `json:"reason_index,omitempty"`
	HasReason   bool `json:"has_reason"`
}

// Classifier predicts the risk class of an aligned feature vector.
type Classifier interface {
	Predict(ctx context.Context, vector FeatureVector) (Prediction, error)
	Name() string
}

// Func adapts a plain function to the Classifier interface.
type Func func(ctx context.Context, vector FeatureVector) (Prediction, error)

// Predict calls f
func (f Func) Predict(ctx context.Context, vector FeatureVector) (Prediction, error) {
	return f(ctx, vector)
}

// Name identifies function classifiers
func (f Func) Name() string {
	return "func"
}

func classIndex(v float64) (int, error) {
	i := int(v)
	if float64(i) != v || i < 0 {
		return 0, fmt.Errorf("class output %v is not a non-negative integer", v)
	}
	return i, nil
}
