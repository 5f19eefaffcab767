package classifier

import (
	"context"
	"fmt"

	"github.com/maternal-risk-advisor/pkg/external"
)

// PredictClient is the transport used by RemoteModel.
type PredictClient interface {
	Predict(ctx context.Context, req external.PredictRequest) (*external.PredictResponse, error)
}

// RemoteModel delegates prediction to a model-serving endpoint.
type RemoteModel struct {
	client PredictClient
}

// NewRemoteModel creates a remote classifier
func NewRemoteModel(client PredictClient) *RemoteModel {
	return &RemoteModel{client: client}
}

// Name identifies the remote classifier
func (m *RemoteModel) Name() string {
	return "remote"
}

// Predict sends the vector as a single row and decodes [risk, reason?]
func (m *RemoteModel) Predict(ctx context.Context, vector FeatureVector) (Prediction, error) {
	resp, err := m.client.Predict(ctx, external.PredictRequest{
		Columns: vector.Columns,
		Rows:    [][]float64{vector.Values},
	})
	if err != nil {
		return Prediction{}, err
	}
	if len(resp.Predictions) == 0 || len(resp.Predictions[0]) == 0 {
		return Prediction{}, fmt.Errorf("model server returned an empty prediction")
	}

	row := resp.Predictions[0]
	risk, err := classIndex(row[0])
	if err != nil {
		return Prediction{}, fmt.Errorf("invalid risk output: %w", err)
	}
	prediction := Prediction{RiskClass: risk}

	if len(row) > 1 {
		reason, err := classIndex(row[1])
		if err != nil {
			// An unusable reason index is surfaced to the reconciler as unmapped.
			reason = -1
		}
		prediction.ReasonIndex = reason
		prediction.HasReason = true
	}
	return prediction, nil
}
