package external

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-advisor/internal/domain"
)

func newTestClient(baseURL string) *ModelServerClient {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return NewModelServerClient(domain.ClassifierConfig{
		BaseURL:   baseURL,
		APIKey:    "secret",
		Timeout:   2 * time.Second,
		RateLimit: 1000,
	}, logger)
}

func TestModelServerClient_Predict(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))

		var req PredictRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"Age", "SystolicBP"}, req.Columns)
		assert.Equal(t, [][]float64{{30, 165}}, req.Rows)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(PredictResponse{Model: "mh-risk-v2", Predictions: [][]float64{{2, 5}}})
	}))
	defer server.Close()

	client := newTestClient(server.URL + "/")

	resp, err := client.Predict(context.Background(), PredictRequest{
		Columns: []string{"Age", "SystolicBP"},
		Rows:    [][]float64{{30, 165}},
	})

	require.NoError(t, err)
	assert.Equal(t, "mh-risk-v2", resp.Model)
	assert.Equal(t, [][]float64{{2, 5}}, resp.Predictions)
}

func TestModelServerClient_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Predict(context.Background(), PredictRequest{Rows: [][]float64{{1}}})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestModelServerClient_RowCountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(PredictResponse{Predictions: [][]float64{}})
	}))
	defer server.Close()

	client := newTestClient(server.URL)

	_, err := client.Predict(context.Background(), PredictRequest{Rows: [][]float64{{1}}})
	assert.Error(t, err)
}

func TestModelServerClient_CircuitOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := client.Predict(ctx, PredictRequest{Rows: [][]float64{{1}}})
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, client.State())

	_, err := client.Predict(ctx, PredictRequest{Rows: [][]float64{{1}}})
	assert.True(t, errors.Is(err, domain.ErrClassifierUnavailable))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls), "open circuit must not reach the server")
}

func TestModelServerClient_ContextCancelled(t *testing.T) {
	client := newTestClient("http://127.0.0.1:0")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Predict(ctx, PredictRequest{Rows: [][]float64{{1}}})
	assert.Error(t, err)
}

func TestModelServerClient_Health(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	assert.NoError(t, newTestClient(server.URL).Health(context.Background()))
}
