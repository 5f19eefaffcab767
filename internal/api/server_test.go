package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-advisor/internal/audit"
	"github.com/maternal-risk-advisor/internal/classifier"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/middleware"
	"github.com/maternal-risk-advisor/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const normalBody = `{"Age": 30, "SystolicBP": 113, "DiastolicBP": 76, "BS": 8.7, "BodyTemp": 98.6, "HeartRate": 74}`

var testReasons = []string{
	"Normal vitals indicate low risk",
	"Elevated BP indicates high risk",
}

type failingCheck struct{}

func (failingCheck) Health(ctx context.Context) error { return errors.New("connection refused") }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func fixedPrediction(p classifier.Prediction, err error) classifier.Func {
	return func(ctx context.Context, vector classifier.FeatureVector) (classifier.Prediction, error) {
		return p, err
	}
}

func newTestServer(t *testing.T, model classifier.Classifier, deps Dependencies) *Server {
	t.Helper()
	logger := newTestLogger()

	engine, err := service.NewEngine(service.ReasonSchema(), classifier.NewReasonTable(testReasons), logger)
	require.NoError(t, err)

	var sink domain.SafetyEventSink
	if deps.Events != nil {
		sink = audit.NewRecorder(deps.Events, nil, logger)
	}
	deps.Advisor = service.NewAdvisorService(logger, engine, model, nil, sink)
	deps.ClassifierMode = "local"

	cfg := &domain.Config{Server: domain.ServerConfig{RequestTimeout: 5 * time.Second}}
	return NewServer(cfg, deps, logger)
}

func newSQLiteStore(t *testing.T) *audit.SQLiteStore {
	t.Helper()
	store, err := audit.NewSQLiteStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func doRequest(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Correlation-ID", "test-request")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{})

		w := doRequest(server, http.MethodGet, "/health", "")

		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, service.SchemaCoreReasons, body["schema"])
		assert.Equal(t, "func", body["classifier"])
		assert.Equal(t, false, body["audit_enabled"])
	})

	t.Run("degraded", func(t *testing.T) {
		server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{
			Checks: map[string]domain.HealthChecker{"classifier": failingCheck{}},
		})

		w := doRequest(server, http.MethodGet, "/health", "")

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Contains(t, w.Body.String(), "connection refused")
	})
}

func TestAssess(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{RiskClass: 2, ReasonIndex: 1, HasReason: true}, nil), Dependencies{})

	w := doRequest(server, http.MethodPost, "/api/v1/assess",
		`{"Age": 30, "SystolicBP": 165, "DiastolicBP": 76, "BS": 8.7, "BodyTemp": null, "HeartRate": 74}`)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "test-request", w.Header().Get("X-Correlation-ID"))

	var advisory domain.FinalAdvisory
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &advisory))
	assert.Equal(t, domain.HighRisk, advisory.RiskLabel)
	assert.Equal(t, "Elevated BP indicates high risk", advisory.Reason)
	assert.Equal(t, "test-request", advisory.RequestID)
	assert.False(t, advisory.Overridden)
	assert.Equal(t, []string{
		"Urgent medical attention needed for systolic BP",
		"Prenatal monitoring recommended",
	}, advisory.Recommendation.Messages())
	assert.Len(t, advisory.Recommendation.Findings, 5, "null body temperature is skipped")
}

func TestAssess_ClassifierFailure(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, errors.New("connection refused")), Dependencies{})

	w := doRequest(server, http.MethodPost, "/api/v1/assess", normalBody)

	require.Equal(t, http.StatusBadGateway, w.Code)
	var body AssessErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, domain.ErrClassifier, body.Error.Code)
	require.NotNil(t, body.Advisory)
	assert.True(t, body.Advisory.Recommendation.IsNormal())
	assert.Empty(t, body.Advisory.RiskLabel)
}

func TestAssess_InvalidInput(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{})

	tests := []struct {
		name string
		body string
		code string
	}{
		{"malformed json", `{"Age": `, domain.ErrInvalidInput},
		{"not an object", `[1, 2]`, domain.ErrInvalidInput},
		{"string measurement", `{"SystolicBP": "high"}`, domain.ErrValidation},
		{"no schema measurement", `{"BMI": 31}`, domain.ErrValidation},
		{"empty record", `{}`, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(server, http.MethodPost, "/api/v1/assess", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			var apiErr domain.APIError
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &apiErr))
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, "test-request", apiErr.RequestID)
		})
	}
}

func TestRecommendations(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, errors.New("must not be called")), Dependencies{})

	w := doRequest(server, http.MethodPost, "/api/v1/recommendations", `{"BS": 16, "HeartRate": 95}`)

	require.Equal(t, http.StatusOK, w.Code)
	var body RecommendationResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, service.SchemaCoreReasons, body.Schema)
	assert.Equal(t, []string{
		"Immediate diabetes screening recommended",
		"Cardiac evaluation recommended for high heart rate",
		"Prenatal monitoring recommended",
	}, body.Recommendation.Messages())
}

func TestThresholds(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{})

	w := doRequest(server, http.MethodGet, "/api/v1/thresholds", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Schema   string                  `json:"schema"`
		Features []service.ThresholdView `json:"features"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Features, 6)
	assert.Equal(t, domain.FeatureAge, body.Features[0].Feature)
	assert.Equal(t, domain.FeatureHeartRate, body.Features[5].Feature)
}

func TestSafetyEvents(t *testing.T) {
	store := newSQLiteStore(t)
	// High label with a low-risk reason is a contradiction
	server := newTestServer(t, fixedPrediction(classifier.Prediction{RiskClass: 2, ReasonIndex: 0, HasReason: true}, nil), Dependencies{Events: store})

	w := doRequest(server, http.MethodPost, "/api/v1/assess", normalBody)
	require.Equal(t, http.StatusOK, w.Code)

	w = doRequest(server, http.MethodGet, "/api/v1/safety-events?limit=10", "")

	require.Equal(t, http.StatusOK, w.Code)
	var body SafetyEventsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, int64(1), body.Total)
	assert.Equal(t, 10, body.Limit)
	require.Len(t, body.Events, 1)
	assert.Equal(t, domain.EventLabelReasonContradiction, body.Events[0].Type)
	assert.Equal(t, "test-request", body.Events[0].RequestID)
	assert.Equal(t, service.HighRiskDisclaimer, body.Events[0].ResolvedReason)

	w = doRequest(server, http.MethodGet, "/api/v1/safety-events?type=UNMAPPED_REASON_INDEX", "")
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Empty(t, body.Events)
}

func TestSafetyEvents_Errors(t *testing.T) {
	disabled := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{})
	assert.Equal(t, http.StatusNotFound, doRequest(disabled, http.MethodGet, "/api/v1/safety-events", "").Code)

	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{Events: newSQLiteStore(t)})
	for _, query := range []string{"limit=0", "limit=abc", "limit=501", "offset=-1"} {
		w := doRequest(server, http.MethodGet, "/api/v1/safety-events?"+query, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestRateLimit(t *testing.T) {
	limiter, err := middleware.NewClientRateLimiter(domain.RateLimitConfig{RequestsPerSecond: 0.001, Burst: 1})
	require.NoError(t, err)
	server := newTestServer(t, fixedPrediction(classifier.Prediction{}, nil), Dependencies{RateLimiter: limiter})

	assert.Equal(t, http.StatusOK, doRequest(server, http.MethodGet, "/api/v1/thresholds", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, doRequest(server, http.MethodGet, "/api/v1/thresholds", "").Code)
	assert.Equal(t, http.StatusOK, doRequest(server, http.MethodGet, "/health", "").Code, "health is not rate limited")
}

func TestAssessLive(t *testing.T) {
	server := newTestServer(t, fixedPrediction(classifier.Prediction{RiskClass: 0, ReasonIndex: 0, HasReason: true}, nil), Dependencies{})
	httpServer := httptest.NewServer(server.Handler())
	defer httpServer.Close()

	url := "ws" + strings.TrimPrefix(httpServer.URL, "http") + "/api/v1/assess/live"
	conn, _, err := websocket.DefaultDialer.Dial(url, http.Header{"X-Correlation-ID": []string{"live"}})
	require.NoError(t, err)
	defer conn.Close()

	// First frame: a normal record
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(normalBody)))
	var reply LiveReply
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 1, reply.Sequence)
	assert.Nil(t, reply.Error)
	require.NotNil(t, reply.Advisory)
	assert.Equal(t, domain.LowRisk, reply.Advisory.RiskLabel)
	assert.Equal(t, "live-1", reply.Advisory.RequestID)
	assert.True(t, reply.Advisory.Recommendation.IsNormal())

	// Second frame: the form changed
	changed := bytes.Replace([]byte(normalBody), []byte(`"BS": 8.7`), []byte(`"BS": 13`), 1)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, changed))
	reply = LiveReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 2, reply.Sequence)
	require.NotNil(t, reply.Advisory)
	assert.Equal(t, "Monitor carbohydrate intake and blood sugar levels", reply.Advisory.Recommendation.Advice[0].Text)

	// Third frame: invalid input keeps the session open
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"BS": "sweet"}`)))
	reply = LiveReply{}
	require.NoError(t, conn.ReadJSON(&reply))
	assert.Equal(t, 3, reply.Sequence)
	require.NotNil(t, reply.Error)
	assert.Equal(t, domain.ErrValidation, reply.Error.Code)
	assert.Nil(t, reply.Advisory)
}
