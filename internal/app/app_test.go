package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-advisor/internal/config"
	"github.com/maternal-risk-advisor/internal/domain"
	"github.com/maternal-risk-advisor/internal/service"
)

const artifactsDir = "../../artifacts"

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func normalRecord() domain.PatientRecord {
	return domain.NewPatientRecord(map[domain.Feature]float64{
		domain.FeatureAge:         30,
		domain.FeatureSystolicBP:  113,
		domain.FeatureDiastolicBP: 75,
		domain.FeatureBloodSugar:  7,
		domain.FeatureBodyTemp:    98,
		domain.FeatureHeartRate:   75,
	})
}

// recordWith returns a copy of base with the given features overridden
func recordWith(base domain.PatientRecord, overrides map[domain.Feature]float64) domain.PatientRecord {
	values := make(map[domain.Feature]float64)
	for _, feature := range base.Features() {
		values[feature], _ = base.Value(feature)
	}
	for f, v := range overrides {
		values[f] = v
	}
	return domain.NewPatientRecord(values)
}

func TestNewLogger(t *testing.T) {
	logger := NewLogger("debug", "text")
	assert.Equal(t, logrus.DebugLevel, logger.GetLevel())
	assert.IsType(t, &logrus.TextFormatter{}, logger.Formatter)

	fallback := NewLogger("loud", "json")
	assert.Equal(t, logrus.InfoLevel, fallback.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, fallback.Formatter)
}

func TestNewEngine(t *testing.T) {
	logger := newTestLogger()

	engine, err := NewEngine(domain.AdvisorConfig{Schema: service.SchemaCoreReasons, ReasonsPath: filepath.Join(artifactsDir, "reasons.json")}, logger)
	require.NoError(t, err)
	assert.True(t, engine.Schema().UsesReasons())

	_, err = NewEngine(domain.AdvisorConfig{Schema: service.SchemaCoreReasons, ReasonsPath: "missing.json"}, logger)
	assert.Error(t, err)

	_, err = NewEngine(domain.AdvisorConfig{Schema: "core-7"}, logger)
	assert.ErrorIs(t, err, domain.ErrUnknownSchema)
}

func TestNewAdvisor_LocalArtifacts(t *testing.T) {
	tests := []struct {
		name     string
		schema   string
		model    string
		normal   domain.RiskLabel
		elevated domain.RiskLabel
	}{
		{"core", service.SchemaCore, "model.json", domain.LowRisk, domain.HighRisk},
		{"core with reasons", service.SchemaCoreReasons, "model.json", domain.LowRisk, domain.HighRisk},
		{"extended", service.SchemaExtended, "model-extended.json", domain.LowRisk, domain.HighRisk},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			advisor, err := NewAdvisor(
				domain.AdvisorConfig{Schema: tt.schema, ReasonsPath: filepath.Join(artifactsDir, "reasons.json")},
				domain.ClassifierConfig{Mode: config.ClassifierLocal, ModelPath: filepath.Join(artifactsDir, tt.model)},
				nil,
				newTestLogger(),
			)
			require.NoError(t, err)
			assert.Empty(t, advisor.Checks)

			ctx := context.Background()

			advisory, err := advisor.Service.Assess(ctx, normalRecord(), "req-normal")
			require.NoError(t, err)
			assert.Equal(t, tt.normal, advisory.RiskLabel)
			assert.True(t, advisory.Recommendation.IsNormal())

			elevated := recordWith(normalRecord(), map[domain.Feature]float64{
				domain.FeatureSystolicBP:  165,
				domain.FeatureDiastolicBP: 105,
				domain.FeatureBloodSugar:  16,
			})
			advisory, err = advisor.Service.Assess(ctx, elevated, "req-elevated")
			require.NoError(t, err)
			assert.Equal(t, tt.elevated, advisory.RiskLabel)
			assert.False(t, advisory.Recommendation.IsNormal())
		})
	}
}

func TestNewAdvisor_Remote(t *testing.T) {
	advisor, err := NewAdvisor(
		domain.AdvisorConfig{Schema: service.SchemaCore, ColumnsPath: filepath.Join(artifactsDir, "columns.json")},
		domain.ClassifierConfig{Mode: config.ClassifierRemote, BaseURL: "http://localhost:8501"},
		nil,
		newTestLogger(),
	)

	require.NoError(t, err)
	assert.Contains(t, advisor.Checks, "classifier")
	assert.Equal(t, config.ClassifierRemote, advisor.ClassifierMode)
}

func TestNewAdvisor_Errors(t *testing.T) {
	logger := newTestLogger()
	core := domain.AdvisorConfig{Schema: service.SchemaCore}

	_, err := NewAdvisor(core, domain.ClassifierConfig{Mode: "oracle"}, nil, logger)
	assert.Error(t, err)

	_, err = NewAdvisor(core, domain.ClassifierConfig{Mode: config.ClassifierLocal, ModelPath: "missing.json"}, nil, logger)
	assert.Error(t, err)

	_, err = NewAdvisor(
		domain.AdvisorConfig{Schema: service.SchemaCore, ColumnsPath: "missing.json"},
		domain.ClassifierConfig{Mode: config.ClassifierLocal, ModelPath: filepath.Join(artifactsDir, "model.json")},
		nil, logger,
	)
	assert.Error(t, err)
}

func TestNewRecorder(t *testing.T) {
	logger := newTestLogger()

	t.Run("disabled", func(t *testing.T) {
		recorder, err := NewRecorder(&domain.Config{Audit: domain.AuditConfig{Driver: config.AuditNone}}, "", logger)
		require.NoError(t, err)
		assert.Nil(t, recorder)
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "audit.db")
		recorder, err := NewRecorder(&domain.Config{Audit: domain.AuditConfig{Driver: config.AuditSQLite, SQLitePath: path}}, "", logger)
		require.NoError(t, err)
		require.NotNil(t, recorder)
		assert.NotNil(t, recorder.Store())
		assert.NoError(t, recorder.Close())
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewRecorder(&domain.Config{Audit: domain.AuditConfig{Driver: "kafka"}}, "", logger)
		assert.Error(t, err)
	})
}
