package service

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maternal-risk-advisor/internal/domain"
)

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel) // Suppress logs during testing
	return logger
}

func TestNewThresholdTable_Presets(t *testing.T) {
	core, err := NewThresholdTable(CoreThresholds())
	require.NoError(t, err)
	assert.Len(t, core.Features(), 6)

	extended, err := NewThresholdTable(ExtendedThresholds())
	require.NoError(t, err)
	assert.Len(t, extended.Features(), 11)
}

func TestThresholdTable_SpecUnknownFeature(t *testing.T) {
	table, err := NewThresholdTable(CoreThresholds())
	require.NoError(t, err)

	_, err = table.Spec(domain.FeatureBMI)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnknownFeature))
}

func TestThresholdTable_SpecReturnsCopy(t *testing.T) {
	table, err := NewThresholdTable(CoreThresholds())
	require.NoError(t, err)

	spec, err := table.Spec(domain.FeatureSystolicBP)
	require.NoError(t, err)
	spec[0].Boundary = 0

	again, err := table.Spec(domain.FeatureSystolicBP)
	require.NoError(t, err)
	assert.Equal(t, 160.0, again[0].Boundary)
}

func TestNewThresholdTable_Validation(t *testing.T) {
	tests := []struct {
		name string
		spec ThresholdSpec
	}{
		{
			name: "moderate before extreme",
			spec: ThresholdSpec{
				atLeast(domain.TierHigh, 140),
				atLeast(domain.TierVeryHigh, 160),
			},
		},
		{
			name: "low before very low",
			spec: ThresholdSpec{
				atMost(domain.TierLow, 90),
				atMost(domain.TierVeryLow, 70),
			},
		},
		{
			name: "normal tier",
			spec: ThresholdSpec{{Tier: domain.TierNormal, Comparison: domain.CompareEqual, Boundary: 0}},
		},
		{
			name: "invalid comparison",
			spec: ThresholdSpec{{Tier: domain.TierHigh, Comparison: "=>", Boundary: 1}},
		},
		{
			name: "duplicate tier",
			spec: ThresholdSpec{
				atLeast(domain.TierHigh, 140),
				atLeast(domain.TierHigh, 150),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewThresholdTable(map[domain.Feature]ThresholdSpec{
				domain.FeatureSystolicBP: tt.spec,
			})
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrInvalidThreshold))
		})
	}
}

func TestThresholdTable_PrecedenceOrder(t *testing.T) {
	for feature, spec := range ExtendedThresholds() {
		for i, threshold := range spec {
			for _, later := range spec[i+1:] {
				if threshold.Tier.Rank()*later.Tier.Rank() > 0 {
					assert.True(t, threshold.Tier.IsExtreme() || !later.Tier.IsExtreme(),
						"%s: %s must not precede %s", feature, threshold.Tier, later.Tier)
				}
			}
		}
	}
}
