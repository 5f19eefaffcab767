package domain

import (
	"errors"
	"testing"
)

func TestTierRankAndSeverity(t *testing.T) {
	tests := []struct {
		name     string
		tier     Tier
		rank     int
		severity Severity
		extreme  bool
	}{
		{"Very Low", TierVeryLow, -2, SeverityCritical, true},
		{"Low", TierLow, -1, SeverityWarning, false},
		{"Normal", TierNormal, 0, SeverityOK, false},
		{"High", TierHigh, 1, SeverityWarning, false},
		{"Very High", TierVeryHigh, 2, SeverityCritical, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !tt.tier.IsValid() {
				t.Errorf("Expected %s to be valid", tt.tier)
			}
			if got := tt.tier.Rank(); got != tt.rank {
				t.Errorf("Expected rank %d, got %d", tt.rank, got)
			}
			if got := tt.tier.Severity(); got != tt.severity {
				t.Errorf("Expected severity %s, got %s", tt.severity, got)
			}
			if got := tt.tier.IsExtreme(); got != tt.extreme {
				t.Errorf("Expected extreme %v, got %v", tt.extreme, got)
			}
		})
	}

	if Tier("severe").IsValid() {
		t.Error("Expected unknown tier to be invalid")
	}
}

func TestComparisonHolds(t *testing.T) {
	tests := []struct {
		name     string
		op       Comparison
		value    float64
		boundary float64
		expected bool
	}{
		{"GE at boundary", CompareGreaterOrEqual, 160, 160, true},
		{"GE below", CompareGreaterOrEqual, 159, 160, false},
		{"GT at boundary", CompareGreater, 70, 70, false},
		{"GT above", CompareGreater, 71, 70, true},
		{"LE at boundary", CompareLessOrEqual, 90, 90, true},
		{"LT at boundary", CompareLess, 18, 18, false},
		{"LT below", CompareLess, 17, 18, true},
		{"EQ flag set", CompareEqual, 1, 1, true},
		{"EQ flag clear", CompareEqual, 0, 1, false},
		{"Unknown operator", Comparison("~"), 1, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.op.Holds(tt.value, tt.boundary); got != tt.expected {
				t.Errorf("Expected %v %s %v to be %v", tt.value, tt.op, tt.boundary, tt.expected)
			}
		})
	}
}

func TestRiskLabelConstants(t *testing.T) {
	tests := []struct {
		name     string
		value    RiskLabel
		expected string
		elevated bool
	}{
		{"Low", LowRisk, "Low Risk", false},
		{"Mid", MidRisk, "Mid Risk", true},
		{"High", HighRisk, "High Risk", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if string(tt.value) != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, string(tt.value))
			}
			if tt.value.IsElevated() != tt.elevated {
				t.Errorf("Expected elevated=%v for %s", tt.elevated, tt.value)
			}
		})
	}
}

func TestLabelSetDecode(t *testing.T) {
	label, err := ThreeClassLabels.Decode(1)
	if err != nil || label != MidRisk {
		t.Fatalf("Expected Mid Risk, got %q (%v)", label, err)
	}

	label, err = BinaryLabels.Decode(1)
	if err != nil || label != HighRisk {
		t.Fatalf("Expected High Risk, got %q (%v)", label, err)
	}

	if _, err := BinaryLabels.Decode(2); !errors.Is(err, ErrUnknownRiskClass) {
		t.Errorf("Expected ErrUnknownRiskClass, got %v", err)
	}
	if _, err := ThreeClassLabels.Decode(-1); !errors.Is(err, ErrUnknownRiskClass) {
		t.Errorf("Expected ErrUnknownRiskClass, got %v", err)
	}
}

func TestFeatureShapes(t *testing.T) {
	if len(CoreFeatures) != 6 {
		t.Errorf("Expected 6 core features, got %d", len(CoreFeatures))
	}
	if len(ExtendedFeatures) != 11 {
		t.Errorf("Expected 11 extended features, got %d", len(ExtendedFeatures))
	}
	for i, f := range CoreFeatures {
		if ExtendedFeatures[i] != f {
			t.Errorf("Extended shape must start with core feature %s at %d", f, i)
		}
	}
	for _, f := range ExtendedFeatures {
		if !f.IsKnown() {
			t.Errorf("Expected %s to be known", f)
		}
	}
	if !FeatureMentalHealth.IsFlag() || FeatureBMI.IsFlag() {
		t.Error("Unexpected flag classification")
	}
}
