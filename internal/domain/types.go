// Package domain contains core entities and types for maternal health risk triage:
// the clinical feature set, severity tiers, classifier risk labels and the
// advisory structures returned to callers.
//
// Threshold bands follow the feature statistics of the Maternal Health Risk
// dataset (UCI) combined with common obstetric clinical cut-offs.
package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// Feature is the wire name of a clinical measurement.
type Feature string

const (
	FeatureAge         Feature = "Age"
	FeatureSystolicBP  Feature = "SystolicBP"
	FeatureDiastolicBP Feature = "DiastolicBP"
	FeatureBloodSugar  Feature = "BS"
	FeatureBodyTemp    Feature = "BodyTemp"
	FeatureHeartRate   Feature = "HeartRate"

	FeatureBMI                   Feature = "BMI"
	FeaturePreviousComplications Feature = "PreviousComplications"
	FeaturePreexistingDiabetes   Feature = "PreexistingDiabetes"
	FeatureGestationalDiabetes   Feature = "GestationalDiabetes"
	FeatureMentalHealth          Feature = "MentalHealth"
)

// CoreFeatures is the six-measurement record shape in evaluation order.
var CoreFeatures = []Feature{
	FeatureAge,
	FeatureSystolicBP,
	FeatureDiastolicBP,
	FeatureBloodSugar,
	FeatureBodyTemp,
	FeatureHeartRate,
}

// ExtendedFeatures is the eleven-measurement record shape in evaluation order.
var ExtendedFeatures = append(append([]Feature{}, CoreFeatures...),
	FeatureBMI,
	FeaturePreviousComplications,
	FeaturePreexistingDiabetes,
	FeatureGestationalDiabetes,
	FeatureMentalHealth,
)

var featureDisplayNames = map[Feature]string{
	FeatureAge:                   "Age",
	FeatureSystolicBP:            "Systolic BP",
	FeatureDiastolicBP:           "Diastolic BP",
	FeatureBloodSugar:            "Blood sugar",
	FeatureBodyTemp:              "Body temperature",
	FeatureHeartRate:             "Heart rate",
	FeatureBMI:                   "BMI",
	FeaturePreviousComplications: "Previous complications",
	FeaturePreexistingDiabetes:   "Preexisting diabetes",
	FeatureGestationalDiabetes:   "Gestational diabetes",
	FeatureMentalHealth:          "Mental health condition",
}

var featureUnits = map[Feature]string{
	FeatureBodyTemp: "°F",
}

// String returns the wire name.
func (f Feature) String() string {
	return string(f)
}

// IsKnown reports whether f belongs to any supported record shape.
func (f Feature) IsKnown() bool {
	_, ok := featureDisplayNames[f]
	return ok
}

// DisplayName returns the human-readable name used in finding details.
func (f Feature) DisplayName() string {
	if name, ok := featureDisplayNames[f]; ok {
		return name
	}
	return string(f)
}

// Unit returns the display unit suffix, if any.
func (f Feature) Unit() string {
	return featureUnits[f]
}

// IsFlag reports whether the feature is a 0/1 obstetric-history flag.
func (f Feature) IsFlag() bool {
	switch f {
	case FeaturePreviousComplications, FeaturePreexistingDiabetes, FeatureGestationalDiabetes, FeatureMentalHealth:
		return true
	default:
		return false
	}
}

// Tier is a severity band of one feature.
type Tier string

const (
	TierVeryLow  Tier = "very_low"
	TierLow      Tier = "low"
	TierNormal   Tier = "normal"
	TierHigh     Tier = "high"
	TierVeryHigh Tier = "very_high"
)

// IsValid validates the tier name.
func (t Tier) IsValid() bool {
	switch t {
	case TierVeryLow, TierLow, TierNormal, TierHigh, TierVeryHigh:
		return true
	default:
		return false
	}
}

// String returns the string representation of the tier.
func (t Tier) String() string {
	return string(t)
}

// Rank orders tiers by distance from the normal band: very_low=-2 ... very_high=2.
func (t Tier) Rank() int {
	switch t {
	case TierVeryLow:
		return -2
	case TierLow:
		return -1
	case TierHigh:
		return 1
	case TierVeryHigh:
		return 2
	default:
		return 0
	}
}

// IsExtreme reports whether the tier is very_low or very_high.
func (t Tier) IsExtreme() bool {
	return t == TierVeryLow || t == TierVeryHigh
}

// Adjacent returns the moderate tier next to an extreme one (very_high -> high).
func (t Tier) Adjacent() Tier {
	switch t {
	case TierVeryHigh:
		return TierHigh
	case TierVeryLow:
		return TierLow
	default:
		return t
	}
}

// Severity returns the display severity of the tier.
func (t Tier) Severity() Severity {
	switch t {
	case TierVeryLow, TierVeryHigh:
		return SeverityCritical
	case TierLow, TierHigh:
		return SeverityWarning
	default:
		return SeverityOK
	}
}

// Severity is the presentation tag a renderer uses to style a finding.
type Severity string

const (
	SeverityOK       Severity = "ok"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Comparison is the boundary test of a threshold.
type Comparison string

const (
	CompareGreaterOrEqual Comparison = ">="
	CompareGreater        Comparison = ">"
	CompareLessOrEqual    Comparison = "<="
	CompareLess           Comparison = "<"
	CompareEqual          Comparison = "=="
)

// IsValid validates the comparison operator.
func (c Comparison) IsValid() bool {
	switch c {
	case CompareGreaterOrEqual, CompareGreater, CompareLessOrEqual, CompareLess, CompareEqual:
		return true
	default:
		return false
	}
}

// Holds evaluates "value <op> boundary".
func (c Comparison) Holds(value, boundary float64) bool {
	switch c {
	case CompareGreaterOrEqual:
		return value >= boundary
	case CompareGreater:
		return value > boundary
	case CompareLessOrEqual:
		return value <= boundary
	case CompareLess:
		return value < boundary
	case CompareEqual:
		return value == boundary
	default:
		return false
	}
}

// Symbol returns the typographic form used in finding details.
func (c Comparison) Symbol() string {
	switch c {
	case CompareGreaterOrEqual:
		return "≥"
	case CompareLessOrEqual:
		return "≤"
	default:
		return string(c)
	}
}

// Topic tags an advisory message with the clinical concern it addresses.
// Cross-feature rules inspect topics instead of message wording.
type Topic string

const (
	TopicBloodPressure Topic = "blood_pressure"
	TopicBloodSugar    Topic = "blood_sugar"
	TopicDiabetes      Topic = "diabetes"
	TopicPregnancy     Topic = "pregnancy"
	TopicTemperature   Topic = "temperature"
	TopicCardiac       Topic = "cardiac"
	TopicWeight        Topic = "weight"
	TopicMentalHealth  Topic = "mental_health"
)

// RiskLabel is the categorical output of the risk classifier.
type RiskLabel string

const (
	LowRisk  RiskLabel = "Low Risk"
	MidRisk  RiskLabel = "Mid Risk"
	HighRisk RiskLabel = "High Risk"
)

// IsValid validates the risk label.
func (l RiskLabel) IsValid() bool {
	switch l {
	case LowRisk, MidRisk, HighRisk:
		return true
	default:
		return false
	}
}

// String returns the string representation of the label.
func (l RiskLabel) String() string {
	return string(l)
}

// IsElevated reports whether the label calls for clinical attention.
func (l RiskLabel) IsElevated() bool {
	return l == MidRisk || l == HighRisk
}

// LogFields returns structured logging fields for audit trails.
func (l RiskLabel) LogFields() map[string]any {
	return map[string]any{
		"risk_label":  string(l),
		"is_valid":    l.IsValid(),
		"is_elevated": l.IsElevated(),
	}
}

// LabelSet maps classifier class indices to risk labels; index = class.
type LabelSet []RiskLabel

var (
	// ThreeClassLabels is the {0: Low, 1: Mid, 2: High} model variant.
	ThreeClassLabels = LabelSet{LowRisk, MidRisk, HighRisk}
	// BinaryLabels is the {0: Low, 1: High} model variant.
	BinaryLabels = LabelSet{LowRisk, HighRisk}
)

// Decode returns the label of a class index.
func (ls LabelSet) Decode(class int) (RiskLabel, error) {
	if class < 0 || class >= len(ls) {
		return "", fmt.Errorf("%w: %s", ErrUnknownRiskClass, strconv.Itoa(class))
	}
	return ls[class], nil
}

// Contains reports whether the label belongs to the set.
func (ls LabelSet) Contains(l RiskLabel) bool {
	for _, candidate := range ls {
		if candidate == l {
			return true
		}
	}
	return false
}

// Sentinel errors of the triage core and its collaborators.
var (
	ErrUnknownFeature        = errors.New("unknown feature")
	ErrUnknownSchema         = errors.New("unknown schema")
	ErrInvalidThreshold      = errors.New("invalid threshold specification")
	ErrUnknownRiskClass      = errors.New("unknown risk class")
	ErrClassifierUnavailable = errors.New("classifier unavailable")
	ErrNotFound              = errors.New("not found")
)
