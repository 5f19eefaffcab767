package service

import (
	"fmt"
	"math"
	"sort"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Threshold is one band boundary of a feature: the tier applies when
// "value <Comparison> Boundary" holds.
type Threshold struct {
	Tier       domain.Tier       `json:"tier"`
	Comparison domain.Comparison `json:"comparison"`
	Boundary   float64           `json:"boundary"`
}

// Matches reports whether value falls into the threshold's band.
func (t Threshold) Matches(value float64) bool {
	return t.Comparison.Holds(value, t.Boundary)
}

// ThresholdSpec is the ordered list of thresholds of one feature.
// Entries are evaluated in order and the first match wins.
type ThresholdSpec []Threshold

// ThresholdTable holds the band definitions of every supported feature.
// It is built once and never mutated afterwards.
type ThresholdTable struct {
	specs map[domain.Feature]ThresholdSpec
}

// NewThresholdTable creates a validated threshold table
func NewThresholdTable(specs map[domain.Feature]ThresholdSpec) (*ThresholdTable, error) {
	table := newThresholdTable(specs)
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func newThresholdTable(specs map[domain.Feature]ThresholdSpec) *ThresholdTable {
	copied := make(map[domain.Feature]ThresholdSpec, len(specs))
	for feature, spec := range specs {
		copied[feature] = append(ThresholdSpec(nil), spec...)
	}
	return &ThresholdTable{specs: copied}
}

// Spec returns the thresholds of a feature in precedence order
func (t *ThresholdTable) Spec(feature domain.Feature) (ThresholdSpec, error) {
	spec, ok := t.specs[feature]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownFeature, feature)
	}
	return append(ThresholdSpec(nil), spec...), nil
}

// Has reports whether the table defines thresholds for feature
func (t *ThresholdTable) Has(feature domain.Feature) bool {
	_, ok := t.specs[feature]
	return ok
}

// Features returns the features with thresholds, sorted by name
func (t *ThresholdTable) Features() []domain.Feature {
	features := make([]domain.Feature, 0, len(t.specs))
	for feature := range t.specs {
		features = append(features, feature)
	}
	sort.Slice(features, func(i, j int) bool { return features[i] < features[j] })
	return features
}

// Validate checks every spec for well-formed entries and extreme-before-moderate precedence
func (t *ThresholdTable) Validate() error {
	for feature, spec := range t.specs {
		if err := validateSpec(feature, spec); err != nil {
			return err
		}
	}
	return nil
}

func validateSpec(feature domain.Feature, spec ThresholdSpec) error {
	position := make(map[domain.Tier]int, len(spec))
	for i, threshold := range spec {
		switch {
		case !threshold.Tier.IsValid() || threshold.Tier == domain.TierNormal:
			return fmt.Errorf("%w: %s has tier %q", domain.ErrInvalidThreshold, feature, threshold.Tier)
		case !threshold.Comparison.IsValid():
			return fmt.Errorf("%w: %s has comparison %q", domain.ErrInvalidThreshold, feature, threshold.Comparison)
		case math.IsNaN(threshold.Boundary) || math.IsInf(threshold.Boundary, 0):
			return fmt.Errorf("%w: %s has non-finite boundary", domain.ErrInvalidThreshold, feature)
		}
		if _, dup := position[threshold.Tier]; dup {
			return fmt.Errorf("%w: %s defines tier %s twice", domain.ErrInvalidThreshold, feature, threshold.Tier)
		}
		position[threshold.Tier] = i
	}

	for _, extreme := range []domain.Tier{domain.TierVeryHigh, domain.TierVeryLow} {
		ext, hasExtreme := position[extreme]
		mod, hasModerate := position[extreme.Adjacent()]
		if hasExtreme && hasModerate && ext > mod {
			return fmt.Errorf("%w: %s evaluates %s before %s", domain.ErrInvalidThreshold, feature, extreme.Adjacent(), extreme)
		}
	}
	return nil
}

func above(boundary float64) Threshold {
	return Threshold{Tier: domain.TierHigh, Comparison: domain.CompareGreater, Boundary: boundary}
}

func below(boundary float64) Threshold {
	return Threshold{Tier: domain.TierLow, Comparison: domain.CompareLess, Boundary: boundary}
}

func atLeast(tier domain.Tier, boundary float64) Threshold {
	return Threshold{Tier: tier, Comparison: domain.CompareGreaterOrEqual, Boundary: boundary}
}

func atMost(tier domain.Tier, boundary float64) Threshold {
	return Threshold{Tier: tier, Comparison: domain.CompareLessOrEqual, Boundary: boundary}
}

func flagSet() ThresholdSpec {
	return ThresholdSpec{{Tier: domain.TierHigh, Comparison: domain.CompareEqual, Boundary: 1}}
}

// CoreThresholds returns the band definitions of the six vital-sign features.
func CoreThresholds() map[domain.Feature]ThresholdSpec {
	return map[domain.Feature]ThresholdSpec{
		domain.FeatureAge: {
			above(70),
			below(18),
		},
		domain.FeatureSystolicBP: {
			atLeast(domain.TierVeryHigh, 160),
			atLeast(domain.TierHigh, 140),
			atMost(domain.TierVeryLow, 70),
			atMost(domain.TierLow, 90),
		},
		domain.FeatureDiastolicBP: {
			atLeast(domain.TierVeryHigh, 100),
			atLeast(domain.TierHigh, 90),
			atMost(domain.TierVeryLow, 49),
			atMost(domain.TierLow, 60),
		},
		domain.FeatureBloodSugar: {
			atLeast(domain.TierVeryHigh, 15),
			atLeast(domain.TierHigh, 12),
			atMost(domain.TierVeryLow, 4),
		},
		domain.FeatureBodyTemp: {
			atLeast(domain.TierVeryHigh, 101),
			atLeast(domain.TierHigh, 100),
			atMost(domain.TierVeryLow, 96),
		},
		domain.FeatureHeartRate: {
			atLeast(domain.TierVeryHigh, 90),
			atLeast(domain.TierHigh, 82),
			atMost(domain.TierVeryLow, 60),
		},
	}
}

// ExtendedThresholds returns the core bands plus BMI and the obstetric-history flags.
func ExtendedThresholds() map[domain.Feature]ThresholdSpec {
	specs := CoreThresholds()
	specs[domain.FeatureBMI] = ThresholdSpec{
		atLeast(domain.TierVeryHigh, 35),
		atLeast(domain.TierHigh, 30),
		atMost(domain.TierVeryLow, 16),
		atMost(domain.TierLow, 18.5),
	}
	specs[domain.FeaturePreviousComplications] = flagSet()
	specs[domain.FeaturePreexistingDiabetes] = flagSet()
	specs[domain.FeatureGestationalDiabetes] = flagSet()
	specs[domain.FeatureMentalHealth] = flagSet()
	return specs
}
