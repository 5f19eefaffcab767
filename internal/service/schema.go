package service

import (
	"errors"
	"fmt"
	"sort"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Preset schema names
const (
	SchemaCore        = "core-6"
	SchemaExtended    = "extended-11"
	SchemaCoreReasons = "core-6-reasons"
)

// ReasonMode selects whether the classifier output carries a reason index.
type ReasonMode string

const (
	ReasonModeNone   ReasonMode = "none"
	ReasonModeLookup ReasonMode = "lookup"
)

// Schema parameterizes the triage engine: which features a record has, how
// they are banded and worded, how classifier classes decode into labels and
// whether a reason text is looked up.
type Schema struct {
	Name           string
	Features       []domain.Feature
	Table          *ThresholdTable
	Catalog        *MessageCatalog
	Labels         domain.LabelSet
	ReminderTopics []domain.Topic
	Reminder       string
	Fallback       string
	ReasonMode     ReasonMode
}

// UsesReasons reports whether the schema runs in reason-lookup mode
func (s *Schema) UsesReasons() bool {
	return s.ReasonMode == ReasonModeLookup
}

// Validate checks that every feature has thresholds and every band has a message
func (s *Schema) Validate() error {
	if s.Name == "" {
		return errors.New("schema name is required")
	}
	if len(s.Features) == 0 {
		return fmt.Errorf("schema %s has no features", s.Name)
	}
	if s.Table == nil || s.Catalog == nil {
		return fmt.Errorf("schema %s requires a threshold table and a message catalog", s.Name)
	}
	if err := s.Table.Validate(); err != nil {
		return fmt.Errorf("schema %s: %w", s.Name, err)
	}

	seen := make(map[domain.Feature]bool, len(s.Features))
	for _, feature := range s.Features {
		if seen[feature] {
			return fmt.Errorf("schema %s lists feature %s twice", s.Name, feature)
		}
		seen[feature] = true

		spec, err := s.Table.Spec(feature)
		if err != nil {
			return fmt.Errorf("schema %s: %w", s.Name, err)
		}
		for _, threshold := range spec {
			if _, ok := s.Catalog.Lookup(feature, threshold.Tier); !ok {
				return fmt.Errorf("schema %s has no message for %s %s", s.Name, feature, threshold.Tier)
			}
		}
	}

	switch {
	case len(s.Labels) == 0:
		return fmt.Errorf("schema %s has no risk labels", s.Name)
	case s.Fallback == "":
		return fmt.Errorf("schema %s has no fallback message", s.Name)
	case len(s.ReminderTopics) > 0 && s.Reminder == "":
		return fmt.Errorf("schema %s has reminder topics but no reminder message", s.Name)
	case s.ReasonMode != ReasonModeNone && s.ReasonMode != ReasonModeLookup:
		return fmt.Errorf("schema %s has invalid reason mode %q", s.Name, s.ReasonMode)
	}
	for _, label := range s.Labels {
		if !label.IsValid() {
			return fmt.Errorf("schema %s has invalid risk label %q", s.Name, label)
		}
	}
	return nil
}

var coreReminderTopics = []domain.Topic{
	domain.TopicBloodPressure,
	domain.TopicBloodSugar,
	domain.TopicDiabetes,
}

// CoreSchema is the six-feature, three-class, threshold-only variant.
func CoreSchema() *Schema {
	return &Schema{
		Name:           SchemaCore,
		Features:       append([]domain.Feature(nil), domain.CoreFeatures...),
		Table:          newThresholdTable(CoreThresholds()),
		Catalog:        CoreCatalog(),
		Labels:         domain.ThreeClassLabels,
		ReminderTopics: append([]domain.Topic(nil), coreReminderTopics...),
		Reminder:       "Prenatal monitoring recommended",
		Fallback:       "All parameters normal - maintain routine prenatal care",
		ReasonMode:     ReasonModeNone,
	}
}

// ExtendedSchema is the eleven-feature, binary, threshold-only variant.
func ExtendedSchema() *Schema {
	return &Schema{
		Name:           SchemaExtended,
		Features:       append([]domain.Feature(nil), domain.ExtendedFeatures...),
		Table:          newThresholdTable(ExtendedThresholds()),
		Catalog:        ExtendedCatalog(),
		Labels:         domain.BinaryLabels,
		ReminderTopics: append(append([]domain.Topic(nil), coreReminderTopics...), domain.TopicPregnancy),
		Reminder:       "Regular prenatal monitoring recommended for this pregnancy",
		Fallback:       "All parameters normal - maintain routine prenatal care and healthy lifestyle",
		ReasonMode:     ReasonModeNone,
	}
}

// ReasonSchema is the six-feature, three-class variant whose classifier also
// predicts a reason index.
func ReasonSchema() *Schema {
	s := CoreSchema()
	s.Name = SchemaCoreReasons
	s.ReasonMode = ReasonModeLookup
	return s
}

var presets = map[string]func() *Schema{
	SchemaCore:        CoreSchema,
	SchemaExtended:    ExtendedSchema,
	SchemaCoreReasons: ReasonSchema,
}

// SchemaByName returns a fresh copy of a preset schema
func SchemaByName(name string) (*Schema, error) {
	build, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSchema, name)
	}
	return build(), nil
}

// SchemaNames lists the preset schema names
func SchemaNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
