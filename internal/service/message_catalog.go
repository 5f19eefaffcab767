package service

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/maternal-risk-advisor/internal/domain"
)

// MessageTemplate is the advisory text of one (feature, tier) band.
// Text may reference {value} and {boundary}.
type MessageTemplate struct {
	Text   string         `json:"text"`
	Topics []domain.Topic `json:"topics"`
}

// Render substitutes the measured value and the matched boundary into the text
func (m MessageTemplate) Render(value, boundary float64) string {
	return strings.NewReplacer(
		"{value}", formatNumber(value),
		"{boundary}", formatNumber(boundary),
	).Replace(m.Text)
}

type messageKey struct {
	feature domain.Feature
	tier    domain.Tier
}

// MessageCatalog maps (feature, tier) bands to advisory templates
type MessageCatalog struct {
	messages map[messageKey]MessageTemplate
}

// NewMessageCatalog creates an empty catalog
func NewMessageCatalog() *MessageCatalog {
	return &MessageCatalog{messages: make(map[messageKey]MessageTemplate)}
}

// Add registers the template of a band, replacing any previous one
func (c *MessageCatalog) Add(feature domain.Feature, tier domain.Tier, text string, topics ...domain.Topic) {
	c.messages[messageKey{feature: feature, tier: tier}] = MessageTemplate{Text: text, Topics: topics}
}

// Lookup returns the template of a band
func (c *MessageCatalog) Lookup(feature domain.Feature, tier domain.Tier) (MessageTemplate, bool) {
	m, ok := c.messages[messageKey{feature: feature, tier: tier}]
	return m, ok
}

// CatalogEntry is a flattened view of one registered template
type CatalogEntry struct {
	Feature  domain.Feature
	Tier     domain.Tier
	Template MessageTemplate
}

// Entries lists every template sorted by feature and tier
func (c *MessageCatalog) Entries() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(c.messages))
	for key, template := range c.messages {
		entries = append(entries, CatalogEntry{Feature: key.feature, Tier: key.tier, Template: template})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Feature != entries[j].Feature {
			return entries[i].Feature < entries[j].Feature
		}
		return entries[i].Tier.Rank() > entries[j].Tier.Rank()
	})
	return entries
}

func (c *MessageCatalog) clone() *MessageCatalog {
	out := NewMessageCatalog()
	for key, template := range c.messages {
		out.messages[key] = template
	}
	return out
}

// CoreCatalog returns the advisory messages of the six vital-sign features.
func CoreCatalog() *MessageCatalog {
	c := NewMessageCatalog()

	c.Add(domain.FeatureAge, domain.TierHigh, "Consider geriatric pregnancy consultation", domain.TopicPregnancy)
	c.Add(domain.FeatureAge, domain.TierLow, "Adolescent pregnancy requires specialized care", domain.TopicPregnancy)

	c.Add(domain.FeatureSystolicBP, domain.TierVeryHigh, "Urgent medical attention needed for systolic BP", domain.TopicBloodPressure)
	c.Add(domain.FeatureSystolicBP, domain.TierHigh, "Monitor systolic BP and reduce salt intake", domain.TopicBloodPressure)
	c.Add(domain.FeatureSystolicBP, domain.TierVeryLow, "Medical evaluation needed for low systolic BP", domain.TopicBloodPressure)
	c.Add(domain.FeatureSystolicBP, domain.TierLow, "Increase fluid intake for low systolic BP", domain.TopicBloodPressure)

	c.Add(domain.FeatureDiastolicBP, domain.TierVeryHigh, "Urgent care needed for diastolic BP", domain.TopicBloodPressure)
	c.Add(domain.FeatureDiastolicBP, domain.TierHigh, "Monitor diastolic BP and practice relaxation techniques", domain.TopicBloodPressure)
	c.Add(domain.FeatureDiastolicBP, domain.TierVeryLow, "Medical evaluation needed for low diastolic BP", domain.TopicBloodPressure)
	c.Add(domain.FeatureDiastolicBP, domain.TierLow, "Consider compression stockings for low diastolic BP", domain.TopicBloodPressure)

	c.Add(domain.FeatureBloodSugar, domain.TierVeryHigh, "Immediate diabetes screening recommended", domain.TopicDiabetes)
	c.Add(domain.FeatureBloodSugar, domain.TierHigh, "Monitor carbohydrate intake and blood sugar levels", domain.TopicBloodSugar)
	// No blood-sugar tag: the prenatal reminder has never fired on hypoglycemia.
	c.Add(domain.FeatureBloodSugar, domain.TierVeryLow, "Check for hypoglycemia symptoms")

	c.Add(domain.FeatureBodyTemp, domain.TierVeryHigh, "Seek immediate treatment for high fever", domain.TopicTemperature)
	c.Add(domain.FeatureBodyTemp, domain.TierHigh, "Monitor temperature and stay hydrated", domain.TopicTemperature)
	c.Add(domain.FeatureBodyTemp, domain.TierVeryLow, "Medical evaluation for hypothermia", domain.TopicTemperature)

	c.Add(domain.FeatureHeartRate, domain.TierVeryHigh, "Cardiac evaluation recommended for high heart rate", domain.TopicCardiac)
	c.Add(domain.FeatureHeartRate, domain.TierHigh, "Reduce caffeine and monitor heart rate", domain.TopicCardiac)
	c.Add(domain.FeatureHeartRate, domain.TierVeryLow, "Medical evaluation for low heart rate", domain.TopicCardiac)

	return c
}

// ExtendedCatalog returns the core messages plus BMI and obstetric-history advice.
func ExtendedCatalog() *MessageCatalog {
	c := CoreCatalog().clone()

	c.Add(domain.FeatureBMI, domain.TierVeryHigh, "BMI {value} indicates obesity (≥{boundary}) - nutrition counselling and early diabetes screening advised", domain.TopicWeight, domain.TopicDiabetes)
	c.Add(domain.FeatureBMI, domain.TierHigh, "BMI {value} is above {boundary} - monitor weight gain during pregnancy", domain.TopicWeight, domain.TopicPregnancy)
	c.Add(domain.FeatureBMI, domain.TierVeryLow, "BMI {value} is severely low (≤{boundary}) - nutritional assessment needed", domain.TopicWeight)
	c.Add(domain.FeatureBMI, domain.TierLow, "BMI {value} is below normal (≤{boundary}) - increase caloric intake", domain.TopicWeight)

	c.Add(domain.FeaturePreviousComplications, domain.TierHigh, "Previous pregnancy complications - plan closer obstetric follow-up", domain.TopicPregnancy)
	c.Add(domain.FeaturePreexistingDiabetes, domain.TierHigh, "Preexisting diabetes - coordinate glucose management with your care team", domain.TopicDiabetes, domain.TopicBloodSugar)
	c.Add(domain.FeatureGestationalDiabetes, domain.TierHigh, "Gestational diabetes - monitor blood sugar levels regularly", domain.TopicDiabetes, domain.TopicBloodSugar)
	c.Add(domain.FeatureMentalHealth, domain.TierHigh, "Mental health condition - consider perinatal mental health support", domain.TopicMentalHealth)

	return c
}

// findingDetail renders the per-feature analysis line shown next to the
// recommendation, e.g. "Systolic BP 165 is very high (≥160)".
func findingDetail(feature domain.Feature, value float64, tier domain.Tier, threshold *Threshold) string {
	name := feature.DisplayName()
	unit := feature.Unit()
	v := formatNumber(value) + unit

	if feature.IsFlag() {
		if tier == domain.TierNormal {
			return fmt.Sprintf("%s not reported", name)
		}
		return fmt.Sprintf("%s reported", name)
	}

	if threshold == nil {
		if feature == domain.FeatureAge {
			return fmt.Sprintf("Age %s is within typical range", v)
		}
		return fmt.Sprintf("%s %s is normal", name, v)
	}

	bound := threshold.Comparison.Symbol() + formatNumber(threshold.Boundary) + unit

	switch {
	case feature == domain.FeatureAge && tier == domain.TierHigh:
		return fmt.Sprintf("Age %s is above the typical maximum (%s)", v, formatNumber(threshold.Boundary))
	case feature == domain.FeatureAge && tier == domain.TierLow:
		return fmt.Sprintf("Age %s indicates adolescent pregnancy", v)
	case feature == domain.FeatureBodyTemp && tier == domain.TierVeryHigh:
		return fmt.Sprintf("%s %s indicates fever (%s)", name, v, bound)
	}

	switch tier {
	case domain.TierVeryHigh:
		return fmt.Sprintf("%s %s is very high (%s)", name, v, bound)
	case domain.TierHigh:
		return fmt.Sprintf("%s %s is elevated (%s)", name, v, bound)
	case domain.TierVeryLow:
		return fmt.Sprintf("%s %s is very low (%s)", name, v, bound)
	default:
		return fmt.Sprintf("%s %s is low (%s)", name, v, bound)
	}
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
