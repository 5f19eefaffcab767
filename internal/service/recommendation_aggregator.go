package service

import (
	"github.com/maternal-risk-advisor/internal/domain"
)

type boundRule struct {
	feature domain.Feature
	spec    ThresholdSpec
}

// RecommendationAggregator runs the rule evaluator over every feature of a
// record in schema order and adds the cross-feature reminder or the
// no-findings fallback.
type RecommendationAggregator struct {
	rules          []boundRule
	catalog        *MessageCatalog
	reminderTopics map[domain.Topic]struct{}
	reminder       string
	fallback       string
}

// NewRecommendationAggregator binds the schema's thresholds once; a feature
// without thresholds fails here rather than per record.
func NewRecommendationAggregator(schema *Schema) (*RecommendationAggregator, error) {
	rules := make([]boundRule, 0, len(schema.Features))
	for _, feature := range schema.Features {
		spec, err := schema.Table.Spec(feature)
		if err != nil {
			return nil, err
		}
		rules = append(rules, boundRule{feature: feature, spec: spec})
	}

	topics := make(map[domain.Topic]struct{}, len(schema.ReminderTopics))
	for _, topic := range schema.ReminderTopics {
		topics[topic] = struct{}{}
	}

	return &RecommendationAggregator{
		rules:          rules,
		catalog:        schema.Catalog,
		reminderTopics: topics,
		reminder:       schema.Reminder,
		fallback:       schema.Fallback,
	}, nil
}

// Aggregate produces the recommendation of one record. It never returns an
// empty advice list.
func (a *RecommendationAggregator) Aggregate(record domain.PatientRecord) domain.Recommendation {
	rec := domain.Recommendation{
		Advice:   make([]domain.Advice, 0, len(a.rules)+1),
		Findings: make([]domain.Finding, 0, len(a.rules)),
	}

	for _, rule := range a.rules {
		value, ok := record.Value(rule.feature)
		if !ok {
			continue
		}
		outcome := evaluateSpec(rule.feature, rule.spec, value, a.catalog)
		rec.Findings = append(rec.Findings, outcome.Finding())
		if advice, ok := outcome.Advice(); ok {
			rec.Advice = append(rec.Advice, advice)
		}
	}

	switch {
	case len(rec.Advice) == 0:
		rec.Advice = append(rec.Advice, domain.Advice{Kind: domain.AdviceFallback, Text: a.fallback})
	case a.needsReminder(rec.Advice):
		rec.Advice = append(rec.Advice, domain.Advice{Kind: domain.AdviceReminder, Text: a.reminder})
	}
	return rec
}

func (a *RecommendationAggregator) needsReminder(advice []domain.Advice) bool {
	for _, item := range advice {
		for _, topic := range item.Topics {
			if _, ok := a.reminderTopics[topic]; ok {
				return true
			}
		}
	}
	return false
}
