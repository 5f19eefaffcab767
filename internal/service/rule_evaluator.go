package service

import (
	"fmt"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Outcome is the result of banding one feature value. A normal tier means no
// threshold matched: the value gets a display status but no advisory.
type Outcome struct {
	Feature   domain.Feature
	Value     float64
	Tier      domain.Tier
	Threshold *Threshold
	Message   *MessageTemplate
}

// Matched reports whether a threshold triggered
func (o Outcome) Matched() bool {
	return o.Threshold != nil
}

// Advice returns the advisory message of a triggered band
func (o Outcome) Advice() (domain.Advice, bool) {
	if !o.Matched() || o.Message == nil {
		return domain.Advice{}, false
	}
	return domain.Advice{
		Kind:    domain.AdviceFinding,
		Feature: o.Feature,
		Tier:    o.Tier,
		Text:    o.Message.Render(o.Value, o.Threshold.Boundary),
		Topics:  append([]domain.Topic(nil), o.Message.Topics...),
	}, true
}

// Finding returns the display status of the value
func (o Outcome) Finding() domain.Finding {
	finding := domain.Finding{
		Feature:  o.Feature,
		Value:    o.Value,
		Tier:     o.Tier,
		Severity: o.Tier.Severity(),
		Detail:   findingDetail(o.Feature, o.Value, o.Tier, o.Threshold),
	}
	if o.Threshold != nil {
		boundary := o.Threshold.Boundary
		finding.Comparison = o.Threshold.Comparison
		finding.Boundary = &boundary
	}
	return finding
}

// RuleEvaluator bands single feature values against a threshold table.
type RuleEvaluator struct {
	table   *ThresholdTable
	catalog *MessageCatalog
}

// NewRuleEvaluator creates a rule evaluator over a table and its messages
func NewRuleEvaluator(table *ThresholdTable, catalog *MessageCatalog) *RuleEvaluator {
	return &RuleEvaluator{
		table:   table,
		catalog: catalog,
	}
}

// Evaluate returns the first band of feature whose comparison holds for value
func (e *RuleEvaluator) Evaluate(feature domain.Feature, value float64) (Outcome, error) {
	spec, err := e.table.Spec(feature)
	if err != nil {
		return Outcome{}, err
	}
	outcome := evaluateSpec(feature, spec, value, e.catalog)
	if outcome.Matched() && outcome.Message == nil {
		return Outcome{}, fmt.Errorf("no message for %s %s", feature, outcome.Tier)
	}
	return outcome, nil
}

func evaluateSpec(feature domain.Feature, spec ThresholdSpec, value float64, catalog *MessageCatalog) Outcome {
	for i := range spec {
		if !spec[i].Matches(value) {
			continue
		}
		threshold := spec[i]
		outcome := Outcome{
			Feature:   feature,
			Value:     value,
			Tier:      threshold.Tier,
			Threshold: &threshold,
		}
		if template, ok := catalog.Lookup(feature, threshold.Tier); ok {
			outcome.Message = &template
		}
		return outcome
	}
	return Outcome{Feature: feature, Value: value, Tier: domain.TierNormal}
}
