package service

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Engine is the threshold rule engine configured by one schema. It holds no
// per-request state and is safe for concurrent use.
type Engine struct {
	logger     *logrus.Logger
	schema     *Schema
	evaluator  *RuleEvaluator
	aggregator *RecommendationAggregator
	reconciler *RiskReconciler
}

// NewEngine validates the schema and builds its evaluator, aggregator and
// reconciler. Reason-lookup schemas require a reason table.
func NewEngine(schema *Schema, reasons ReasonLookup, logger *logrus.Logger) (*Engine, error) {
	if schema == nil {
		return nil, fmt.Errorf("%w: nil schema", domain.ErrUnknownSchema)
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	if schema.UsesReasons() && reasons == nil {
		return nil, fmt.Errorf("schema %s requires a reason table", schema.Name)
	}
	if !schema.UsesReasons() {
		reasons = nil
	}

	aggregator, err := NewRecommendationAggregator(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to bind rules: %w", err)
	}

	logger.WithFields(logrus.Fields{
		"schema":      schema.Name,
		"features":    len(schema.Features),
		"labels":      len(schema.Labels),
		"reason_mode": schema.ReasonMode,
	}).Info("Rule engine initialized")

	return &Engine{
		logger:     logger,
		schema:     schema,
		evaluator:  NewRuleEvaluator(schema.Table, schema.Catalog),
		aggregator: aggregator,
		reconciler: NewRiskReconciler(logger, schema, reasons),
	}, nil
}

// Schema returns the engine's schema
func (e *Engine) Schema() *Schema {
	return e.schema
}

// Evaluate bands a single feature value
func (e *Engine) Evaluate(feature domain.Feature, value float64) (Outcome, error) {
	return e.evaluator.Evaluate(feature, value)
}

// Recommend aggregates the advisory messages of a record
func (e *Engine) Recommend(record domain.PatientRecord) domain.Recommendation {
	rec := e.aggregator.Aggregate(record)
	e.logger.WithFields(logrus.Fields{
		"schema":    e.schema.Name,
		"evaluated": len(rec.Findings),
		"advice":    len(rec.Advice),
		"normal":    rec.IsNormal(),
	}).Debug("Aggregated recommendations")
	return rec
}

// Reconcile merges a classifier label and reason index with a recommendation
func (e *Engine) Reconcile(label domain.RiskLabel, rec domain.Recommendation, reasonIndex *int) domain.FinalAdvisory {
	return e.reconciler.Reconcile(label, rec, reasonIndex)
}

// ThresholdView is the serializable band definition of one feature
type ThresholdView struct {
	Feature    domain.Feature  `json:"feature"`
	Name       string          `json:"name"`
	Unit       string          `json:"unit,omitempty"`
	Thresholds []ThresholdBand `json:"thresholds"`
}

// ThresholdBand is one threshold with its advisory template
type ThresholdBand struct {
	Threshold
	Severity domain.Severity `json:"severity"`
	Message  string          `json:"message"`
}

// Thresholds lists the schema's bands in feature order
func (e *Engine) Thresholds() []ThresholdView {
	views := make([]ThresholdView, 0, len(e.aggregator.rules))
	for _, rule := range e.aggregator.rules {
		view := ThresholdView{
			Feature:    rule.feature,
			Name:       rule.feature.DisplayName(),
			Unit:       rule.feature.Unit(),
			Thresholds: make([]ThresholdBand, 0, len(rule.spec)),
		}
		for _, threshold := range rule.spec {
			template, _ := e.schema.Catalog.Lookup(rule.feature, threshold.Tier)
			view.Thresholds = append(view.Thresholds, ThresholdBand{
				Threshold: threshold,
				Severity:  threshold.Tier.Severity(),
				Message:   template.Text,
			})
		}
		views = append(views, view)
	}
	return views
}
