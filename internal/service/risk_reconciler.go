package service

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Reason texts substituted by the reconciler
const (
	NoReasonAvailable      = "No specific reason available for this prediction."
	HighRiskDisclaimer     = "High Risk - Elevated indicators detected. Please consult a healthcare provider."
	MidRiskDisclaimer      = "Mid Risk - Some indicators require attention. Maintain regular checkups."
	LowRiskDisclaimer      = "Low Risk - No major risk indicators detected. Continue routine prenatal care."
	UnconfirmedRiskWarning = "Risk level could not be confirmed - please consult a healthcare provider."
)

// ReasonLookup resolves a classifier reason index into its text.
type ReasonLookup interface {
	Lookup(index int) (string, bool)
}

var riskMentions = map[domain.RiskLabel][]string{
	domain.LowRisk:  {"low risk"},
	domain.MidRisk:  {"mid risk", "medium risk", "moderate risk"},
	domain.HighRisk: {"high risk"},
}

// MentionedRiskLevels returns the risk levels a reason text talks about
func MentionedRiskLevels(text string) []domain.RiskLabel {
	lower := strings.ToLower(text)
	var levels []domain.RiskLabel
	for _, label := range []domain.RiskLabel{domain.LowRisk, domain.MidRisk, domain.HighRisk} {
		for _, phrase := range riskMentions[label] {
			if strings.Contains(lower, phrase) {
				levels = append(levels, label)
				break
			}
		}
	}
	return levels
}

// Disclaimer returns the canonical reason text of a label
func Disclaimer(label domain.RiskLabel) string {
	switch label {
	case domain.HighRisk:
		return HighRiskDisclaimer
	case domain.MidRisk:
		return MidRiskDisclaimer
	case domain.LowRisk:
		return LowRiskDisclaimer
	default:
		return UnconfirmedRiskWarning
	}
}

// contradictionDisclaimer picks the replacement for a reason that names
// another level. A Low label never gets the reassuring disclaimer when the
// reason points at a higher level.
func contradictionDisclaimer(label, mentioned domain.RiskLabel) string {
	if label == domain.LowRisk && mentioned != domain.LowRisk {
		return UnconfirmedRiskWarning
	}
	return Disclaimer(label)
}

// RiskReconciler merges the classifier label with the rule-engine
// recommendation and, in reason-lookup mode, with the predicted reason text.
// A label is never shown next to a reason that asserts a different level.
type RiskReconciler struct {
	logger  *logrus.Logger
	schema  string
	labels  domain.LabelSet
	reasons ReasonLookup
}

// NewRiskReconciler creates a reconciler; reasons is nil in threshold-only mode
func NewRiskReconciler(logger *logrus.Logger, schema *Schema, reasons ReasonLookup) *RiskReconciler {
	return &RiskReconciler{
		logger:  logger,
		schema:  schema.Name,
		labels:  schema.Labels,
		reasons: reasons,
	}
}

// Reconcile builds the final advisory. It never fails; every recovered
// condition is logged and returned as a safety event.
func (r *RiskReconciler) Reconcile(label domain.RiskLabel, rec domain.Recommendation, reasonIndex *int) domain.FinalAdvisory {
	advisory := domain.FinalAdvisory{
		Schema:         r.schema,
		RiskLabel:      label,
		Recommendation: rec,
	}
	if r.reasons == nil {
		return advisory
	}

	if reasonIndex != nil {
		index := *reasonIndex
		advisory.ReasonIndex = &index
	}

	if !r.labels.Contains(label) {
		r.override(&advisory, domain.EventUnrecognizedRiskLabel, r.rawReason(reasonIndex), UnconfirmedRiskWarning)
		return advisory
	}

	reason, ok := r.lookup(reasonIndex)
	if !ok {
		r.override(&advisory, domain.EventUnmappedReasonIndex, "", NoReasonAvailable)
		return advisory
	}

	for _, mentioned := range MentionedRiskLevels(reason) {
		if mentioned != label {
			r.override(&advisory, domain.EventLabelReasonContradiction, reason, contradictionDisclaimer(label, mentioned))
			return advisory
		}
	}

	advisory.Reason = reason
	return advisory
}

func (r *RiskReconciler) lookup(reasonIndex *int) (string, bool) {
	if reasonIndex == nil {
		return "", false
	}
	reason, ok := r.reasons.Lookup(*reasonIndex)
	if !ok || strings.TrimSpace(reason) == "" {
		return "", false
	}
	return reason, true
}

func (r *RiskReconciler) rawReason(reasonIndex *int) string {
	reason, _ := r.lookup(reasonIndex)
	return reason
}

func (r *RiskReconciler) override(advisory *domain.FinalAdvisory, eventType domain.SafetyEventType, original, resolved string) {
	advisory.Reason = resolved
	advisory.Overridden = true
	advisory.SafetyEvents = append(advisory.SafetyEvents, domain.SafetyEvent{
		Type:           eventType,
		Schema:         r.schema,
		RiskLabel:      advisory.RiskLabel,
		ReasonIndex:    advisory.ReasonIndex,
		OriginalReason: original,
		ResolvedReason: resolved,
	})

	fields := logrus.Fields{
		"event_type": eventType,
		"schema":     r.schema,
		"risk_label": advisory.RiskLabel,
	}
	if advisory.ReasonIndex != nil {
		fields["reason_index"] = *advisory.ReasonIndex
	}
	r.logger.WithFields(fields).Warn("Reconciled risk label and reason")
}
