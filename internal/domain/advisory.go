package domain

import (
	"strings"
	"time"
)

// AdviceKind distinguishes per-feature advice from the trailing summary messages.
type AdviceKind string

const (
	AdviceFinding  AdviceKind = "finding"
	AdviceReminder AdviceKind = "reminder"
	AdviceFallback AdviceKind = "fallback"
)

// Advice is one advisory message of a recommendation.
type Advice struct {
	Kind    AdviceKind `json:"kind"`
	Feature Feature    `json:"feature,omitempty"`
	Tier    Tier       `json:"tier,omitempty"`
	Text    string     `json:"text"`
	Topics  []Topic    `json:"topics,omitempty"`
}

// Finding is the display status of one evaluated feature, including normal ones.
type Finding struct {
	Feature    Feature    `json:"feature"`
	Value      float64    `json:"value"`
	Tier       Tier       `json:"tier"`
	Severity   Severity   `json:"severity"`
	Comparison Comparison `json:"comparison,omitempty"`
	Boundary   *float64   `json:"boundary,omitempty"`
	Detail     string     `json:"detail"`
}

// Recommendation is the ordered advice produced for one record.
type Recommendation struct {
	Advice   []Advice  `json:"advice"`
	Findings []Finding `json:"findings"`
}

// Messages returns the advice texts in order.
func (r Recommendation) Messages() []string {
	messages := make([]string, len(r.Advice))
	for i, a := range r.Advice {
		messages[i] = a.Text
	}
	return messages
}

// String joins the advice texts the way the advisor displays them.
func (r Recommendation) String() string {
	return strings.Join(r.Messages(), "; ")
}

// IsNormal reports whether the recommendation is the no-findings fallback.
func (r Recommendation) IsNormal() bool {
	return len(r.Advice) == 1 && r.Advice[0].Kind == AdviceFallback
}

// SafetyEventType names a condition the reconciler recovered from.
type SafetyEventType string

const (
	EventLabelReasonContradiction SafetyEventType = "LABEL_REASON_CONTRADICTION"
	EventUnmappedReasonIndex      SafetyEventType = "UNMAPPED_REASON_INDEX"
	EventUnrecognizedRiskLabel    SafetyEventType = "UNRECOGNIZED_RISK_LABEL"
)

// SafetyEvent records a reconciliation override. It carries no patient measurements.
type SafetyEvent struct {
	ID             string          `json:"id"`
	Type           SafetyEventType `json:"type"`
	Schema         string          `json:"schema"`
	RiskLabel      RiskLabel       `json:"risk_label"`
	ReasonIndex    *int            `json:"reason_index,omitempty"`
	OriginalReason string          `json:"original_reason,omitempty"`
	ResolvedReason string          `json:"resolved_reason"`
	RequestID      string          `json:"request_id,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// FinalAdvisory is the combined output of one assessment.
type FinalAdvisory struct {
	RequestID      string         `json:"request_id,omitempty"`
	Schema         string         `json:"schema"`
	RiskLabel      RiskLabel      `json:"risk_label"`
	Recommendation Recommendation `json:"recommendation"`
	Reason         string         `json:"reason,omitempty"`
	ReasonIndex    *int           `json:"reason_index,omitempty"`
	Overridden     bool           `json:"overridden"`
	SafetyEvents   []SafetyEvent  `json:"safety_events,omitempty"`
	AssessedAt     time.Time      `json:"assessed_at"`
}
