package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/classifier"
	"github.com/maternal-risk-advisor/internal/domain"
)

// Aligner maps a patient record onto a classifier's input columns
type Aligner interface {
	Align(record domain.PatientRecord) classifier.FeatureVector
}

// AdvisorService runs a complete assessment: threshold recommendations,
// classifier prediction, label decoding and reconciliation.
type AdvisorService struct {
	logger     *logrus.Logger
	engine     *Engine
	classifier classifier.Classifier
	aligner    Aligner
	sink       domain.SafetyEventSink
	now        func() time.Time
}

// NewAdvisorService creates an advisor. sink may be nil.
func NewAdvisorService(
	logger *logrus.Logger,
	engine *Engine,
	model classifier.Classifier,
	aligner Aligner,
	sink domain.SafetyEventSink,
) *AdvisorService {
	if aligner == nil {
		aligner = classifier.ManifestForFeatures(engine.Schema().Features)
	}
	return &AdvisorService{
		logger:     logger,
		engine:     engine,
		classifier: model,
		aligner:    aligner,
		sink:       sink,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Engine returns the advisor's rule engine
func (s *AdvisorService) Engine() *Engine {
	return s.engine
}

// ClassifierName returns the name of the configured classifier
func (s *AdvisorService) ClassifierName() string {
	return s.classifier.Name()
}

// Recommend runs the rule engine only
func (s *AdvisorService) Recommend(record domain.PatientRecord) domain.Recommendation {
	return s.engine.Recommend(record)
}

// Assess produces the final advisory of one record. When the classifier
// fails, the returned advisory still carries the threshold recommendation and
// the error wraps domain.ErrClassifierUnavailable or domain.ErrUnknownRiskClass.
func (s *AdvisorService) Assess(ctx context.Context, record domain.PatientRecord, requestID string) (*domain.FinalAdvisory, error) {
	startTime := time.Now()
	schema := s.engine.Schema()

	s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"schema":     schema.Name,
		"features":   record.Len(),
	}).Debug("Starting risk assessment")

	// Step 1: threshold rules
	rec := s.engine.Recommend(record)
	partial := &domain.FinalAdvisory{
		RequestID:      requestID,
		Schema:         schema.Name,
		Recommendation: rec,
		AssessedAt:     s.now(),
	}

	// Step 2: classifier prediction on the aligned row
	vector := s.aligner.Align(record)
	prediction, err := s.classifier.Predict(ctx, vector)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", requestID).Error("Risk classifier failed")
		if errors.Is(err, domain.ErrClassifierUnavailable) {
			return partial, err
		}
		return partial, fmt.Errorf("%w: %w", domain.ErrClassifierUnavailable, err)
	}

	// Step 3: decode the class into a label
	label, err := schema.Labels.Decode(prediction.RiskClass)
	if err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"risk_class": prediction.RiskClass,
		}).Error("Classifier returned an unknown risk class")
		return partial, err
	}

	// Step 4: reconcile label, recommendation and reason
	var reasonIndex *int
	if prediction.HasReason {
		index := prediction.ReasonIndex
		reasonIndex = &index
	}
	advisory := s.engine.Reconcile(label, rec, reasonIndex)
	advisory.RequestID = requestID
	advisory.AssessedAt = partial.AssessedAt

	// Step 5: stamp and record safety events
	for i := range advisory.SafetyEvents {
		advisory.SafetyEvents[i].ID = uuid.New().String()
		advisory.SafetyEvents[i].RequestID = requestID
		advisory.SafetyEvents[i].OccurredAt = advisory.AssessedAt
	}
	s.recordEvents(ctx, advisory.SafetyEvents)

	s.logger.WithFields(logrus.Fields{
		"request_id":      requestID,
		"schema":          schema.Name,
		"risk_label":      advisory.RiskLabel,
		"advice":          len(advisory.Recommendation.Advice),
		"overridden":      advisory.Overridden,
		"processing_time": time.Since(startTime),
	}).Info("Risk assessment completed")

	return &advisory, nil
}

func (s *AdvisorService) recordEvents(ctx context.Context, events []domain.SafetyEvent) {
	if s.sink == nil || len(events) == 0 {
		return
	}
	if err := s.sink.Record(ctx, events); err != nil {
		s.logger.WithError(err).WithField("events", len(events)).Warn("Failed to record safety events")
	}
}
