package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Recorder is the domain.SafetyEventSink that writes events to a Store and,
// when configured, publishes them. Either side may be nil.
type Recorder struct {
	store     Store
	publisher Publisher
	log       *logrus.Logger
}

// NewRecorder creates a recorder over the given store and publisher.
func NewRecorder(store Store, publisher Publisher, logger *logrus.Logger) *Recorder {
	return &Recorder{
		store:     store,
		publisher: publisher,
		log:       logger,
	}
}

// Record persists the events and then publishes them. A publish failure does
// not undo the stored events.
func (r *Recorder) Record(ctx context.Context, events []domain.SafetyEvent) error {
	if len(events) == 0 {
		return nil
	}

	var errs []error
	if r.store != nil {
		if err := r.store.Save(ctx, events); err != nil {
			errs = append(errs, fmt.Errorf("storing safety events: %w", err))
		}
	}
	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, events); err != nil {
			errs = append(errs, fmt.Errorf("publishing safety events: %w", err))
		}
	}

	r.log.WithFields(logrus.Fields{
		"events":     len(events),
		"request_id": events[0].RequestID,
		"failures":   len(errs),
	}).Debug("Recorded safety events")

	return errors.Join(errs...)
}

// Store returns the backing store, or nil when events are only published.
func (r *Recorder) Store() Store {
	return r.store
}

// Close closes the store and publisher.
func (r *Recorder) Close() error {
	var errs []error
	if r.store != nil {
		errs = append(errs, r.store.Close())
	}
	if r.publisher != nil {
		errs = append(errs, r.publisher.Close())
	}
	return errors.Join(errs...)
}
