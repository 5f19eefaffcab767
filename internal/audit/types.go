// Package audit persists and publishes the safety events raised while
// reconciling classifier output with threshold advice.
package audit

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/maternal-risk-advisor/internal/domain"
)

// Filter narrows a List query. Zero values mean no restriction.
type Filter struct {
	Type      domain.SafetyEventType
	RequestID string
	Limit     int
	Offset    int
}

// DefaultListLimit applies when a Filter carries no limit.
const DefaultListLimit = 50

// Store defines the interface for safety event storage operations.
type Store interface {
	// Save stores events. Events whose ID already exists are ignored.
	Save(ctx context.Context, events []domain.SafetyEvent) error

	// List returns events newest first.
	List(ctx context.Context, filter Filter) ([]domain.SafetyEvent, error)

	// Count returns the total number of stored events.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every stored event as a SafetyEventExport document.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// Close closes the store and releases resources.
	Close() error
}

// Publisher fans events out to live subscribers.
type Publisher interface {
	Publish(ctx context.Context, events []domain.SafetyEvent) error
	Close() error
}

// SafetyEventExport represents the JSON export format.
type SafetyEventExport struct {
	Version    string               `json:"version"`
	ExportedAt time.Time            `json:"exported_at"`
	Count      int                  `json:"count"`
	Events     []domain.SafetyEvent `json:"events"`
}

// maxExportLimit is the maximum number of events to export at once.
const maxExportLimit = 1000000

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(s scanner) (domain.SafetyEvent, error) {
	var (
		event       domain.SafetyEvent
		eventType   string
		label       string
		reasonIndex sql.NullInt64
	)

	err := s.Scan(
		&event.ID, &eventType, &event.Schema, &label, &reasonIndex,
		&event.OriginalReason, &event.ResolvedReason, &event.RequestID, &event.OccurredAt,
	)
	if err != nil {
		return domain.SafetyEvent{}, err
	}

	event.Type = domain.SafetyEventType(eventType)
	event.RiskLabel = domain.RiskLabel(label)
	if reasonIndex.Valid {
		idx := int(reasonIndex.Int64)
		event.ReasonIndex = &idx
	}
	return event, nil
}

func nullReasonIndex(idx *int) sql.NullInt64 {
	if idx == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*idx), Valid: true}
}

func normalizeFilter(filter Filter) Filter {
	if filter.Limit <= 0 {
		filter.Limit = DefaultListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	return filter
}

func newExport(events []domain.SafetyEvent) *SafetyEventExport {
	if events == nil {
		events = []domain.SafetyEvent{}
	}
	return &SafetyEventExport{
		Version:    "1.0",
		ExportedAt: time.Now().UTC(),
		Count:      len(events),
		Events:     events,
	}
}
