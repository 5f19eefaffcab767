package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/maternal-risk-advisor/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL safety event store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL safety event store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

const pgInsertEvent = `
	INSERT INTO safety_events (
		id, event_type, schema_name, risk_label, reason_index,
		original_reason, resolved_reason, request_id, occurred_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id) DO NOTHING
`

// Save stores events in one transaction.
func (s *PostgresStore) Save(ctx context.Context, events []domain.SafetyEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		_, err := tx.ExecContext(ctx, pgInsertEvent,
			event.ID,
			string(event.Type),
			event.Schema,
			string(event.RiskLabel),
			nullReasonIndex(event.ReasonIndex),
			event.OriginalReason,
			event.ResolvedReason,
			event.RequestID,
			event.OccurredAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save safety event %s: %w", event.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit safety events: %w", err)
	}
	return nil
}

// List returns events newest first.
func (s *PostgresStore) List(ctx context.Context, filter Filter) ([]domain.SafetyEvent, error) {
	filter = normalizeFilter(filter)

	query := `
		SELECT id, event_type, schema_name, risk_label, reason_index,
			original_reason, resolved_reason, request_id, occurred_at
		FROM safety_events
		WHERE ($1 = '' OR event_type = $1)
			AND ($2 = '' OR request_id = $2)
		ORDER BY occurred_at DESC, id
		LIMIT $3 OFFSET $4
	`

	rows, err := s.db.QueryContext(ctx, query, string(filter.Type), filter.RequestID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list safety events: %w", err)
	}
	defer rows.Close()

	var result []domain.SafetyEvent
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, event)
	}

	return result, rows.Err()
}

// Count returns the total number of stored events.
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM safety_events").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count safety events: %w", err)
	}
	return count, nil
}

// ExportJSON exports all events to a JSON writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, Filter{Limit: maxExportLimit})
	if err != nil {
		return fmt.Errorf("failed to list safety events: %w", err)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExport(all))
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
