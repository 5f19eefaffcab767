package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/maternal-risk-advisor/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite safety event store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// createSchema creates the database tables and indexes.
func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS safety_events (
		id TEXT PRIMARY KEY,
		event_type TEXT NOT NULL,
		schema_name TEXT NOT NULL,
		risk_label TEXT NOT NULL DEFAULT '',
		reason_index INTEGER,
		original_reason TEXT NOT NULL DEFAULT '',
		resolved_reason TEXT NOT NULL,
		request_id TEXT NOT NULL DEFAULT '',
		occurred_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_safety_events_type ON safety_events(event_type);
	CREATE INDEX IF NOT EXISTS idx_safety_events_request ON safety_events(request_id);
	CREATE INDEX IF NOT EXISTS idx_safety_events_occurred_at ON safety_events(occurred_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Save stores events in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, events []domain.SafetyEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, event := range events {
		_, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO safety_events (
				id, event_type, schema_name, risk_label, reason_index,
				original_reason, resolved_reason, request_id, occurred_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
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
			return fmt.Errorf("failed to insert event %s: %w", event.ID, err)
		}
	}

	return tx.Commit()
}

// List returns events newest first.
func (s *SQLiteStore) List(ctx context.Context, filter Filter) ([]domain.SafetyEvent, error) {
	filter = normalizeFilter(filter)

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_type, schema_name, risk_label, reason_index,
			original_reason, resolved_reason, request_id, occurred_at
		FROM safety_events
		WHERE (? = '' OR event_type = ?)
			AND (? = '' OR request_id = ?)
		ORDER BY occurred_at DESC, id
		LIMIT ? OFFSET ?
	`,
		string(filter.Type), string(filter.Type),
		filter.RequestID, filter.RequestID,
		filter.Limit, filter.Offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
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
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM safety_events").Scan(&count)
	return count, err
}

// ExportJSON exports all events to a JSON writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, Filter{Limit: maxExportLimit})
	if err != nil {
		return fmt.Errorf("failed to list events: %w", err)
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(newExport(all))
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
