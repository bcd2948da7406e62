package database

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"channel-rotator/models"

	_ "github.com/mattn/go-sqlite3" // Import the SQLite3 driver
)

// EventLog is the append-only audit trail of rotation events.
// Rotation state is never read back from it.
type EventLog struct {
	db  *sql.DB
	now func() time.Time
}

// InitDB opens (creating if needed) the audit database at dbPath.
func InitDB(dbPath string) (*EventLog, error) {
	// Ensure the directory for the database file exists.
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := createEventsTable(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create rotation_events table: %w", err)
	}

	log.Println("Successfully connected to the database at", dbPath)
	return &EventLog{db: db, now: time.Now}, nil
}

// createEventsTable creates the 'rotation_events' table if it doesn't exist.
func createEventsTable(db *sql.DB) error {
	query := `
    CREATE TABLE IF NOT EXISTS rotation_events (
        event_id INTEGER PRIMARY KEY AUTOINCREMENT,
        cycle_id TEXT NOT NULL,
        kind TEXT NOT NULL,
        channel_id TEXT,
        channel_name TEXT,
        rotation_index INTEGER,
        export_path TEXT DEFAULT '',
        error TEXT DEFAULT '',
        timestamp INTEGER NOT NULL
    );`
	if _, err := db.Exec(query); err != nil {
		return err
	}

	if _, err := db.Exec("CREATE INDEX IF NOT EXISTS idx_events_timestamp ON rotation_events(timestamp);"); err != nil {
		log.Printf("Warning: failed to create index: %v", err)
	}
	return nil
}

// RecordEvent appends one event. A zero Timestamp is filled with the current time.
func (l *EventLog) RecordEvent(ctx context.Context, ev models.RotationEvent) error {
	if ev.Timestamp == 0 {
		ev.Timestamp = l.now().Unix()
	}
	query := `INSERT INTO rotation_events (cycle_id, kind, channel_id, channel_name, rotation_index, export_path, error, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	stmt, err := l.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for recording event: %w", err)
	}
	defer stmt.Close()

	_, err = stmt.ExecContext(ctx, ev.CycleID, ev.Kind, ev.ChannelID, ev.ChannelName, ev.Index, ev.ExportPath, ev.Error, ev.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to record %s event for channel %s: %w", ev.Kind, ev.ChannelID, err)
	}
	return nil
}

// RecentEvents returns up to limit events, newest first.
func (l *EventLog) RecentEvents(ctx context.Context, limit int) ([]models.RotationEvent, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := l.db.QueryContext(ctx, `
    SELECT event_id, cycle_id, kind, channel_id, channel_name, rotation_index, export_path, error, timestamp
    FROM rotation_events ORDER BY timestamp DESC, event_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotation events: %w", err)
	}
	defer rows.Close()

	var events []models.RotationEvent
	for rows.Next() {
		var ev models.RotationEvent
		if err := rows.Scan(&ev.EventID, &ev.CycleID, &ev.Kind, &ev.ChannelID, &ev.ChannelName, &ev.Index, &ev.ExportPath, &ev.Error, &ev.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan rotation event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close closes the database connection.
func (l *EventLog) Close() error {
	if l.db != nil {
		return l.db.Close()
	}
	return nil
}
