package database

import (
	"context"
	"fmt"
	"log"
)

// PruneEvents deletes audit rows older than retentionDays. Zero keeps everything.
func (l *EventLog) PruneEvents(ctx context.Context, retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	log.Println("Starting cleanup of old rotation events...")

	cutoff := l.now().AddDate(0, 0, -retentionDays).Unix()

	stmt, err := l.db.PrepareContext(ctx, "DELETE FROM rotation_events WHERE timestamp < ?")
	if err != nil {
		return 0, fmt.Errorf("error preparing delete statement: %w", err)
	}
	defer stmt.Close()

	res, err := stmt.ExecContext(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("error executing delete statement: %w", err)
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("error getting rows affected: %w", err)
	}

	log.Printf("Successfully cleaned up %d old rotation events", rowsAffected)
	return rowsAffected, nil
}
