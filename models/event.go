package models

// Event kinds written to the rotation audit log.
const (
	EventArchived      = "archived"
	EventArchiveFailed = "archive_failed"
	EventDeleted       = "deleted"
	EventDeleteFailed  = "delete_failed"
	EventCreated       = "created"
	EventCycleFailed   = "cycle_failed"
)

// RotationEvent represents one row of the rotation_events table.
type RotationEvent struct {
	EventID     int64  `db:"event_id"`
	CycleID     string `db:"cycle_id"`
	Kind        string `db:"kind"`
	ChannelID   string `db:"channel_id"`
	ChannelName string `db:"channel_name"`
	Index       int    `db:"rotation_index"`
	ExportPath  string `db:"export_path"`
	Error       string `db:"error"`
	Timestamp   int64  `db:"timestamp"` // Unix seconds
}
