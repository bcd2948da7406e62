package models

import "time"

// TranscriptMessage is one historical message as it appears in an archive.
type TranscriptMessage struct {
	ID                string
	Timestamp         time.Time
	AuthorDisplayName string
	Content           string // raw body, never escaped
}

// ArchiveResult is the outcome of archiving one channel.
type ArchiveResult struct {
	ChannelID    string
	ChannelName  string
	OK           bool
	ExportPath   string // set when OK
	MessageCount int
	Err          error // set when !OK
}
