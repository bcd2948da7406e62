package models

import "time"

// ManagedChannel is a text channel in the target category whose name carries a rotation index.
type ManagedChannel struct {
	ID        string
	Name      string
	Title     string // name without the "-DDD" suffix
	Index     int
	CreatedAt time.Time
	ParentID  string
}

// Age returns how long the channel has existed at now.
func (m ManagedChannel) Age(now time.Time) time.Duration {
	return now.Sub(m.CreatedAt)
}

// ScanResult is the output of one category scan.
type ScanResult struct {
	Managed  []ManagedChannel // in iteration order of the channel snapshot
	MaxIndex int              // index of Current, 0 if none
	Current  *ManagedChannel  // channel holding MaxIndex, nil if none
}
