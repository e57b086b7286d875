// Package models contains the persisted data structures.
package models

import "time"

// Setting is a key/value row restoring lamp state across restarts
// (baseline mode, static color, static brightness).
type Setting struct {
	ID        string `gorm:"primaryKey"`
	Key       string `gorm:"uniqueIndex;not null"`
	Value     string `gorm:"not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventPlayback remembers the last day a special-date event played, so a
// restart on the date does not replay it.
type EventPlayback struct {
	ID        string `gorm:"primaryKey"`
	EventName string `gorm:"uniqueIndex;not null"`
	// LastPlayed is a "YYYY-MM-DD" day key.
	LastPlayed string `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
