package models

import (
	"time"
)

type QueueEntry struct {
	UserID    string    `json:"user_id"`
	VenueID   string    `json:"venue_id"`
	JoinedAt  time.Time `json:"joined_at"`
	Position  int       `json:"position"`
	Status    string    `json:"status"` // waiting, selecting, done
	SessionID string    `json:"session_id"`
}

type ActiveSelector struct {
	UserID    string    `json:"user_id"`
	VenueID   string    `json:"venue_id"`
	StartedAt time.Time `json:"started_at"`
	SessionID string    `json:"session_id"`
}

type QueueMetrics struct {
	VenueID      string    `json:"venue_id"`
	TotalWaiting int       `json:"total_waiting"`
	ActiveCount  int       `json:"active_count"`
	LastUpdated  time.Time `json:"last_updated"`
}
