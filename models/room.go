package models

import "time"

// RoomMember attributes a live realtime connection to a venue room, so
// disconnect cleanup can be charged to the right owner and venue.
type RoomMember struct {
	ConnectionID string    `json:"connection_id"`
	VenueID      string    `json:"venue_id"`
	UserID       string    `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	JoinedAt     time.Time `json:"joined_at"`
}
