package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingRecord struct {
	ID          string          `json:"id"`
	VenueID     string          `json:"venue_id"`
	UserID      string          `json:"user_id"`
	Seats       []SeatRef       `json:"seats"`
	Reference   string          `json:"reference"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"` // confirmed, cancelled
	Created     time.Time       `json:"created"`
}

type BookingStats struct {
	TotalBookings     int             `json:"total_bookings"`
	ConfirmedBookings int             `json:"confirmed_bookings"`
	CancelledBookings int             `json:"cancelled_bookings"`
	TotalRevenue      decimal.Decimal `json:"total_revenue"`
}
