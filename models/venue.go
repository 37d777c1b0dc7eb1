package models

import "time"

type Venue struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Location  string    `json:"location"`
	Rows      int       `json:"rows"`
	Cols      int       `json:"cols"`
	SeatPrice float64   `json:"seat_price"`
	Status    string    `json:"status"` // draft, active, closed
	Grid      SeatGrid  `json:"seat_grid"`
	Created   time.Time `json:"created"`
}
