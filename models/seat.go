package models

import (
	"fmt"
	"strconv"
	"time"
)

const (
	SeatAvailable = "available"
	SeatBooked    = "booked"
)

// SeatRef identifies a single seat by zero-based grid position.
type SeatRef struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Key renders the cinema-style seat key: row letter(s) plus 1-based seat
// number, e.g. (0,0) -> "A1", (1,11) -> "B12", (26,0) -> "AA1".
func (s SeatRef) Key() string {
	row := s.Row
	letters := ""
	for {
		letters = string(rune('A'+row%26)) + letters
		row = row/26 - 1
		if row < 0 {
			break
		}
	}
	return letters + strconv.Itoa(s.Col+1)
}

// ParseSeatKey reverses SeatRef.Key.
func ParseSeatKey(key string) (SeatRef, error) {
	i := 0
	for i < len(key) && key[i] >= 'A' && key[i] <= 'Z' {
		i++
	}
	if i == 0 || i == len(key) {
		return SeatRef{}, fmt.Errorf("invalid seat key %q", key)
	}

	row := 0
	for _, c := range key[:i] {
		row = row*26 + int(c-'A') + 1
	}

	num, err := strconv.Atoi(key[i:])
	if err != nil || num < 1 {
		return SeatRef{}, fmt.Errorf("invalid seat key %q", key)
	}

	return SeatRef{Row: row - 1, Col: num - 1}, nil
}

// SeatGrid is the persisted per-venue seat layout. Only availability and
// bookings live here; soft locks are tracked separately in memory.
type SeatGrid [][]string

func NewSeatGrid(rows, cols int) SeatGrid {
	grid := make(SeatGrid, rows)
	for r := range grid {
		row := make([]string, cols)
		for c := range row {
			row[c] = SeatAvailable
		}
		grid[r] = row
	}
	return grid
}

func (g SeatGrid) InBounds(ref SeatRef) bool {
	return ref.Row >= 0 && ref.Row < len(g) && ref.Col >= 0 && ref.Col < len(g[ref.Row])
}

func (g SeatGrid) Status(ref SeatRef) string {
	if !g.InBounds(ref) {
		return ""
	}
	return g[ref.Row][ref.Col]
}

func (g SeatGrid) SetStatus(ref SeatRef, st string) {
	if g.InBounds(ref) {
		g[ref.Row][ref.Col] = st
	}
}

func (g SeatGrid) Clone() SeatGrid {
	out := make(SeatGrid, len(g))
	for r, row := range g {
		out[r] = append([]string(nil), row...)
	}
	return out
}

func (g SeatGrid) CountAvailable() int {
	count := 0
	for _, row := range g {
		for _, st := range row {
			if st == SeatAvailable {
				count++
			}
		}
	}
	return count
}

// SeatLock is a time-bounded soft reservation held by one owner.
type SeatLock struct {
	SeatKey     string    `json:"seat_key"`
	OwnerID     string    `json:"owner_id"`
	DisplayName string    `json:"display_name"`
	AcquiredAt  time.Time `json:"acquired_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// LockInfo is the per-seat snapshot value sent to late-joining clients.
type LockInfo struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
}

// SeatKeys renders a seat list for log lines and broadcast payloads.
func SeatKeys(seats []SeatRef) []string {
	keys := make([]string, len(seats))
	for i, s := range seats {
		keys[i] = s.Key()
	}
	return keys
}
