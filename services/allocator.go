package services

import (
	"cinebook/models"
	"cinebook/status"
)

// AllocateSeats picks seats for a count-based booking: rows are scanned top to
// bottom, and in each row the longest run of consecutive available seats is
// taken first-fit until the request is satisfied. Runs never merge across an
// interruption, and rows past the point of satisfaction are not scanned.
//
// The grid is never mutated; callers commit the returned seats separately so a
// failed request leaves no partial assignment behind.
func AllocateSeats(grid models.SeatGrid, requested int) ([]models.SeatRef, error) {
	if requested <= 0 {
		return nil, nil
	}

	var picked []models.SeatRef
	remaining := requested

	for row := 0; row < len(grid) && remaining > 0; row++ {
		start, length := longestRun(grid[row])
		if length == 0 {
			continue
		}

		take := length
		if remaining < take {
			take = remaining
		}
		for col := start; col < start+take; col++ {
			picked = append(picked, models.SeatRef{Row: row, Col: col})
		}
		remaining -= take
	}

	if remaining > 0 {
		return nil, status.ErrInsufficientCapacity
	}
	return picked, nil
}

// longestRun finds the longest run of consecutive available seats in one row.
// Earlier runs win ties, so the pick order is deterministic.
func longestRun(row []string) (start, length int) {
	bestStart, bestLen := 0, 0
	runStart, runLen := 0, 0

	for col, st := range row {
		if st == models.SeatAvailable {
			if runLen == 0 {
				runStart = col
			}
			runLen++
			if runLen > bestLen {
				bestStart, bestLen = runStart, runLen
			}
		} else {
			runLen = 0
		}
	}
	return bestStart, bestLen
}
