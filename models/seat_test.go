package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeatRef_Key(t *testing.T) {
	cases := []struct {
		ref SeatRef
		key string
	}{
		{SeatRef{Row: 0, Col: 0}, "A1"},
		{SeatRef{Row: 1, Col: 11}, "B12"},
		{SeatRef{Row: 25, Col: 4}, "Z5"},
		{SeatRef{Row: 26, Col: 0}, "AA1"},
		{SeatRef{Row: 27, Col: 9}, "AB10"},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.key, tc.ref.Key())

		parsed, err := ParseSeatKey(tc.key)
		require.NoError(t, err)
		assert.Equal(t, tc.ref, parsed)
	}
}

func TestParseSeatKey_Invalid(t *testing.T) {
	for _, key := range []string{"", "A", "7", "A0", "1A", "a1", "A-1"} {
		_, err := ParseSeatKey(key)
		assert.Error(t, err, "key %q", key)
	}
}

func TestNewSeatGrid(t *testing.T) {
	grid := NewSeatGrid(3, 4)

	require.Len(t, grid, 3)
	for _, row := range grid {
		require.Len(t, row, 4)
	}
	assert.Equal(t, 12, grid.CountAvailable())
}

func TestSeatGrid_StatusAndBounds(t *testing.T) {
	grid := NewSeatGrid(2, 2)

	grid.SetStatus(SeatRef{Row: 1, Col: 0}, SeatBooked)
	assert.Equal(t, SeatBooked, grid.Status(SeatRef{Row: 1, Col: 0}))
	assert.Equal(t, SeatAvailable, grid.Status(SeatRef{Row: 0, Col: 0}))
	assert.Equal(t, 3, grid.CountAvailable())

	assert.False(t, grid.InBounds(SeatRef{Row: 2, Col: 0}))
	assert.False(t, grid.InBounds(SeatRef{Row: 0, Col: -1}))
	assert.Equal(t, "", grid.Status(SeatRef{Row: 5, Col: 5}))

	// Out-of-bounds writes are dropped, not panics.
	grid.SetStatus(SeatRef{Row: 9, Col: 9}, SeatBooked)
}

func TestSeatGrid_Clone(t *testing.T) {
	grid := NewSeatGrid(2, 2)
	clone := grid.Clone()

	clone.SetStatus(SeatRef{Row: 0, Col: 1}, SeatBooked)

	assert.Equal(t, SeatAvailable, grid.Status(SeatRef{Row: 0, Col: 1}))
	assert.Equal(t, SeatBooked, clone.Status(SeatRef{Row: 0, Col: 1}))
}
