package status

import "errors"

var (
	ErrSeatUnavailable      = errors.New("seat: seat unavailable")
	ErrInsufficientCapacity = errors.New("seat: insufficient capacity")
	ErrNotAuthorized        = errors.New("seat: not authorized")
	ErrVenueNotFound        = errors.New("venue: venue not found")
	ErrPersistence          = errors.New("store: persistence failure")
)
