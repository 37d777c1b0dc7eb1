package handlers

import (
	"errors"
	"net/http"

	"cinebook/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError translates service errors into HTTP responses. Validation
// rejections keep their message; anything else is reported as an opaque
// server error so storage details never leak to clients.
func apiError(err error) error {
	switch {
	case errors.Is(err, status.ErrVenueNotFound):
		return apis.NewNotFoundError("Venue not found", err)
	case errors.Is(err, status.ErrNotAuthorized):
		return apis.NewForbiddenError("Not authorized", err)
	case errors.Is(err, status.ErrSeatUnavailable):
		return apis.NewApiError(http.StatusConflict, "Seat unavailable", err)
	case errors.Is(err, status.ErrInsufficientCapacity):
		return apis.NewApiError(http.StatusConflict, "Not enough consecutive seats", err)
	default:
		return apis.NewInternalServerError("Something went wrong", err)
	}
}
