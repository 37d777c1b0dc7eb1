package handlers

import (
	"net/http"

	"cinebook/models"
	"cinebook/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type SeatHandler struct {
	app          *pocketbase.PocketBase
	store        *services.Store
	reservations *services.ReservationService
	locks        *services.LockRegistry
}

func NewSeatHandler(app *pocketbase.PocketBase, store *services.Store, reservations *services.ReservationService, locks *services.LockRegistry) *SeatHandler {
	return &SeatHandler{
		app:          app,
		store:        store,
		reservations: reservations,
		locks:        locks,
	}
}

// GetSeatMap - Get the venue seat grid with the live lock overlay
func (h *SeatHandler) GetSeatMap(e *core.RequestEvent) error {
	venueID := e.Request.PathValue("venueId")

	venue, err := h.store.GetVenue(e.Request.Context(), venueID)
	if err != nil {
		return apiError(err)
	}

	held := h.locks.Snapshot(venueID)

	rows := make([][]map[string]any, len(venue.Grid))
	for r := range venue.Grid {
		rows[r] = make([]map[string]any, len(venue.Grid[r]))
		for c := range venue.Grid[r] {
			ref := models.SeatRef{Row: r, Col: c}
			seat := map[string]any{
				"key":    ref.Key(),
				"status": venue.Grid[r][c],
			}
			if info, locked := held[ref.Key()]; locked && venue.Grid[r][c] == models.SeatAvailable {
				seat["status"] = "locked"
				seat["locked_by"] = info.DisplayName
			}
			rows[r][c] = seat
		}
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue_id":        venue.ID,
		"name":            venue.Name,
		"seat_price":      venue.SeatPrice,
		"rows":            rows,
		"available_seats": venue.Grid.CountAvailable(),
	})
}

// LockSeats - Soft-lock a batch of seats for the authenticated user
func (h *SeatHandler) LockSeats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID  string   `json:"venue_id"`
		SeatKeys []string `json:"seat_keys"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" || len(req.SeatKeys) == 0 {
		return apis.NewBadRequestError("venue_id and seat_keys are required", nil)
	}

	seats, err := parseSeatKeys(req.SeatKeys)
	if err != nil {
		return apis.NewBadRequestError("Invalid seat key", err)
	}

	result, err := h.reservations.LockSeats(e.Request.Context(), req.VenueID, e.Auth.Id, displayName(e), seats)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"locked":   models.SeatKeys(result.Granted),
		"rejected": result.Rejected,
	})
}

// UnlockSeats - Release a batch of the user's own locks
func (h *SeatHandler) UnlockSeats(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID  string   `json:"venue_id"`
		SeatKeys []string `json:"seat_keys"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	seats, err := parseSeatKeys(req.SeatKeys)
	if err != nil {
		return apis.NewBadRequestError("Invalid seat key", err)
	}

	released, err := h.reservations.UnlockSeats(e.Request.Context(), req.VenueID, e.Auth.Id, seats)
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"released": models.SeatKeys(released),
	})
}

func parseSeatKeys(keys []string) ([]models.SeatRef, error) {
	seats := make([]models.SeatRef, 0, len(keys))
	for _, key := range keys {
		ref, err := models.ParseSeatKey(key)
		if err != nil {
			return nil, err
		}
		seats = append(seats, ref)
	}
	return seats, nil
}

func displayName(e *core.RequestEvent) string {
	if name := e.Auth.GetString("name"); name != "" {
		return name
	}
	return e.Auth.Id
}
