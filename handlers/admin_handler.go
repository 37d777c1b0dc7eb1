package handlers

import (
	"net/http"

	"cinebook/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	app   *pocketbase.PocketBase
	store *services.Store
	locks *services.LockRegistry
	rooms *services.RoomService
	queue *services.QueueService
}

func NewAdminHandler(app *pocketbase.PocketBase, store *services.Store, locks *services.LockRegistry, rooms *services.RoomService, queue *services.QueueService) *AdminHandler {
	return &AdminHandler{
		app:   app,
		store: store,
		locks: locks,
		rooms: rooms,
		queue: queue,
	}
}

func (h *AdminHandler) requireAdmin(e *core.RequestEvent) error {
	if e.Auth == nil || !e.Auth.IsSuperuser() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}
	return nil
}

// GetLockDashboard - Live lock state across every venue with activity
func (h *AdminHandler) GetLockDashboard(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	venues := []map[string]any{}
	for _, venueID := range h.locks.VenueIDs() {
		venues = append(venues, map[string]any{
			"venue_id":     venueID,
			"active_locks": h.locks.ActiveCount(venueID),
			"room_members": h.rooms.MemberCount(venueID),
			"locks":        h.locks.Snapshot(venueID),
		})
	}

	return e.JSON(http.StatusOK, map[string]any{"venues": venues})
}

// GetBookingStats - Aggregate booking counts and revenue
func (h *AdminHandler) GetBookingStats(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	stats, err := h.store.BookingStats(e.Request.Context())
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, stats)
}

// GetQueueMetrics - One venue's admission queue state
func (h *AdminHandler) GetQueueMetrics(e *core.RequestEvent) error {
	if err := h.requireAdmin(e); err != nil {
		return err
	}

	venueID := e.Request.PathValue("venueId")
	if venueID == "" {
		return apis.NewBadRequestError("Venue ID required", nil)
	}

	metrics, err := h.queue.Metrics(e.Request.Context(), venueID)
	if err != nil {
		return apis.NewBadRequestError("Failed to get metrics", err)
	}

	return e.JSON(http.StatusOK, metrics)
}
