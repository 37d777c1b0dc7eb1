package handlers

import (
	"net/http"

	"cinebook/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type RoomHandler struct {
	app          *pocketbase.PocketBase
	reservations *services.ReservationService
	rooms        *services.RoomService
}

func NewRoomHandler(app *pocketbase.PocketBase, reservations *services.ReservationService, rooms *services.RoomService) *RoomHandler {
	return &RoomHandler{
		app:          app,
		reservations: reservations,
		rooms:        rooms,
	}
}

// JoinRoom - Register the client's realtime connection in a venue room. The
// connection_id is the client's PubNub UUID, so presence leave events can be
// matched back to the member later.
func (h *RoomHandler) JoinRoom(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID      string `json:"venue_id"`
		ConnectionID string `json:"connection_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" || req.ConnectionID == "" {
		return apis.NewBadRequestError("venue_id and connection_id are required", nil)
	}

	snapshot, err := h.reservations.Join(
		e.Request.Context(), req.ConnectionID, req.VenueID, e.Auth.Id, displayName(e))
	if err != nil {
		return apiError(err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"channel": services.VenueChannel(req.VenueID),
		"locks":   snapshot,
		"members": h.rooms.MemberCount(req.VenueID),
	})
}

// LeaveRoom - Explicit leave; same cleanup as a presence timeout
func (h *RoomHandler) LeaveRoom(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		ConnectionID string `json:"connection_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.ConnectionID == "" {
		return apis.NewBadRequestError("connection_id is required", nil)
	}

	member, ok := h.rooms.Member(req.ConnectionID)
	if ok && member.UserID != e.Auth.Id {
		return apis.NewForbiddenError("Connection belongs to another user", nil)
	}

	h.reservations.Disconnect(req.ConnectionID)

	return e.JSON(http.StatusOK, map[string]any{"message": "Left room"})
}
