package handlers

import (
	"errors"
	"net/http"

	"cinebook/services"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type QueueHandler struct {
	app   *pocketbase.PocketBase
	queue *services.QueueService
}

func NewQueueHandler(app *pocketbase.PocketBase, queue *services.QueueService) *QueueHandler {
	return &QueueHandler{
		app:   app,
		queue: queue,
	}
}

// EnterQueue - Join the venue's admission queue
func (h *QueueHandler) EnterQueue(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID   string `json:"venue_id"`
		SessionID string `json:"session_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	position, err := h.queue.Enqueue(e.Request.Context(), req.VenueID, e.Auth.Id, req.SessionID)
	if errors.Is(err, services.ErrAlreadyQueued) {
		return apis.NewBadRequestError("Already in queue", nil)
	}
	if err != nil {
		return apis.NewBadRequestError("Failed to join queue", err)
	}

	resp := map[string]any{"venue_id": req.VenueID, "position": position}
	if position == 0 {
		resp["status"] = "selecting"
	} else {
		resp["status"] = "waiting"
	}
	return e.JSON(http.StatusOK, resp)
}

// GetQueuePosition - Poll the caller's queue state
func (h *QueueHandler) GetQueuePosition(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	venueID := e.Request.PathValue("venueId")
	if venueID == "" {
		return apis.NewBadRequestError("Venue ID required", nil)
	}

	position, state, err := h.queue.Position(e.Request.Context(), venueID, e.Auth.Id)
	if err != nil {
		return apis.NewBadRequestError("Failed to get position", err)
	}
	if state == "" {
		return apis.NewNotFoundError("Not in queue", nil)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"venue_id": venueID,
		"status":   state,
		"position": position,
	})
}

// LeaveQueue - Give up the queue spot (or the selecting slot)
func (h *QueueHandler) LeaveQueue(e *core.RequestEvent) error {
	if e.Auth == nil {
		return apis.NewUnauthorizedError("Unauthorized", nil)
	}

	var req struct {
		VenueID string `json:"venue_id"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if req.VenueID == "" {
		return apis.NewBadRequestError("venue_id is required", nil)
	}

	if err := h.queue.Leave(e.Request.Context(), req.VenueID, e.Auth.Id); err != nil {
		return apis.NewBadRequestError("Failed to leave queue", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Successfully left queue"})
}
