package handlers

import (
	"fmt"
	"net/http"
	"testing"

	"cinebook/status"

	"github.com/pocketbase/pocketbase/tools/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApiErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"venue not found", status.ErrVenueNotFound, http.StatusNotFound},
		{"wrapped venue not found", fmt.Errorf("%w: venue-1", status.ErrVenueNotFound), http.StatusNotFound},
		{"not authorized", status.ErrNotAuthorized, http.StatusForbidden},
		{"seat unavailable", status.ErrSeatUnavailable, http.StatusConflict},
		{"wrapped seat unavailable", fmt.Errorf("%w: A1", status.ErrSeatUnavailable), http.StatusConflict},
		{"insufficient capacity", status.ErrInsufficientCapacity, http.StatusConflict},
		{"persistence failure", fmt.Errorf("%w: db down", status.ErrPersistence), http.StatusInternalServerError},
		{"unknown error", fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var apiErr *router.ApiError
			require.ErrorAs(t, apiError(tt.err), &apiErr)
			assert.Equal(t, tt.wantStatus, apiErr.Status)
		})
	}
}

func TestApiErrorHidesStorageDetails(t *testing.T) {
	var apiErr *router.ApiError
	err := apiError(fmt.Errorf("%w: dsn=user:secret@host", status.ErrPersistence))
	require.ErrorAs(t, err, &apiErr)

	assert.NotContains(t, apiErr.Message, "dsn=", "storage internals must not reach clients")
}
