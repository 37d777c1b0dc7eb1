package services

import (
	"context"
	"fmt"
	"strconv"

	"cinebook/models"
	"cinebook/status"
	"cinebook/utils"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
	"github.com/shopspring/decimal"
)

// Store is the persistence collaborator, backed by PocketBase records. The
// seat grid lives on the venue record and is only written at booking commit
// or cancellation; soft locks never touch it.
type Store struct {
	app core.App
}

func NewStore(app core.App) *Store {
	return &Store{app: app}
}

func (s *Store) GetVenue(ctx context.Context, venueID string) (*models.Venue, error) {
	record, err := s.app.FindRecordById("venues", venueID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", status.ErrVenueNotFound, venueID)
	}

	var grid models.SeatGrid
	if err := record.UnmarshalJSONField("seat_grid", &grid); err != nil {
		return nil, fmt.Errorf("%w: unmarshal seat grid: %v", status.ErrPersistence, err)
	}

	return &models.Venue{
		ID:        record.Id,
		Name:      record.GetString("name"),
		Location:  record.GetString("location"),
		Rows:      record.GetInt("rows"),
		Cols:      record.GetInt("cols"),
		SeatPrice: record.GetFloat("seat_price"),
		Status:    record.GetString("status"),
		Grid:      grid,
		Created:   record.GetDateTime("created").Time(),
	}, nil
}

func (s *Store) LoadGrid(ctx context.Context, venueID string) (models.SeatGrid, error) {
	venue, err := s.GetVenue(ctx, venueID)
	if err != nil {
		return nil, err
	}
	return venue.Grid, nil
}

// CommitBooking promotes the seats to booked and inserts the booking record
// in one transaction. On any failure the persisted grid stays exactly as it
// was, so the caller's in-memory lock state needs no reconciliation.
func (s *Store) CommitBooking(ctx context.Context, venueID string, seats []models.SeatRef, ownerID string) (*models.BookingRecord, error) {
	var result *models.BookingRecord

	err := s.app.RunInTransaction(func(txApp core.App) error {
		venue, err := txApp.FindRecordById("venues", venueID)
		if err != nil {
			return fmt.Errorf("%w: %s", status.ErrVenueNotFound, venueID)
		}

		var grid models.SeatGrid
		if err := venue.UnmarshalJSONField("seat_grid", &grid); err != nil {
			return fmt.Errorf("%w: unmarshal seat grid: %v", status.ErrPersistence, err)
		}

		for _, seat := range seats {
			if grid.Status(seat) != models.SeatAvailable {
				return fmt.Errorf("%w: %s", status.ErrSeatUnavailable, seat.Key())
			}
		}
		for _, seat := range seats {
			grid.SetStatus(seat, models.SeatBooked)
		}

		venue.Set("seat_grid", grid)
		if err := txApp.Save(venue); err != nil {
			return fmt.Errorf("%w: save venue: %v", status.ErrPersistence, err)
		}

		collection, err := txApp.FindCollectionByNameOrId("bookings")
		if err != nil {
			return fmt.Errorf("%w: bookings collection: %v", status.ErrPersistence, err)
		}

		reference, err := utils.GenerateCode(4)
		if err != nil {
			return fmt.Errorf("%w: reference code: %v", status.ErrPersistence, err)
		}

		price := decimal.NewFromFloat(venue.GetFloat("seat_price"))
		total := price.Mul(decimal.NewFromInt(int64(len(seats))))

		booking := core.NewRecord(collection)
		booking.Set("venue_id", venueID)
		booking.Set("user_id", ownerID)
		booking.Set("seats", seats)
		booking.Set("seat_keys", models.SeatKeys(seats))
		booking.Set("total_amount", total.InexactFloat64())
		booking.Set("reference", reference)
		booking.Set("status", "confirmed")

		if err := txApp.Save(booking); err != nil {
			return fmt.Errorf("%w: save booking: %v", status.ErrPersistence, err)
		}

		result = &models.BookingRecord{
			ID:          booking.Id,
			VenueID:     venueID,
			UserID:      ownerID,
			Seats:       seats,
			Reference:   reference,
			TotalAmount: total,
			Status:      "confirmed",
			Created:     booking.GetDateTime("created").Time(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ExistingBooking finds the owner's confirmed booking covering all the given
// seats, or nil. Backs the idempotent double-commit path.
func (s *Store) ExistingBooking(ctx context.Context, venueID, ownerID string, seats []models.SeatRef) (*models.BookingRecord, error) {
	records, err := s.app.FindRecordsByFilter(
		"bookings",
		"venue_id = {:venueId} && user_id = {:userId} && status = 'confirmed'",
		"-created",
		50,
		0,
		map[string]any{"venueId": venueID, "userId": ownerID},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find bookings: %v", status.ErrPersistence, err)
	}

	want := make(map[models.SeatRef]bool, len(seats))
	for _, seat := range seats {
		want[seat] = true
	}

	for _, record := range records {
		booking, err := s.recordToBooking(record)
		if err != nil {
			continue
		}
		covered := 0
		for _, seat := range booking.Seats {
			if want[seat] {
				covered++
			}
		}
		if covered == len(seats) {
			return booking, nil
		}
	}
	return nil, nil
}

// CancelBooking flips the booking to cancelled and restores its seats in the
// venue grid, both in one transaction.
func (s *Store) CancelBooking(ctx context.Context, bookingID, userID string) (*models.BookingRecord, error) {
	var result *models.BookingRecord

	err := s.app.RunInTransaction(func(txApp core.App) error {
		record, err := txApp.FindRecordById("bookings", bookingID)
		if err != nil {
			return fmt.Errorf("%w: booking %s: %v", status.ErrPersistence, bookingID, err)
		}
		if record.GetString("user_id") != userID {
			return status.ErrNotAuthorized
		}
		if record.GetString("status") == "cancelled" {
			return fmt.Errorf("%w: booking already cancelled", status.ErrSeatUnavailable)
		}

		booking, err := s.recordToBooking(record)
		if err != nil {
			return err
		}

		venue, err := txApp.FindRecordById("venues", booking.VenueID)
		if err != nil {
			return fmt.Errorf("%w: %s", status.ErrVenueNotFound, booking.VenueID)
		}

		var grid models.SeatGrid
		if err := venue.UnmarshalJSONField("seat_grid", &grid); err != nil {
			return fmt.Errorf("%w: unmarshal seat grid: %v", status.ErrPersistence, err)
		}
		for _, seat := range booking.Seats {
			grid.SetStatus(seat, models.SeatAvailable)
		}
		venue.Set("seat_grid", grid)
		if err := txApp.Save(venue); err != nil {
			return fmt.Errorf("%w: save venue: %v", status.ErrPersistence, err)
		}

		record.Set("status", "cancelled")
		if err := txApp.Save(record); err != nil {
			return fmt.Errorf("%w: save booking: %v", status.ErrPersistence, err)
		}

		booking.Status = "cancelled"
		result = booking
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) BookingHistory(ctx context.Context, userID string, limit int) ([]*models.BookingRecord, error) {
	records, err := s.app.FindRecordsByFilter(
		"bookings",
		"user_id = {:userId}",
		"-created",
		limit,
		0,
		map[string]any{"userId": userID},
	)
	if err != nil {
		return nil, fmt.Errorf("%w: find bookings: %v", status.ErrPersistence, err)
	}

	bookings := make([]*models.BookingRecord, 0, len(records))
	for _, record := range records {
		booking, err := s.recordToBooking(record)
		if err != nil {
			continue
		}
		bookings = append(bookings, booking)
	}
	return bookings, nil
}

// BookingStats aggregates bookings for the admin dashboard with a raw query.
func (s *Store) BookingStats(ctx context.Context) (*models.BookingStats, error) {
	var rows []dbx.NullStringMap

	err := s.app.DB().
		NewQuery("SELECT status, COUNT(*) AS count, COALESCE(SUM(total_amount), 0) AS amount FROM bookings GROUP BY status").
		All(&rows)
	if err != nil {
		return nil, fmt.Errorf("%w: booking stats: %v", status.ErrPersistence, err)
	}

	stats := &models.BookingStats{TotalRevenue: decimal.Zero}
	for _, row := range rows {
		count, _ := strconv.Atoi(row["count"].String)
		stats.TotalBookings += count
		switch row["status"].String {
		case "confirmed":
			stats.ConfirmedBookings = count
			if amount, err := decimal.NewFromString(row["amount"].String); err == nil {
				stats.TotalRevenue = stats.TotalRevenue.Add(amount)
			}
		case "cancelled":
			stats.CancelledBookings = count
		}
	}
	return stats, nil
}

func (s *Store) recordToBooking(record *core.Record) (*models.BookingRecord, error) {
	var seats []models.SeatRef
	if err := record.UnmarshalJSONField("seats", &seats); err != nil {
		return nil, fmt.Errorf("%w: unmarshal seats: %v", status.ErrPersistence, err)
	}

	return &models.BookingRecord{
		ID:          record.Id,
		VenueID:     record.GetString("venue_id"),
		UserID:      record.GetString("user_id"),
		Seats:       seats,
		Reference:   record.GetString("reference"),
		TotalAmount: decimal.NewFromFloat(record.GetFloat("total_amount")),
		Status:      record.GetString("status"),
		Created:     record.GetDateTime("created").Time(),
	}, nil
}
