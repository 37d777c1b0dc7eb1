package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"cinebook/models"
	"cinebook/status"
)

// Persistence is the external storage collaborator. CommitBooking performs
// the whole durable promotion (grid marks plus booking record) in one
// transaction, so a failure leaves the persisted grid exactly as it was.
type Persistence interface {
	LoadGrid(ctx context.Context, venueID string) (models.SeatGrid, error)
	CommitBooking(ctx context.Context, venueID string, seats []models.SeatRef, ownerID string) (*models.BookingRecord, error)
	// ExistingBooking resolves same-owner double commits: it returns the
	// confirmed booking covering the given seats, or nil when there is none.
	ExistingBooking(ctx context.Context, venueID, ownerID string, seats []models.SeatRef) (*models.BookingRecord, error)
}

// MetricsRecorder counts lock traffic and booking outcomes for the ops
// dashboards. The production recorder is the prometheus monitor.
type MetricsRecorder interface {
	TrackLockOperation(operation, venueID, status string)
	TrackBooking(venueID string)
	TrackSeatHold(venueID string, duration time.Duration)
}

// ReservationService coordinates the lock registry, the room broadcaster, the
// allocator, and the storage collaborator. All grid reads and lock mutations
// for one venue are serialized behind that venue's mutex; venues stay fully
// parallel with respect to each other.
type ReservationService struct {
	locks   *LockRegistry
	rooms   *RoomService
	store   Persistence
	ttl     time.Duration
	metrics MetricsRecorder

	mu      sync.Mutex
	venueMu map[string]*sync.Mutex
}

// LockResult reports the per-seat outcome of a batch lock request.
type LockResult struct {
	Granted  []models.SeatRef
	Rejected []string
}

func NewReservationService(locks *LockRegistry, rooms *RoomService, store Persistence, ttl time.Duration) *ReservationService {
	s := &ReservationService{
		locks:   locks,
		rooms:   rooms,
		store:   store,
		ttl:     ttl,
		venueMu: make(map[string]*sync.Mutex),
	}
	locks.OnExpire(s.handleExpiry)
	rooms.OnDisconnect(s.Disconnect)
	return s
}

// SetMetrics attaches the operation recorder. Optional; without it the
// coordinator runs unmetered.
func (s *ReservationService) SetMetrics(m MetricsRecorder) {
	s.metrics = m
}

func (s *ReservationService) trackOps(operation, venueID, outcome string, n int) {
	if s.metrics == nil {
		return
	}
	for i := 0; i < n; i++ {
		s.metrics.TrackLockOperation(operation, venueID, outcome)
	}
}

// trackHolds observes how long the owner held each seat. Must run before the
// locks are released, while their acquisition times are still in the registry.
func (s *ReservationService) trackHolds(venueID, ownerID string, seatKeys []string) {
	if s.metrics == nil {
		return
	}
	for _, key := range seatKeys {
		if lock, held := s.locks.Lock(venueID, key); held && lock.OwnerID == ownerID {
			s.metrics.TrackSeatHold(venueID, time.Since(lock.AcquiredAt))
		}
	}
}

func (s *ReservationService) venueLock(venueID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	mu, ok := s.venueMu[venueID]
	if !ok {
		mu = &sync.Mutex{}
		s.venueMu[venueID] = mu
	}
	return mu
}

// Join registers the connection in the venue room and hands the caller the
// current lock snapshot, also published on the member's personal channel.
func (s *ReservationService) Join(ctx context.Context, connectionID, venueID, userID, displayName string) (map[string]models.LockInfo, error) {
	if _, err := s.store.LoadGrid(ctx, venueID); err != nil {
		return nil, err
	}

	s.rooms.Join(connectionID, venueID, userID, displayName)
	snapshot := s.locks.Snapshot(venueID)

	if err := s.rooms.SendToUser(userID, "current-locks", map[string]any{
		"venue_id": venueID,
		"locks":    snapshot,
	}); err != nil {
		slog.Error("failed to send lock snapshot", "error", err, "venue_id", venueID, "user_id", userID)
	}

	return snapshot, nil
}

// LockSeats soft-locks the requested seats for the owner. Seats already
// booked in the persisted grid are rejected before they reach the registry;
// seats held by another owner are rejected individually by the registry.
// Only the granted subset is broadcast.
func (s *ReservationService) LockSeats(ctx context.Context, venueID, ownerID, displayName string, seats []models.SeatRef) (LockResult, error) {
	mu := s.venueLock(venueID)
	mu.Lock()
	defer mu.Unlock()

	grid, err := s.store.LoadGrid(ctx, venueID)
	if err != nil {
		return LockResult{}, err
	}

	var result LockResult
	var lockable []string
	for _, seat := range dedupeSeats(seats) {
		if grid.Status(seat) != models.SeatAvailable {
			result.Rejected = append(result.Rejected, seat.Key())
			continue
		}
		lockable = append(lockable, seat.Key())
	}

	acquired := s.locks.Acquire(venueID, lockable, ownerID, displayName, s.ttl)
	result.Rejected = append(result.Rejected, acquired.Rejected...)
	for _, key := range acquired.Granted {
		ref, _ := models.ParseSeatKey(key)
		result.Granted = append(result.Granted, ref)
	}

	s.trackOps("lock", venueID, "granted", len(result.Granted))
	s.trackOps("lock", venueID, "rejected", len(result.Rejected))

	if len(result.Granted) == 0 {
		return result, status.ErrSeatUnavailable
	}

	s.broadcast(venueID, "seats-locked", map[string]any{
		"venue_id":     venueID,
		"seats":        result.Granted,
		"seat_keys":    models.SeatKeys(result.Granted),
		"user_id":      ownerID,
		"display_name": displayName,
	})

	return result, nil
}

// UnlockSeats releases the subset of the given seats the owner actually
// holds and broadcasts exactly that subset. Holding none of them is reported
// as a caller-only authorization error; other clients see no change.
func (s *ReservationService) UnlockSeats(ctx context.Context, venueID, ownerID string, seats []models.SeatRef) ([]models.SeatRef, error) {
	mu := s.venueLock(venueID)
	mu.Lock()
	defer mu.Unlock()

	keys := models.SeatKeys(dedupeSeats(seats))
	s.trackHolds(venueID, ownerID, keys)

	released := s.locks.Release(venueID, keys, ownerID)
	if len(released) == 0 {
		return nil, status.ErrNotAuthorized
	}
	s.trackOps("unlock", venueID, "released", len(released))

	refs := keysToRefs(released)
	s.broadcast(venueID, "seats-unlocked", map[string]any{
		"venue_id":  venueID,
		"seats":     refs,
		"seat_keys": released,
		"user_id":   ownerID,
	})

	return refs, nil
}

// ConfirmBooking promotes seats to booked. Explicit seats must each be
// available in the persisted grid and unlocked or locked by the committer;
// a requested count instead runs the allocator over the grid with other
// owners' locks masked out. Nothing is mutated until the storage commit
// succeeds, and a failed commit leaves previously granted locks intact.
func (s *ReservationService) ConfirmBooking(ctx context.Context, venueID, ownerID, displayName string, seats []models.SeatRef, seatCount int) (*models.BookingRecord, []models.SeatRef, error) {
	mu := s.venueLock(venueID)
	mu.Lock()
	defer mu.Unlock()

	grid, err := s.store.LoadGrid(ctx, venueID)
	if err != nil {
		return nil, nil, err
	}

	seats = dedupeSeats(seats)
	held := s.locks.Snapshot(venueID)

	if len(seats) == 0 {
		// Count-based venue: allocate a candidate assignment first. Seats
		// locked by someone else are masked so the allocator cannot pick
		// them; the committer's own locks stay eligible.
		masked := grid.Clone()
		for key, info := range held {
			if info.UserID == ownerID {
				continue
			}
			if ref, err := models.ParseSeatKey(key); err == nil {
				masked.SetStatus(ref, models.SeatBooked)
			}
		}
		seats, err = AllocateSeats(masked, seatCount)
		if err != nil {
			return nil, nil, err
		}
		if len(seats) == 0 {
			return nil, nil, status.ErrInsufficientCapacity
		}
	}

	booked := 0
	for _, seat := range seats {
		if !grid.InBounds(seat) {
			return nil, nil, status.ErrSeatUnavailable
		}
		if grid.Status(seat) == models.SeatBooked {
			booked++
			continue
		}
		if info, locked := held[seat.Key()]; locked && info.UserID != ownerID {
			return nil, nil, status.ErrSeatUnavailable
		}
	}

	if booked == len(seats) {
		// Same-owner double commit is a no-op returning the original
		// booking; anything else on already-booked seats is a plain reject.
		record, err := s.store.ExistingBooking(ctx, venueID, ownerID, seats)
		if err != nil {
			return nil, nil, err
		}
		if record != nil {
			return record, seats, nil
		}
		return nil, nil, status.ErrSeatUnavailable
	}
	if booked > 0 {
		return nil, nil, status.ErrSeatUnavailable
	}

	// A seat must pass through an owner-held lock before promotion, even
	// when the flow is instantaneous. This also refreshes the owner's
	// existing locks so none can expire mid-commit.
	keys := models.SeatKeys(seats)
	acquired := s.locks.Acquire(venueID, keys, ownerID, displayName, s.ttl)
	if len(acquired.Rejected) > 0 {
		return nil, nil, status.ErrSeatUnavailable
	}

	var transient []string
	for _, key := range acquired.Granted {
		if _, wasHeld := held[key]; !wasHeld {
			transient = append(transient, key)
		}
	}

	record, err := s.store.CommitBooking(ctx, venueID, seats, ownerID)
	if err != nil {
		// Drop only the locks this attempt created; seats the owner held
		// before the attempt stay locked so the booking can be retried.
		s.locks.Release(venueID, transient, ownerID)
		return nil, nil, err
	}

	s.trackHolds(venueID, ownerID, keys)
	s.locks.Release(venueID, keys, ownerID)
	if s.metrics != nil {
		s.metrics.TrackBooking(venueID)
	}
	s.broadcast(venueID, "seats-booked", map[string]any{
		"venue_id":  venueID,
		"seats":     seats,
		"seat_keys": keys,
		"user_id":   ownerID,
	})

	return record, seats, nil
}

// ReleaseSession clears every lock the owner still holds in the venue and
// announces the clearance. Serves the client's booking-completed event and
// admission-queue eviction.
func (s *ReservationService) ReleaseSession(venueID, ownerID string) []models.SeatRef {
	mu := s.venueLock(venueID)
	mu.Lock()
	defer mu.Unlock()

	released := s.locks.ReleaseAllByOwner(venueID, ownerID)
	if len(released) == 0 {
		return nil
	}

	refs := keysToRefs(released)
	s.broadcast(venueID, "seats-unlocked", map[string]any{
		"venue_id":  venueID,
		"seats":     refs,
		"seat_keys": released,
		"user_id":   ownerID,
	})
	return refs
}

// Disconnect is idempotent cleanup for a dropped connection: membership goes
// away and whatever the member still had locked in that venue is released
// and announced. Locks the same user holds in other venues are untouched.
func (s *ReservationService) Disconnect(connectionID string) {
	member, ok := s.rooms.Leave(connectionID)
	if !ok {
		return
	}

	mu := s.venueLock(member.VenueID)
	mu.Lock()
	defer mu.Unlock()

	released := s.locks.ReleaseAllByOwner(member.VenueID, member.UserID)
	if len(released) == 0 {
		return
	}

	slog.Info("released locks on disconnect",
		"connection_id", connectionID,
		"venue_id", member.VenueID,
		"user_id", member.UserID,
		"seats", released,
	)

	s.broadcast(member.VenueID, "seats-unlocked", map[string]any{
		"venue_id":  member.VenueID,
		"seats":     keysToRefs(released),
		"seat_keys": released,
		"user_id":   member.UserID,
	})
}

// handleExpiry announces a single TTL expiry to the venue room.
func (s *ReservationService) handleExpiry(venueID string, lock models.SeatLock) {
	ref, err := models.ParseSeatKey(lock.SeatKey)
	if err != nil {
		slog.Error("unparseable seat key on expiry", "seat_key", lock.SeatKey)
		return
	}

	s.trackOps("expire", venueID, "expired", 1)
	if s.metrics != nil {
		s.metrics.TrackSeatHold(venueID, time.Since(lock.AcquiredAt))
	}

	s.broadcast(venueID, "seat-unlocked", map[string]any{
		"venue_id": venueID,
		"seat_key": lock.SeatKey,
		"row":      ref.Row,
		"col":      ref.Col,
	})
}

func (s *ReservationService) broadcast(venueID, event string, payload map[string]any) {
	if err := s.rooms.Broadcast(venueID, event, payload); err != nil {
		slog.Error("broadcast failed", "error", err, "venue_id", venueID, "event", event)
	}
}

// IsValidationError reports whether the error is a caller-only rejection
// that must never mutate shared state or produce a broadcast.
func IsValidationError(err error) bool {
	return errors.Is(err, status.ErrSeatUnavailable) ||
		errors.Is(err, status.ErrInsufficientCapacity) ||
		errors.Is(err, status.ErrNotAuthorized) ||
		errors.Is(err, status.ErrVenueNotFound)
}

func dedupeSeats(seats []models.SeatRef) []models.SeatRef {
	seen := make(map[models.SeatRef]bool, len(seats))
	out := seats[:0:0]
	for _, seat := range seats {
		if !seen[seat] {
			seen[seat] = true
			out = append(out, seat)
		}
	}
	return out
}

func keysToRefs(keys []string) []models.SeatRef {
	refs := make([]models.SeatRef, 0, len(keys))
	for _, key := range keys {
		ref, err := models.ParseSeatKey(key)
		if err != nil {
			continue
		}
		refs = append(refs, ref)
	}
	return refs
}
