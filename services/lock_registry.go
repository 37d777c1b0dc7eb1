package services

import (
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"cinebook/models"
)

// AcquireResult splits a batch lock request into the seats actually granted
// and the seats already held by another owner. Grants are per-seat, never
// all-or-nothing.
type AcquireResult struct {
	Granted  []string
	Rejected []string
}

type seatLockEntry struct {
	lock  models.SeatLock
	timer *time.Timer
	seq   uint64
}

type venueLockTable struct {
	mu    sync.Mutex
	locks map[string]*seatLockEntry
}

// LockRegistry owns every ephemeral seat lock, sharded by venue so unrelated
// venues never contend on the same mutex. Each lock carries a single-shot
// expiry timer; refreshing or releasing a lock stops the timer, and a per-seat
// sequence number keeps a stale firing from ever removing a refreshed lock.
type LockRegistry struct {
	mu     sync.RWMutex
	venues map[string]*venueLockTable
	closed bool

	nextSeq atomic.Uint64

	onExpire func(venueID string, lock models.SeatLock)
}

func NewLockRegistry() *LockRegistry {
	return &LockRegistry{
		venues: make(map[string]*venueLockTable),
	}
}

// OnExpire registers the callback fired when a lock times out. This is the
// only path that releases a lock without an explicit request, so the
// coordinator uses it to announce the expired seat to the venue room.
func (r *LockRegistry) OnExpire(fn func(venueID string, lock models.SeatLock)) {
	r.onExpire = fn
}

func (r *LockRegistry) table(venueID string) *venueLockTable {
	r.mu.RLock()
	t := r.venues[venueID]
	r.mu.RUnlock()
	if t != nil {
		return t
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if t = r.venues[venueID]; t == nil {
		t = &venueLockTable{locks: make(map[string]*seatLockEntry)}
		r.venues[venueID] = t
	}
	return t
}

// Acquire grants each requested seat that is unlocked or already owned by
// ownerID; a re-lock refreshes the expiry instead of creating a second entry.
// Seats held by someone else are rejected individually.
func (r *LockRegistry) Acquire(venueID string, seatKeys []string, ownerID, displayName string, ttl time.Duration) AcquireResult {
	t := r.table(venueID)
	now := time.Now()

	var result AcquireResult

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, key := range seatKeys {
		entry, held := t.locks[key]
		if held && entry.lock.OwnerID != ownerID {
			result.Rejected = append(result.Rejected, key)
			continue
		}

		acquiredAt := now
		if held {
			// Refresh: cancel the pending expiry before rescheduling. The
			// original acquisition time is kept so hold durations measure the
			// whole hold, not the last refresh.
			entry.timer.Stop()
			acquiredAt = entry.lock.AcquiredAt
		} else {
			entry = &seatLockEntry{}
			t.locks[key] = entry
		}

		seq := r.nextSeq.Add(1)
		entry.lock = models.SeatLock{
			SeatKey:     key,
			OwnerID:     ownerID,
			DisplayName: displayName,
			AcquiredAt:  acquiredAt,
			ExpiresAt:   now.Add(ttl),
		}
		entry.seq = seq
		entry.timer = time.AfterFunc(ttl, func() {
			r.expire(venueID, key, seq)
		})

		result.Granted = append(result.Granted, key)
	}

	return result
}

// Release removes the given seats if, and only if, ownerID holds them, and
// returns the subset actually released. Releasing a seat that already expired
// is a no-op.
func (r *LockRegistry) Release(venueID string, seatKeys []string, ownerID string) []string {
	t := r.table(venueID)

	var released []string

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, key := range seatKeys {
		entry, held := t.locks[key]
		if !held || entry.lock.OwnerID != ownerID {
			continue
		}
		entry.timer.Stop()
		delete(t.locks, key)
		released = append(released, key)
	}

	return released
}

// ReleaseAllByOwner clears every lock ownerID holds in the venue. Used for
// booking completion and disconnect cleanup; other venues are untouched.
func (r *LockRegistry) ReleaseAllByOwner(venueID, ownerID string) []string {
	t := r.table(venueID)

	var released []string

	t.mu.Lock()
	defer t.mu.Unlock()

	for key, entry := range t.locks {
		if entry.lock.OwnerID != ownerID {
			continue
		}
		entry.timer.Stop()
		delete(t.locks, key)
		released = append(released, key)
	}

	return released
}

// Snapshot returns the live lock table for late-joining clients.
func (r *LockRegistry) Snapshot(venueID string) map[string]models.LockInfo {
	t := r.table(venueID)

	t.mu.Lock()
	defer t.mu.Unlock()

	snapshot := make(map[string]models.LockInfo, len(t.locks))
	for key, entry := range t.locks {
		snapshot[key] = models.LockInfo{
			UserID:      entry.lock.OwnerID,
			DisplayName: entry.lock.DisplayName,
		}
	}
	return snapshot
}

// Owner reports who currently holds a seat, if anyone.
func (r *LockRegistry) Owner(venueID, seatKey string) (string, bool) {
	t := r.table(venueID)

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, held := t.locks[seatKey]
	if !held {
		return "", false
	}
	return entry.lock.OwnerID, true
}

// Lock returns a copy of the live lock for one seat.
func (r *LockRegistry) Lock(venueID, seatKey string) (models.SeatLock, bool) {
	t := r.table(venueID)

	t.mu.Lock()
	defer t.mu.Unlock()

	entry, held := t.locks[seatKey]
	if !held {
		return models.SeatLock{}, false
	}
	return entry.lock, true
}

func (r *LockRegistry) ActiveCount(venueID string) int {
	t := r.table(venueID)

	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.locks)
}

func (r *LockRegistry) VenueIDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.venues))
	for id := range r.venues {
		ids = append(ids, id)
	}
	return ids
}

// expire is the timer callback. The sequence check makes it exact: a lock
// refreshed after this timer was scheduled keeps a newer seq and survives.
func (r *LockRegistry) expire(venueID, seatKey string, seq uint64) {
	r.mu.RLock()
	closed := r.closed
	t := r.venues[venueID]
	r.mu.RUnlock()
	if closed || t == nil {
		return
	}

	t.mu.Lock()
	entry, held := t.locks[seatKey]
	if !held || entry.seq != seq {
		t.mu.Unlock()
		return
	}
	lock := entry.lock
	delete(t.locks, seatKey)
	t.mu.Unlock()

	slog.Info("seat lock expired", "venue_id", venueID, "seat_key", seatKey, "owner_id", lock.OwnerID)

	if r.onExpire != nil {
		r.onExpire(venueID, lock)
	}
}

// Close stops every pending expiry timer. Locks are not announced as
// released; the process is going away with them.
func (r *LockRegistry) Close() {
	r.mu.Lock()
	r.closed = true
	tables := make([]*venueLockTable, 0, len(r.venues))
	for _, t := range r.venues {
		tables = append(tables, t)
	}
	r.mu.Unlock()

	for _, t := range tables {
		t.mu.Lock()
		for key, entry := range t.locks {
			entry.timer.Stop()
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}
