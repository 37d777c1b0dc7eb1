package monitoring

import (
	"context"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
)

var (
	activeSeatLocks = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "active_seat_locks_total",
			Help: "Current number of soft seat locks per venue",
		},
		[]string{"venue_id"},
	)

	roomMembers = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "room_members_total",
			Help: "Current realtime room members per venue",
		},
		[]string{"venue_id"},
	)

	queueLength = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "queue_length_total",
			Help: "Current admission queue length per venue",
		},
		[]string{"venue_id", "queue_type"},
	)

	lockOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_lock_operations_total",
			Help: "Total seat lock operations",
		},
		[]string{"operation", "venue_id", "status"},
	)

	bookingsConfirmed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bookings_confirmed_total",
			Help: "Total confirmed bookings",
		},
		[]string{"venue_id"},
	)

	goroutineCount = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_goroutines_total",
			Help: "Current number of active goroutines",
		},
	)

	seatHoldDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "seat_hold_duration_seconds",
			Help:    "How long seats stay soft-locked before release or booking",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		},
		[]string{"venue_id"},
	)
)

// lockStates is the live-state side of the monitor, implemented by the lock
// registry and the room service.
type lockStates interface {
	VenueIDs() []string
	ActiveCount(venueID string) int
}

type memberCounts interface {
	VenueIDs() []string
	MemberCount(venueID string) int
}

type Monitor struct {
	redis *redis.Client
	locks lockStates
	rooms memberCounts
}

func NewMonitor(redisClient *redis.Client, locks lockStates, rooms memberCounts) *Monitor {
	return &Monitor{
		redis: redisClient,
		locks: locks,
		rooms: rooms,
	}
}

// Collect runs until ctx is cancelled, refreshing the polled gauges.
func (m *Monitor) Collect(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.collectLockMetrics()
			m.collectQueueMetrics(ctx)
			goroutineCount.Set(float64(runtime.NumGoroutine()))
		case <-ctx.Done():
			return
		}
	}
}

func (m *Monitor) collectLockMetrics() {
	for _, venueID := range m.locks.VenueIDs() {
		activeSeatLocks.WithLabelValues(venueID).Set(float64(m.locks.ActiveCount(venueID)))
	}
	for _, venueID := range m.rooms.VenueIDs() {
		roomMembers.WithLabelValues(venueID).Set(float64(m.rooms.MemberCount(venueID)))
	}
}

func (m *Monitor) collectQueueMetrics(ctx context.Context) {
	waitingKeys, _ := m.redis.Keys(ctx, "queue:waiting:*").Result()
	for _, key := range waitingKeys {
		venueID := key[len("queue:waiting:"):]
		length, _ := m.redis.LLen(ctx, key).Result()
		queueLength.WithLabelValues(venueID, "waiting").Set(float64(length))
	}

	activeKeys, _ := m.redis.Keys(ctx, "queue:active:*").Result()
	for _, key := range activeKeys {
		venueID := key[len("queue:active:"):]
		length, _ := m.redis.SCard(ctx, key).Result()
		queueLength.WithLabelValues(venueID, "selecting").Set(float64(length))
	}
}

// Track lock operations
func (m *Monitor) TrackLockOperation(operation, venueID, status string) {
	lockOperations.WithLabelValues(operation, venueID, status).Inc()
}

// Track a confirmed booking
func (m *Monitor) TrackBooking(venueID string) {
	bookingsConfirmed.WithLabelValues(venueID).Inc()
}

// Track how long a seat was held before it was released or booked
func (m *Monitor) TrackSeatHold(venueID string, duration time.Duration) {
	seatHoldDuration.WithLabelValues(venueID).Observe(duration.Seconds())
}
