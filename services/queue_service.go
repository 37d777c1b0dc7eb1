package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"cinebook/config"
	"cinebook/models"

	"github.com/redis/go-redis/v9"
)

// ErrAlreadyQueued rejects a second enter-queue request from the same user.
var ErrAlreadyQueued = errors.New("queue: user already in queue")

// sessionReleaser clears a user's seat locks when they are evicted from the
// selecting set. The reservation coordinator implements it.
type sessionReleaser interface {
	ReleaseSession(venueID, ownerID string) []models.SeatRef
}

// QueueService is the per-venue admission queue: only a bounded number of
// users may be actively selecting seats at once, everyone else waits in a
// redis list. Queue state survives process restarts because it lives in
// redis, unlike the seat locks it gates.
type QueueService struct {
	Redis  *redis.Client
	rooms  *RoomService
	locks  sessionReleaser
	Config *config.Config
}

func NewQueueService(redisClient *redis.Client, rooms *RoomService, locks sessionReleaser, cfg *config.Config) *QueueService {
	return &QueueService{
		Redis:  redisClient,
		rooms:  rooms,
		locks:  locks,
		Config: cfg,
	}
}

func waitingKey(venueID string) string { return fmt.Sprintf("queue:waiting:%s", venueID) }
func activeKey(venueID string) string  { return fmt.Sprintf("queue:active:%s", venueID) }

func userKey(venueID, userID string) string {
	return fmt.Sprintf("user:queue:%s:%s", venueID, userID)
}

// Enqueue puts the user at the back of the venue queue and immediately
// admits from the front while there is selecting capacity. Returns the
// 1-based waiting position, or 0 when the user went straight to selecting.
func (s *QueueService) Enqueue(ctx context.Context, venueID, userID, sessionID string) (int, error) {
	exists, err := s.Redis.Exists(ctx, userKey(venueID, userID)).Result()
	if err != nil {
		return 0, err
	}
	if exists > 0 {
		return 0, ErrAlreadyQueued
	}

	entry := models.QueueEntry{
		UserID:    userID,
		VenueID:   venueID,
		JoinedAt:  time.Now(),
		Status:    "waiting",
		SessionID: sessionID,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return 0, err
	}

	queueLen, err := s.Redis.LLen(ctx, waitingKey(venueID)).Result()
	if err != nil {
		return 0, err
	}

	if err := s.Redis.LPush(ctx, waitingKey(venueID), string(data)).Err(); err != nil {
		return 0, err
	}
	if err := s.Redis.HSet(ctx, userKey(venueID, userID),
		"status", "waiting",
		"joined_at", entry.JoinedAt.Unix(),
		"session_id", sessionID,
	).Err(); err != nil {
		return 0, err
	}

	if err := s.ProcessQueue(ctx, venueID); err != nil {
		log.Printf("Error processing queue for venue %s: %v", venueID, err)
	}

	st, err := s.Redis.HGet(ctx, userKey(venueID, userID), "status").Result()
	if err != nil && err != redis.Nil {
		return 0, err
	}
	if st == "selecting" {
		return 0, nil
	}
	return int(queueLen) + 1, nil
}

// ProcessQueue admits waiting users into the selecting set until the
// capacity cap is hit or the queue drains.
func (s *QueueService) ProcessQueue(ctx context.Context, venueID string) error {
	for {
		activeCount, err := s.Redis.SCard(ctx, activeKey(venueID)).Result()
		if err != nil {
			return err
		}
		if activeCount >= int64(s.Config.MaxActiveSelectors) {
			return nil
		}

		data, err := s.Redis.RPop(ctx, waitingKey(venueID)).Result()
		if err == redis.Nil {
			return nil
		}
		if err != nil {
			return err
		}

		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(data), &entry); err != nil {
			log.Printf("Error unmarshaling queue entry: %v", err)
			continue
		}

		selector := models.ActiveSelector{
			UserID:    entry.UserID,
			VenueID:   venueID,
			StartedAt: time.Now(),
			SessionID: entry.SessionID,
		}
		selectorData, _ := json.Marshal(selector)
		if err := s.Redis.SAdd(ctx, activeKey(venueID), string(selectorData)).Err(); err != nil {
			return err
		}
		if err := s.Redis.HSet(ctx, userKey(venueID, entry.UserID), "status", "selecting").Err(); err != nil {
			return err
		}

		if err := s.rooms.SendToUser(entry.UserID, "queue_status", map[string]any{
			"status":   "selecting",
			"venue_id": venueID,
		}); err != nil {
			log.Printf("Error notifying user %s: %v", entry.UserID, err)
		}
	}
}

// Position reports the user's queue state: status plus 1-based waiting
// position (0 while selecting or unknown).
func (s *QueueService) Position(ctx context.Context, venueID, userID string) (int, string, error) {
	st, err := s.Redis.HGet(ctx, userKey(venueID, userID), "status").Result()
	if err == redis.Nil {
		return 0, "", nil
	}
	if err != nil {
		return 0, "", err
	}
	if st != "waiting" {
		return 0, st, nil
	}

	entries, err := s.Redis.LRange(ctx, waitingKey(venueID), 0, -1).Result()
	if err != nil {
		return 0, st, err
	}

	// The list grows at the left and pops from the right, so the waiting
	// position counts from the right end.
	for i, raw := range entries {
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if entry.UserID == userID {
			return len(entries) - i, st, nil
		}
	}
	return 0, st, nil
}

// Leave removes the user from the queue in whatever state they are in. An
// active selector gives up their slot, their seat locks are cleared, and the
// next waiting user is admitted.
func (s *QueueService) Leave(ctx context.Context, venueID, userID string) error {
	entries, err := s.Redis.LRange(ctx, waitingKey(venueID), 0, -1).Result()
	if err != nil && err != redis.Nil {
		return err
	}
	for _, raw := range entries {
		var entry models.QueueEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			continue
		}
		if entry.UserID == userID {
			s.Redis.LRem(ctx, waitingKey(venueID), 1, raw)
			break
		}
	}

	wasActive, err := s.removeActive(ctx, venueID, userID)
	if err != nil {
		return err
	}

	if err := s.Redis.Del(ctx, userKey(venueID, userID)).Err(); err != nil {
		return err
	}

	if wasActive {
		s.locks.ReleaseSession(venueID, userID)
		return s.ProcessQueue(ctx, venueID)
	}
	return nil
}

func (s *QueueService) removeActive(ctx context.Context, venueID, userID string) (bool, error) {
	members, err := s.Redis.SMembers(ctx, activeKey(venueID)).Result()
	if err != nil && err != redis.Nil {
		return false, err
	}

	for _, member := range members {
		var selector models.ActiveSelector
		if err := json.Unmarshal([]byte(member), &selector); err != nil {
			continue
		}
		if selector.UserID == userID {
			if err := s.Redis.SRem(ctx, activeKey(venueID), member).Err(); err != nil {
				return false, err
			}
			return true, nil
		}
	}
	return false, nil
}

// Metrics summarizes one venue's queue for the admin dashboard.
func (s *QueueService) Metrics(ctx context.Context, venueID string) (*models.QueueMetrics, error) {
	waiting, err := s.Redis.LLen(ctx, waitingKey(venueID)).Result()
	if err != nil {
		return nil, err
	}
	active, err := s.Redis.SCard(ctx, activeKey(venueID)).Result()
	if err != nil {
		return nil, err
	}

	return &models.QueueMetrics{
		VenueID:      venueID,
		TotalWaiting: int(waiting),
		ActiveCount:  int(active),
		LastUpdated:  time.Now(),
	}, nil
}

// SweepTimeouts runs until ctx is cancelled, evicting selectors that sat on
// their slot past the selection timeout. Eviction releases their seat locks
// and admits the next waiting user.
func (s *QueueService) SweepTimeouts(ctx context.Context) {
	ticker := time.NewTicker(s.Config.QueueSweepInterval)
	defer ticker.Stop()

	log.Println("Queue timeout sweeper started")

	for {
		select {
		case <-ticker.C:
			s.sweepOnce(ctx)
		case <-ctx.Done():
			log.Println("Queue timeout sweeper stopped")
			return
		}
	}
}

func (s *QueueService) sweepOnce(ctx context.Context) {
	keys, err := s.Redis.Keys(ctx, "queue:active:*").Result()
	if err != nil {
		log.Printf("Error listing active queues: %v", err)
		return
	}

	for _, key := range keys {
		venueID := key[len("queue:active:"):]

		members, err := s.Redis.SMembers(ctx, key).Result()
		if err != nil {
			continue
		}

		for _, member := range members {
			var selector models.ActiveSelector
			if err := json.Unmarshal([]byte(member), &selector); err != nil {
				continue
			}
			if time.Since(selector.StartedAt) <= s.Config.SelectionTimeout {
				continue
			}

			log.Printf("Selection timeout: user %s in venue %s (%.1f minutes)",
				selector.UserID, venueID, time.Since(selector.StartedAt).Minutes())

			s.Redis.SRem(ctx, key, member)
			s.Redis.Del(ctx, userKey(venueID, selector.UserID))
			s.locks.ReleaseSession(venueID, selector.UserID)

			if err := s.rooms.SendToUser(selector.UserID, "queue_status", map[string]any{
				"status":   "expired",
				"venue_id": venueID,
			}); err != nil {
				log.Printf("Error notifying user %s: %v", selector.UserID, err)
			}

			if err := s.ProcessQueue(ctx, venueID); err != nil {
				log.Printf("Error processing queue for venue %s: %v", venueID, err)
			}
		}
	}
}
