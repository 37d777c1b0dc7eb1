package services

import (
	"context"
	"log"
	"log/slog"
	"sync"
	"time"

	"cinebook/models"

	pubnub "github.com/pubnub/go/v7"
)

// RoomService tracks which live connections are viewing which venue and fans
// venue-scoped events out to all of them. Membership lives only as long as
// the connection; nothing here is persisted.
type RoomService struct {
	pub Publisher
	pn  *pubnub.PubNub

	mu         sync.RWMutex
	members    map[string]models.RoomMember
	subscribed map[string]bool

	listener     *pubnub.Listener
	onDisconnect func(connectionID string)
}

// NewRoomService wires the fan-out publisher and, when pn is non-nil, a
// presence subscription used as the transport-level disconnect signal.
func NewRoomService(pub Publisher, pn *pubnub.PubNub) *RoomService {
	s := &RoomService{
		pub:        pub,
		pn:         pn,
		members:    make(map[string]models.RoomMember),
		subscribed: make(map[string]bool),
	}
	if pn != nil {
		s.listener = pubnub.NewListener()
		pn.AddListener(s.listener)
	}
	return s
}

// OnDisconnect registers the callback invoked when a member's connection
// drops (presence leave/timeout) without an explicit room leave.
func (s *RoomService) OnDisconnect(fn func(connectionID string)) {
	s.onDisconnect = fn
}

func (s *RoomService) Join(connectionID, venueID, userID, displayName string) models.RoomMember {
	member := models.RoomMember{
		ConnectionID: connectionID,
		VenueID:      venueID,
		UserID:       userID,
		DisplayName:  displayName,
		JoinedAt:     time.Now(),
	}

	s.mu.Lock()
	s.members[connectionID] = member
	needSubscribe := s.pn != nil && !s.subscribed[venueID]
	if needSubscribe {
		s.subscribed[venueID] = true
	}
	s.mu.Unlock()

	if needSubscribe {
		s.pn.Subscribe().
			Channels([]string{VenueChannel(venueID)}).
			WithPresence(true).
			Execute()
	}

	return member
}

func (s *RoomService) Leave(connectionID string) (models.RoomMember, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	member, ok := s.members[connectionID]
	if ok {
		delete(s.members, connectionID)
	}
	return member, ok
}

func (s *RoomService) Member(connectionID string) (models.RoomMember, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	member, ok := s.members[connectionID]
	return member, ok
}

func (s *RoomService) MemberCount(venueID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, m := range s.members {
		if m.VenueID == venueID {
			count++
		}
	}
	return count
}

func (s *RoomService) VenueIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, m := range s.members {
		if !seen[m.VenueID] {
			seen[m.VenueID] = true
			ids = append(ids, m.VenueID)
		}
	}
	return ids
}

// Broadcast delivers an event to every member of the venue room, including
// the actor: all clients converge on the same state via the same stream.
func (s *RoomService) Broadcast(venueID, event string, payload map[string]any) error {
	message := map[string]any{"type": event}
	for k, v := range payload {
		message[k] = v
	}
	return s.pub.Publish(VenueChannel(venueID), message)
}

// SendToUser delivers an event on a member's personal channel (snapshots,
// queue status).
func (s *RoomService) SendToUser(userID, event string, payload map[string]any) error {
	message := map[string]any{"type": event}
	for k, v := range payload {
		message[k] = v
	}
	return s.pub.Publish(UserChannel(userID), message)
}

// ListenPresence consumes the PubNub listener until ctx is cancelled,
// treating presence leave/timeout on a venue channel as a disconnect of that
// connection.
func (s *RoomService) ListenPresence(ctx context.Context) {
	if s.listener == nil {
		return
	}

	for {
		select {
		case st := <-s.listener.Status:
			switch st.Category {
			case pubnub.PNConnectedCategory:
				log.Println("connected to pubnub")
			case pubnub.PNReconnectedCategory:
				log.Println("reconnected to pubnub")
			case pubnub.PNDisconnectedCategory:
				log.Println("disconnected from pubnub")
			case pubnub.PNAccessDeniedCategory:
				log.Println("pubnub access denied")
			default:
			}

		case presence := <-s.listener.Presence:
			if presence.Event != "leave" && presence.Event != "timeout" {
				continue
			}
			slog.Info("presence drop",
				"event", presence.Event,
				"uuid", presence.UUID,
				"channel", presence.Channel,
			)
			if s.onDisconnect != nil {
				s.onDisconnect(presence.UUID)
			}

		case <-s.listener.Message:
			// Server only publishes on venue channels; inbound messages are
			// client chatter and carry no state.

		case <-ctx.Done():
			log.Println("presence listener stopped")
			return
		}
	}
}
