package services

import (
	"context"
	"fmt"

	"cinebook/utils"

	pubnub "github.com/pubnub/go/v7"
)

// Publisher abstracts the realtime fan-out transport so services and tests
// don't need a live PubNub connection.
type Publisher interface {
	Publish(channel string, message map[string]any) error
}

func VenueChannel(venueID string) string {
	return "venue-" + venueID
}

func UserChannel(userID string) string {
	return "user-" + userID
}

// PubNubPublisher publishes through PubNub behind a circuit breaker, so a
// degraded realtime backend sheds publish attempts instead of stalling every
// request that wants to announce a lock change.
type PubNubPublisher struct {
	pn      *pubnub.PubNub
	breaker *utils.CircuitBreaker
}

func NewPubNubPublisher(pn *pubnub.PubNub) *PubNubPublisher {
	return &PubNubPublisher{
		pn:      pn,
		breaker: utils.NewCircuitBreaker("pubnub"),
	}
}

func (p *PubNubPublisher) Publish(channel string, message map[string]any) error {
	_, err := p.breaker.Execute(context.Background(), func() (any, error) {
		_, st, err := p.pn.Publish().
			Channel(channel).
			Message(message).
			Execute()
		if err != nil {
			return nil, err
		}
		if st.Error != nil {
			return nil, fmt.Errorf("status %d", st.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("pubnub publish to %s: %w", channel, err)
	}
	return nil
}
