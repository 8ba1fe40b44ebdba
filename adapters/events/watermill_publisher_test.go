package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan *message.Message) AuthEvent {
	t.Helper()
	select {
	case msg := <-ch:
		msg.Ack()
		var ev AuthEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &ev))
		assert.Equal(t, ev.ConnectionID, msg.Metadata.Get("connection_id"))
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return AuthEvent{}
	}
}

func TestWatermillPublisher(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 8}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	succeeded, err := pubSub.Subscribe(ctx, TopicAuthSucceeded)
	require.NoError(t, err)
	failed, err := pubSub.Subscribe(ctx, TopicAuthFailed)
	require.NoError(t, err)

	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	pub := NewWatermillPublisher(pubSub).(*WatermillPublisher)
	pub.now = func() time.Time { return at }

	require.NoError(t, pub.PublishAuthenticated(ctx, "u1", "c1"))
	assert.Equal(t, AuthEvent{UserID: "u1", ConnectionID: "c1", OccurredAt: at}, receive(t, succeeded))

	require.NoError(t, pub.PublishAuthenticationFailed(ctx, "u2", "c2", "invalid signature"))
	assert.Equal(t, AuthEvent{UserID: "u2", ConnectionID: "c2", Reason: "invalid signature", OccurredAt: at}, receive(t, failed))
}

type failingPublisher struct{}

func (failingPublisher) Publish(string, ...*message.Message) error { return errors.New("broker down") }
func (failingPublisher) Close() error                              { return nil }

func TestWatermillPublisher_PublishError(t *testing.T) {
	pub := NewWatermillPublisher(failingPublisher{})
	err := pub.PublishAuthenticated(context.Background(), "u1", "c1")
	assert.ErrorContains(t, err, "broker down")
}
