package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/redis/go-redis/v9"

	"github.com/layer-3/keygate/ports"
)

const (
	TopicAuthSucceeded = "keygate.auth.succeeded"
	TopicAuthFailed    = "keygate.auth.failed"
)

// AuthEvent is the payload of both authentication topics
type AuthEvent struct {
	UserID       string    `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	Reason       string    `json:"reason,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
	now       func() time.Time
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
		now:       time.Now,
	}
}

// NewRedisStreamPublisher creates a Watermill publisher backed by Redis streams
func NewRedisStreamPublisher(client redis.UniversalClient, logger watermill.LoggerAdapter) (message.Publisher, error) {
	publisher, err := redisstream.NewPublisher(
		redisstream.PublisherConfig{
			Client: client,
		},
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create redis stream publisher: %w", err)
	}
	return publisher, nil
}

// PublishAuthenticated publishes a successful authentication
func (p *WatermillPublisher) PublishAuthenticated(ctx context.Context, userID, connectionID string) error {
	return p.publish(ctx, TopicAuthSucceeded, AuthEvent{
		UserID:       userID,
		ConnectionID: connectionID,
	})
}

// PublishAuthenticationFailed publishes a rejected challenge response
func (p *WatermillPublisher) PublishAuthenticationFailed(ctx context.Context, userID, connectionID, reason string) error {
	return p.publish(ctx, TopicAuthFailed, AuthEvent{
		UserID:       userID,
		ConnectionID: connectionID,
		Reason:       reason,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event AuthEvent) error {
	event.OccurredAt = p.now().UTC()

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)
	msg.Metadata.Set("connection_id", event.ConnectionID)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
