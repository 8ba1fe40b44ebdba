package ports

import "context"

// EventPublisher announces authentication outcomes to other services
type EventPublisher interface {
	PublishAuthenticated(ctx context.Context, userID, connectionID string) error
	PublishAuthenticationFailed(ctx context.Context, userID, connectionID, reason string) error
}
