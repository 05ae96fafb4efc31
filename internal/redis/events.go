package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// event is the wire form of a published domain event.
type event struct {
	Name      string    `json:"name"`
	Payload   any       `json:"payload"`
	EmittedAt time.Time `json:"emitted_at"`
}

// EventPublisher delivers domain events over Redis pub/sub. The realtime
// delivery collaborator subscribes to the channels and pushes to
// whatever transport the session registry says a party is on.
type EventPublisher struct {
	client *redis.Client
}

// NewEventPublisher creates a new EventPublisher.
func NewEventPublisher(client *redis.Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// Emit publishes an event to a channel. Delivery is best-effort: there
// is no acknowledgement and subscribers may miss events while offline.
func (p *EventPublisher) Emit(ctx context.Context, channel, name string, payload any) error {
	data, err := json.Marshal(event{
		Name:      name,
		Payload:   payload,
		EmittedAt: time.Now(),
	})
	if err != nil {
		return err
	}

	return p.client.Publish(ctx, channel, data).Err()
}
