package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// Role distinguishes the two session populations in the registry.
type Role string

const (
	RoleRider  Role = "rider"
	RoleDriver Role = "driver"
)

func presenceKey(role Role) string {
	return "presence:" + string(role) + "s"
}

// PresenceStore is the session registry: it maps an online rider or
// driver to the realtime channel currently serving them. Connect and
// Disconnect bound the session lifecycle; Lookup answers
// "id -> active channel | absent" for the notification collaborator.
type PresenceStore struct {
	client *redis.Client
}

// NewPresenceStore creates a new PresenceStore.
func NewPresenceStore(client *redis.Client) *PresenceStore {
	return &PresenceStore{client: client}
}

// Connect registers an active session channel for the given id,
// replacing any previous one.
func (s *PresenceStore) Connect(ctx context.Context, role Role, id, channel string) error {
	return s.client.HSet(ctx, presenceKey(role), id, channel).Err()
}

// Disconnect removes the session for the given id. Disconnecting an
// absent id is a no-op.
func (s *PresenceStore) Disconnect(ctx context.Context, role Role, id string) error {
	return s.client.HDel(ctx, presenceKey(role), id).Err()
}

// Lookup returns the active channel for the given id, or ok=false when
// the id has no session.
func (s *PresenceStore) Lookup(ctx context.Context, role Role, id string) (channel string, ok bool, err error) {
	channel, err = s.client.HGet(ctx, presenceKey(role), id).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return channel, true, nil
}

// Online returns the ids of all currently connected sessions for a role.
func (s *PresenceStore) Online(ctx context.Context, role Role) ([]string, error) {
	return s.client.HKeys(ctx, presenceKey(role)).Result()
}
