package redis

import (
	"context"
	"time"

	"carpool/internal/domain"
)

// LocationStoreInterface defines the interface for driver location
// operations.
type LocationStoreInterface interface {
	UpdateLocation(ctx context.Context, driverID string, loc domain.Coordinate) error
	FindNearbyDrivers(ctx context.Context, center domain.Coordinate, radiusKm float64) ([]DriverPosition, error)
	RemoveLocation(ctx context.Context, driverID string) error
}

// LockStoreInterface defines the interface for per-trip locking.
type LockStoreInterface interface {
	AcquireTripLock(ctx context.Context, tripID string, ttl time.Duration) (bool, error)
	ReleaseTripLock(ctx context.Context, tripID string) error
}

// PresenceStoreInterface defines the interface for the session registry.
type PresenceStoreInterface interface {
	Connect(ctx context.Context, role Role, id, channel string) error
	Disconnect(ctx context.Context, role Role, id string) error
	Lookup(ctx context.Context, role Role, id string) (channel string, ok bool, err error)
	Online(ctx context.Context, role Role) ([]string, error)
}

// Ensure concrete types implement interfaces.
var (
	_ LocationStoreInterface = (*LocationStore)(nil)
	_ LockStoreInterface     = (*LockStore)(nil)
	_ PresenceStoreInterface = (*PresenceStore)(nil)
)
