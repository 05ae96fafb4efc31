package repository

import (
	"context"

	"carpool/internal/domain"
)

// TripRepository defines the persistence operations for pooled trips.
type TripRepository interface {
	// Create persists a new trip at version 0.
	Create(ctx context.Context, trip *domain.Trip) error

	// GetByID retrieves a trip by ID.
	GetByID(ctx context.Context, id string) (*domain.Trip, error)

	// GetPending retrieves all pending trips in a stable order
	// (oldest first).
	GetPending(ctx context.Context) ([]*domain.Trip, error)

	// Update persists the trip only if the stored version still equals
	// trip.Version; on success the trip's Version is incremented in place.
	// Returns ErrVersionConflict when another writer got there first.
	Update(ctx context.Context, trip *domain.Trip) error

	// Delete removes a trip.
	Delete(ctx context.Context, id string) error
}
