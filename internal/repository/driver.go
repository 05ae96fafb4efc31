package repository

import (
	"context"

	"carpool/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create persists a new driver.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByEmail retrieves a driver by email address.
	GetByEmail(ctx context.Context, email string) (*domain.Driver, error)

	// GetAll retrieves all drivers.
	GetAll(ctx context.Context) ([]*domain.Driver, error)

	// UpdateStatus updates a driver's availability status.
	UpdateStatus(ctx context.Context, id string, status domain.DriverStatus) error
}
