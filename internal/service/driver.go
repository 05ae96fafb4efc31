package service

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// DriverService handles driver registration, availability and trip
// assignment. Trip mutations use the same compare-and-swap retry
// discipline as bookings.
type DriverService struct {
	driverRepo    repository.DriverRepository
	tripRepo      repository.TripRepository
	locationStore redis.LocationStoreInterface
	cacheStore    *redis.CacheStore
	matcher       *Matcher
	notifier      *Notifier
	maxRetries    int
}

// NewDriverService creates a new DriverService. locationStore,
// cacheStore and notifier may be nil.
func NewDriverService(
	driverRepo repository.DriverRepository,
	tripRepo repository.TripRepository,
	locationStore redis.LocationStoreInterface,
	cacheStore *redis.CacheStore,
	matcher *Matcher,
	notifier *Notifier,
	maxRetries int,
) *DriverService {
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &DriverService{
		driverRepo:    driverRepo,
		tripRepo:      tripRepo,
		locationStore: locationStore,
		cacheStore:    cacheStore,
		matcher:       matcher,
		notifier:      notifier,
		maxRetries:    maxRetries,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name  string
	Email string
	Phone string
}

// RegisterDriver creates a new driver in OFFLINE status.
func (s *DriverService) RegisterDriver(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	if req.Name == "" {
		return nil, ErrInvalidName
	}
	if req.Email == "" {
		return nil, ErrInvalidEmail
	}

	existing, err := s.driverRepo.GetByEmail(ctx, req.Email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	driver := &domain.Driver{
		ID:     uuid.New().String(),
		Name:   req.Name,
		Email:  req.Email,
		Phone:  req.Phone,
		Status: domain.DriverStatusOffline,
	}
	if err := s.driverRepo.Create(ctx, driver); err != nil {
		return nil, err
	}
	return driver, nil
}

// GetDriver retrieves a driver by ID.
func (s *DriverService) GetDriver(ctx context.Context, driverID string) (*domain.Driver, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	return s.driverRepo.GetByID(ctx, driverID)
}

// UpdateLocationRequest contains the parameters for updating a driver's
// location.
type UpdateLocationRequest struct {
	DriverID string
	Location domain.Coordinate
}

// UpdateLocation records the driver's position in the geo index and sets
// them ONLINE.
func (s *DriverService) UpdateLocation(ctx context.Context, req UpdateLocationRequest) error {
	if req.DriverID == "" {
		return ErrInvalidDriverID
	}
	if !req.Location.Valid() {
		return ErrInvalidLocation
	}

	if err := s.driverRepo.UpdateStatus(ctx, req.DriverID, domain.DriverStatusOnline); err != nil {
		return err
	}

	if s.locationStore != nil {
		if err := s.locationStore.UpdateLocation(ctx, req.DriverID, req.Location); err != nil {
			return err
		}
	}

	return nil
}

// SetDriverOffline sets a driver OFFLINE and removes them from the geo
// index.
func (s *DriverService) SetDriverOffline(ctx context.Context, driverID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}

	if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOffline); err != nil {
		return err
	}

	if s.locationStore != nil {
		if err := s.locationStore.RemoveLocation(ctx, driverID); err != nil {
			return err
		}
	}

	return nil
}

// NearbyTrips returns pending trips within search range of the driver's
// position, excluding trips the driver has already rejected.
func (s *DriverService) NearbyTrips(ctx context.Context, driverID string, location domain.Coordinate) ([]*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if !location.Valid() {
		return nil, ErrInvalidLocation
	}
	return s.matcher.FindNearbyForDriver(ctx, driverID, location)
}

// AcceptTrip assigns the driver to a pending trip and moves it to
// ACCEPTED. A driver who previously rejected the trip may still accept
// it; the rejection is dropped.
func (s *DriverService) AcceptTrip(ctx context.Context, driverID, tripID string) (*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	// The driver must exist before the trip is touched, so a failed
	// accept never leaves a phantom assignment behind.
	if _, err := s.driverRepo.GetByID(ctx, driverID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if trip.Status != domain.TripStatusPending {
			return nil, ErrTripNotAvailable
		}

		trip.DriverID = driverID
		trip.Status = domain.TripStatusAccepted
		trip.RejectedDrivers = withoutDriver(trip.RejectedDrivers, driverID)
		trip.UpdatedAt = time.Now()

		if err := s.tripRepo.Update(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		// The assignment is committed; the status flip is secondary and
		// must not make a successful accept look failed.
		if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnTrip); err != nil {
			log.Printf("driver: failed to set %s ON_TRIP after accepting %s: %v", driverID, tripID, err)
		}

		s.invalidateTrip(ctx, trip.ID)
		s.notifier.TripUpdated(ctx, trip, "A driver has accepted the trip.")
		return trip, nil
	}

	return nil, lastErr
}

// RejectTrip records that the driver declined the trip so it no longer
// appears in their nearby listings.
func (s *DriverService) RejectTrip(ctx context.Context, driverID, tripID string) error {
	if driverID == "" {
		return ErrInvalidDriverID
	}
	if tripID == "" {
		return ErrInvalidTripID
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return err
		}
		// Only unassigned pending trips can be declined; the assigned
		// driver must never end up in RejectedDrivers.
		if trip.Status != domain.TripStatusPending {
			return ErrTripNotAvailable
		}
		if trip.RejectedBy(driverID) {
			return nil
		}

		trip.RejectedDrivers = append(trip.RejectedDrivers, driverID)
		trip.UpdatedAt = time.Now()

		if err := s.tripRepo.Update(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return err
		}

		s.invalidateTrip(ctx, trip.ID)
		return nil
	}

	return lastErr
}

// CompleteTrip moves an accepted trip to COMPLETED and returns the
// driver to ONLINE.
func (s *DriverService) CompleteTrip(ctx context.Context, driverID, tripID string) (*domain.Trip, error) {
	if driverID == "" {
		return nil, ErrInvalidDriverID
	}
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		trip, err := s.tripRepo.GetByID(ctx, tripID)
		if err != nil {
			return nil, err
		}
		if trip.Status != domain.TripStatusAccepted {
			return nil, ErrTripNotAvailable
		}
		if trip.DriverID != driverID {
			return nil, ErrDriverNotAssigned
		}

		trip.Status = domain.TripStatusCompleted
		trip.UpdatedAt = time.Now()

		if err := s.tripRepo.Update(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		if err := s.driverRepo.UpdateStatus(ctx, driverID, domain.DriverStatusOnline); err != nil {
			log.Printf("driver: failed to set %s ONLINE after completing %s: %v", driverID, tripID, err)
		}

		s.invalidateTrip(ctx, trip.ID)
		s.notifier.TripUpdated(ctx, trip, "Trip completed.")
		return trip, nil
	}

	return nil, lastErr
}

func (s *DriverService) invalidateTrip(ctx context.Context, tripID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateTrip(ctx, tripID)
	}
}

func withoutDriver(ids []string, driverID string) []string {
	out := ids[:0]
	for _, id := range ids {
		if id != driverID {
			out = append(out, id)
		}
	}
	return out
}
