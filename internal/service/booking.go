package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"carpool/internal/domain"
	"carpool/internal/fare"
	"carpool/internal/geo"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

const (
	tripLockTTL       = 5 * time.Second
	defaultMaxRetries = 3
)

// BookingService orchestrates the trip lifecycle: it matches new
// bookings onto pending trips, mutates passenger sets, reprices through
// the fare allocator, and persists with optimistic concurrency.
//
// Every mutation follows the same shape: fresh read, capacity check,
// mutate, reprice, compare-and-swap write. A lost swap is retried from a
// fresh read up to maxRetries times. Events are emitted only after a
// successful write and never roll anything back.
type BookingService struct {
	tripRepo   repository.TripRepository
	riderRepo  repository.RiderRepository
	matcher    *Matcher
	allocator  *fare.Allocator
	surge      SurgePricer
	notifier   *Notifier
	lockStore  redis.LockStoreInterface
	cacheStore *redis.CacheStore
	maxRetries int
}

// NewBookingService creates a new BookingService. surge, notifier,
// lockStore and cacheStore may be nil; the service degrades gracefully
// without them.
func NewBookingService(
	tripRepo repository.TripRepository,
	riderRepo repository.RiderRepository,
	matcher *Matcher,
	allocator *fare.Allocator,
	surge SurgePricer,
	notifier *Notifier,
	lockStore redis.LockStoreInterface,
	cacheStore *redis.CacheStore,
	maxRetries int,
) *BookingService {
	if notifier == nil {
		notifier = NewNotifier(nil)
	}
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	return &BookingService{
		tripRepo:   tripRepo,
		riderRepo:  riderRepo,
		matcher:    matcher,
		allocator:  allocator,
		surge:      surge,
		notifier:   notifier,
		lockStore:  lockStore,
		cacheStore: cacheStore,
		maxRetries: maxRetries,
	}
}

// BookRideRequest contains the parameters for booking a ride.
type BookRideRequest struct {
	RiderID string
	Pickup  domain.Coordinate
	Dropoff domain.Coordinate
}

// BookRideResponse contains the result of booking a ride.
type BookRideResponse struct {
	Trip   *domain.Trip
	Joined bool // true when the rider joined an existing trip
	Fare   domain.PassengerFare
}

// BookRide matches the request against pending trips and either joins
// the rider onto the matched trip or starts a new one.
func (s *BookingService) BookRide(ctx context.Context, req BookRideRequest) (*BookRideResponse, error) {
	if req.RiderID == "" {
		return nil, ErrInvalidRiderID
	}
	if !req.Pickup.Valid() {
		return nil, ErrInvalidPickup
	}
	if !req.Dropoff.Valid() {
		return nil, ErrInvalidDropoff
	}

	// The rider must exist in the directory before we mutate anything.
	if _, err := s.riderRepo.GetByID(ctx, req.RiderID); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		matched, err := s.matcher.Match(ctx, req.Pickup)
		if err != nil {
			return nil, err
		}

		if matched == nil {
			trip, err := s.create(ctx, req.RiderID, req.Pickup, req.Dropoff)
			if err != nil {
				return nil, err
			}
			return &BookRideResponse{
				Trip:   trip,
				Joined: false,
				Fare:   trip.Breakdown[req.RiderID],
			}, nil
		}

		trip, err := s.Join(ctx, matched.ID, req.RiderID, req.Pickup)
		if errors.Is(err, fare.ErrCapacityExceeded) ||
			errors.Is(err, ErrTripNotAvailable) ||
			errors.Is(err, repository.ErrNotFound) {
			// The matched trip filled up or disappeared between the read
			// and the join. Re-match against the current pool.
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return &BookRideResponse{
			Trip:   trip,
			Joined: true,
			Fare:   trip.Breakdown[req.RiderID],
		}, nil
	}

	return nil, lastErr
}

// Join adds a rider to an existing pending trip, repricing the whole
// passenger set. The capacity check and the append are made atomic per
// trip by the version check on Update: a concurrent writer forces a
// retry from a fresh read, so two joins can never both see spare
// capacity and both commit.
func (s *BookingService) Join(ctx context.Context, tripID, riderID string, pickup domain.Coordinate) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		// The short-lived trip lock only narrows the race window; lock
		// failures are ignored because the version check is authoritative.
		locked := true
		if s.lockStore != nil {
			ok, err := s.lockStore.AcquireTripLock(ctx, tripID, tripLockTTL)
			if err == nil && !ok {
				lastErr = repository.ErrVersionConflict
				continue
			}
			locked = err == nil
		}

		trip, err := s.tryJoin(ctx, tripID, riderID, pickup)

		if s.lockStore != nil && locked {
			_ = s.lockStore.ReleaseTripLock(ctx, tripID)
		}

		if errors.Is(err, repository.ErrVersionConflict) {
			lastErr = err
			continue
		}
		if err != nil {
			return nil, err
		}
		return trip, nil
	}

	return nil, lastErr
}

func (s *BookingService) tryJoin(ctx context.Context, tripID, riderID string, pickup domain.Coordinate) (*domain.Trip, error) {
	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if trip.Status != domain.TripStatusPending {
		return nil, ErrTripNotAvailable
	}
	if trip.PassengerIndex(riderID) >= 0 {
		return nil, ErrRiderAlreadyOnTrip
	}
	if !trip.HasCapacity() {
		return nil, fare.ErrCapacityExceeded
	}

	trip.Passengers = append(trip.Passengers, domain.Passenger{
		RiderID:  riderID,
		Pickup:   pickup,
		JoinedAt: time.Now(),
	})

	if err := s.reprice(ctx, trip); err != nil {
		return nil, err
	}

	trip.UpdatedAt = time.Now()
	if err := s.tripRepo.Update(ctx, trip); err != nil {
		return nil, err
	}

	s.invalidateCache(ctx, trip.ID)
	s.notifier.TripUpdated(ctx, trip, "A new passenger has joined the trip.")
	s.emitFares(ctx, trip)

	return trip, nil
}

// create starts a new single-passenger pending trip.
func (s *BookingService) create(ctx context.Context, riderID string, pickup, dropoff domain.Coordinate) (*domain.Trip, error) {
	now := time.Now()
	trip := &domain.Trip{
		ID: uuid.New().String(),
		Passengers: []domain.Passenger{{
			RiderID:  riderID,
			Pickup:   pickup,
			JoinedAt: now,
		}},
		Pickup:    pickup,
		Dropoff:   dropoff,
		Status:    domain.TripStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.reprice(ctx, trip); err != nil {
		return nil, err
	}

	if err := s.tripRepo.Create(ctx, trip); err != nil {
		return nil, err
	}

	s.notifier.TripCreated(ctx, trip)
	s.emitFares(ctx, trip)

	return trip, nil
}

// CancelRideResponse contains the result of a cancellation.
type CancelRideResponse struct {
	Trip    *domain.Trip // nil when the trip was deleted
	Deleted bool
}

// CancelRide removes the rider from the trip. When the last passenger
// leaves, the trip is deleted; otherwise fares are recomputed over the
// remaining passenger set.
func (s *BookingService) CancelRide(ctx context.Context, riderID, tripID string) (*CancelRideResponse, error) {
	if riderID == "" {
		return nil, ErrInvalidRiderID
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

		idx := trip.PassengerIndex(riderID)
		if idx < 0 {
			return nil, ErrRiderNotOnTrip
		}
		trip.Passengers = append(trip.Passengers[:idx], trip.Passengers[idx+1:]...)

		if len(trip.Passengers) == 0 {
			err := s.tripRepo.Delete(ctx, tripID)
			if errors.Is(err, repository.ErrNotFound) {
				// A concurrent cancel already deleted it; that cancel
				// emitted the event.
				return &CancelRideResponse{Deleted: true}, nil
			}
			if err != nil {
				return nil, err
			}

			s.invalidateCache(ctx, tripID)
			s.notifier.TripCanceled(ctx, tripID)
			return &CancelRideResponse{Deleted: true}, nil
		}

		if err := s.reprice(ctx, trip); err != nil {
			return nil, err
		}

		trip.UpdatedAt = time.Now()
		if err := s.tripRepo.Update(ctx, trip); err != nil {
			if errors.Is(err, repository.ErrVersionConflict) {
				lastErr = err
				continue
			}
			return nil, err
		}

		s.invalidateCache(ctx, trip.ID)
		s.notifier.TripUpdated(ctx, trip, "A passenger left the trip. Fares updated.")
		s.emitFares(ctx, trip)

		return &CancelRideResponse{Trip: trip}, nil
	}

	return nil, lastErr
}

// GetTrip retrieves a trip, serving recent reads from cache.
func (s *BookingService) GetTrip(ctx context.Context, tripID string) (*domain.Trip, error) {
	if tripID == "" {
		return nil, ErrInvalidTripID
	}

	if s.cacheStore != nil {
		if cached, err := s.cacheStore.GetTrip(ctx, tripID); err == nil && cached != nil {
			return cached, nil
		}
	}

	trip, err := s.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}

	if s.cacheStore != nil {
		_ = s.cacheStore.SetTrip(ctx, trip)
	}

	return trip, nil
}

// ListPending returns all pending trips, oldest first.
func (s *BookingService) ListPending(ctx context.Context) ([]*domain.Trip, error) {
	return s.tripRepo.GetPending(ctx)
}

// FindAvailableRides returns pending trips near both endpoints,
// ascending by pickup distance.
func (s *BookingService) FindAvailableRides(ctx context.Context, pickup, dropoff domain.Coordinate) ([]*domain.Trip, error) {
	if !pickup.Valid() {
		return nil, ErrInvalidPickup
	}
	if !dropoff.Valid() {
		return nil, ErrInvalidDropoff
	}
	return s.matcher.FindAvailable(ctx, pickup, dropoff)
}

// reprice recomputes route stops and the full fare breakdown for the
// trip's current passenger set. Pickup offsets are each passenger's
// distance from the route origin, clamped to the route length.
func (s *BookingService) reprice(ctx context.Context, trip *domain.Trip) error {
	totalDistance := geo.Distance(trip.Pickup, trip.Dropoff)

	pickups := make([]fare.PassengerPickup, 0, len(trip.Passengers))
	for _, p := range trip.Passengers {
		offset := geo.Distance(trip.Pickup, p.Pickup)
		if offset > totalDistance {
			offset = totalDistance
		}
		pickups = append(pickups, fare.PassengerPickup{
			RiderID: p.RiderID,
			Offset:  offset,
		})
	}

	surge := 1.0
	if s.surge != nil {
		surge = s.surge.Multiplier(ctx, trip.Pickup)
	}

	breakdown, err := s.allocator.Allocate(totalDistance, pickups, surge)
	if err != nil {
		return err
	}

	trip.Fare = breakdown.TotalDriverFare
	trip.Breakdown = make(map[string]domain.PassengerFare, len(breakdown.Legs))
	for _, leg := range breakdown.Legs {
		trip.Breakdown[leg.RiderID] = domain.PassengerFare{
			Fare:     leg.Fare,
			Distance: leg.Distance,
			Shared:   leg.Shared,
		}
	}

	return nil
}

func (s *BookingService) emitFares(ctx context.Context, trip *domain.Trip) {
	for _, p := range trip.Passengers {
		if f, ok := trip.Breakdown[p.RiderID]; ok {
			s.notifier.FareComputed(ctx, trip.ID, p.RiderID, f)
		}
	}
}

func (s *BookingService) invalidateCache(ctx context.Context, tripID string) {
	if s.cacheStore != nil {
		_ = s.cacheStore.InvalidateTrip(ctx, tripID)
	}
}
