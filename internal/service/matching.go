package service

import (
	"context"
	"sort"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/repository"
)

// MatchPolicy selects how the matcher picks among eligible trips.
type MatchPolicy string

const (
	// MatchPolicyFirstFit returns the first eligible trip in pool order.
	MatchPolicyFirstFit MatchPolicy = "FIRST_FIT"

	// MatchPolicyNearest compares all eligible trips and returns the one
	// with the closest pickup.
	MatchPolicyNearest MatchPolicy = "NEAREST"
)

// MatcherConfig holds the matching radii and policy.
type MatcherConfig struct {
	PickupRadiusKm float64
	DriverRadiusKm float64
	Policy         MatchPolicy
}

// DefaultMatcherConfig returns the standard matching configuration.
func DefaultMatcherConfig() MatcherConfig {
	return MatcherConfig{
		PickupRadiusKm: 3.0,
		DriverRadiusKm: 5.0,
		Policy:         MatchPolicyFirstFit,
	}
}

// Matcher scans pending trips for one a new booking can join. Both
// policies are deterministic for a fixed candidate pool: the pool
// arrives in stable (oldest-first) order and ties on distance keep
// that order.
type Matcher struct {
	tripRepo repository.TripRepository
	cfg      MatcherConfig
}

// NewMatcher creates a new Matcher.
func NewMatcher(tripRepo repository.TripRepository, cfg MatcherConfig) *Matcher {
	if cfg.PickupRadiusKm <= 0 {
		cfg.PickupRadiusKm = 3.0
	}
	if cfg.DriverRadiusKm <= 0 {
		cfg.DriverRadiusKm = 5.0
	}
	if cfg.Policy == "" {
		cfg.Policy = MatchPolicyFirstFit
	}
	return &Matcher{tripRepo: tripRepo, cfg: cfg}
}

// Match returns the pending trip a request at the given pickup should
// join, or nil when none is in range. A nil trip is an expected outcome,
// not an error: the caller starts a new trip instead.
func (m *Matcher) Match(ctx context.Context, pickup domain.Coordinate) (*domain.Trip, error) {
	trips, err := m.tripRepo.GetPending(ctx)
	if err != nil {
		return nil, err
	}

	var best *domain.Trip
	bestDistance := 0.0

	for _, trip := range trips {
		if trip.Status != domain.TripStatusPending || !trip.HasCapacity() {
			continue
		}

		distance := geo.Distance(pickup, trip.Pickup)
		if distance > m.cfg.PickupRadiusKm {
			continue
		}

		if m.cfg.Policy == MatchPolicyFirstFit {
			return trip, nil
		}
		if best == nil || distance < bestDistance {
			best = trip
			bestDistance = distance
		}
	}

	return best, nil
}

// FindAvailable returns pending trips whose pickup and dropoff are both
// within the pickup radius of the request's endpoints, ascending by
// pickup distance.
func (m *Matcher) FindAvailable(ctx context.Context, pickup, dropoff domain.Coordinate) ([]*domain.Trip, error) {
	trips, err := m.tripRepo.GetPending(ctx)
	if err != nil {
		return nil, err
	}

	available := make([]*domain.Trip, 0, len(trips))
	for _, trip := range trips {
		if !trip.HasCapacity() {
			continue
		}
		if geo.Distance(pickup, trip.Pickup) > m.cfg.PickupRadiusKm {
			continue
		}
		if geo.Distance(dropoff, trip.Dropoff) > m.cfg.PickupRadiusKm {
			continue
		}
		available = append(available, trip)
	}

	sort.SliceStable(available, func(i, j int) bool {
		return geo.Distance(pickup, available[i].Pickup) < geo.Distance(pickup, available[j].Pickup)
	})

	return available, nil
}

// FindNearbyForDriver returns pending trips within the driver offer
// radius that the driver has not already rejected, ascending by pickup
// distance from the driver's location.
func (m *Matcher) FindNearbyForDriver(ctx context.Context, driverID string, location domain.Coordinate) ([]*domain.Trip, error) {
	trips, err := m.tripRepo.GetPending(ctx)
	if err != nil {
		return nil, err
	}

	nearby := make([]*domain.Trip, 0, len(trips))
	for _, trip := range trips {
		if trip.RejectedBy(driverID) {
			continue
		}
		if geo.Distance(location, trip.Pickup) > m.cfg.DriverRadiusKm {
			continue
		}
		nearby = append(nearby, trip)
	}

	sort.SliceStable(nearby, func(i, j int) bool {
		return geo.Distance(location, nearby[i].Pickup) < geo.Distance(location, nearby[j].Pickup)
	})

	return nearby, nil
}
