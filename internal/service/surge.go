package service

import (
	"context"

	"carpool/internal/domain"
	"carpool/internal/geo"
	"carpool/internal/redis"
	"carpool/internal/repository"
)

// SurgePricer supplies the surge multiplier applied uniformly to
// computed fares. The dispatch core never computes surge itself.
type SurgePricer interface {
	Multiplier(ctx context.Context, location domain.Coordinate) float64
}

// SurgeConfig contains surge pricing configuration.
type SurgeConfig struct {
	RadiusKm       float64 // radius to sample supply and demand
	LowSurgeRatio  float64 // demand/supply ratio for 1.25x surge
	MedSurgeRatio  float64 // demand/supply ratio for 1.5x surge
	HighSurgeRatio float64 // demand/supply ratio for 2.0x surge
	MaxSurge       float64 // maximum surge multiplier
}

// DefaultSurgeConfig returns the default surge configuration.
func DefaultSurgeConfig() SurgeConfig {
	return SurgeConfig{
		RadiusKm:       5.0,
		LowSurgeRatio:  1.2,
		MedSurgeRatio:  1.5,
		HighSurgeRatio: 2.0,
		MaxSurge:       2.0,
	}
}

// SurgeService estimates surge from the supply of online drivers and the
// demand of pending trips around a location.
type SurgeService struct {
	locationStore redis.LocationStoreInterface
	tripRepo      repository.TripRepository
	cfg           SurgeConfig
}

// NewSurgeService creates a new SurgeService.
func NewSurgeService(
	locationStore redis.LocationStoreInterface,
	tripRepo repository.TripRepository,
) *SurgeService {
	return &SurgeService{
		locationStore: locationStore,
		tripRepo:      tripRepo,
		cfg:           DefaultSurgeConfig(),
	}
}

// Multiplier returns the surge multiplier for a location. Returns 1.0
// when supply meets demand, up to MaxSurge when it does not.
func (s *SurgeService) Multiplier(ctx context.Context, location domain.Coordinate) float64 {
	supply := s.countDriversNear(ctx, location)
	demand := s.countPendingTripsNear(ctx, location)

	return s.tier(supply, demand)
}

func (s *SurgeService) countDriversNear(ctx context.Context, location domain.Coordinate) int {
	drivers, err := s.locationStore.FindNearbyDrivers(ctx, location, s.cfg.RadiusKm)
	if err != nil {
		// Fail open: a generous supply estimate avoids false surge.
		return 10
	}
	return len(drivers)
}

func (s *SurgeService) countPendingTripsNear(ctx context.Context, location domain.Coordinate) int {
	trips, err := s.tripRepo.GetPending(ctx)
	if err != nil {
		return 0
	}

	count := 0
	for _, trip := range trips {
		if geo.WithinRange(location, trip.Pickup, s.cfg.RadiusKm) {
			count++
		}
	}
	return count
}

func (s *SurgeService) tier(supply, demand int) float64 {
	if supply == 0 {
		if demand > 0 {
			return s.cfg.MaxSurge
		}
		return 1.0
	}

	ratio := float64(demand) / float64(supply)

	switch {
	case ratio >= s.cfg.HighSurgeRatio:
		return s.cfg.MaxSurge
	case ratio >= s.cfg.MedSurgeRatio:
		return 1.5
	case ratio >= s.cfg.LowSurgeRatio:
		return 1.25
	default:
		return 1.0
	}
}

// Ensure SurgeService implements SurgePricer.
var _ SurgePricer = (*SurgeService)(nil)
