package tests

import (
	"context"
	"testing"
	"time"

	"carpool/internal/domain"
	"carpool/internal/service"
)

// Coordinates around a city center; 0.01 degrees of latitude is roughly
// 1.1 km.
var (
	cityCenter  = domain.Coordinate{Lat: 12.9716, Lng: 77.5946}
	nearCenter  = domain.Coordinate{Lat: 12.9816, Lng: 77.5946} // ~1.1 km north
	edgeOfTown  = domain.Coordinate{Lat: 13.0116, Lng: 77.5946} // ~4.4 km north
	farAway     = domain.Coordinate{Lat: 13.9716, Lng: 77.5946} // ~111 km north
	cityDropoff = domain.Coordinate{Lat: 12.9716, Lng: 77.6946} // ~10.8 km east
)

func pendingTrip(id string, pickup, dropoff domain.Coordinate, createdAt time.Time, riders ...string) *domain.Trip {
	passengers := make([]domain.Passenger, 0, len(riders))
	for _, r := range riders {
		passengers = append(passengers, domain.Passenger{RiderID: r, Pickup: pickup, JoinedAt: createdAt})
	}
	return &domain.Trip{
		ID:         id,
		Passengers: passengers,
		Pickup:     pickup,
		Dropoff:    dropoff,
		Status:     domain.TripStatusPending,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
}

func TestMatch_FirstFitPrefersOldestTrip(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	tripRepo.AddTrip(pendingTrip("trip-old", cityCenter, cityDropoff, base, "rider-1"))
	tripRepo.AddTrip(pendingTrip("trip-new", nearCenter, cityDropoff, base.Add(time.Minute), "rider-2"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	// The request is closer to trip-new, but first-fit takes the oldest
	// trip in range.
	match, err := matcher.Match(ctx, nearCenter)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != "trip-old" {
		t.Errorf("expected trip-old, got %s", match.ID)
	}
}

func TestMatch_NearestPolicyPrefersClosestTrip(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	tripRepo.AddTrip(pendingTrip("trip-old", cityCenter, cityDropoff, base, "rider-1"))
	tripRepo.AddTrip(pendingTrip("trip-new", nearCenter, cityDropoff, base.Add(time.Minute), "rider-2"))

	cfg := service.DefaultMatcherConfig()
	cfg.Policy = service.MatchPolicyNearest
	matcher := service.NewMatcher(tripRepo, cfg)

	match, err := matcher.Match(ctx, nearCenter)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != "trip-new" {
		t.Errorf("expected trip-new, got %s", match.ID)
	}
}

func TestMatch_NoTripInRange(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(pendingTrip("trip-far", farAway, cityDropoff, time.Now(), "rider-1"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	match, err := matcher.Match(ctx, cityCenter)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected no match, got %s", match.ID)
	}
}

func TestMatch_SkipsFullTrips(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()
	tripRepo.AddTrip(pendingTrip("trip-full", cityCenter, cityDropoff, time.Now(),
		"rider-1", "rider-2", "rider-3"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	match, err := matcher.Match(ctx, cityCenter)
	if err != nil {
		t.Fatalf("match failed: %v", err)
	}
	if match != nil {
		t.Errorf("expected full trip to be skipped, got %s", match.ID)
	}
}

func TestMatch_DeterministicForFixedPool(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	tripRepo.AddTrip(pendingTrip("trip-a", cityCenter, cityDropoff, base, "rider-1"))
	tripRepo.AddTrip(pendingTrip("trip-b", cityCenter, cityDropoff, base.Add(time.Minute), "rider-2"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	for i := 0; i < 10; i++ {
		match, err := matcher.Match(ctx, cityCenter)
		if err != nil {
			t.Fatalf("match failed: %v", err)
		}
		if match == nil || match.ID != "trip-a" {
			t.Fatalf("iteration %d: expected trip-a every time, got %+v", i, match)
		}
	}
}

func TestFindAvailable_RequiresBothEndpointsInRange(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	// Same pickup area, dropoff on the other side of town.
	otherDropoff := domain.Coordinate{Lat: 12.9716, Lng: 77.4946}
	tripRepo.AddTrip(pendingTrip("trip-same-route", cityCenter, cityDropoff, base, "rider-1"))
	tripRepo.AddTrip(pendingTrip("trip-other-route", cityCenter, otherDropoff, base, "rider-2"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	available, err := matcher.FindAvailable(ctx, nearCenter, cityDropoff)
	if err != nil {
		t.Fatalf("find available failed: %v", err)
	}
	if len(available) != 1 {
		t.Fatalf("expected 1 available trip, got %d", len(available))
	}
	if available[0].ID != "trip-same-route" {
		t.Errorf("expected trip-same-route, got %s", available[0].ID)
	}
}

func TestFindAvailable_SortedByPickupDistance(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	tripRepo.AddTrip(pendingTrip("trip-near", nearCenter, cityDropoff, base.Add(time.Minute), "rider-1"))
	tripRepo.AddTrip(pendingTrip("trip-center", cityCenter, cityDropoff, base, "rider-2"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	available, err := matcher.FindAvailable(ctx, nearCenter, cityDropoff)
	if err != nil {
		t.Fatalf("find available failed: %v", err)
	}
	if len(available) != 2 {
		t.Fatalf("expected 2 available trips, got %d", len(available))
	}
	if available[0].ID != "trip-near" {
		t.Errorf("expected trip-near first, got %s", available[0].ID)
	}
}

func TestFindNearbyForDriver_ExcludesRejectedTrips(t *testing.T) {
	ctx := context.Background()
	tripRepo := NewMockTripRepository()

	base := time.Now().Add(-time.Hour)
	rejected := pendingTrip("trip-rejected", cityCenter, cityDropoff, base, "rider-1")
	rejected.RejectedDrivers = []string{"driver-1"}
	tripRepo.AddTrip(rejected)
	tripRepo.AddTrip(pendingTrip("trip-open", nearCenter, cityDropoff, base, "rider-2"))
	tripRepo.AddTrip(pendingTrip("trip-far", farAway, cityDropoff, base, "rider-3"))

	matcher := service.NewMatcher(tripRepo, service.DefaultMatcherConfig())

	nearby, err := matcher.FindNearbyForDriver(ctx, "driver-1", edgeOfTown)
	if err != nil {
		t.Fatalf("find nearby failed: %v", err)
	}
	if len(nearby) != 1 {
		t.Fatalf("expected 1 nearby trip, got %d", len(nearby))
	}
	if nearby[0].ID != "trip-open" {
		t.Errorf("expected trip-open, got %s", nearby[0].ID)
	}

	// A different driver still sees the rejected trip.
	nearby, err = matcher.FindNearbyForDriver(ctx, "driver-2", edgeOfTown)
	if err != nil {
		t.Fatalf("find nearby failed: %v", err)
	}
	if len(nearby) != 2 {
		t.Fatalf("expected 2 nearby trips for driver-2, got %d", len(nearby))
	}
}
