package tests

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"carpool/internal/domain"
	"carpool/internal/fare"
	"carpool/internal/repository"
	"carpool/internal/service"
)

// Two riders racing for the last seat: exactly one join commits, and the
// loser is told the trip is full rather than silently overbooking it.
func TestConcurrentJoins_LastSeat(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(nil)

	tripID := ""
	for i := 1; i <= 2; i++ {
		riderID := fmt.Sprintf("rider-%d", i)
		f.addRider(riderID)
		resp, err := f.service.BookRide(ctx, service.BookRideRequest{
			RiderID: riderID,
			Pickup:  cityCenter,
			Dropoff: cityDropoff,
		})
		if err != nil {
			t.Fatalf("booking %d failed: %v", i, err)
		}
		tripID = resp.Trip.ID
	}

	results := make(chan error, 2)
	var wg sync.WaitGroup
	for i := 3; i <= 4; i++ {
		riderID := fmt.Sprintf("rider-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Join(ctx, tripID, riderID, nearCenter)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes, capacityErrors := 0, 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, fare.ErrCapacityExceeded):
			capacityErrors++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes != 1 {
		t.Errorf("expected exactly 1 successful join, got %d", successes)
	}
	if capacityErrors != 1 {
		t.Errorf("expected exactly 1 capacity error, got %d", capacityErrors)
	}

	trip, err := f.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if len(trip.Passengers) != domain.MaxPassengers {
		t.Errorf("expected %d passengers, got %d", domain.MaxPassengers, len(trip.Passengers))
	}
}

// Many joins hammering one trip must never push it past capacity, no
// matter how the races resolve.
func TestConcurrentJoins_NeverExceedCapacity(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(nil)
	f.addRider("rider-0")

	resp, err := f.service.BookRide(ctx, service.BookRideRequest{
		RiderID: "rider-0",
		Pickup:  cityCenter,
		Dropoff: cityDropoff,
	})
	if err != nil {
		t.Fatalf("seed booking failed: %v", err)
	}
	tripID := resp.Trip.ID

	const contenders = 10
	results := make(chan error, contenders)
	var wg sync.WaitGroup
	for i := 1; i <= contenders; i++ {
		riderID := fmt.Sprintf("rider-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.service.Join(ctx, tripID, riderID, nearCenter)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	successes := 0
	for err := range results {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, fare.ErrCapacityExceeded),
			errors.Is(err, repository.ErrVersionConflict):
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if successes > domain.MaxPassengers-1 {
		t.Errorf("expected at most %d successful joins, got %d", domain.MaxPassengers-1, successes)
	}

	trip, err := f.tripRepo.GetByID(ctx, tripID)
	if err != nil {
		t.Fatalf("failed to load trip: %v", err)
	}
	if len(trip.Passengers) > domain.MaxPassengers {
		t.Errorf("capacity exceeded: %d passengers", len(trip.Passengers))
	}

	// Fares always cover the trip's current passenger set exactly.
	if len(trip.Breakdown) != len(trip.Passengers) {
		t.Errorf("breakdown has %d entries for %d passengers", len(trip.Breakdown), len(trip.Passengers))
	}
	for _, p := range trip.Passengers {
		if _, ok := trip.Breakdown[p.RiderID]; !ok {
			t.Errorf("missing breakdown entry for %s", p.RiderID)
		}
	}
}

// Concurrent bookings across the same area: riders land on some trip
// exactly once each, and no trip exceeds capacity.
func TestConcurrentBookings_InvariantsHold(t *testing.T) {
	ctx := context.Background()
	f := newBookingFixture(nil)

	const riders = 8
	for i := 1; i <= riders; i++ {
		f.addRider(fmt.Sprintf("rider-%d", i))
	}

	var wg sync.WaitGroup
	for i := 1; i <= riders; i++ {
		riderID := fmt.Sprintf("rider-%d", i)
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = f.service.BookRide(ctx, service.BookRideRequest{
				RiderID: riderID,
				Pickup:  cityCenter,
				Dropoff: cityDropoff,
			})
		}()
	}
	wg.Wait()

	pending, err := f.tripRepo.GetPending(ctx)
	if err != nil {
		t.Fatalf("list pending failed: %v", err)
	}

	seen := make(map[string]int)
	for _, trip := range pending {
		if len(trip.Passengers) > domain.MaxPassengers {
			t.Errorf("trip %s exceeds capacity with %d passengers", trip.ID, len(trip.Passengers))
		}
		for _, p := range trip.Passengers {
			seen[p.RiderID]++
		}
	}
	for riderID, count := range seen {
		if count > 1 {
			t.Errorf("rider %s appears on %d trips", riderID, count)
		}
	}
}
