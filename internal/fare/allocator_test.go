package fare

import (
	"errors"
	"math"
	"reflect"
	"testing"
)

func TestAllocate_SoloTrip(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	result, err := allocator.Allocate(10, []PassengerPickup{{RiderID: "rider-1", Offset: 0}}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Legs) != 1 {
		t.Fatalf("expected 1 leg, got %d", len(result.Legs))
	}

	leg := result.Legs[0]
	if leg.Distance != 10 {
		t.Errorf("expected distance 10, got %f", leg.Distance)
	}
	if leg.Shared {
		t.Error("solo trip must not be marked shared")
	}
	// 20 base + 10 km * 10/km = 120, no discount, no surge.
	if leg.Fare != 120 {
		t.Errorf("expected fare 120, got %f", leg.Fare)
	}
	if result.TotalDriverFare != 120 {
		t.Errorf("expected total 120, got %f", result.TotalDriverFare)
	}
}

func TestAllocate_TwoPassengersSharedSegment(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	result, err := allocator.Allocate(10, []PassengerPickup{
		{RiderID: "rider-1", Offset: 0},
		{RiderID: "rider-2", Offset: 4},
	}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(result.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(result.Segments))
	}
	if result.Segments[0].Shared() {
		t.Error("leading segment is traversed by one rider and must not be shared")
	}
	if !result.Segments[1].Shared() {
		t.Error("trailing segment is traversed by both riders and must be shared")
	}

	first, second := result.Legs[0], result.Legs[1]
	if first.RiderID != "rider-1" || second.RiderID != "rider-2" {
		t.Fatalf("legs not in route order: %s, %s", first.RiderID, second.RiderID)
	}

	if first.Distance != 10 {
		t.Errorf("expected first passenger distance 10, got %f", first.Distance)
	}
	if second.Distance != 6 {
		t.Errorf("expected second passenger distance 6, got %f", second.Distance)
	}

	// Both journeys cross the shared segment, so both fares carry the
	// whole-fare discount: (20 + d*10) * 0.8.
	if !first.Shared || !second.Shared {
		t.Error("both passengers cross a shared segment")
	}
	if first.Fare != 96 {
		t.Errorf("expected first fare 96, got %f", first.Fare)
	}
	if second.Fare != 64 {
		t.Errorf("expected second fare 64, got %f", second.Fare)
	}

	if result.TotalDriverFare != first.Fare+second.Fare {
		t.Errorf("total %f != sum of legs %f", result.TotalDriverFare, first.Fare+second.Fare)
	}
}

func TestAllocate_CapacityExceeded(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	pickups := []PassengerPickup{
		{RiderID: "a", Offset: 0},
		{RiderID: "b", Offset: 1},
		{RiderID: "c", Offset: 2},
		{RiderID: "d", Offset: 3},
	}

	if _, err := allocator.Allocate(10, pickups, 1); !errors.Is(err, ErrCapacityExceeded) {
		t.Errorf("expected ErrCapacityExceeded, got %v", err)
	}
}

func TestAllocate_NoPassengers(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	if _, err := allocator.Allocate(10, nil, 1); !errors.Is(err, ErrNoPassengers) {
		t.Errorf("expected ErrNoPassengers, got %v", err)
	}
}

func TestAllocate_SurgeMultiplier(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	result, err := allocator.Allocate(10, []PassengerPickup{{RiderID: "rider-1", Offset: 0}}, 1.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Legs[0].Fare != 180 {
		t.Errorf("expected surged fare 180, got %f", result.Legs[0].Fare)
	}
}

func TestAllocate_SegmentLengthsSumToRouteDistance(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	total := 12.3
	result, err := allocator.Allocate(total, []PassengerPickup{
		{RiderID: "a", Offset: 0},
		{RiderID: "b", Offset: 2.5},
		{RiderID: "c", Offset: 7.1},
	}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var sum float64
	for _, seg := range result.Segments {
		if seg.Length < 0 {
			t.Errorf("negative segment length %f", seg.Length)
		}
		sum += seg.Length
	}

	if math.Abs(sum-total) > 1e-6 {
		t.Errorf("segment lengths sum to %f, expected %f", sum, total)
	}
}

func TestAllocate_EqualOffsetsKeepJoinOrder(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	result, err := allocator.Allocate(10, []PassengerPickup{
		{RiderID: "joined-first", Offset: 4},
		{RiderID: "joined-second", Offset: 4},
	}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Legs[0].RiderID != "joined-first" {
		t.Errorf("tie on offset must keep join order, got %s first", result.Legs[0].RiderID)
	}
	if result.Legs[0].Fare != result.Legs[1].Fare {
		t.Errorf("identical pickups must price identically: %f vs %f",
			result.Legs[0].Fare, result.Legs[1].Fare)
	}
}

func TestAllocate_Idempotent(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	pickups := []PassengerPickup{
		{RiderID: "a", Offset: 0},
		{RiderID: "b", Offset: 3.7},
	}

	first, err := allocator.Allocate(9.2, pickups, 1.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := allocator.Allocate(9.2, pickups, 1.25)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different breakdowns")
	}
}

func TestAllocate_FaresNeverNegative(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	cases := [][]PassengerPickup{
		{{RiderID: "a", Offset: 0}},
		{{RiderID: "a", Offset: 0}, {RiderID: "b", Offset: 0}},
		{{RiderID: "a", Offset: 0}, {RiderID: "b", Offset: 5}, {RiderID: "c", Offset: 10}},
	}

	for _, pickups := range cases {
		result, err := allocator.Allocate(10, pickups, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, leg := range result.Legs {
			if leg.Fare < 0 {
				t.Errorf("negative fare %f for %s", leg.Fare, leg.RiderID)
			}
		}
	}
}

func TestAllocate_ZeroDistanceRoute(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	result, err := allocator.Allocate(0, []PassengerPickup{{RiderID: "a", Offset: 0}}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Only the base fare applies.
	if result.Legs[0].Fare != 20 {
		t.Errorf("expected base fare 20, got %f", result.Legs[0].Fare)
	}
}

func TestAllocate_RejectsBadInput(t *testing.T) {
	allocator := NewAllocator(DefaultPolicy())

	if _, err := allocator.Allocate(-1, []PassengerPickup{{RiderID: "a", Offset: 0}}, 1); !errors.Is(err, ErrInvalidDistance) {
		t.Errorf("expected ErrInvalidDistance, got %v", err)
	}
	if _, err := allocator.Allocate(10, []PassengerPickup{{RiderID: "a", Offset: 11}}, 1); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
	if _, err := allocator.Allocate(10, []PassengerPickup{{RiderID: "a", Offset: math.NaN()}}, 1); !errors.Is(err, ErrOffsetOutOfRange) {
		t.Errorf("expected ErrOffsetOutOfRange, got %v", err)
	}
}
