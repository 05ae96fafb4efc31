package fare

import (
	"errors"
	"math"
	"sort"

	"carpool/internal/domain"
)

var (
	// ErrCapacityExceeded is returned when a fare computation or join would
	// put more than domain.MaxPassengers riders on one trip.
	ErrCapacityExceeded = errors.New("maximum capacity is 3 passengers")

	// ErrNoPassengers is returned when asked to price an empty trip. A trip
	// with zero passengers must not exist.
	ErrNoPassengers = errors.New("trip has no passengers")

	// ErrInvalidDistance is returned for a negative or NaN route distance.
	ErrInvalidDistance = errors.New("invalid route distance")

	// ErrOffsetOutOfRange is returned when a pickup offset falls outside
	// the route.
	ErrOffsetOutOfRange = errors.New("pickup offset outside route")
)

// Policy holds the pricing constants applied by Allocate. These are
// business policy, not physical constants, and are loaded from
// configuration.
type Policy struct {
	BaseFare        float64
	PerKmRate       float64
	SharingDiscount float64
}

// DefaultPolicy returns the standard pricing policy.
func DefaultPolicy() Policy {
	return Policy{
		BaseFare:        20,
		PerKmRate:       10,
		SharingDiscount: 0.8,
	}
}

// PassengerPickup identifies a passenger and where along the route they
// board, in kilometers from the route origin. Slice order is join order
// and breaks ties between equal offsets.
type PassengerPickup struct {
	RiderID string
	Offset  float64
}

// PassengerLeg is one passenger's priced portion of the route.
type PassengerLeg struct {
	RiderID  string
	Stop     Stop
	Distance float64
	Shared   bool
	Fare     float64
}

// Breakdown is the result of one fare allocation. Legs are ordered by
// route position. TotalDriverFare is the exact sum of the leg fares.
type Breakdown struct {
	Legs            []PassengerLeg
	Segments        []Segment
	TotalDriverFare float64
}

// Allocator partitions a shared route into segments and prices each
// passenger's leg. It holds no state beyond the pricing policy: Allocate
// is pure, deterministic, and safe for concurrent use.
type Allocator struct {
	policy Policy
}

// NewAllocator creates an Allocator with the given pricing policy.
func NewAllocator(policy Policy) *Allocator {
	return &Allocator{policy: policy}
}

// Allocate partitions the route into segments and computes each
// passenger's fare.
//
// Passengers are ordered by pickup offset (stable, so equal offsets keep
// join order). The route is cut into segments at every distinct pickup
// point; a passenger traverses every segment from their own pickup stop
// through the shared dropoff. A segment traversed by more than one
// passenger is shared, and a passenger whose journey crosses any shared
// segment has their whole fare discounted by the sharing factor. The
// surge multiplier is applied last; values <= 0 are treated as 1.
//
// No rounding happens here: presentation boundaries round, the allocator
// does not.
func (a *Allocator) Allocate(totalDistance float64, pickups []PassengerPickup, surge float64) (*Breakdown, error) {
	if len(pickups) == 0 {
		return nil, ErrNoPassengers
	}
	if len(pickups) > domain.MaxPassengers {
		return nil, ErrCapacityExceeded
	}
	if totalDistance < 0 || math.IsNaN(totalDistance) {
		return nil, ErrInvalidDistance
	}
	for _, p := range pickups {
		if math.IsNaN(p.Offset) || p.Offset < -offsetTolerance || p.Offset > totalDistance+offsetTolerance {
			return nil, ErrOffsetOutOfRange
		}
	}
	if surge <= 0 {
		surge = 1
	}

	sorted := make([]PassengerPickup, len(pickups))
	copy(sorted, pickups)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	stops := buildStops(totalDistance, sorted)
	segments := buildSegments(stops)

	// A passenger traverses every segment that starts at or after their
	// own pickup point.
	for i := range segments {
		for _, p := range sorted {
			if p.Offset <= segments[i].From.Offset+offsetTolerance {
				segments[i].Riders++
			}
		}
	}

	legs := make([]PassengerLeg, 0, len(sorted))
	var total float64
	for _, p := range sorted {
		var distance float64
		shared := false
		for _, seg := range segments {
			if p.Offset > seg.From.Offset+offsetTolerance {
				continue
			}
			distance += seg.Length
			if seg.Shared() {
				shared = true
			}
		}

		fare := a.policy.BaseFare + distance*a.policy.PerKmRate
		if shared {
			fare *= a.policy.SharingDiscount
		}
		fare *= surge

		legs = append(legs, PassengerLeg{
			RiderID:  p.RiderID,
			Stop:     boardingStop(stops, p.Offset),
			Distance: distance,
			Shared:   shared,
			Fare:     fare,
		})
		total += fare
	}

	return &Breakdown{
		Legs:            legs,
		Segments:        segments,
		TotalDriverFare: total,
	}, nil
}
