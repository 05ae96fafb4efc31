package domain

import "time"

// TripStatus represents the current status of a pooled trip.
type TripStatus string

const (
	TripStatusPending   TripStatus = "PENDING"
	TripStatusAccepted  TripStatus = "ACCEPTED"
	TripStatusCompleted TripStatus = "COMPLETED"
	TripStatusCancelled TripStatus = "CANCELLED"
)

// MaxPassengers is the hard capacity of a pooled trip.
const MaxPassengers = 3

// Passenger is a rider on a pooled trip. The slice order on Trip is join
// order, which is not necessarily route order.
type Passenger struct {
	RiderID  string     `json:"rider_id"`
	Pickup   Coordinate `json:"pickup"`
	JoinedAt time.Time  `json:"joined_at"`
}

// PassengerFare is one rider's share of the trip fare.
type PassengerFare struct {
	Fare     float64 `json:"fare"`
	Distance float64 `json:"distance"`
	Shared   bool    `json:"shared"`
}

// Trip is a pooled trip: one route from Pickup to Dropoff carrying up to
// MaxPassengers riders, each boarding somewhere along the route.
//
// Fare is the total the driver collects; Breakdown maps rider id to that
// rider's share and always sums to Fare. Version backs optimistic
// concurrency: a trip read at version N may only be written back while
// the store still holds version N.
type Trip struct {
	ID              string                   `json:"id"`
	DriverID        string                   `json:"driver_id,omitempty"` // empty until a driver accepts
	Passengers      []Passenger              `json:"passengers"`
	Pickup          Coordinate               `json:"pickup"`
	Dropoff         Coordinate               `json:"dropoff"`
	Fare            float64                  `json:"fare"`
	Breakdown       map[string]PassengerFare `json:"breakdown"`
	Status          TripStatus               `json:"status"`
	RejectedDrivers []string                 `json:"rejected_drivers,omitempty"`
	Version         int64                    `json:"version"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// HasCapacity reports whether another passenger can join.
func (t *Trip) HasCapacity() bool {
	return len(t.Passengers) < MaxPassengers
}

// PassengerIndex returns the join-order index of the rider, or -1 when
// the rider is not on the trip.
func (t *Trip) PassengerIndex(riderID string) int {
	for i, p := range t.Passengers {
		if p.RiderID == riderID {
			return i
		}
	}
	return -1
}

// RejectedBy reports whether the driver has declined this trip.
func (t *Trip) RejectedBy(driverID string) bool {
	for _, id := range t.RejectedDrivers {
		if id == driverID {
			return true
		}
	}
	return false
}
