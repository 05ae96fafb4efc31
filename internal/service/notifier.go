package service

import (
	"context"
	"log"

	"carpool/internal/domain"
)

// Event names published by the dispatch core.
const (
	EventTripCreated  = "TripCreated"
	EventTripUpdated  = "TripUpdated"
	EventTripCanceled = "TripCanceled"
	EventFareComputed = "FareComputed"
)

// Emitter delivers an event to a channel. Implementations are
// best-effort transports (Redis pub/sub in production).
type Emitter interface {
	Emit(ctx context.Context, channel, name string, payload any) error
}

// Notifier publishes domain events for the realtime and email
// collaborators. Every method is fire-and-forget: failures are logged
// and swallowed, and must never fail the mutation that triggered them.
type Notifier struct {
	emitter Emitter
}

// NewNotifier creates a new Notifier. A nil emitter disables emission.
func NewNotifier(emitter Emitter) *Notifier {
	return &Notifier{emitter: emitter}
}

// TripCreated announces a newly created trip to its creator.
func (n *Notifier) TripCreated(ctx context.Context, trip *domain.Trip) {
	n.emit(ctx, "trips:"+trip.ID, EventTripCreated, trip)
}

// TripUpdated announces a changed passenger set or fare split to
// everyone following the trip.
func (n *Notifier) TripUpdated(ctx context.Context, trip *domain.Trip, message string) {
	n.emit(ctx, "trips:"+trip.ID, EventTripUpdated, map[string]any{
		"message": message,
		"trip":    trip,
	})
}

// TripCanceled announces that a trip ceased to exist.
func (n *Notifier) TripCanceled(ctx context.Context, tripID string) {
	n.emit(ctx, "trips:"+tripID, EventTripCanceled, map[string]any{
		"trip_id": tripID,
	})
}

// FareComputed addresses one rider's recomputed fare to that rider. The
// email collaborator turns these into booking confirmations.
func (n *Notifier) FareComputed(ctx context.Context, tripID, riderID string, fare domain.PassengerFare) {
	n.emit(ctx, "riders:"+riderID, EventFareComputed, map[string]any{
		"trip_id":  tripID,
		"rider_id": riderID,
		"fare":     fare.Fare,
		"distance": fare.Distance,
		"shared":   fare.Shared,
	})
}

func (n *Notifier) emit(ctx context.Context, channel, name string, payload any) {
	if n.emitter == nil {
		return
	}
	if err := n.emitter.Emit(ctx, channel, name, payload); err != nil {
		log.Printf("notifier: failed to emit %s on %s: %v", name, channel, err)
	}
}
