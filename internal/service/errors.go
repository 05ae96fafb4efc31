package service

import "errors"

var (
	// ErrInvalidRiderID is returned when rider ID is empty.
	ErrInvalidRiderID = errors.New("invalid rider id")

	// ErrInvalidDriverID is returned when driver ID is empty.
	ErrInvalidDriverID = errors.New("invalid driver id")

	// ErrInvalidTripID is returned when trip ID is empty.
	ErrInvalidTripID = errors.New("invalid trip id")

	// ErrInvalidPickup is returned when pickup coordinates are missing or
	// malformed. Rejected before matching begins.
	ErrInvalidPickup = errors.New("invalid pickup location")

	// ErrInvalidDropoff is returned when dropoff coordinates are missing or
	// malformed.
	ErrInvalidDropoff = errors.New("invalid dropoff location")

	// ErrRiderAlreadyOnTrip is returned when a rider books a trip they are
	// already a passenger of.
	ErrRiderAlreadyOnTrip = errors.New("rider already on trip")

	// ErrRiderNotOnTrip is returned when a rider cancels a trip they are
	// not a passenger of.
	ErrRiderNotOnTrip = errors.New("rider not on trip")

	// ErrTripNotAvailable is returned when a driver acts on a trip that is
	// no longer pending.
	ErrTripNotAvailable = errors.New("trip not available")

	// ErrInvalidLocation is returned when coordinates are out of range.
	ErrInvalidLocation = errors.New("invalid location")

	// ErrEmailTaken is returned when registering with an email that is
	// already in use.
	ErrEmailTaken = errors.New("email already registered")

	// ErrDriverNotAssigned is returned when a driver acts on a trip
	// assigned to a different driver.
	ErrDriverNotAssigned = errors.New("driver not assigned to this trip")

	// ErrInvalidName is returned when a registration name is empty.
	ErrInvalidName = errors.New("invalid name")

	// ErrInvalidEmail is returned when a registration email is empty.
	ErrInvalidEmail = errors.New("invalid email")
)
