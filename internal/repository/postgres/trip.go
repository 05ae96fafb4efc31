package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"carpool/internal/domain"
	"carpool/internal/repository"
)

// TripRepository is a PostgreSQL implementation of repository.TripRepository.
//
// Passengers, fare breakdown and rejected drivers are stored as JSONB:
// they are always read and written with the whole aggregate, never
// queried independently.
type TripRepository struct {
	q Querier
}

// NewTripRepository creates a new PostgreSQL trip repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{q: db}
}

// NewTripRepositoryWithTx creates a trip repository using a transaction.
func NewTripRepositoryWithTx(tx *sql.Tx) *TripRepository {
	return &TripRepository{q: tx}
}

// Create persists a new trip at version 0.
func (r *TripRepository) Create(ctx context.Context, trip *domain.Trip) error {
	query := `
		INSERT INTO trips (id, driver_id, passengers, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, fare, breakdown, status, rejected_drivers, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	passengers, breakdown, rejected, err := marshalTripColumns(trip)
	if err != nil {
		return err
	}

	var driverID sql.NullString
	if trip.DriverID != "" {
		driverID = sql.NullString{String: trip.DriverID, Valid: true}
	}

	_, err = r.q.ExecContext(ctx, query,
		trip.ID,
		driverID,
		passengers,
		trip.Pickup.Lat,
		trip.Pickup.Lng,
		trip.Dropoff.Lat,
		trip.Dropoff.Lng,
		trip.Fare,
		breakdown,
		trip.Status,
		rejected,
		trip.Version,
		trip.CreatedAt,
		trip.UpdatedAt,
	)

	return err
}

// GetByID retrieves a trip by ID.
func (r *TripRepository) GetByID(ctx context.Context, id string) (*domain.Trip, error) {
	query := selectTripColumns + ` FROM trips WHERE id = $1`

	trip, err := scanTrip(r.q.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}

	return trip, nil
}

// GetPending retrieves all pending trips, oldest first. The stable order
// makes first-fit matching deterministic for a fixed pool.
func (r *TripRepository) GetPending(ctx context.Context) ([]*domain.Trip, error) {
	query := selectTripColumns + ` FROM trips WHERE status = $1 ORDER BY created_at ASC`

	rows, err := r.q.QueryContext(ctx, query, domain.TripStatusPending)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []*domain.Trip
	for rows.Next() {
		trip, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, trip)
	}
	return trips, rows.Err()
}

// Update persists the trip with a compare-and-swap on its version.
func (r *TripRepository) Update(ctx context.Context, trip *domain.Trip) error {
	query := `
		UPDATE trips
		SET driver_id = $1, passengers = $2, fare = $3, breakdown = $4, status = $5, rejected_drivers = $6, version = version + 1, updated_at = $7
		WHERE id = $8 AND version = $9
	`

	passengers, breakdown, rejected, err := marshalTripColumns(trip)
	if err != nil {
		return err
	}

	var driverID sql.NullString
	if trip.DriverID != "" {
		driverID = sql.NullString{String: trip.DriverID, Valid: true}
	}

	result, err := r.q.ExecContext(ctx, query,
		driverID,
		passengers,
		trip.Fare,
		breakdown,
		trip.Status,
		rejected,
		trip.UpdatedAt,
		trip.ID,
		trip.Version,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Distinguish a lost race from a vanished trip.
		var exists bool
		checkErr := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM trips WHERE id = $1)`, trip.ID).Scan(&exists)
		if checkErr != nil {
			return checkErr
		}
		if !exists {
			return repository.ErrNotFound
		}
		return repository.ErrVersionConflict
	}

	trip.Version++
	return nil
}

// Delete removes a trip.
func (r *TripRepository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM trips WHERE id = $1`, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return repository.ErrNotFound
	}

	return nil
}

const selectTripColumns = `
	SELECT id, driver_id, passengers, pickup_lat, pickup_lng, dropoff_lat, dropoff_lng, fare, breakdown, status, rejected_drivers, version, created_at, updated_at
`

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrip(row rowScanner) (*domain.Trip, error) {
	var trip domain.Trip
	var driverID sql.NullString
	var passengers, breakdown, rejected []byte

	err := row.Scan(
		&trip.ID,
		&driverID,
		&passengers,
		&trip.Pickup.Lat,
		&trip.Pickup.Lng,
		&trip.Dropoff.Lat,
		&trip.Dropoff.Lng,
		&trip.Fare,
		&breakdown,
		&trip.Status,
		&rejected,
		&trip.Version,
		&trip.CreatedAt,
		&trip.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if driverID.Valid {
		trip.DriverID = driverID.String
	}
	if err := json.Unmarshal(passengers, &trip.Passengers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &trip.Breakdown); err != nil {
		return nil, err
	}
	if len(rejected) > 0 {
		if err := json.Unmarshal(rejected, &trip.RejectedDrivers); err != nil {
			return nil, err
		}
	}

	return &trip, nil
}

func marshalTripColumns(trip *domain.Trip) (passengers, breakdown, rejected []byte, err error) {
	passengers, err = json.Marshal(trip.Passengers)
	if err != nil {
		return nil, nil, nil, err
	}

	if trip.Breakdown == nil {
		breakdown = []byte(`{}`)
	} else if breakdown, err = json.Marshal(trip.Breakdown); err != nil {
		return nil, nil, nil, err
	}

	if trip.RejectedDrivers == nil {
		rejected = []byte(`[]`)
	} else if rejected, err = json.Marshal(trip.RejectedDrivers); err != nil {
		return nil, nil, nil, err
	}

	return passengers, breakdown, rejected, nil
}
