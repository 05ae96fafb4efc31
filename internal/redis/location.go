package redis

import (
	"context"

	"github.com/redis/go-redis/v9"

	"carpool/internal/domain"
)

const driverLocationKey = "drivers:locations"

// DriverPosition is a driver's last reported position. DistanceKm is
// filled on radius queries, measured from the query center.
type DriverPosition struct {
	DriverID   string
	Location   domain.Coordinate
	DistanceKm float64
}

// LocationStore tracks driver positions in a Redis geo index.
type LocationStore struct {
	client *redis.Client
}

// NewLocationStore creates a new LocationStore.
func NewLocationStore(client *redis.Client) *LocationStore {
	return &LocationStore{client: client}
}

// UpdateLocation stores a driver's position using GEOADD.
func (s *LocationStore) UpdateLocation(ctx context.Context, driverID string, loc domain.Coordinate) error {
	return s.client.GeoAdd(ctx, driverLocationKey, &redis.GeoLocation{
		Name:      driverID,
		Longitude: loc.Lng,
		Latitude:  loc.Lat,
	}).Err()
}

// FindNearbyDrivers returns drivers within radiusKm of the center,
// ascending by distance.
func (s *LocationStore) FindNearbyDrivers(ctx context.Context, center domain.Coordinate, radiusKm float64) ([]DriverPosition, error) {
	results, err := s.client.GeoRadius(ctx, driverLocationKey, center.Lng, center.Lat, &redis.GeoRadiusQuery{
		Radius:    radiusKm,
		Unit:      "km",
		WithCoord: true,
		WithDist:  true,
		Sort:      "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}

	positions := make([]DriverPosition, 0, len(results))
	for _, r := range results {
		positions = append(positions, DriverPosition{
			DriverID:   r.Name,
			Location:   domain.Coordinate{Lat: r.Latitude, Lng: r.Longitude},
			DistanceKm: r.Dist,
		})
	}

	return positions, nil
}

// RemoveLocation removes a driver's position from the geo index.
func (s *LocationStore) RemoveLocation(ctx context.Context, driverID string) error {
	return s.client.ZRem(ctx, driverLocationKey, driverID).Err()
}
