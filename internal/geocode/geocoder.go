package geocode

import (
	"context"
	"errors"
	"fmt"

	"googlemaps.github.io/maps"

	"carpool/internal/domain"
)

// ErrAddressNotFound is returned when no coordinates exist for an address.
var ErrAddressNotFound = errors.New("address not found")

// Geocoder resolves free-form addresses to coordinates. It sits upstream
// of matching: the dispatch core only ever sees resolved coordinates.
type Geocoder interface {
	Resolve(ctx context.Context, address string) (domain.Coordinate, error)
}

// GoogleGeocoder resolves addresses through the Google Geocoding API.
type GoogleGeocoder struct {
	client *maps.Client
}

// NewGoogleGeocoder creates a GoogleGeocoder with the given API key.
func NewGoogleGeocoder(apiKey string) (*GoogleGeocoder, error) {
	client, err := maps.NewClient(maps.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create maps client: %w", err)
	}
	return &GoogleGeocoder{client: client}, nil
}

// Resolve returns the coordinates of the first geocoding result.
func (g *GoogleGeocoder) Resolve(ctx context.Context, address string) (domain.Coordinate, error) {
	results, err := g.client.Geocode(ctx, &maps.GeocodingRequest{Address: address})
	if err != nil {
		return domain.Coordinate{}, fmt.Errorf("geocoding api error: %w", err)
	}

	if len(results) == 0 {
		return domain.Coordinate{}, ErrAddressNotFound
	}

	loc := results[0].Geometry.Location
	return domain.Coordinate{Lat: loc.Lat, Lng: loc.Lng}, nil
}

// Ensure GoogleGeocoder implements Geocoder.
var _ Geocoder = (*GoogleGeocoder)(nil)
