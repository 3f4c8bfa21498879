package geo

import (
	"context"
	"fmt"

	"github.com/kelvins/geocoder"

	"github.com/i474232898/balloon-tracker/internal/telemetry"
)

type reverseLookup func(geocoder.Location) ([]geocoder.Address, error)

// ReverseGeocoder resolves balloon positions to place names using the
// Google Geocoding API.
type ReverseGeocoder struct {
	lookup reverseLookup
}

// NewReverseGeocoder configures the geocoding API key. The underlying library
// keeps the key in package state, so only one geocoder should be created.
func NewReverseGeocoder(apiKey string) *ReverseGeocoder {
	geocoder.ApiKey = apiKey
	return &ReverseGeocoder{lookup: geocoder.GeocodingReverse}
}

type lookupResult struct {
	addresses []geocoder.Address
	err       error
}

// PlaceName returns the formatted address closest to the point, or "" when
// the position has no address (e.g. over the ocean). The library call takes
// no context; when ctx is done first PlaceName returns ctx.Err() and the
// lookup finishes in the background.
func (g *ReverseGeocoder) PlaceName(ctx context.Context, p telemetry.Point) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	done := make(chan lookupResult, 1)
	go func() {
		addresses, err := g.lookup(geocoder.Location{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
		})
		done <- lookupResult{addresses: addresses, err: err}
	}()

	var res lookupResult
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res = <-done:
	}

	if res.err != nil {
		return "", fmt.Errorf("reverse geocoding (%f, %f): %w", p.Latitude, p.Longitude, res.err)
	}
	if len(res.addresses) == 0 {
		return "", nil
	}
	return res.addresses[0].FormatAddress(), nil
}
