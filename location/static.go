package location

import (
	"context"
	"time"
)

// Static reports a fixed position, stamped with the current time.
type Static struct {
	Latitude  float64
	Longitude float64
	Accuracy  float64
	// Set marks the coordinates as configured; an unset Static provider
	// is disabled.
	Set bool
	// Now overrides time.Now.
	Now func() time.Time
}

// NewStatic returns an enabled provider at the given position.
func NewStatic(latitude, longitude, accuracy float64) *Static {
	return &Static{Latitude: latitude, Longitude: longitude, Accuracy: accuracy, Set: true}
}

// CheckPermission always succeeds.
func (s *Static) CheckPermission() error {
	return nil
}

// CheckEnabled fails until coordinates are configured.
func (s *Static) CheckEnabled() error {
	if s == nil || !s.Set {
		return ErrProviderDisabled
	}
	return nil
}

// Sample returns the configured position.
func (s *Static) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	if err := s.CheckEnabled(); err != nil {
		return Sample{}, err
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	return Sample{Latitude: s.Latitude, Longitude: s.Longitude, Accuracy: s.Accuracy, Time: now()}, nil
}
