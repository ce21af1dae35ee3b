// Package location supplies the position samples pushed during a share.
package location

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrPermissionDenied indicates the process may not read locations.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrProviderDisabled indicates no location source is available.
	ErrProviderDisabled = errors.New("location provider disabled")
)

// Sample is one position fix.
type Sample struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
	// Accuracy is the horizontal accuracy radius in meters. Zero means
	// unknown.
	Accuracy float64   `json:"acc,omitempty"`
	Time     time.Time `json:"time"`
}

// Provider is a source of position samples.
type Provider interface {
	// CheckPermission returns ErrPermissionDenied when locations may
	// not be read.
	CheckPermission() error
	// CheckEnabled returns ErrProviderDisabled when the source is off.
	CheckEnabled() error
	// Sample returns the current position.
	Sample(ctx context.Context) (Sample, error)
}
