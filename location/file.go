package location

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// FileProvider reads the latest fix from a JSON document that an
// external GPS daemon keeps up to date:
//
//	{"lat": 59.91, "lon": 10.75, "acc": 8.5, "time": "2026-01-02T03:04:05Z"}
//
// A missing file means the provider is disabled; an unreadable file
// means permission is denied. A fix without a time is stamped with the
// file's modification time.
type FileProvider struct {
	Path string
}

// NewFileProvider returns a provider reading path.
func NewFileProvider(path string) *FileProvider {
	return &FileProvider{Path: path}
}

// CheckPermission verifies the file can be opened for reading.
func (p *FileProvider) CheckPermission() error {
	file, err := os.Open(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, p.Path)
		}
		// Availability is CheckEnabled's concern.
		return nil
	}
	return file.Close()
}

// CheckEnabled verifies the file exists.
func (p *FileProvider) CheckEnabled() error {
	if p.Path == "" {
		return ErrProviderDisabled
	}
	if _, err := os.Stat(p.Path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s does not exist", ErrProviderDisabled, p.Path)
		}
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("%w: %s", ErrPermissionDenied, p.Path)
		}
		return fmt.Errorf("stat location file: %w", err)
	}
	return nil
}

// Sample reads and decodes the current fix.
func (p *FileProvider) Sample(ctx context.Context) (Sample, error) {
	if err := ctx.Err(); err != nil {
		return Sample{}, err
	}
	info, err := os.Stat(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Sample{}, fmt.Errorf("%w: %s does not exist", ErrProviderDisabled, p.Path)
		}
		return Sample{}, fmt.Errorf("stat location file: %w", err)
	}
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return Sample{}, fmt.Errorf("%w: %s", ErrPermissionDenied, p.Path)
		}
		return Sample{}, fmt.Errorf("read location file: %w", err)
	}

	var sample Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return Sample{}, fmt.Errorf("decode location file %s: %w", p.Path, err)
	}
	if err := sample.Validate(); err != nil {
		return Sample{}, fmt.Errorf("location file %s: %w", p.Path, err)
	}
	if sample.Time.IsZero() {
		sample.Time = info.ModTime()
	}
	return sample, nil
}

// Validate checks coordinate ranges.
func (s Sample) Validate() error {
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("latitude %v out of range", s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("longitude %v out of range", s.Longitude)
	}
	if s.Accuracy < 0 {
		return fmt.Errorf("accuracy %v is negative", s.Accuracy)
	}
	return nil
}

// WriteFile stores a fix in the format FileProvider reads.
func WriteFile(path string, sample Sample) error {
	if sample.Time.IsZero() {
		sample.Time = time.Now()
	}
	data, err := json.Marshal(sample)
	if err != nil {
		return fmt.Errorf("marshal location: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write location file: %w", err)
	}
	return nil
}
