package location

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"
)

func TestStaticProvider(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	provider := NewStatic(59.91, 10.75, 12)
	provider.Now = func() time.Time { return at }

	if err := provider.CheckPermission(); err != nil {
		t.Fatalf("check permission: %v", err)
	}
	if err := provider.CheckEnabled(); err != nil {
		t.Fatalf("check enabled: %v", err)
	}
	sample, err := provider.Sample(context.Background())
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	want := Sample{Latitude: 59.91, Longitude: 10.75, Accuracy: 12, Time: at}
	if sample != want {
		t.Fatalf("expected %+v, got %+v", want, sample)
	}
}

func TestStaticProviderUnsetIsDisabled(t *testing.T) {
	provider := &Static{}
	if err := provider.CheckEnabled(); !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected provider disabled, got %v", err)
	}
	if _, err := provider.Sample(context.Background()); !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected provider disabled from Sample, got %v", err)
	}
}

func TestFileProviderMissingFileIsDisabled(t *testing.T) {
	provider := NewFileProvider(filepath.Join(t.TempDir(), "fix.json"))
	if err := provider.CheckPermission(); err != nil {
		t.Fatalf("expected missing file to pass permission check, got %v", err)
	}
	if err := provider.CheckEnabled(); !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected provider disabled, got %v", err)
	}
	if _, err := provider.Sample(context.Background()); !errors.Is(err, ErrProviderDisabled) {
		t.Fatalf("expected provider disabled from Sample, got %v", err)
	}
}

func TestFileProviderRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	if err := WriteFile(path, Sample{Latitude: -33.9, Longitude: 18.4, Accuracy: 4, Time: at}); err != nil {
		t.Fatalf("write: %v", err)
	}

	provider := NewFileProvider(path)
	if err := provider.CheckEnabled(); err != nil {
		t.Fatalf("check enabled: %v", err)
	}
	sample, err := provider.Sample(context.Background())
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if sample.Latitude != -33.9 || sample.Longitude != 18.4 || sample.Accuracy != 4 || !sample.Time.Equal(at) {
		t.Fatalf("unexpected sample %+v", sample)
	}
}

func TestFileProviderStampsModTime(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fix.json")
	if err := os.WriteFile(path, []byte(`{"lat": 1, "lon": 2}`), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	sample, err := NewFileProvider(path).Sample(context.Background())
	if err != nil {
		t.Fatalf("sample: %v", err)
	}
	if sample.Time.IsZero() {
		t.Fatal("expected modification time stamp")
	}
}

func TestFileProviderRejectsBadFixes(t *testing.T) {
	cases := map[string]string{
		"garbage":   `not json`,
		"latitude":  `{"lat": 91, "lon": 0}`,
		"longitude": `{"lat": 0, "lon": -181}`,
		"accuracy":  `{"lat": 0, "lon": 0, "acc": -1}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "fix.json")
			if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
				t.Fatalf("write: %v", err)
			}
			if _, err := NewFileProvider(path).Sample(context.Background()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestFileProviderUnreadableIsPermissionDenied(t *testing.T) {
	if runtime.GOOS == "windows" || os.Geteuid() == 0 {
		t.Skip("file modes are not enforced")
	}
	path := filepath.Join(t.TempDir(), "fix.json")
	if err := os.WriteFile(path, []byte(`{"lat": 1, "lon": 2}`), 0o000); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := NewFileProvider(path).CheckPermission(); !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
}
