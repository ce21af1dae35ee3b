package state

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// Store manages the preferences file with locking.
type Store struct {
	dir string
}

// NewStore creates a new state store using the given directory.
func NewStore(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the directory holding the state file.
func (s *Store) Dir() string {
	return s.dir
}

// statePath returns the path to the state file.
func (s *Store) statePath() string {
	return filepath.Join(s.dir, "state.json")
}

// lockPath returns the path to the lock file.
func (s *Store) lockPath() string {
	return filepath.Join(s.dir, "state.lock")
}

// Load reads preferences from disk. Returns defaults if the file doesn't exist.
func (s *Store) Load() (Preferences, error) {
	data, err := os.ReadFile(s.statePath())
	if os.IsNotExist(err) {
		return DefaultPreferences(), nil
	}
	if err != nil {
		return Preferences{}, fmt.Errorf("read state file: %w", err)
	}

	prefs := DefaultPreferences()
	if err := json.Unmarshal(data, &prefs); err != nil {
		return Preferences{}, fmt.Errorf("unmarshal state: %w", err)
	}
	return prefs.Normalize(), nil
}

// Save writes preferences to disk.
func (s *Store) Save(prefs Preferences) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	data, err := json.MarshalIndent(prefs.Normalize(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	if existing, err := os.ReadFile(s.statePath()); err == nil {
		if bytes.Equal(existing, data) {
			return nil
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("read state file: %w", err)
	}

	// Write atomically via temp file. The file may hold a password.
	tmpFile, err := os.CreateTemp(s.dir, filepath.Base(s.statePath())+".tmp")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	name := tmpFile.Name()
	_, err = tmpFile.Write(data)
	if err1 := tmpFile.Close(); err1 != nil && err == nil {
		err = err1
	}
	if err == nil {
		err = os.Chmod(name, 0600)
	}
	if err != nil {
		os.Remove(name)
		return fmt.Errorf("write temp state file: %w", err)
	}

	if err := os.Rename(name, s.statePath()); err != nil {
		os.Remove(name)
		return fmt.Errorf("rename state file: %w", err)
	}

	return nil
}

// Update atomically reads, modifies, and writes preferences with file locking.
func (s *Store) Update(fn func(prefs *Preferences) error) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	lockFile, err := os.OpenFile(s.lockPath(), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}
	defer lockFile.Close()

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX); err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	defer syscall.Flock(int(lockFile.Fd()), syscall.LOCK_UN)

	prefs, err := s.Load()
	if err != nil {
		return err
	}

	if err := fn(&prefs); err != nil {
		return err
	}

	return s.Save(prefs)
}

// LoadPreferences reads the stored preferences.
func (s *Store) LoadPreferences() (Preferences, error) {
	return s.Load()
}

// SavePreferences replaces the stored preferences under the lock.
func (s *Store) SavePreferences(prefs Preferences) error {
	return s.Update(func(stored *Preferences) error {
		*stored = prefs
		return nil
	})
}

// ForgetPassword clears any remembered password.
func (s *Store) ForgetPassword() error {
	return s.Update(func(prefs *Preferences) error {
		prefs.RememberPassword = false
		prefs.Password = ""
		return nil
	})
}

// Reset restores the first-run preferences.
func (s *Store) Reset() error {
	return s.Update(func(prefs *Preferences) error {
		*prefs = DefaultPreferences()
		return nil
	})
}
