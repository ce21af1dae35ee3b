// Package state persists the user's share preferences.
package state

const (
	// DefaultDurationMinutes is the share duration offered on first run.
	DefaultDurationMinutes = 30
	// DefaultIntervalSeconds is the push interval offered on first run.
	DefaultIntervalSeconds = 1
)

// Preferences are the settings remembered between shares.
type Preferences struct {
	Server           string `json:"server"`
	Duration         int    `json:"duration"`
	Interval         int    `json:"interval"`
	RememberPassword bool   `json:"remember_password"`
	Password         string `json:"password,omitempty"`
}

// DefaultPreferences returns the first-run preferences.
func DefaultPreferences() Preferences {
	return Preferences{
		Duration: DefaultDurationMinutes,
		Interval: DefaultIntervalSeconds,
	}
}

// Normalize fills missing values with defaults and drops a password
// that is not meant to be remembered.
func (p Preferences) Normalize() Preferences {
	if p.Duration <= 0 {
		p.Duration = DefaultDurationMinutes
	}
	if p.Interval <= 0 {
		p.Interval = DefaultIntervalSeconds
	}
	if !p.RememberPassword {
		p.Password = ""
	}
	return p
}
