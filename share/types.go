// Package share runs the lifecycle of a Hauk location share: the
// handshake that creates a session, the countdown and authoritative
// expiration, the periodic push loop, and the single idempotent stop
// path that ends it all.
//
// Every state transition happens on one control goroutine. Background
// work (the handshake request, each push, timers) reports back to it
// through a channel, and Observer callbacks are always invoked from it.
package share

import (
	"fmt"
	"time"

	internalstrings "github.com/amonks/hauk/internal/strings"
)

// State is the controller's lifecycle state.
type State string

const (
	// StateIdle means no session exists and a share may be started.
	StateIdle State = "idle"
	// StateHandshaking means a handshake request is in flight.
	StateHandshaking State = "handshaking"
	// StateActive means a session exists and pushes are running.
	StateActive State = "active"
	// StateStopping means the stop path is releasing the session.
	StateStopping State = "stopping"
)

// ValidStates returns all states.
func ValidStates() []State {
	return []State{StateIdle, StateHandshaking, StateActive, StateStopping}
}

// IsValid returns true if the state is a known value.
func (s State) IsValid() bool {
	for _, valid := range ValidStates() {
		if s == valid {
			return true
		}
	}
	return false
}

// StopReason says what ended a share.
type StopReason string

const (
	// StopUserRequested is an explicit stop from the user.
	StopUserRequested StopReason = "user-requested"
	// StopExpired is the share duration elapsing.
	StopExpired StopReason = "expired"
	// StopHostTornDown is the hosting process going away. No observer
	// is notified for it.
	StopHostTornDown StopReason = "host-torn-down"
)

// NotifiesObserver reports whether stopping for this reason resets the
// user-facing state.
func (r StopReason) NotifiesObserver() bool {
	return r == StopUserRequested || r == StopExpired
}

// Session identifies one active share.
type Session struct {
	ID       string
	ViewLink string
	// BaseURL is the server root, always ending with '/'.
	BaseURL   string
	Interval  time.Duration
	Duration  time.Duration
	StartedAt time.Time
}

// ExpiresAt is when the share's duration elapses.
func (s Session) ExpiresAt() time.Time {
	return s.StartedAt.Add(s.Duration)
}

// StartRequest carries the user's share settings.
type StartRequest struct {
	ServerURL        string
	Password         string
	DurationMinutes  int
	IntervalSeconds  int
	RememberPassword bool
}

// Validate checks the request before it reaches the control loop.
func (r StartRequest) Validate() error {
	if internalstrings.IsBlank(r.ServerURL) {
		return ErrServerRequired
	}
	if r.DurationMinutes <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidDuration, r.DurationMinutes)
	}
	if r.IntervalSeconds <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidInterval, r.IntervalSeconds)
	}
	return nil
}

// BaseURL returns the server URL normalized to end with '/'.
func (r StartRequest) BaseURL() string {
	return internalstrings.EnsureTrailingSlash(internalstrings.TrimSpace(r.ServerURL))
}

// DurationSeconds converts the requested minutes to seconds.
func (r StartRequest) DurationSeconds() int {
	return r.DurationMinutes * 60
}
