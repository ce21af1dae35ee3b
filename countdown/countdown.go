// Package countdown drives a once-per-second remaining-time display.
//
// The timer is cosmetic: it reports remaining seconds from the total
// down to zero and then goes quiet, but its 1 Hz schedule keeps running
// until Cancel. Anything authoritative about when time is up belongs to
// a separately scheduled action.
package countdown

import (
	"sync"
	"time"

	"github.com/amonks/hauk/internal/clock"
)

// Timer counts down whole seconds.
type Timer struct {
	clock clock.Clock

	mu      sync.Mutex
	running *run
}

type run struct {
	ticker *clock.Ticker
	stop   chan struct{}
	done   chan struct{}
}

// New creates a timer on clk. A nil clk uses the real clock.
func New(clk clock.Clock) *Timer {
	if clk == nil {
		clk = clock.Real()
	}
	return &Timer{clock: clk}
}

// Start cancels any previous countdown and begins a new one. onTick is
// called from the timer's goroutine with totalSeconds right away, then
// once per second with one less, stopping after zero. onTick must not
// call Cancel or Start.
func (t *Timer) Start(totalSeconds int, onTick func(remaining int)) {
	t.Cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	r := &run{
		ticker: t.clock.NewTicker(time.Second),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	t.running = r
	go r.loop(totalSeconds, onTick)
}

// Cancel stops the countdown and waits for its goroutine to exit. It is
// safe to call repeatedly, before Start, and after the count reached
// zero.
func (t *Timer) Cancel() {
	t.mu.Lock()
	r := t.running
	t.running = nil
	t.mu.Unlock()

	if r == nil {
		return
	}
	r.ticker.Stop()
	close(r.stop)
	<-r.done
}

// Running reports whether a countdown schedule is active.
func (t *Timer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running != nil
}

func (r *run) loop(remaining int, onTick func(int)) {
	defer close(r.done)

	if onTick != nil && remaining >= 0 {
		onTick(remaining)
	}
	for {
		select {
		case <-r.stop:
			return
		case <-r.ticker.C:
			remaining--
			if remaining >= 0 && onTick != nil {
				onTick(remaining)
			}
		}
	}
}
