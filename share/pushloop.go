package share

import (
	"context"
	"fmt"
	"time"

	"github.com/amonks/hauk/internal/clock"
	"github.com/amonks/hauk/internal/logger"
	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/push"
)

type pushLoopConfig struct {
	clock     clock.Clock
	interval  time.Duration
	expiresAt time.Time
	sessionID string
	location  location.Provider
	transport push.Transport
	log       *logger.Logger
	// report receives each cycle's outcome.
	report func(err error)
}

// pushLoop sends one location sample per interval. At most one push is
// in flight; a cycle that comes due while one is pending is skipped, as
// is any cycle at or after the session's expiry.
type pushLoop struct {
	ctx    context.Context
	cfg    pushLoopConfig
	ticker *clock.Ticker
	done   chan struct{}
}

// startPushLoop pushes immediately and then on every interval until ctx
// ends. The ticker exists by the time it returns.
func startPushLoop(ctx context.Context, cfg pushLoopConfig) *pushLoop {
	l := &pushLoop{
		ctx:    ctx,
		cfg:    cfg,
		ticker: cfg.clock.NewTicker(cfg.interval),
		done:   make(chan struct{}),
	}
	go l.run()
	return l
}

func (l *pushLoop) run() {
	defer close(l.done)
	defer l.ticker.Stop()

	results := make(chan error, 1)
	inFlight := false
	launch := func() {
		if inFlight {
			l.cfg.log.Debug("push still in flight, skipping cycle")
			return
		}
		if !l.cfg.expiresAt.IsZero() && !l.cfg.clock.Now().Before(l.cfg.expiresAt) {
			return
		}
		inFlight = true
		go func() { results <- l.transmit() }()
	}

	launch()
	for {
		select {
		case <-l.ctx.Done():
			if inFlight {
				<-results
			}
			return
		case <-l.ticker.C:
			launch()
		case err := <-results:
			inFlight = false
			if l.ctx.Err() != nil {
				return
			}
			l.cfg.report(err)
		}
	}
}

func (l *pushLoop) transmit() error {
	sample, err := l.cfg.location.Sample(l.ctx)
	if err != nil {
		return fmt.Errorf("sample location: %w", err)
	}
	return l.cfg.transport.Push(l.ctx, l.cfg.sessionID, sample)
}

// wait blocks until the loop and any in-flight push have finished.
func (l *pushLoop) wait() {
	<-l.done
}
