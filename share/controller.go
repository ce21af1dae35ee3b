package share

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amonks/hauk/countdown"
	"github.com/amonks/hauk/handshake"
	"github.com/amonks/hauk/internal/clock"
	"github.com/amonks/hauk/internal/logger"
	"github.com/amonks/hauk/internal/state"
	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/push"
)

const inboxSize = 16

// Handshaker creates sessions on the server.
type Handshaker interface {
	CreateSession(ctx context.Context, req handshake.Request) (handshake.SessionInfo, error)
}

// PreferenceStore loads and saves the user's share settings.
type PreferenceStore interface {
	LoadPreferences() (state.Preferences, error)
	SavePreferences(prefs state.Preferences) error
}

// Options configures a Controller.
type Options struct {
	Handshaker Handshaker
	// TransportFor returns the push transport for a session's server.
	TransportFor func(baseURL string) push.Transport
	Location     location.Provider
	// Preferences is optional. Without it nothing is persisted.
	Preferences PreferenceStore
	Observer    Observer
	Clock       clock.Clock
	Logger      *logger.Logger
}

// Controller owns the share lifecycle. At most one session exists at a
// time.
type Controller struct {
	handshaker   Handshaker
	transportFor func(string) push.Transport
	location     location.Provider
	prefsStore   PreferenceStore
	observer     Observer
	clock        clock.Clock
	log          *logger.Logger
	countdown    *countdown.Timer

	inbox     chan func()
	closed    chan struct{}
	loopDone  chan struct{}
	closeOnce sync.Once

	// mu guards the fields read from outside the control loop. They are
	// written only by the loop.
	mu       sync.Mutex
	state    State
	snapshot *Session
	prefs    state.Preferences

	// Owned by the control loop.
	epoch   uint64
	pending *pendingHandshake
	active  *activeSession
}

type pendingHandshake struct {
	epoch  uint64
	cancel context.CancelFunc
	req    StartRequest
}

type activeSession struct {
	epoch         uint64
	session       Session
	cancel        context.CancelFunc
	expiry        *clock.Timer
	pushes        *pushLoop
	lastRemaining int
	firstData     bool
	pushed        int
	failed        int
	log           *logger.Logger
}

// New creates a controller and starts its control loop. Stored
// preferences are read once, here.
func New(opts Options) (*Controller, error) {
	if opts.Handshaker == nil {
		return nil, fmt.Errorf("handshaker is required")
	}
	if opts.TransportFor == nil {
		return nil, fmt.Errorf("push transport is required")
	}
	if opts.Location == nil {
		return nil, fmt.Errorf("location provider is required")
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	log := opts.Logger
	if log == nil {
		log = logger.Discard()
	}
	observer := opts.Observer
	if observer == nil {
		observer = NopObserver{}
	}

	prefs := state.DefaultPreferences()
	if opts.Preferences != nil {
		loaded, err := opts.Preferences.LoadPreferences()
		if err != nil {
			return nil, fmt.Errorf("load preferences: %w", err)
		}
		prefs = loaded
	}

	c := &Controller{
		handshaker:   opts.Handshaker,
		transportFor: opts.TransportFor,
		location:     opts.Location,
		prefsStore:   opts.Preferences,
		observer:     observer,
		clock:        clk,
		log:          log,
		countdown:    countdown.New(clk),
		inbox:        make(chan func(), inboxSize),
		closed:       make(chan struct{}),
		loopDone:     make(chan struct{}),
		state:        StateIdle,
		prefs:        prefs,
	}
	go c.loop()
	return c, nil
}

// State returns the current lifecycle state without blocking.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Session returns the active session, if any.
func (c *Controller) Session() (Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.snapshot == nil {
		return Session{}, false
	}
	return *c.snapshot, true
}

// Preferences returns the most recently loaded or saved preferences.
func (c *Controller) Preferences() state.Preferences {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.prefs
}

// StartSharing asks the controller to start a share. It returns only
// request validation errors; the outcome arrives through the Observer.
// While a share is active the request stops it instead, and while a
// handshake or stop is in progress it is ignored.
func (c *Controller) StartSharing(req StartRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}
	return c.post(func() { c.handleStart(req) })
}

func (c *Controller) loop() {
	defer close(c.loopDone)
	for {
		select {
		case fn := <-c.inbox:
			fn()
		case <-c.closed:
			return
		}
	}
}

// post queues fn on the control loop.
func (c *Controller) post(fn func()) error {
	select {
	case <-c.closed:
		return ErrClosed
	default:
	}
	select {
	case c.inbox <- fn:
		return nil
	case <-c.closed:
		return ErrClosed
	}
}

// postScoped queues fn unless ctx ends first. Background work uses it
// so a canceled session never blocks on a busy loop.
func (c *Controller) postScoped(ctx context.Context, fn func()) {
	select {
	case c.inbox <- fn:
	case <-ctx.Done():
	case <-c.closed:
	}
}

func (c *Controller) setState(next State) {
	c.mu.Lock()
	prev := c.state
	c.state = next
	c.mu.Unlock()
	if prev != next {
		c.log.WithFields(map[string]any{"from": prev, "to": next}).Debug("state changed")
	}
}

func (c *Controller) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) setSnapshot(session *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if session == nil {
		c.snapshot = nil
		return
	}
	copied := *session
	c.snapshot = &copied
}

func (c *Controller) handleStart(req StartRequest) {
	switch c.currentState() {
	case StateActive:
		c.log.Info("start requested while sharing, stopping instead")
		c.stop(StopUserRequested)
		return
	case StateHandshaking, StateStopping:
		c.log.Debug("start ignored while busy")
		return
	}

	c.setState(StateHandshaking)
	c.savePreferences(req)

	if err := c.checkPreconditions(); err != nil {
		c.failHandshake(err)
		return
	}

	c.epoch++
	epoch := c.epoch
	ctx, cancel := context.WithCancel(context.Background())
	c.pending = &pendingHandshake{epoch: epoch, cancel: cancel, req: req}
	c.observer.OnHandshakeStarted()

	request := handshake.Request{
		BaseURL:         req.BaseURL(),
		Password:        req.Password,
		DurationSeconds: req.DurationSeconds(),
		IntervalSeconds: req.IntervalSeconds,
	}
	c.log.WithField("server", request.BaseURL).Debug("handshake started")
	go func() {
		info, err := c.handshaker.CreateSession(ctx, request)
		c.postScoped(ctx, func() { c.handleHandshakeResult(epoch, info, err) })
	}()
}

func (c *Controller) savePreferences(req StartRequest) {
	prefs := state.Preferences{
		Server:           req.ServerURL,
		Duration:         req.DurationMinutes,
		Interval:         req.IntervalSeconds,
		RememberPassword: req.RememberPassword,
	}
	if req.RememberPassword {
		prefs.Password = req.Password
	}

	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()

	if c.prefsStore == nil {
		return
	}
	if err := c.prefsStore.SavePreferences(prefs); err != nil {
		c.log.WithError(err).Warn("save preferences")
	}
}

func (c *Controller) checkPreconditions() error {
	if err := c.location.CheckPermission(); err != nil {
		return err
	}
	return c.location.CheckEnabled()
}

func (c *Controller) failHandshake(err error) {
	c.setState(StateIdle)
	kind := ClassifyError(err)
	c.log.WithError(err).WithField("kind", kind).Warn("share not started")
	c.observer.OnHandshakeFailed(kind, FailureMessage(err))
}

func (c *Controller) handleHandshakeResult(epoch uint64, info handshake.SessionInfo, err error) {
	pending := c.pending
	if pending == nil || pending.epoch != epoch {
		return
	}
	c.pending = nil
	pending.cancel()

	if err != nil {
		c.failHandshake(err)
		return
	}

	if permErr := c.location.CheckPermission(); permErr != nil {
		c.log.WithSession(info.ID).Warn("abandoning session, location permission revoked")
		c.failHandshake(fmt.Errorf("%w: %w", ErrPermissionRevoked, permErr))
		return
	}

	c.activate(pending, info)
}

func (c *Controller) activate(pending *pendingHandshake, info handshake.SessionInfo) {
	req := pending.req
	ctx, cancel := context.WithCancel(context.Background())
	sess := &activeSession{
		epoch: pending.epoch,
		session: Session{
			ID:        info.ID,
			ViewLink:  info.ViewLink,
			BaseURL:   req.BaseURL(),
			Interval:  time.Duration(req.IntervalSeconds) * time.Second,
			Duration:  time.Duration(req.DurationSeconds()) * time.Second,
			StartedAt: c.clock.Now(),
		},
		cancel:        cancel,
		lastRemaining: req.DurationSeconds(),
		log:           c.log.WithSession(info.ID),
	}
	c.active = sess
	c.setSnapshot(&sess.session)
	epoch := sess.epoch

	c.countdown.Start(req.DurationSeconds(), func(remaining int) {
		c.postScoped(ctx, func() { c.handleTick(epoch, remaining) })
	})
	sess.expiry = c.clock.AfterFunc(sess.session.Duration, func() {
		c.postScoped(ctx, func() { c.handleExpired(epoch) })
	})
	sess.pushes = startPushLoop(ctx, pushLoopConfig{
		clock:     c.clock,
		interval:  sess.session.Interval,
		expiresAt: sess.session.ExpiresAt(),
		sessionID: info.ID,
		location:  c.location,
		transport: c.transportFor(sess.session.BaseURL),
		log:       sess.log,
		report: func(err error) {
			c.postScoped(ctx, func() { c.handlePushResult(epoch, err) })
		},
	})

	c.setState(StateActive)
	sess.log.WithFields(map[string]any{
		"duration": sess.session.Duration.String(),
		"interval": sess.session.Interval.String(),
	}).Info("sharing location")
	c.observer.OnSessionActive(info.ViewLink)
}

func (c *Controller) current(epoch uint64) *activeSession {
	if c.active == nil || c.active.epoch != epoch {
		return nil
	}
	return c.active
}

func (c *Controller) handleTick(epoch uint64, remaining int) {
	sess := c.current(epoch)
	if sess == nil {
		return
	}
	sess.lastRemaining = remaining
	c.observer.OnRemainingTimeChanged(remaining)
}

func (c *Controller) handleExpired(epoch uint64) {
	if c.current(epoch) == nil {
		return
	}
	c.stop(StopExpired)
}

func (c *Controller) handlePushResult(epoch uint64, err error) {
	sess := c.current(epoch)
	if sess == nil {
		return
	}
	if observer, ok := c.observer.(PushObserver); ok {
		observer.OnPushResult(err)
	}
	if err != nil {
		sess.failed++
		sess.log.WithError(err).Warn("push failed")
		return
	}
	sess.pushed++
	if !sess.firstData {
		sess.firstData = true
		c.observer.OnFirstDataReceived()
	}
}
