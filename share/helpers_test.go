package share

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/amonks/hauk/handshake"
	"github.com/amonks/hauk/internal/clock"
	"github.com/amonks/hauk/internal/state"
	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/push"
)

var testEpoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeHandshaker struct {
	mu      sync.Mutex
	calls   []handshake.Request
	respond func(ctx context.Context, req handshake.Request) (handshake.SessionInfo, error)
}

func newFakeHandshaker() *fakeHandshaker {
	return &fakeHandshaker{}
}

func (h *fakeHandshaker) CreateSession(ctx context.Context, req handshake.Request) (handshake.SessionInfo, error) {
	h.mu.Lock()
	h.calls = append(h.calls, req)
	n := len(h.calls)
	respond := h.respond
	h.mu.Unlock()

	if respond != nil {
		return respond(ctx, req)
	}
	return handshake.SessionInfo{
		ID:       fmt.Sprintf("session-%d", n),
		ViewLink: fmt.Sprintf("%s?session-%d", req.BaseURL, n),
	}, nil
}

func (h *fakeHandshaker) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

func (h *fakeHandshaker) lastCall() handshake.Request {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls[len(h.calls)-1]
}

// blockUntilCanceled makes every handshake wait for its context.
func (h *fakeHandshaker) blockUntilCanceled() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.respond = func(ctx context.Context, req handshake.Request) (handshake.SessionInfo, error) {
		<-ctx.Done()
		return handshake.SessionInfo{}, ctx.Err()
	}
}

type fakeTransport struct {
	mu       sync.Mutex
	baseURL  string
	sessions []string
	fail     func(n int) error
}

func (f *fakeTransport) Push(ctx context.Context, sessionID string, sample location.Sample) error {
	f.mu.Lock()
	f.sessions = append(f.sessions, sessionID)
	n := len(f.sessions)
	fail := f.fail
	f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if fail != nil {
		return fail(n)
	}
	return nil
}

func (f *fakeTransport) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sessions)
}

type fakeLocation struct {
	mu         sync.Mutex
	permission bool
	enabled    bool
	samples    int
	sampleErr  error
}

func newFakeLocation() *fakeLocation {
	return &fakeLocation{permission: true, enabled: true}
}

func (l *fakeLocation) CheckPermission() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.permission {
		return location.ErrPermissionDenied
	}
	return nil
}

func (l *fakeLocation) CheckEnabled() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.enabled {
		return location.ErrProviderDisabled
	}
	return nil
}

func (l *fakeLocation) Sample(ctx context.Context) (location.Sample, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.samples++
	if l.sampleErr != nil {
		return location.Sample{}, l.sampleErr
	}
	return location.Sample{Latitude: 59.91, Longitude: 10.75, Accuracy: 12, Time: testEpoch}, nil
}

func (l *fakeLocation) setPermission(granted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.permission = granted
}

func (l *fakeLocation) setEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// recordingObserver keeps every event as a short string.
type recordingObserver struct {
	mu          sync.Mutex
	events      []string
	remaining   int
	pushResults int
	pushErrors  int
	messages    []string
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{remaining: -1}
}

func (o *recordingObserver) record(event string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, event)
}

func (o *recordingObserver) OnHandshakeStarted() { o.record("handshake-started") }

func (o *recordingObserver) OnHandshakeFailed(kind ErrorKind, message string) {
	o.mu.Lock()
	o.messages = append(o.messages, message)
	o.mu.Unlock()
	o.record("failed:" + string(kind))
}

func (o *recordingObserver) OnSessionActive(viewLink string) { o.record("active:" + viewLink) }

func (o *recordingObserver) OnFirstDataReceived() { o.record("first-data") }

func (o *recordingObserver) OnRemainingTimeChanged(seconds int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.remaining = seconds
	if seconds == 0 {
		o.events = append(o.events, "remaining:0")
	}
}

func (o *recordingObserver) OnStopped(reason StopReason) { o.record("stopped:" + string(reason)) }

func (o *recordingObserver) OnPushResult(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.pushResults++
	if err != nil {
		o.pushErrors++
	}
}

func (o *recordingObserver) snapshot() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

func (o *recordingObserver) count(event string) int {
	n := 0
	for _, e := range o.snapshot() {
		if e == event {
			n++
		}
	}
	return n
}

func (o *recordingObserver) has(event string) bool {
	return o.count(event) > 0
}

func (o *recordingObserver) lastRemaining() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.remaining
}

func (o *recordingObserver) pushes() (results, errors int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.pushResults, o.pushErrors
}

func (o *recordingObserver) lastMessage() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.messages) == 0 {
		return ""
	}
	return o.messages[len(o.messages)-1]
}

type harness struct {
	controller *Controller
	clock      *clock.FakeClock
	handshaker *fakeHandshaker
	transport  *fakeTransport
	location   *fakeLocation
	observer   *recordingObserver
	store      *state.Store
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		clock:      clock.Fake(testEpoch),
		handshaker: newFakeHandshaker(),
		transport:  &fakeTransport{},
		location:   newFakeLocation(),
		observer:   newRecordingObserver(),
		store:      state.NewStore(t.TempDir()),
	}
	controller, err := New(Options{
		Handshaker: h.handshaker,
		TransportFor: func(baseURL string) push.Transport {
			h.transport.mu.Lock()
			h.transport.baseURL = baseURL
			h.transport.mu.Unlock()
			return h.transport
		},
		Location:    h.location,
		Preferences: h.store,
		Observer:    h.observer,
		Clock:       h.clock,
	})
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}
	h.controller = controller
	t.Cleanup(func() { controller.Close() })
	return h
}

func (h *harness) start(t *testing.T, durationMinutes, intervalSeconds int) {
	t.Helper()
	err := h.controller.StartSharing(StartRequest{
		ServerURL:       "https://hauk.example.com",
		Password:        "pw",
		DurationMinutes: durationMinutes,
		IntervalSeconds: intervalSeconds,
	})
	if err != nil {
		t.Fatalf("start sharing: %v", err)
	}
}

func (h *harness) startActive(t *testing.T, durationMinutes, intervalSeconds int) {
	t.Helper()
	h.start(t, durationMinutes, intervalSeconds)
	waitFor(t, "session active", func() bool {
		return h.controller.State() == StateActive
	})
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func eventsString(events []string) string {
	return strings.Join(events, ", ")
}
