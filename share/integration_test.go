package share_test

import (
	"testing"
	"time"

	"github.com/amonks/hauk/handshake"
	"github.com/amonks/hauk/internal/clock"
	"github.com/amonks/hauk/internal/testsupport"
	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/protocol"
	"github.com/amonks/hauk/push"
	"github.com/amonks/hauk/share"
)

type events struct {
	share.NopObserver
	active  chan string
	failed  chan share.ErrorKind
	first   chan struct{}
	stopped chan share.StopReason
}

func newEvents() *events {
	return &events{
		active:  make(chan string, 1),
		failed:  make(chan share.ErrorKind, 1),
		first:   make(chan struct{}, 1),
		stopped: make(chan share.StopReason, 1),
	}
}

func (e *events) OnSessionActive(viewLink string) { e.active <- viewLink }
func (e *events) OnHandshakeFailed(kind share.ErrorKind, _ string) { e.failed <- kind }
func (e *events) OnFirstDataReceived() { e.first <- struct{}{} }
func (e *events) OnStopped(reason share.StopReason) { e.stopped <- reason }

func newController(t *testing.T, clk clock.Clock, observer share.Observer) *share.Controller {
	t.Helper()
	poster := protocol.NewClient(protocol.Options{Timeout: 5 * time.Second})
	transport := push.NewHTTPTransport(poster, push.Options{})
	controller, err := share.New(share.Options{
		Handshaker: handshake.NewClient(poster),
		TransportFor: func(baseURL string) push.Transport {
			return transport.WithBaseURL(baseURL)
		},
		Location: location.NewStatic(59.91, 10.75, 5),
		Observer: observer,
		Clock:    clk,
	})
	if err != nil {
		t.Fatalf("create controller: %v", err)
	}
	t.Cleanup(func() { controller.Close() })
	return controller
}

func receive[T any](t *testing.T, what string, ch <-chan T) T {
	t.Helper()
	select {
	case value := <-ch:
		return value
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
		var zero T
		return zero
	}
}

func TestShareAgainstServer(t *testing.T) {
	server := testsupport.NewFakeServer(t, "secret")
	clk := clock.Fake(time.Now())
	observer := newEvents()
	controller := newController(t, clk, observer)

	err := controller.StartSharing(share.StartRequest{
		ServerURL:       server.URL,
		Password:        "secret",
		DurationMinutes: 1,
		IntervalSeconds: 1,
	})
	if err != nil {
		t.Fatalf("start sharing: %v", err)
	}

	link := receive(t, "session active", observer.active)
	session, ok := controller.Session()
	if !ok {
		t.Fatal("expected session")
	}
	if link != server.URL+"/?"+session.ID {
		t.Errorf("unexpected view link %q", link)
	}

	receive(t, "first data", observer.first)
	if got := server.Pushes(session.ID); got != 1 {
		t.Errorf("expected one accepted push, got %d", got)
	}

	if err := controller.UserRequestedStop(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if reason := receive(t, "stop", observer.stopped); reason != share.StopUserRequested {
		t.Errorf("expected user stop, got %s", reason)
	}

	requests := server.Requests()
	if len(requests) < 2 {
		t.Fatalf("expected create and post requests, got %d", len(requests))
	}
	create := requests[0]
	if create.Path != "/api/create.php" {
		t.Errorf("expected create first, got %s", create.Path)
	}
	if create.Form.Get("dur") != "60" || create.Form.Get("int") != "1" || create.Form.Get("pwd") != "secret" {
		t.Errorf("unexpected create form %v", create.Form)
	}
	if create.RequestID == "" {
		t.Error("expected a request id header")
	}
	post := requests[1]
	if post.Path != "/api/post.php" || post.Form.Get("sid") != session.ID {
		t.Errorf("unexpected push %s %v", post.Path, post.Form)
	}
	if post.Form.Get("lat") != "59.91" || post.Form.Get("lon") != "10.75" {
		t.Errorf("unexpected coordinates %v", post.Form)
	}
}

func TestShareWrongPassword(t *testing.T) {
	server := testsupport.NewFakeServer(t, "secret")
	observer := newEvents()
	controller := newController(t, clock.Fake(time.Now()), observer)

	err := controller.StartSharing(share.StartRequest{
		ServerURL:       server.URL,
		Password:        "guess",
		DurationMinutes: 1,
		IntervalSeconds: 1,
	})
	if err != nil {
		t.Fatalf("start sharing: %v", err)
	}

	if kind := receive(t, "failure", observer.failed); kind != share.KindServerRejected {
		t.Errorf("expected server rejection, got %s", kind)
	}
	if len(server.Sessions()) != 0 {
		t.Error("expected no session to be created")
	}
}

func TestShareUnreachableServer(t *testing.T) {
	server := testsupport.NewFakeServer(t, "")
	url := server.URL
	server.Close()

	observer := newEvents()
	controller := newController(t, clock.Fake(time.Now()), observer)

	err := controller.StartSharing(share.StartRequest{
		ServerURL:       url,
		DurationMinutes: 1,
		IntervalSeconds: 1,
	})
	if err != nil {
		t.Fatalf("start sharing: %v", err)
	}

	if kind := receive(t, "failure", observer.failed); kind != share.KindConnectionFailed {
		t.Errorf("expected connection failure, got %s", kind)
	}
}

func TestShareInvalidServerAddress(t *testing.T) {
	observer := newEvents()
	controller := newController(t, clock.Fake(time.Now()), observer)

	err := controller.StartSharing(share.StartRequest{
		ServerURL:       "ftp://hauk.example.com",
		DurationMinutes: 1,
		IntervalSeconds: 1,
	})
	if err != nil {
		t.Fatalf("start sharing: %v", err)
	}

	if kind := receive(t, "failure", observer.failed); kind != share.KindInvalidServerAddress {
		t.Errorf("expected invalid address, got %s", kind)
	}
}
