package testsupport

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

// RecordedRequest is one request received by a FakeServer.
type RecordedRequest struct {
	Path      string
	Form      url.Values
	RequestID string
	UserAgent string
}

type fakeSession struct {
	expires time.Time
	pushes  int
}

// FakeServer is an in-process Hauk backend. It answers the create and
// post endpoints with the line-oriented protocol and records every
// request.
type FakeServer struct {
	*httptest.Server

	// Password is required by the create endpoint when non-empty.
	Password string

	mu       sync.Mutex
	requests []RecordedRequest
	sessions map[string]*fakeSession
	reject   string
}

// NewFakeServer starts a fake backend that is closed when the test ends.
func NewFakeServer(t testing.TB, password string) *FakeServer {
	t.Helper()
	server := StartFakeServer(password)
	t.Cleanup(server.Close)
	return server
}

// StartFakeServer starts a fake backend. The caller closes it.
func StartFakeServer(password string) *FakeServer {
	server := &FakeServer{
		Password: password,
		sessions: make(map[string]*fakeSession),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/create.php", server.handleCreate)
	mux.HandleFunc("/api/post.php", server.handlePost)
	server.Server = httptest.NewServer(mux)
	return server
}

// BaseURL returns the server root with a trailing slash.
func (s *FakeServer) BaseURL() string {
	return s.URL + "/"
}

// RejectWith makes every later request fail with message. An empty
// message restores normal behavior.
func (s *FakeServer) RejectWith(message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reject = message
}

// Requests returns every request received so far.
func (s *FakeServer) Requests() []RecordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// Sessions returns the ids of every session created.
func (s *FakeServer) Sessions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	return ids
}

// Pushes returns how many location updates a session accepted.
func (s *FakeServer) Pushes(sessionID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if session, ok := s.sessions[sessionID]; ok {
		return session.pushes
	}
	return 0
}

func (s *FakeServer) record(r *http.Request) (url.Values, string, bool) {
	if err := r.ParseForm(); err != nil {
		return nil, "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, RecordedRequest{
		Path:      r.URL.Path,
		Form:      r.PostForm,
		RequestID: r.Header.Get("X-Request-ID"),
		UserAgent: r.UserAgent(),
	})
	return r.PostForm, s.reject, true
}

func (s *FakeServer) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	form, reject, ok := s.record(r)
	if !ok {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if reject != "" {
		fmt.Fprintf(w, "%s\n", reject)
		return
	}
	if s.Password != "" && form.Get("pwd") != s.Password {
		fmt.Fprint(w, "Incorrect password!\n")
		return
	}
	duration, err := strconv.Atoi(form.Get("dur"))
	if err != nil || duration <= 0 {
		fmt.Fprint(w, "Invalid session duration\n")
		return
	}
	if interval, err := strconv.Atoi(form.Get("int")); err != nil || interval <= 0 {
		fmt.Fprint(w, "Invalid interval\n")
		return
	}

	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	s.mu.Lock()
	s.sessions[id] = &fakeSession{expires: time.Now().Add(time.Duration(duration) * time.Second)}
	s.mu.Unlock()

	fmt.Fprintf(w, "OK\n%s\n%s/?%s\n", id, s.URL, id)
}

func (s *FakeServer) handlePost(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	form, reject, ok := s.record(r)
	if !ok {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if reject != "" {
		fmt.Fprintf(w, "%s\n", reject)
		return
	}
	for _, field := range []string{"lat", "lon", "time"} {
		if _, err := strconv.ParseFloat(form.Get(field), 64); err != nil {
			fmt.Fprintf(w, "Invalid %s\n", field)
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	session, found := s.sessions[form.Get("sid")]
	if !found || time.Now().After(session.expires) {
		fmt.Fprint(w, "Session expired!\n")
		return
	}
	session.pushes++
	fmt.Fprint(w, "OK\n")
}
