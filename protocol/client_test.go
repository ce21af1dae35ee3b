package protocol

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostFormSendsFieldsAndSplitsLines(t *testing.T) {
	var got url.Values
	var requestID, contentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		got = r.PostForm
		requestID = r.Header.Get("X-Request-ID")
		contentType = r.Header.Get("Content-Type")
		fmt.Fprint(w, "OK\r\nline two\n")
	}))
	defer server.Close()

	client := NewClient(Options{})
	lines, err := client.PostForm(context.Background(), server.URL+"/api/create.php", url.Values{"pwd": {"secret"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"OK", "line two"}, lines)
	assert.Equal(t, "secret", got.Get("pwd"))
	assert.NotEmpty(t, requestID)
	assert.Equal(t, "application/x-www-form-urlencoded", contentType)
}

func TestPostFormRejectsMalformedTargets(t *testing.T) {
	client := NewClient(Options{})
	for _, target := range []string{"", "hauk.example/api", "ftp://hauk.example/", "http://", "http://[::1"} {
		_, err := client.PostForm(context.Background(), target, nil)
		require.Error(t, err, target)
		assert.ErrorIs(t, err, ErrInvalidServerAddress, target)
	}
}

func TestPostFormClassifiesHTTPStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := NewClient(Options{}).PostForm(context.Background(), server.URL+"/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
	assert.Contains(t, err.Error(), "500")
}

func TestPostFormClassifiesRefusedConnection(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	_, err = NewClient(Options{Timeout: time.Second}).PostForm(context.Background(), "http://"+addr+"/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

func TestPostFormCanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewClient(Options{}).PostForm(ctx, server.URL+"/", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.ErrorIs(t, err, ErrConnectionFailed)
}

type failingDoer struct{ err error }

func (d failingDoer) Do(*http.Request) (*http.Response, error) { return nil, d.err }

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want error
	}{
		{name: "scheme", err: &url.Error{Op: "Post", URL: "x", Err: errors.New(`unsupported protocol scheme "x"`)}, want: ErrInvalidServerAddress},
		{name: "dns", err: &url.Error{Op: "Post", URL: "x", Err: &net.DNSError{Err: "no such host", Name: "x"}}, want: ErrConnectionFailed},
		{name: "deadline", err: &url.Error{Op: "Post", URL: "x", Err: context.DeadlineExceeded}, want: ErrConnectionFailed},
		{name: "other", err: errors.New("weird"), want: ErrUnexpected},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewClient(Options{HTTPClient: failingDoer{err: tc.err}}).PostForm(context.Background(), "http://hauk.example/", nil)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestClassifyKeepsClassifiedErrors(t *testing.T) {
	original := &Error{Kind: ErrServerRejected, Message: "bad"}
	assert.Same(t, original, Classify(original))
	assert.Nil(t, Classify(nil))
}

func TestRejection(t *testing.T) {
	err := Rejection([]string{"ERR", "bad password"})
	assert.ErrorIs(t, err, ErrServerRejected)
	assert.Equal(t, "bad password", err.Message)

	err = Rejection([]string{"Session expired!"})
	assert.Equal(t, "Session expired!", err.Message)

	err = Rejection([]string{"ERR", "first", "second"})
	assert.Equal(t, "first\nsecond", err.Message)

	assert.ErrorIs(t, Rejection(nil), ErrEmptyResponse)
}
