// Package protocol implements the request primitive shared by the Hauk
// handshake and push calls: POST form fields, read newline-delimited
// text back, and classify whatever goes wrong.
package protocol

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	internalstrings "github.com/amonks/hauk/internal/strings"
	"github.com/google/uuid"
)

// StatusOK is the first response line of a successful call.
const StatusOK = "OK"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "hauk-go"
	maxResponseBytes = 1 << 20
)

// Doer sends HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Poster sends form fields and returns response lines. *Client
// satisfies it.
type Poster interface {
	PostForm(ctx context.Context, target string, fields url.Values) ([]string, error)
}

// Options configures a Client.
type Options struct {
	// HTTPClient overrides the default client. When set, Timeout is
	// ignored.
	HTTPClient Doer
	Timeout    time.Duration
	UserAgent  string
}

// Client posts form requests to a Hauk server.
type Client struct {
	http      Doer
	userAgent string
}

// NewClient creates a client.
func NewClient(opts Options) *Client {
	doer := opts.HTTPClient
	if doer == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		doer = &http.Client{Timeout: timeout}
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Client{http: doer, userAgent: userAgent}
}

// PostForm posts fields to target and returns the response body split
// into lines. Every returned error is an *Error.
func (c *Client) PostForm(ctx context.Context, target string, fields url.Values) ([]string, error) {
	endpoint, err := ParseTarget(target)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), strings.NewReader(fields.Encode()))
	if err != nil {
		return nil, &Error{Kind: ErrInvalidServerAddress, Message: err.Error(), Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, Classify(err)
	}
	defer resp.Body.Close()

	var body bytes.Buffer
	if _, err := io.Copy(&body, io.LimitReader(resp.Body, maxResponseBytes)); err != nil {
		return nil, Classify(err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{Kind: ErrConnectionFailed, Message: fmt.Sprintf("server returned %s", resp.Status)}
	}
	return internalstrings.SplitLines(body.String()), nil
}

// ParseTarget validates an absolute http(s) URL.
func ParseTarget(target string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(target))
	if err != nil {
		return nil, &Error{Kind: ErrInvalidServerAddress, Message: err.Error(), Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &Error{Kind: ErrInvalidServerAddress, Message: fmt.Sprintf("unsupported scheme %q in %q", parsed.Scheme, target)}
	}
	if parsed.Host == "" {
		return nil, &Error{Kind: ErrInvalidServerAddress, Message: fmt.Sprintf("missing host in %q", target)}
	}
	return parsed, nil
}

// Rejection builds the ServerRejected error for a non-OK response: the
// lines after the status token, joined with newlines. A bare status
// token becomes the message itself.
func Rejection(lines []string) *Error {
	if len(lines) == 0 {
		return &Error{Kind: ErrEmptyResponse}
	}
	message := strings.Join(lines[1:], "\n")
	if internalstrings.IsBlank(message) {
		message = lines[0]
	}
	return &Error{Kind: ErrServerRejected, Message: message}
}
