// Package push transmits location samples for an established session.
package push

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/protocol"
)

// DefaultEndpoint is the push path relative to the server root.
const DefaultEndpoint = "api/post.php"

// Transport sends one sample tagged with a session id. Any error means
// the push failed; callers retry on their next cycle.
type Transport interface {
	Push(ctx context.Context, sessionID string, sample location.Sample) error
}

// HTTPTransport pushes samples to a Hauk server.
type HTTPTransport struct {
	poster   protocol.Poster
	baseURL  string
	endpoint string
}

// Options configures an HTTPTransport.
type Options struct {
	// BaseURL is the normalized server root, ending with '/'.
	BaseURL string
	// Endpoint overrides DefaultEndpoint.
	Endpoint string
}

// NewHTTPTransport creates a transport posting through poster.
func NewHTTPTransport(poster protocol.Poster, opts Options) *HTTPTransport {
	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &HTTPTransport{poster: poster, baseURL: opts.BaseURL, endpoint: endpoint}
}

// WithBaseURL returns a copy of the transport targeting baseURL.
func (t *HTTPTransport) WithBaseURL(baseURL string) *HTTPTransport {
	copied := *t
	copied.baseURL = baseURL
	return &copied
}

// Push posts the sample. The server acknowledges with "OK"; anything
// else is a rejection carrying the server's message.
func (t *HTTPTransport) Push(ctx context.Context, sessionID string, sample location.Sample) error {
	if sessionID == "" {
		return &protocol.Error{Kind: protocol.ErrUnexpected, Message: "session id is required"}
	}
	if t.baseURL == "" {
		return &protocol.Error{Kind: protocol.ErrInvalidServerAddress, Message: "server address is required"}
	}

	lines, err := t.poster.PostForm(ctx, t.baseURL+t.endpoint, Fields(sessionID, sample))
	if err != nil {
		return protocol.Classify(err)
	}
	if len(lines) == 0 {
		return &protocol.Error{Kind: protocol.ErrEmptyResponse}
	}
	if lines[0] != protocol.StatusOK {
		return protocol.Rejection(lines)
	}
	return nil
}

// Fields encodes a sample as push form fields.
func Fields(sessionID string, sample location.Sample) url.Values {
	fields := url.Values{}
	fields.Set("sid", sessionID)
	fields.Set("lat", formatFloat(sample.Latitude))
	fields.Set("lon", formatFloat(sample.Longitude))
	if sample.Accuracy > 0 {
		fields.Set("acc", formatFloat(sample.Accuracy))
	}
	fields.Set("time", fmt.Sprintf("%.3f", float64(sample.Time.UnixMilli())/1000))
	return fields
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
