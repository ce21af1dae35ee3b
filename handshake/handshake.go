// Package handshake creates Hauk sharing sessions.
//
// A handshake posts the password, share duration, and push interval to
// {baseUrl}api/create.php. The server answers with newline-delimited
// text: "OK", the session id, and the public view link on success, or an
// error status followed by a message.
package handshake

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/amonks/hauk/protocol"
)

// Endpoint is the session-creation path relative to the server root.
const Endpoint = "api/create.php"

// SessionInfo is the server's answer to a successful handshake.
type SessionInfo struct {
	ID       string
	ViewLink string
}

// Request describes a session to create. BaseURL must end with '/'.
type Request struct {
	BaseURL         string
	Password        string
	DurationSeconds int
	IntervalSeconds int
}

// Client performs handshakes.
type Client struct {
	poster protocol.Poster
}

// NewClient creates a handshake client on top of poster.
func NewClient(poster protocol.Poster) *Client {
	return &Client{poster: poster}
}

// CreateSession performs the handshake. Failures are *protocol.Error
// values classified as invalid address, connection failure, empty
// response, server rejection, or unexpected failure.
func (c *Client) CreateSession(ctx context.Context, req Request) (SessionInfo, error) {
	if req.DurationSeconds <= 0 {
		return SessionInfo{}, &protocol.Error{Kind: protocol.ErrUnexpected, Message: fmt.Sprintf("duration must be positive, got %d", req.DurationSeconds)}
	}
	if req.IntervalSeconds <= 0 {
		return SessionInfo{}, &protocol.Error{Kind: protocol.ErrUnexpected, Message: fmt.Sprintf("interval must be positive, got %d", req.IntervalSeconds)}
	}

	fields := url.Values{}
	fields.Set("pwd", req.Password)
	fields.Set("dur", strconv.Itoa(req.DurationSeconds))
	fields.Set("int", strconv.Itoa(req.IntervalSeconds))

	lines, err := c.poster.PostForm(ctx, req.BaseURL+Endpoint, fields)
	if err != nil {
		return SessionInfo{}, protocol.Classify(err)
	}
	return ParseResponse(lines)
}

// ParseResponse interprets handshake response lines.
func ParseResponse(lines []string) (SessionInfo, error) {
	if len(lines) == 0 {
		return SessionInfo{}, &protocol.Error{Kind: protocol.ErrEmptyResponse}
	}
	if lines[0] != protocol.StatusOK {
		return SessionInfo{}, protocol.Rejection(lines)
	}
	if len(lines) < 3 {
		return SessionInfo{}, &protocol.Error{Kind: protocol.ErrEmptyResponse, Message: fmt.Sprintf("expected session id and view link, got %d line(s)", len(lines))}
	}
	return SessionInfo{ID: lines[1], ViewLink: lines[2]}, nil
}
