package protocol

import (
	"context"
	"errors"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"
)

var (
	// ErrInvalidServerAddress indicates the target URL is malformed.
	ErrInvalidServerAddress = errors.New("invalid server address")
	// ErrConnectionFailed indicates an I/O or connectivity failure.
	ErrConnectionFailed = errors.New("connection failed")
	// ErrEmptyResponse indicates the server answered with too few lines.
	ErrEmptyResponse = errors.New("empty response")
	// ErrServerRejected indicates the server answered with an error status.
	ErrServerRejected = errors.New("server rejected request")
	// ErrUnexpected indicates a failure that fits no other class.
	ErrUnexpected = errors.New("unexpected failure")
)

// Error is a classified protocol failure. Kind is one of the sentinel
// errors above; Message is the human-readable detail (for a rejection,
// the server's message verbatim).
type Error struct {
	Kind    error
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Kind.Error() + ": " + e.Message
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Classify maps a transport-level failure onto the protocol taxonomy.
// Errors that are already classified are returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var classified *Error
	if errors.As(err, &classified) {
		return err
	}

	cause := err
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		cause = urlErr.Err
	}

	switch {
	case cause == nil:
		return &Error{Kind: ErrUnexpected, Message: err.Error(), Err: err}
	case strings.Contains(cause.Error(), "unsupported protocol scheme"):
		return &Error{Kind: ErrInvalidServerAddress, Message: cause.Error(), Err: err}
	case isConnectionFailure(cause):
		return &Error{Kind: ErrConnectionFailed, Message: cause.Error(), Err: err}
	default:
		return &Error{Kind: ErrUnexpected, Message: cause.Error(), Err: err}
	}
}

func isConnectionFailure(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var errno syscall.Errno
	return errors.As(err, &errno)
}
