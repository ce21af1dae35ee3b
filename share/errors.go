package share

import (
	"errors"

	"github.com/amonks/hauk/location"
	"github.com/amonks/hauk/protocol"
)

var (
	// ErrPermissionRevoked indicates location permission disappeared
	// while the handshake was in flight. The server-side session is
	// abandoned.
	ErrPermissionRevoked = errors.New("location permission revoked after handshake")
	// ErrHandshakeCanceled indicates a stop request canceled the
	// pending handshake.
	ErrHandshakeCanceled = errors.New("handshake canceled")
	// ErrClosed indicates the controller has been closed.
	ErrClosed = errors.New("controller closed")
	// ErrServerRequired indicates no server address was given.
	ErrServerRequired = errors.New("server address is required")
	// ErrInvalidDuration indicates a non-positive share duration.
	ErrInvalidDuration = errors.New("duration must be a positive number of minutes")
	// ErrInvalidInterval indicates a non-positive push interval.
	ErrInvalidInterval = errors.New("interval must be a positive number of seconds")
)

// ErrorKind classifies why a share could not start.
type ErrorKind string

const (
	KindMissingPermission        ErrorKind = "missing-permission"
	KindLocationProviderDisabled ErrorKind = "location-provider-disabled"
	KindInvalidServerAddress     ErrorKind = "invalid-server-address"
	KindConnectionFailed         ErrorKind = "connection-failed"
	KindEmptyResponse            ErrorKind = "empty-response"
	KindServerRejected           ErrorKind = "server-rejected"
	KindPermissionRevoked        ErrorKind = "permission-revoked"
	KindCanceled                 ErrorKind = "canceled"
	KindUnexpected               ErrorKind = "unexpected"
)

// ValidErrorKinds returns all error kinds.
func ValidErrorKinds() []ErrorKind {
	return []ErrorKind{
		KindMissingPermission,
		KindLocationProviderDisabled,
		KindInvalidServerAddress,
		KindConnectionFailed,
		KindEmptyResponse,
		KindServerRejected,
		KindPermissionRevoked,
		KindCanceled,
		KindUnexpected,
	}
}

// IsValid returns true if the kind is a known value.
func (k ErrorKind) IsValid() bool {
	for _, valid := range ValidErrorKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// IsPrecondition reports whether the failure happened before any
// network call and can be fixed on the device.
func (k ErrorKind) IsPrecondition() bool {
	return k == KindMissingPermission || k == KindLocationProviderDisabled
}

// Title is a short heading for the failure.
func (k ErrorKind) Title() string {
	switch k {
	case KindMissingPermission, KindLocationProviderDisabled, KindInvalidServerAddress, KindPermissionRevoked:
		return "Client error"
	case KindConnectionFailed:
		return "Connection error"
	case KindCanceled:
		return "Canceled"
	default:
		return "Server error"
	}
}

// ClassifyError maps an error onto an ErrorKind.
func ClassifyError(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrPermissionRevoked):
		return KindPermissionRevoked
	case errors.Is(err, ErrHandshakeCanceled):
		return KindCanceled
	case errors.Is(err, location.ErrPermissionDenied):
		return KindMissingPermission
	case errors.Is(err, location.ErrProviderDisabled):
		return KindLocationProviderDisabled
	case errors.Is(err, protocol.ErrInvalidServerAddress):
		return KindInvalidServerAddress
	case errors.Is(err, protocol.ErrConnectionFailed):
		return KindConnectionFailed
	case errors.Is(err, protocol.ErrEmptyResponse):
		return KindEmptyResponse
	case errors.Is(err, protocol.ErrServerRejected):
		return KindServerRejected
	default:
		return KindUnexpected
	}
}

// FailureMessage is the text shown for a failure. Server rejections are
// passed through verbatim.
func FailureMessage(err error) string {
	if err == nil {
		return ""
	}
	var perr *protocol.Error
	if errors.As(err, &perr) && perr.Message != "" {
		return perr.Message
	}
	switch ClassifyError(err) {
	case KindMissingPermission:
		return "Location permission is required to share your location."
	case KindLocationProviderDisabled:
		return "No location source is enabled."
	case KindEmptyResponse:
		return "The server returned an empty response."
	case KindPermissionRevoked:
		return "Location permission was revoked while connecting; the session was abandoned."
	}
	return err.Error()
}
