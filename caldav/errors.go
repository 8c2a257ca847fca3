package caldav

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/caldav-core/caldav/internal"
)

// ConflictError is returned by PutCalendarObject and DeleteCalendarObject
// when the server rejects the request because the resource's ETag no longer
// matches the precondition the caller supplied - someone else changed or
// deleted the object first.
type ConflictError struct {
	Path string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("caldav: conflict updating %q: resource was modified concurrently", e.Path)
}

// NetworkError wraps a transport-level failure (DNS, TCP, TLS, timeout) that
// a caller may want to retry, as distinct from a protocol-level rejection
// from the server.
type NetworkError struct {
	Path string
	Err  error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("caldav: network error reaching %q: %v", e.Path, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// ErrFullResyncRequired is returned by SyncCollection when the server has
// told the client its sync-token is no longer valid (RFC 6578 section
// 3.2.1, plus the provider-specific equivalents in the provider package).
// It is a control signal, not a failure: the caller is expected to retry
// SyncCollection with an empty SyncQuery.SyncToken to obtain a fresh one.
var ErrFullResyncRequired = errors.New("caldav: sync token invalid, full resync required")

// asCaldavError narrows an error into one of the domain errors above: a
// transport failure (a *url.Error from the HTTP client, or any timeout)
// becomes a NetworkError, a 412 internal.HTTPError becomes a ConflictError,
// and every other error is left untouched.
func asCaldavError(path string, err error) error {
	if err == nil {
		return nil
	}
	var urlErr *url.Error
	if internal.IsNetworkTimeout(err) || errors.As(err, &urlErr) {
		return &NetworkError{Path: path, Err: err}
	}
	if internal.IsPreconditionFailed(err) {
		return &ConflictError{Path: path}
	}
	return err
}

func httpStatus(err error) (int, bool) {
	var httpErr *internal.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Code, true
	}
	return 0, false
}
