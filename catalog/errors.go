package catalog

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// RemoteError indicates the catalog API could not be reached or answered
// outside the 2xx range. Remote errors are retryable.
type RemoteError struct {
	Err    error
	Status int
	Kind   string
}

func (e RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("remote unavailable (%s, status %d): %v", e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("remote unavailable (%s): %v", e.Kind, e.Err)
}

func (e RemoteError) Unwrap() error {
	return e.Err
}

// MalformedError indicates the API answered with a body that does not match
// the expected contract. Malformed responses signal an upstream contract
// change and are never retried.
type MalformedError struct {
	Err error
}

func (e MalformedError) Error() string {
	return fmt.Sprintf("malformed response: %v", e.Err)
}

func (e MalformedError) Unwrap() error {
	return e.Err
}

// IsRemoteUnavailable reports whether err is a retryable remote failure.
func IsRemoteUnavailable(err error) bool {
	var remote RemoteError
	return errors.As(err, &remote)
}

// IsMalformed reports whether err is an API contract violation.
func IsMalformed(err error) bool {
	var malformed MalformedError
	return errors.As(err, &malformed)
}

func classifyError(err error, statusCode int) error {
	if err == nil && statusCode == 0 {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return RemoteError{Err: err, Kind: "timeout"}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return RemoteError{Err: err, Kind: "timeout"}
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return RemoteError{Err: err, Kind: "connection"}
	}

	if statusCode != 0 && (statusCode < 200 || statusCode > 299) {
		wrapped := err
		if wrapped == nil {
			wrapped = fmt.Errorf("http status %d", statusCode)
		}
		kind := "http_error"
		switch statusCode {
		case http.StatusForbidden:
			kind = "forbidden"
		case http.StatusNotFound:
			kind = "not_found"
		case http.StatusTooManyRequests:
			kind = "rate_limited"
		}
		return RemoteError{Err: wrapped, Status: statusCode, Kind: kind}
	}

	if err == nil {
		return nil
	}
	return RemoteError{Err: err, Kind: "other"}
}

func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var remote RemoteError
	if errors.As(err, &remote) {
		return remote.Kind
	}
	var malformed MalformedError
	if errors.As(err, &malformed) {
		return "malformed"
	}
	return "other"
}
