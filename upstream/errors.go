package upstream

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrUnknownKind indicates a request type outside ValidKinds.
	ErrUnknownKind = errors.New("upstream: unknown data type")

	// ErrNoData indicates the upstream understood the request but had
	// nothing to return.
	ErrNoData = errors.New("upstream: no data returned")

	// ErrNotConfigured indicates missing upstream credentials.
	ErrNotConfigured = errors.New("upstream: integration not configured")
)

// StatusError is an unexpected HTTP status from the upstream API.
type StatusError struct {
	Code int
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream: %s returned HTTP %d", e.Path, e.Code)
}

// Temporary reports whether the status is worth retrying.
func (e *StatusError) Temporary() bool {
	return e.Code >= 500 || e.Code == http.StatusTooManyRequests
}
