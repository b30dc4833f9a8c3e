// Package dropbox provides folder listing, upload, and download against a
// Dropbox account through the Dropbox Go SDK. Every operation opens a fresh
// SDK client bound to the caller's context, so a Client holds no session
// state and is safe for concurrent use.
package dropbox

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dropbox/dropbox-sdk-go-unofficial/v6/dropbox/auth"
)

// Sentinel errors for classifying SDK failures.
// Use errors.Is(err, dropbox.ErrNotFound) to check.
var (
	ErrMissingToken = errors.New("dropbox: access token is required")
	ErrInvalidPath  = errors.New("dropbox: invalid path")
	ErrNotFound     = errors.New("dropbox: not found")
	ErrUnauthorized = errors.New("dropbox: unauthorized")
	ErrTransport    = errors.New("dropbox: request failed")
	ErrHashMismatch = errors.New("dropbox: content hash mismatch")
)

// Error wraps an SDK failure with the operation and path that produced it.
// It unwraps to both the classification sentinel and the original SDK
// error, so callers can match either.
type Error struct {
	Op    string
	Path  string
	Err   error // sentinel, for errors.Is()
	Cause error // SDK or transport error, unchanged
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("dropbox: %s: %v", e.Op, e.Cause)
	}

	return fmt.Sprintf("dropbox: %s %q: %v", e.Op, e.Path, e.Cause)
}

func (e *Error) Unwrap() []error {
	return []error{e.Err, e.Cause}
}

// wrapError classifies err and wraps it in *Error. Returns nil for nil.
func wrapError(op, path string, err error) error {
	if err == nil {
		return nil
	}

	return &Error{Op: op, Path: path, Err: classify(err), Cause: err}
}

// classify maps an SDK error to a sentinel. The SDK reports endpoint errors
// as tagged summaries ("path/not_found/..", "invalid_access_token/.."), so
// the summary text is the most stable signal across endpoints.
func classify(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrTransport
	}

	var authErr auth.AuthAPIError
	if errors.As(err, &authErr) {
		return ErrUnauthorized
	}

	msg := err.Error()

	switch {
	case strings.Contains(msg, "invalid_access_token"),
		strings.Contains(msg, "expired_access_token"),
		strings.Contains(msg, "missing_scope"):
		return ErrUnauthorized
	case strings.Contains(msg, "not_found"):
		return ErrNotFound
	default:
		return ErrTransport
	}
}
