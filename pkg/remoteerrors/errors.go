package remoteerrors

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
)

// Sentinel errors classifying every failure a remote call can surface.
var (
	ErrAuthFailed = errors.New("authentication failed")
	ErrNotFound   = errors.New("resource not found")
	ErrTimeout    = errors.New("remote call timed out")
	ErrTransport  = errors.New("transport failure")
	ErrConflict   = errors.New("uniqueness conflict")
)

// RemoteError is a structured error produced at the gateway boundary. Kind is
// always one of the sentinel errors above, Op names the failed operation.
type RemoteError struct {
	Kind error
	Op   string
	Err  error
}

func (e *RemoteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Op, e.Kind)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error's kind, so callers can use
// errors.Is(err, remoteerrors.ErrNotFound) regardless of wrapping depth.
func (e *RemoteError) Is(target error) bool {
	return target == e.Kind
}

// AuthFailed creates an authentication/authorization failure.
func AuthFailed(op string, cause error) *RemoteError {
	return &RemoteError{Kind: ErrAuthFailed, Op: op, Err: cause}
}

// NotFound creates a missing-resource failure.
func NotFound(op string, cause error) *RemoteError {
	return &RemoteError{Kind: ErrNotFound, Op: op, Err: cause}
}

// Timeout creates a deadline-exceeded failure.
func Timeout(op string, cause error) *RemoteError {
	return &RemoteError{Kind: ErrTimeout, Op: op, Err: cause}
}

// Transport creates a generic transport-level failure.
func Transport(op string, cause error) *RemoteError {
	return &RemoteError{Kind: ErrTransport, Op: op, Err: cause}
}

// Conflict creates a uniqueness-violation failure. It is resolved internally
// by the bookmark toggle and never reaches subscribers.
func Conflict(op string, cause error) *RemoteError {
	return &RemoteError{Kind: ErrConflict, Op: op, Err: cause}
}

// Classify wraps an arbitrary error from a remote call into a RemoteError,
// mapping context deadline expiry to ErrTimeout and everything else to
// ErrTransport. Errors that are already RemoteErrors pass through unchanged.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}

	var re *RemoteError
	if errors.As(err, &re) {
		return err
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout(op, err)
	}

	return Transport(op, err)
}

// Retryable reports whether the error is worth retrying. Only transient
// transport and timeout failures qualify; NotFound, AuthFailed and Conflict
// are deterministic and retrying them cannot help.
func Retryable(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, ErrTransport)
}

// Fingerprint returns a short stable identity for an error value, used to
// de-duplicate user-visible notifications for the same unchanged failure.
func Fingerprint(err error) string {
	if err == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(err.Error()))
	return hex.EncodeToString(sum[:8])
}
