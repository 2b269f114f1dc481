package core

import (
	"errors"
	"fmt"
)

var (
	ErrConnect        = errors.New("connect failed")
	ErrFrameTruncated = errors.New("frame truncated")

	// ErrEmptyStream is a connection closed before any byte arrived, as reachability probes do.
	ErrEmptyStream = fmt.Errorf("%w: no data", ErrFrameTruncated)

	ErrFieldTooLong    = errors.New("frame field exceeds maximum length")
	ErrPayloadTooLarge = errors.New("payload exceeds maximum size")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrFilesystem      = errors.New("filesystem error")
	ErrNoTargets       = errors.New("no targets")
)

// ConnectError records a failed or timed out connect to one target.
type ConnectError struct {
	Target PeerTarget
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect to %s: %v", e.Target, e.Err)
}

func (e *ConnectError) Unwrap() []error {
	return []error{ErrConnect, e.Err}
}

func fsError(op, path string, err error) error {
	return fmt.Errorf("%w: %s %s: %w", ErrFilesystem, op, path, err)
}
