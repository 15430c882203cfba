// Package link provides the byte links between the bridge and its two devices.
package link

import (
	"context"
	"errors"
)

// ErrNotOpen is returned by operations on a link whose port is closed
var ErrNotOpen = errors.New("link is not open")

// Link is a point-to-point byte channel that can be reopened after a fault.
// Implementations are not required to be safe for concurrent use; the engine
// drives both links from a single goroutine.
type Link interface {
	// Name identifies the link in logs and metrics ("instrument", "display")
	Name() string

	// Write sends raw bytes
	Write(p []byte) (int, error)

	// ReadAvailable returns whatever arrives within the link read timeout.
	// An empty slice with a nil error means nothing was received.
	ReadAvailable() ([]byte, error)

	// ResetInput discards unread input
	ResetInput() error

	// Flush blocks until written bytes have left the port
	Flush() error

	// Reopen closes the port and opens it again, retrying until it succeeds
	// or ctx is cancelled
	Reopen(ctx context.Context) error

	// Close releases the port
	Close() error
}

// OpenHook is called after every successful (re)open
type OpenHook func(name string, reopen bool)
