// Package inbound defines the inbound port interfaces.
// Inbound adapters (the same-origin HTTP proxy) implement these.
package inbound

import (
	"context"
)

// Server is a long-running inbound adapter.
type Server interface {
	// Start begins serving. Blocks until ctx is cancelled or an error occurs.
	// Returns nil on graceful shutdown, error on failure.
	Start(ctx context.Context) error

	// Close gracefully shuts down the server.
	Close() error
}
