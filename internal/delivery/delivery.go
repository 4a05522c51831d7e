// Package delivery defines the transports that expose the account service.
package delivery

import "context"

// Delivery is a long-running transport started by the application entry point.
type Delivery interface {
	// Serve blocks until the transport stops. A graceful shutdown returns nil.
	Serve(ctx context.Context) error
}
