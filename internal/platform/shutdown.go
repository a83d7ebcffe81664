// Package platform holds the OS specific bits of process lifecycle handling.
package platform

import (
	"context"
	"os/signal"
)

// NewShutdownContext returns a context canceled once the process receives
// one of the platform's termination signals. The returned stop releases the
// signal registration; a second signal after stop kills the process as usual.
func NewShutdownContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

// ShutdownSignals lists the signals NewShutdownContext listens for
func ShutdownSignals() []string {
	names := make([]string, len(shutdownSignals))
	for i, sig := range shutdownSignals {
		names[i] = sig.String()
	}
	return names
}
