// Package shutdown turns termination signals into context cancellation.
package shutdown

import (
	"context"
	"os/signal"
)

// Context is cancelled on the first termination signal. A second signal
// kills the process with the default handler.
func Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(parent, signals...)
	go func() {
		<-ctx.Done()
		stop()
	}()
	return ctx, stop
}
