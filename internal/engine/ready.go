package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// awaitReady waits for every source's readiness signal and then enqueues a
// sourcesReady event. Returns early, without enqueuing, if ctx ends first.
func (e *Engine) awaitReady(ctx context.Context) {
	g, gctx := errgroup.WithContext(ctx)
	for i, src := range e.sources {
		i, src := i, src
		g.Go(func() error {
			select {
			case <-src.Ready():
				return nil
			case <-gctx.Done():
				return fmt.Errorf("source %d: %w", i, gctx.Err())
			}
		})
	}

	if err := g.Wait(); err != nil {
		e.logger.Debug("readiness wait abandoned", "error", err)
		return
	}
	e.queue.push(event{kind: eventSourcesReady})
}
