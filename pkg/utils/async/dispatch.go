package async

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/m-mizutani/packweld/pkg/utils/logging"
)

// Group runs handlers in the background and lets the owner wait for the ones
// still in flight. The zero value is ready to use.
type Group struct {
	wg sync.WaitGroup
}

// Dispatch executes handler in a new goroutine tracked by g. The handler gets
// a context that keeps the logger of ctx but not its cancellation. Panics and
// returned errors are logged.
func (g *Group) Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	g.wg.Add(1)
	newCtx := newBackgroundContext(ctx)

	go func() {
		defer g.wg.Done()
		run(newCtx, handler)
	}()
}

// Wait blocks until every dispatched handler returned or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func run(ctx context.Context, handler func(ctx context.Context) error) {
	defer func() {
		if r := recover(); r != nil {
			logging.From(ctx).Error("panic in async handler",
				"recover", r,
				"stack", string(debug.Stack()))
		}
	}()

	if err := handler(ctx); err != nil {
		logging.From(ctx).Error("error in async handler", "error", err)
	}
}

// newBackgroundContext detaches from ctx's cancellation but keeps its logger
func newBackgroundContext(ctx context.Context) context.Context {
	return logging.With(context.Background(), logging.From(ctx))
}
