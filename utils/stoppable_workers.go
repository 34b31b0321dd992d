package utils

import (
	"context"
	"sync"
	"time"

	goutils "go.viam.com/utils"
)

// StoppableWorkers is a collection of goroutines that can be stopped at a later time.
type StoppableWorkers interface {
	Add(func(context.Context))
	Stop()
	Context() context.Context
}

// stoppableWorkersImpl is the implementation of StoppableWorkers. Everything goes through the
// interface so the embedded sync.WaitGroup is never copied.
type stoppableWorkersImpl struct {
	mu         sync.Mutex
	ctx        context.Context
	cancelFunc func()
	workers    sync.WaitGroup
}

// NewStoppableWorkers runs the functions in separate goroutines. They can be stopped later.
func NewStoppableWorkers(ctx context.Context, funcs ...func(context.Context)) StoppableWorkers {
	ctx, cancelFunc := context.WithCancel(ctx)
	sw := &stoppableWorkersImpl{ctx: ctx, cancelFunc: cancelFunc}
	for _, f := range funcs {
		sw.Add(f)
	}
	return sw
}

// NewStoppableWorkerWithTicker starts a single worker that calls `work` once per `tickRate` until
// stopped. The first call happens after one full tick.
func NewStoppableWorkerWithTicker(
	ctx context.Context,
	tickRate time.Duration,
	work func(context.Context),
) StoppableWorkers {
	return NewStoppableWorkers(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(tickRate)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				work(ctx)
			}
		}
	})
}

// Add starts up an additional goroutine for the function passed in. If you call this after
// calling Stop(), it will return immediately without starting any new goroutines.
func (sw *stoppableWorkersImpl) Add(f func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	if sw.ctx.Err() != nil {
		return
	}

	sw.workers.Add(1)
	goutils.PanicCapturingGo(func() {
		defer sw.workers.Done()
		f(sw.ctx)
	})
}

// Stop cancels the shared context and waits for every goroutine to return.
func (sw *stoppableWorkersImpl) Stop() {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	sw.cancelFunc()
	sw.workers.Wait()
}

// Context gets the context the workers are checking on. Using this function is expected to be
// rare: usually you shouldn't need to interact with the context directly.
func (sw *stoppableWorkersImpl) Context() context.Context {
	return sw.ctx
}
