package utils

import (
	"context"
	"sync"

	goutils "go.viam.com/utils"

	"go.viam.com/planner2d/logging"
)

// StoppableWorkers is a collection of goroutines that share a context and can be
// stopped together.
type StoppableWorkers interface {
	AddWorkers(...func(context.Context))
	Stop()
	Context() context.Context
	Panics() int
}

type stoppableWorkers struct {
	logger logging.Logger

	mu         sync.Mutex
	cancelCtx  context.Context
	cancelFunc func()
	active     sync.WaitGroup
	panics     int
}

// NewStoppableWorkers runs the functions in separate goroutines under a context
// derived from ctx. A panicking worker is logged and counted; the others keep
// running.
func NewStoppableWorkers(ctx context.Context, logger logging.Logger, funcs ...func(context.Context)) StoppableWorkers {
	cancelCtx, cancelFunc := context.WithCancel(ctx)
	workers := &stoppableWorkers{logger: logger, cancelCtx: cancelCtx, cancelFunc: cancelFunc}
	workers.AddWorkers(funcs...)
	return workers
}

// AddWorkers starts a goroutine per function. It does nothing once Stop has been
// called.
func (sw *stoppableWorkers) AddWorkers(funcs ...func(context.Context)) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	if sw.cancelCtx.Err() != nil {
		return
	}
	sw.active.Add(len(funcs))
	for _, f := range funcs {
		goutils.PanicCapturingGoWithCallback(func() {
			defer sw.active.Done()
			f(sw.cancelCtx)
		}, sw.recovered)
	}
}

func (sw *stoppableWorkers) recovered(err interface{}) {
	sw.mu.Lock()
	sw.panics++
	sw.mu.Unlock()
	sw.logger.Errorw("worker panicked", "error", err)
}

// Stop cancels the workers' context and waits for all of them to return.
func (sw *stoppableWorkers) Stop() {
	sw.mu.Lock()
	sw.cancelFunc()
	sw.mu.Unlock()
	sw.active.Wait()
}

// Context returns the context the workers run under.
func (sw *stoppableWorkers) Context() context.Context {
	return sw.cancelCtx
}

// Panics returns how many workers have panicked.
func (sw *stoppableWorkers) Panics() int {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	return sw.panics
}
