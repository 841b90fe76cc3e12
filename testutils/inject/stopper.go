package inject

import (
	"context"
	"sync/atomic"
)

// Stopper is an injected motion stop.
type Stopper struct {
	StopFunc func(ctx context.Context) error
	calls    atomic.Int32
}

// Stop calls the injected Stop, if any.
func (s *Stopper) Stop(ctx context.Context) error {
	s.calls.Add(1)
	if s.StopFunc == nil {
		return nil
	}
	return s.StopFunc(ctx)
}

// Calls returns how many times Stop was called.
func (s *Stopper) Calls() int {
	return int(s.calls.Load())
}
