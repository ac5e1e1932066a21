package worker

import "errors"

var (
	// ErrNilProcessor indicates the pool was constructed without a processor.
	ErrNilProcessor = errors.New("worker: processor cannot be nil")
	// ErrPoolNotStarted indicates Submit was called before Start.
	ErrPoolNotStarted = errors.New("worker: pool not started")
	// ErrPoolStopped indicates Submit was called after Stop.
	ErrPoolStopped = errors.New("worker: pool stopped")
	// ErrPoolAlreadyStarted indicates Start was called twice.
	ErrPoolAlreadyStarted = errors.New("worker: pool already started")
	// ErrQueueFull indicates the work queue is saturated.
	ErrQueueFull = errors.New("worker: queue full")
	// ErrStopTimeout indicates workers did not drain within the stop timeout.
	ErrStopTimeout = errors.New("worker: stop timeout")
)
