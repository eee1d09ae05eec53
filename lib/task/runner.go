// Package task runs workflow operations one at a time on a background
// goroutine.
package task

import (
	"errors"
	"fmt"
	"sync"
)

// ErrBusy is returned by Submit while an earlier task is still running.
var ErrBusy = errors.New("task already in progress")

// Runner executes at most one task at a time. A second Submit while a task
// is in flight is rejected, not queued.
type Runner struct {
	mu       sync.Mutex
	busy     bool
	wg       sync.WaitGroup
	dispatch func(func())
}

// Option applies an option to the runner.
type Option func(*Runner)

// WithDispatcher makes the runner hand each completion callback to post
// instead of calling it on the worker goroutine. post typically queues the
// callback onto the caller's event loop.
func WithDispatcher(post func(func())) Option {
	return func(r *Runner) { r.dispatch = post }
}

// NewRunner returns an idle runner.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Busy reports whether a task is in flight.
func (r *Runner) Busy() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.busy
}

// Submit starts work on a new goroutine and returns immediately. When work
// returns, done is called with its error; everything work did happens
// before done runs. The runner accepts a new task as soon as work returns,
// so done may submit the next step of a workflow.
func (r *Runner) Submit(work func() error, done func(error)) error {
	r.mu.Lock()
	if r.busy {
		r.mu.Unlock()
		return ErrBusy
	}
	r.busy = true
	r.wg.Add(1)
	r.mu.Unlock()

	go func() {
		err := r.run(work)

		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()

		if done == nil {
			r.wg.Done()
			return
		}
		if r.dispatch == nil {
			defer r.wg.Done()
			done(err)
			return
		}
		r.dispatch(func() {
			defer r.wg.Done()
			done(err)
		})
	}()
	return nil
}

// run calls work, turning a panic into an error so the runner never stays
// busy.
func (r *Runner) run(work func() error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = &PanicError{Value: p}
		}
	}()
	return work()
}

// Wait blocks until every submitted task and its callback have finished.
// With a dispatcher, the callbacks must be drained for Wait to return.
func (r *Runner) Wait() { r.wg.Wait() }

// PanicError carries a panic raised by a task.
type PanicError struct{ Value any }

func (e *PanicError) Error() string { return fmt.Sprintf("task panicked: %v", e.Value) }
