// Package loader runs blocking loads off the control thread and hands the
// result back through a channel.
package loader

import (
	"context"
	"errors"
	"sync"
)

// Future holds the eventual result of one asynchronous load.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc

	once  sync.Once
	value T
	err   error
}

// Go starts fn in its own goroutine. The context passed to fn is cancelled
// by Cancel or when ctx ends.
func Go[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}
	go func() {
		defer cancel()
		value, err := fn(ctx)
		if err == nil && ctx.Err() != nil {
			err = ctx.Err()
		}
		f.finish(value, err)
	}()
	return f
}

// Resolved returns a future that is already complete.
func Resolved[T any](value T, err error) *Future[T] {
	f := &Future[T]{done: make(chan struct{}), cancel: func() {}}
	f.finish(value, err)
	return f
}

func (f *Future[T]) finish(value T, err error) {
	f.once.Do(func() {
		f.value = value
		f.err = err
		close(f.done)
	})
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Ready reports whether the result is available without blocking.
func (f *Future[T]) Ready() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// ErrPending is returned by Result while the load is still running.
var ErrPending = errors.New("load still pending")

// Result returns the value and error without blocking.
func (f *Future[T]) Result() (T, error) {
	if !f.Ready() {
		var zero T
		return zero, ErrPending
	}
	return f.value, f.err
}

// Wait blocks until the result is available or ctx ends.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel asks the load to stop. The future still completes, usually with
// context.Canceled.
func (f *Future[T]) Cancel() {
	f.cancel()
}
