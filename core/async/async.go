/*
Package async provides single-delivery futures for the asynchronous client
operations.

Every network operation of the SDK returns immediately and completes through a
Future. A future resolves exactly once, either with a value or with an error,
and supports both callback-style consumption via OnComplete and blocking
consumption via Await.
*/
package async

import "sync"

// Result holds the outcome of an asynchronous operation. Exactly one of
// Value and Err is meaningful.
type Result[T any] struct {
	Value T
	Err   error
}

// Future delivers the result of an asynchronous operation exactly once.
//
// Completion callbacks run on the goroutine that resolves the future, which
// for network operations is the transport's dispatch goroutine, not the
// caller's.
type Future[T any] struct {
	mu        sync.Mutex
	done      chan struct{}
	result    Result[T]
	resolved  bool
	callbacks []func(Result[T])
}

// NewFuture returns a pending future.
func NewFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Completed returns a future already resolved with value.
func Completed[T any](value T) *Future[T] {
	f := NewFuture[T]()
	f.Complete(value)
	return f
}

// Failed returns a future already resolved with err.
func Failed[T any](err error) *Future[T] {
	f := NewFuture[T]()
	f.Fail(err)
	return f
}

// Complete resolves the future with a value. It reports whether this call
// was the one that resolved the future; later calls are ignored.
func (f *Future[T]) Complete(value T) bool {
	return f.resolve(Result[T]{Value: value})
}

// Fail resolves the future with an error. It reports whether this call
// was the one that resolved the future; later calls are ignored.
func (f *Future[T]) Fail(err error) bool {
	return f.resolve(Result[T]{Err: err})
}

func (f *Future[T]) resolve(r Result[T]) bool {
	f.mu.Lock()
	if f.resolved {
		f.mu.Unlock()
		return false
	}
	f.result = r
	f.resolved = true
	callbacks := f.callbacks
	f.callbacks = nil
	close(f.done)
	f.mu.Unlock()

	for _, cb := range callbacks {
		cb(r)
	}
	return true
}

// OnComplete registers a callback invoked once with the result. If the
// future is already resolved, the callback runs immediately on the calling
// goroutine.
func (f *Future[T]) OnComplete(cb func(Result[T])) {
	f.mu.Lock()
	if !f.resolved {
		f.callbacks = append(f.callbacks, cb)
		f.mu.Unlock()
		return
	}
	r := f.result
	f.mu.Unlock()
	cb(r)
}

// OnSuccess registers a callback invoked only if the future resolves with
// a value.
func (f *Future[T]) OnSuccess(cb func(T)) {
	f.OnComplete(func(r Result[T]) {
		if r.Err == nil {
			cb(r.Value)
		}
	})
}

// OnFailure registers a callback invoked only if the future resolves with
// an error.
func (f *Future[T]) OnFailure(cb func(error)) {
	f.OnComplete(func(r Result[T]) {
		if r.Err != nil {
			cb(r.Err)
		}
	})
}

// Done returns a channel that is closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Await blocks until the future resolves and returns its outcome.
//
// Await must not be called from a completion callback of the same future,
// and there is no operation-level timeout: the transport's own timeout is
// the only bound.
func (f *Future[T]) Await() (T, error) {
	<-f.done
	f.mu.Lock()
	r := f.result
	f.mu.Unlock()
	return r.Value, r.Err
}

// Then derives a future by mapping the successful value of f through fn.
// Errors pass through unmapped, and an error returned by fn fails the
// derived future.
func Then[T, U any](f *Future[T], fn func(T) (U, error)) *Future[U] {
	out := NewFuture[U]()
	f.OnComplete(func(r Result[T]) {
		if r.Err != nil {
			out.Fail(r.Err)
			return
		}
		value, err := fn(r.Value)
		if err != nil {
			out.Fail(err)
			return
		}
		out.Complete(value)
	})
	return out
}
