package future

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

// DuplicateResolutionError is returned when a settled completion is asked
// to settle again with a different outcome.
type DuplicateResolutionError struct {
	// Reason describes the conflicting settlement attempt.
	Reason string
}

func (e *DuplicateResolutionError) Error() string {
	return fmt.Sprintf("completion already settled: %s", e.Reason)
}

// Completion is a single-shot container for the eventual result of an
// asynchronous operation.
type Completion[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	value   T
	err     error
	settled bool
}

// New creates an unsettled Completion.
func New[T any]() *Completion[T] {
	return &Completion[T]{done: make(chan struct{})}
}

// Resolve settles the completion with a value. Resolving an already-settled
// completion with the identical value is a no-op; any other repeated
// settlement returns a DuplicateResolutionError.
func (c *Completion[T]) Resolve(value T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settled {
		if c.err == nil && reflect.DeepEqual(c.value, value) {
			return nil
		}
		return &DuplicateResolutionError{Reason: "resolve after settlement with a different outcome"}
	}

	c.value = value
	c.settled = true
	close(c.done)
	return nil
}

// Reject settles the completion with an error.
func (c *Completion[T]) Reject(err error) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.settled {
		return &DuplicateResolutionError{Reason: "reject after settlement"}
	}

	c.err = err
	c.settled = true
	close(c.done)
	return nil
}

// Done returns a channel that is closed once the completion settles.
func (c *Completion[T]) Done() <-chan struct{} {
	return c.done
}

// Peek returns the outcome without blocking. ok is false while unsettled.
func (c *Completion[T]) Peek() (value T, err error, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err, c.settled
}

// Await blocks until the completion settles or the context is canceled.
// A completion that has already settled always reports its outcome, even
// when the context is done too.
func (c *Completion[T]) Await(ctx context.Context) (T, error) {
	// Drain the settled case first so cancellation never shadows an
	// outcome that is already available.
	select {
	case <-c.done:
		return c.outcome()
	default:
	}

	select {
	case <-c.done:
		return c.outcome()
	case <-ctx.Done():
		// Both cases may become ready together; settle wins.
		select {
		case <-c.done:
			return c.outcome()
		default:
		}
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Completion[T]) outcome() (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.err
}

// All awaits every completion and returns their values in argument order.
// The first rejection or context cancellation aborts the wait.
func All[T any](ctx context.Context, completions ...*Completion[T]) ([]T, error) {
	values := make([]T, len(completions))
	for i, c := range completions {
		v, err := c.Await(ctx)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}

// Race awaits the first completion to settle and returns its outcome.
func Race[T any](ctx context.Context, completions ...*Completion[T]) (T, error) {
	if len(completions) == 0 {
		var zero T
		return zero, fmt.Errorf("race over zero completions")
	}

	type outcome struct {
		value T
		err   error
	}
	first := make(chan outcome, len(completions))
	for _, c := range completions {
		go func(c *Completion[T]) {
			v, err := c.Await(ctx)
			first <- outcome{value: v, err: err}
		}(c)
	}

	o := <-first
	return o.value, o.err
}
