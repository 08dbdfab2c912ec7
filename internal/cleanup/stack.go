// Package cleanup provides an ordered teardown stack.
//
// Callbacks run in reverse registration order when the stack is closed.
// A failing callback does not stop the ones registered before it; Close
// returns the first error it saw once every callback has run.
package cleanup

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrClosed is returned when registering on a stack that was already closed.
var ErrClosed = errors.New("cleanup stack already closed")

// Stack is a LIFO list of cleanup callbacks. The zero value is ready to use.
type Stack struct {
	mu     sync.Mutex
	fns    []func() error
	closed bool
}

// New returns an empty stack.
func New() *Stack { return &Stack{} }

// Defer registers fn to run on Close.
func (s *Stack) Defer(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.fns = append(s.fns, fn)
	return nil
}

// DeferFunc registers a callback that cannot fail.
func (s *Stack) DeferFunc(fn func()) error {
	return s.Defer(func() error {
		fn()
		return nil
	})
}

// Use registers c.Close and returns c, so acquisition and registration read
// as one step.
func Use[C io.Closer](s *Stack, c C) (C, error) {
	return c, s.Defer(c.Close)
}

// Adopt registers release(v) and returns v. Use it for values that are not
// io.Closers, like timers or subscriptions.
func Adopt[T any](s *Stack, v T, release func(T) error) (T, error) {
	return v, s.Defer(func() error { return release(v) })
}

// Len returns the number of pending callbacks.
func (s *Stack) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.fns)
}

// Closed reports whether Close or Move has been called.
func (s *Stack) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Move transfers every pending callback to a new stack and marks s closed.
// Closing s afterwards runs nothing.
func (s *Stack) Move() (*Stack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	moved := &Stack{fns: s.fns}
	s.fns = nil
	s.closed = true
	return moved, nil
}

// Close runs every callback, newest first, and returns the first error.
// Panics inside a callback are converted to errors so the rest still run.
// Closing twice is a no-op.
func (s *Stack) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	fns := s.fns
	s.fns = nil
	s.closed = true
	s.mu.Unlock()

	var first error
	for i := len(fns) - 1; i >= 0; i-- {
		if err := run(fns[i]); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func run(fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cleanup panicked: %v", r)
		}
	}()
	return fn()
}
