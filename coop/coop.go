// Package coop provides the scheduling primitives used by the driver's
// cooperative refresh mode: a Scheduler that can start a task, yield and
// sleep, and a one-shot Event that is pulsed when a refresh completes.
package coop

import (
	"context"
	"runtime"
	"sync"
	"time"
)

// Scheduler runs cooperative tasks.
type Scheduler interface {
	// Go starts f as a new task and returns immediately.
	Go(f func())
	// Yield gives other tasks a chance to run.
	Yield(ctx context.Context) error
	// Sleep suspends the calling task for at least d.
	Sleep(ctx context.Context, d time.Duration) error
}

// Runtime is a Scheduler backed by goroutines.
type Runtime struct{}

// Go implements Scheduler.
func (Runtime) Go(f func()) {
	go f()
}

// Yield implements Scheduler.
func (Runtime) Yield(ctx context.Context) error {
	runtime.Gosched()
	return ctx.Err()
}

// Sleep implements Scheduler.
func (Runtime) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// generation is one set/clear cycle of an Event.
type generation struct {
	done chan struct{}
	err  error
}

func newGeneration() *generation {
	return &generation{done: make(chan struct{})}
}

// Event is a one-shot signal that can be re-armed. Waiters block until the
// next Set; Clear re-arms the event so later waiters block until the Set
// after that. The zero value is not usable, use NewEvent.
type Event struct {
	mu  sync.Mutex
	cur *generation
	set bool
}

// NewEvent returns a cleared Event.
func NewEvent() *Event {
	return &Event{cur: newGeneration()}
}

// Set fires the event, releasing every current waiter with err. Setting an
// already set event is a no-op.
func (e *Event) Set(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setLocked(err)
}

// Clear re-arms a set event. Clearing a cleared event is a no-op.
func (e *Event) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.clearLocked()
}

// Pulse sets then clears the event in one step, so no observer ever sees it
// left set.
func (e *Event) Pulse(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setLocked(err)
	e.clearLocked()
}

// IsSet reports whether the event is currently set.
func (e *Event) IsSet() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.set
}

// Watch returns a handle on the next firing of the event. Taking the handle
// before triggering the work that fires the event guarantees the firing is
// not missed.
func (e *Event) Watch() Watch {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Watch{g: e.cur}
}

// Wait blocks until the event is next set or ctx is done. It returns the
// error the event was set with, or ctx.Err().
func (e *Event) Wait(ctx context.Context) error {
	return e.Watch().Wait(ctx)
}

func (e *Event) setLocked(err error) {
	if e.set {
		return
	}
	e.cur.err = err
	close(e.cur.done)
	e.set = true
}

func (e *Event) clearLocked() {
	if !e.set {
		return
	}
	e.cur = newGeneration()
	e.set = false
}

// Watch observes a single firing of an Event.
type Watch struct {
	g *generation
}

// Done returns a channel closed when the watched firing happens.
func (w Watch) Done() <-chan struct{} {
	return w.g.done
}

// Err returns the error the event was set with. It is only meaningful once
// Done is closed.
func (w Watch) Err() error {
	select {
	case <-w.g.done:
		return w.g.err
	default:
		return nil
	}
}

// Wait blocks until the watched firing happens or ctx is done.
func (w Watch) Wait(ctx context.Context) error {
	select {
	case <-w.g.done:
		return w.g.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
