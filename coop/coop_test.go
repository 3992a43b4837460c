package coop

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
)

func TestEventSetReleasesWaiters(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	w1 := e.Watch()
	w2 := e.Watch()

	errBoom := errors.New("boom")
	e.Set(errBoom)

	c.Assert(e.IsSet(), qt.IsTrue)
	c.Assert(w1.Wait(context.Background()), qt.Equals, errBoom)
	c.Assert(w2.Err(), qt.Equals, errBoom)
}

func TestEventClearRearms(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	e.Set(nil)
	e.Clear()
	c.Assert(e.IsSet(), qt.IsFalse)

	w := e.Watch()
	select {
	case <-w.Done():
		c.Fatal("watch taken after Clear must not be done")
	default:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	c.Assert(e.Wait(ctx), qt.ErrorIs, context.DeadlineExceeded)
}

func TestEventSetTwiceKeepsFirstError(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	w := e.Watch()
	first := errors.New("first")
	e.Set(first)
	e.Set(errors.New("second"))

	c.Assert(w.Err(), qt.Equals, first)
}

func TestEventPulseNeverLeftSet(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	before := e.Watch()

	e.Pulse(nil)

	c.Assert(e.IsSet(), qt.IsFalse)
	c.Assert(before.Wait(context.Background()), qt.IsNil)

	after := e.Watch()
	select {
	case <-after.Done():
		c.Fatal("watch taken after Pulse must wait for the next pulse")
	default:
	}

	e.Pulse(nil)
	c.Assert(after.Wait(context.Background()), qt.IsNil)
}

func TestEventConcurrentWaiters(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	w := e.Watch()

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = w.Wait(context.Background())
		}(i)
	}

	e.Pulse(nil)
	wg.Wait()

	for _, err := range errs {
		c.Assert(err, qt.IsNil)
	}
}

func TestWatchErrBeforeDone(t *testing.T) {
	c := qt.New(t)

	e := NewEvent()
	c.Assert(e.Watch().Err(), qt.IsNil)
}

func TestRuntimeGo(t *testing.T) {
	c := qt.New(t)

	done := make(chan struct{})
	Runtime{}.Go(func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		c.Fatal("task did not run")
	}
}

func TestRuntimeYield(t *testing.T) {
	c := qt.New(t)

	c.Assert(Runtime{}.Yield(context.Background()), qt.IsNil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Assert(Runtime{}.Yield(ctx), qt.ErrorIs, context.Canceled)
}

func TestRuntimeSleep(t *testing.T) {
	c := qt.New(t)

	start := time.Now()
	c.Assert(Runtime{}.Sleep(context.Background(), 5*time.Millisecond), qt.IsNil)
	c.Assert(time.Since(start) >= 5*time.Millisecond, qt.IsTrue)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c.Assert(Runtime{}.Sleep(ctx, time.Hour), qt.ErrorIs, context.Canceled)
}
