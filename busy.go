package epd154

import (
	"context"
	"time"

	"github.com/flavioheleno/epd154/coop"
	"periph.io/x/conn/v3/gpio"
)

// Ready reports whether the panel can accept a new operation: no refresh is
// in flight and the busy line is low.
//
// The logical flag is set as soon as a refresh is requested, before the
// controller raises its busy line, so Ready never reports true in between.
func (d *Dev) Ready() bool {
	return !d.inFlight.Load() && d.pinIdle()
}

// pinIdle reports whether the busy line is low, ignoring the logical flag.
func (d *Dev) pinIdle() bool {
	return d.busy.Read() == gpio.Low
}

// waitBlocking polls Ready, sleeping the thread between polls.
func (d *Dev) waitBlocking(ctx context.Context) error {
	return d.pollBlocking(ctx, d.Ready)
}

// awaitIdleBlocking polls the busy line only. It is used while the caller
// holds the logical flag, and cannot be interrupted.
func (d *Dev) awaitIdleBlocking() {
	_ = d.pollBlocking(context.Background(), d.pinIdle)
}

func (d *Dev) pollBlocking(ctx context.Context, ready func() bool) error {
	if ready() {
		return nil
	}
	start := time.Now()
	d.log.Debug("waiting for panel")
	for !ready() {
		if err := ctx.Err(); err != nil {
			return err
		}
		d.sleep(pollInterval)
	}
	d.log.Debug("panel ready", "waited", time.Since(start))
	return nil
}

// pollCooperative polls ready, sleeping on s between polls. It yields once
// before the first poll so that work scheduled just before, such as a
// refresh that has not raised the busy line yet, gets to run.
func pollCooperative(ctx context.Context, s coop.Scheduler, ready func() bool) error {
	if err := s.Yield(ctx); err != nil {
		return err
	}
	for !ready() {
		if err := s.Sleep(ctx, pollInterval); err != nil {
			return err
		}
	}
	return nil
}
