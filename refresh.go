package epd154

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/flavioheleno/epd154/coop"
)

// refresher is implemented once per execution Mode.
type refresher interface {
	refresh(ctx context.Context) error
	waitReady(ctx context.Context) error
	updated(ctx context.Context) error
}

// blockingRefresher runs the whole refresh on the caller's goroutine.
type blockingRefresher struct {
	d *Dev
}

func (r blockingRefresher) refresh(ctx context.Context) error {
	d := r.d
	if d.needsInit.Load() {
		return ErrNeedsInit
	}
	if err := d.checkCanvas(); err != nil {
		return err
	}
	if err := d.waitBlocking(ctx); err != nil {
		return err
	}
	if err := d.claim(); err != nil {
		return err
	}

	start := time.Now()
	err := d.streamFrame(nil)
	if err == nil {
		err = d.activate()
	}
	if err == nil {
		d.awaitIdleBlocking()
	}
	d.finish(err, start)
	return err
}

func (r blockingRefresher) waitReady(ctx context.Context) error {
	return r.d.waitBlocking(ctx)
}

// updated returns at once: Refresh has already waited for completion.
func (r blockingRefresher) updated(ctx context.Context) error {
	return ctx.Err()
}

// cooperativeRefresher schedules the refresh as a task on s and yields after
// every row and every busy poll.
type cooperativeRefresher struct {
	d *Dev
	s coop.Scheduler
}

func (r cooperativeRefresher) refresh(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d := r.d
	if err := d.claim(); err != nil {
		return err
	}
	if d.needsInit.Load() {
		d.release()
		return ErrNeedsInit
	}
	if err := d.checkCanvas(); err != nil {
		d.release()
		return err
	}
	r.s.Go(r.run)
	return nil
}

// run is the refresh task. It cannot be cancelled once scheduled.
func (r cooperativeRefresher) run() {
	d := r.d
	ctx := context.Background()
	start := time.Now()

	err := pollCooperative(ctx, r.s, d.pinIdle)
	if err == nil {
		err = d.streamFrame(func() error { return r.s.Yield(ctx) })
	}
	if err == nil {
		err = d.activate()
	}
	if err == nil {
		err = pollCooperative(ctx, r.s, d.pinIdle)
	}
	d.finish(err, start)
}

func (r cooperativeRefresher) waitReady(ctx context.Context) error {
	return pollCooperative(ctx, r.s, r.d.Ready)
}

func (r cooperativeRefresher) updated(ctx context.Context) error {
	return r.d.session.Wait(ctx)
}

// checkCanvas verifies every row has Stride bytes before anything is sent.
func (d *Dev) checkCanvas() error {
	for y := 0; y < Height; y++ {
		if n := len(d.canvas.Row(y)); n != Stride {
			return fmt.Errorf("%w: row %d has %d bytes, want %d", ErrCanvas, y, n, Stride)
		}
	}
	return nil
}

// streamFrame writes the canvas into the black/white RAM, one data
// transaction per row in increasing order. The panel stores 1 as white, so
// every byte is complemented. yield, if not nil, is called after each row.
func (d *Dev) streamFrame(yield func() error) error {
	if err := d.send(writeRAMBW); err != nil {
		return err
	}
	for y := 0; y < Height; y++ {
		for x, b := range d.canvas.Row(y) {
			d.row[x] = ^b
		}
		if err := d.data(writeRAMBW, d.row[:]); err != nil {
			return err
		}
		if yield != nil {
			if err := yield(); err != nil {
				return err
			}
		}
	}
	return nil
}

// activate starts a full display update from RAM. The caller waits for the
// busy line afterwards.
func (d *Dev) activate() error {
	d.log.Info("panel power on")
	if err := d.send(displayUpdateControl2, 0xC7); err != nil {
		return err
	}
	return d.send(masterActivation)
}

// finish records the outcome of a refresh and completes it. The session is
// pulsed before the logical flag is cleared: a Refresh accepted once the flag
// drops must not be completed by this pulse.
func (d *Dev) finish(err error, start time.Time) {
	var te *TransportError
	if errors.As(err, &te) {
		d.needsInit.Store(true)
	}

	if err != nil {
		d.log.Error("refresh failed", "err", err, "mode", d.mode)
	} else {
		d.log.Info("refresh complete", "mode", d.mode, "took", time.Since(start))
	}

	d.session.Pulse(err)
	d.release()
}
