// Package epd154 drives 1.54" 200x200 black/white e-paper panels over SPI.
package epd154

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/flavioheleno/epd154/coop"
	"github.com/flavioheleno/epd154/mono"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"
)

// Panel geometry.
const (
	Width  = 200
	Height = 200
	Stride = Width / 8 // Bytes per row
)

// MinRefreshInterval is the minimum time the panel vendor requires between
// two refreshes. Refreshing more often degrades the panel. The driver does
// not enforce it; callers must.
const MinRefreshInterval = 180 * time.Second

// Commands
const (
	driverOutputControl            byte = 0x01
	gateDrivingVoltageControl      byte = 0x03
	sourceDrivingVoltageControl    byte = 0x04
	deepSleepMode                  byte = 0x10
	dataEntryModeSetting           byte = 0x11
	swReset                        byte = 0x12
	temperatureSensorControl       byte = 0x18
	masterActivation               byte = 0x20
	displayUpdateControl2          byte = 0x22
	writeRAMBW                     byte = 0x24
	writeVcomRegister              byte = 0x2C
	writeLutRegister               byte = 0x32
	borderWaveformControl          byte = 0x3C
	endOptionControl               byte = 0x3F
	setRAMXAddressStartEndPosition byte = 0x44
	setRAMYAddressStartEndPosition byte = 0x45
	setRAMXAddressCounter          byte = 0x4E
	setRAMYAddressCounter          byte = 0x4F
)

// Timing
const (
	resetDelay   = 200 * time.Millisecond // Each reset line transition
	settleDelay  = 500 * time.Millisecond // After the first Initialize
	pollInterval = 100 * time.Millisecond // Busy polling
)

// Errors
var (
	// ErrBusy is returned when an operation is requested while a refresh is
	// in flight. Nothing is sent to the panel.
	ErrBusy = errors.New("epd154: refresh in progress")

	// ErrNeedsInit is returned by Refresh after Sleep or after a failed
	// refresh, until Initialize succeeds.
	ErrNeedsInit = errors.New("epd154: controller needs Initialize")

	// ErrCanvas is returned when the canvas does not match the panel.
	ErrCanvas = errors.New("epd154: invalid canvas")
)

// Mode selects how Refresh executes. It is fixed at construction.
type Mode int

const (
	// Blocking refreshes return once the panel has physically updated.
	Blocking Mode = iota
	// Cooperative refreshes return immediately and run as a task on the
	// configured coop.Scheduler; completion is observed with Updated.
	Cooperative
)

func (m Mode) String() string {
	switch m {
	case Blocking:
		return "blocking"
	case Cooperative:
		return "cooperative"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Canvas is the pixel store the driver renders from. Row returns Stride bytes
// for row y (0 <= y < Height), 8 pixels per byte, most significant bit first,
// a set bit being ink. The driver only reads rows; the canvas must not be
// modified while a refresh is in flight.
type Canvas interface {
	Bounds() image.Rectangle
	Row(y int) []byte
}

// Refresher is the refresh capability shared by both execution modes.
type Refresher interface {
	Refresh(ctx context.Context) error
	WaitReady(ctx context.Context) error
	Updated(ctx context.Context) error
}

// Pins are the GPIO lines wired to the panel.
type Pins struct {
	DC   gpio.PinOut // Data/Command select
	CS   gpio.PinOut // Chip select (optional, nil if driven by the SPI port)
	RST  gpio.PinOut // Reset
	Busy gpio.PinIn  // Busy, high while the controller is working
}

// Opts is the configuration for the driver.
type Opts struct {
	// Mode selects blocking or cooperative refreshes (default: Blocking).
	Mode Mode

	// Scheduler runs cooperative refreshes (default: coop.Runtime{}).
	// Ignored in Blocking mode.
	Scheduler coop.Scheduler

	// Logger receives driver diagnostics (default: discarded).
	Logger *slog.Logger
}

// Dev is the device handle for the panel.
type Dev struct {
	// Communication
	t    Transport
	rst  gpio.PinOut
	busy gpio.PinIn

	// Pixels
	canvas Canvas
	rect   image.Rectangle
	row    [Stride]byte // Complemented row being sent

	// Execution
	mode    Mode
	r       refresher
	session *coop.Event
	log     *slog.Logger
	sleep   func(time.Duration)

	// State
	inFlight  atomic.Bool // Logical busy flag, set before the pin goes high
	needsInit atomic.Bool
}

var _ display.Drawer = &Dev{}
var _ Refresher = &Dev{}

// NewSPI creates a new device connected via SPI and initializes the panel.
//
// canvas can be nil, in which case the driver allocates a mono.HorizontalMSB;
// use Canvas to draw into it. opts can be nil to use defaults.
func NewSPI(p spi.Port, pins Pins, canvas Canvas, opts *Opts) (*Dev, error) {
	t, err := NewSPITransport(p, pins.DC, pins.CS)
	if err != nil {
		return nil, err
	}
	return New(t, pins.RST, pins.Busy, canvas, opts)
}

// New creates a new device on an existing Transport and initializes the
// panel. It blocks for a little over a second.
func New(t Transport, rst gpio.PinOut, busy gpio.PinIn, canvas Canvas, opts *Opts) (*Dev, error) {
	d, err := newDev(t, rst, busy, canvas, opts)
	if err != nil {
		return nil, err
	}

	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("epd154: failed to configure BUSY: %w", err)
	}
	if err := rst.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("epd154: failed to pull RST high: %w", err)
	}

	if err := d.Initialize(); err != nil {
		return nil, err
	}
	d.sleep(settleDelay)

	return d, nil
}

// newDev validates arguments and builds a Dev without touching the hardware.
func newDev(t Transport, rst gpio.PinOut, busy gpio.PinIn, canvas Canvas, opts *Opts) (*Dev, error) {
	if t == nil {
		return nil, errors.New("epd154: transport is required")
	}
	if rst == nil || rst == gpio.INVALID {
		return nil, errors.New("epd154: reset pin is required")
	}
	if busy == nil || busy == gpio.INVALID {
		return nil, errors.New("epd154: busy pin is required")
	}
	if opts == nil {
		opts = &Opts{}
	}

	rect := image.Rect(0, 0, Width, Height)
	if canvas == nil {
		canvas = mono.NewHorizontalMSB(rect)
	}
	if b := canvas.Bounds(); b.Dx() != Width || b.Dy() != Height {
		return nil, fmt.Errorf("%w: bounds %v, want %dx%d", ErrCanvas, b, Width, Height)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	d := &Dev{
		t:       t,
		rst:     rst,
		busy:    busy,
		canvas:  canvas,
		rect:    rect,
		mode:    opts.Mode,
		session: coop.NewEvent(),
		log:     logger,
		sleep:   time.Sleep,
	}
	d.needsInit.Store(true)

	switch opts.Mode {
	case Blocking:
		d.r = blockingRefresher{d: d}
	case Cooperative:
		s := opts.Scheduler
		if s == nil {
			s = coop.Runtime{}
		}
		d.r = cooperativeRefresher{d: d, s: s}
	default:
		return nil, fmt.Errorf("epd154: unknown mode %v", opts.Mode)
	}

	return d, nil
}

// Initialize resets the controller, configures it and loads the waveform.
//
// It must be called again after Sleep or after any failed refresh. It blocks
// until the controller reports ready; if the busy line is stuck high it never
// returns.
func (d *Dev) Initialize() error {
	if err := d.claim(); err != nil {
		return err
	}
	defer d.release()

	d.log.Debug("initializing panel")
	if err := d.reset(); err != nil {
		return err
	}
	d.awaitIdleBlocking()

	if err := d.send(swReset); err != nil {
		return err
	}
	d.awaitIdleBlocking()

	// Scan top to bottom, left to right, matching the carrier board.
	seq := []struct {
		cmd    byte
		params []byte
	}{
		{driverOutputControl, []byte{0xC7, 0x00, 0x01}},
		{dataEntryModeSetting, []byte{0x01}},
		{setRAMXAddressStartEndPosition, []byte{0x00, 0x18}},
		{setRAMYAddressStartEndPosition, []byte{0xC7, 0x00, 0x00, 0x00}},
		{borderWaveformControl, []byte{0x01}},
		{temperatureSensorControl, []byte{0x80}}, // Undocumented, internal sensor
		{displayUpdateControl2, []byte{0xB1}},    // Load temperature and waveform
		{masterActivation, nil},
		{setRAMXAddressCounter, []byte{0x00}},
		{setRAMYAddressCounter, []byte{0xC7, 0x00}},
	}
	for _, c := range seq {
		if err := d.send(c.cmd, c.params...); err != nil {
			return err
		}
	}
	d.awaitIdleBlocking()

	if err := d.loadWaveform(); err != nil {
		return err
	}

	d.needsInit.Store(false)
	d.log.Debug("panel initialized")
	return nil
}

// reset drives the reset line high, low, high. The delays are longer than
// the controller minimum.
func (d *Dev) reset() error {
	for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
		if err := d.rst.Out(l); err != nil {
			return fmt.Errorf("epd154: failed to drive RST %s: %w", l, err)
		}
		d.sleep(resetDelay)
	}
	return nil
}

// PowerOn activates the display update sequence and waits for the panel to
// finish. It is what Refresh does after writing RAM and can be used on its
// own to redisplay RAM contents.
func (d *Dev) PowerOn() error {
	if err := d.claim(); err != nil {
		return err
	}
	defer d.release()

	if err := d.activate(); err != nil {
		return err
	}
	d.awaitIdleBlocking()
	return nil
}

// Sleep puts the controller in deep sleep mode 1, its lowest power state.
// The panel keeps its image. Initialize must be called before the next
// refresh.
//
// Leaving the panel powered for long periods damages it; call Sleep once
// done refreshing.
func (d *Dev) Sleep() error {
	if err := d.claim(); err != nil {
		return err
	}
	defer d.release()

	if err := d.send(deepSleepMode, 0x01); err != nil {
		return err
	}
	d.needsInit.Store(true)
	d.log.Info("panel asleep")
	return nil
}

// Refresh sends the canvas to the panel and triggers a full update.
//
// In Blocking mode it waits for the panel to be ready, then returns once the
// update has physically completed (about 2 seconds). ctx only bounds the
// wait before the frame is sent; once the update is triggered Refresh waits
// for the busy line without a deadline. In Cooperative mode it returns
// immediately, or fails with ErrBusy if a refresh is in flight; use Updated
// or Watch to observe completion.
//
// Refreshes must be at least MinRefreshInterval apart.
func (d *Dev) Refresh(ctx context.Context) error {
	return d.r.refresh(ctx)
}

// WaitReady blocks until Ready reports true or ctx is done. It has no
// timeout of its own: a stuck busy line hangs it unless ctx is bounded.
// In Cooperative mode it yields between polls instead of sleeping the thread.
func (d *Dev) WaitReady(ctx context.Context) error {
	return d.r.waitReady(ctx)
}

// Updated blocks until the next cooperative refresh completes and returns
// its error. In Blocking mode Refresh already waited, so Updated returns
// immediately. Ready may still report false for a moment after Updated
// returns; use WaitReady before the next operation.
func (d *Dev) Updated(ctx context.Context) error {
	return d.r.updated(ctx)
}

// Watch returns a handle on the completion of the next refresh, in either
// mode. Take it before calling Refresh to be sure not to miss the
// completion. Refreshes rejected before anything is sent (ErrBusy,
// ErrNeedsInit, ErrCanvas, a done ctx) do not complete it.
func (d *Dev) Watch() coop.Watch {
	return d.session.Watch()
}

// Mode returns the execution mode chosen at construction.
func (d *Dev) Mode() Mode {
	return d.mode
}

// Canvas returns the canvas the driver renders from.
func (d *Dev) Canvas() Canvas {
	return d.canvas
}

// ColorModel returns the color model of the display.
func (d *Dev) ColorModel() color.Model {
	return mono.BitModel
}

// Bounds returns the image bounds of the display.
func (d *Dev) Bounds() image.Rectangle {
	return d.rect
}

// Draw draws src into the canvas and refreshes the panel. The canvas must
// implement draw.Image.
func (d *Dev) Draw(dst image.Rectangle, src image.Image, sp image.Point) error {
	img, ok := d.canvas.(draw.Image)
	if !ok {
		return fmt.Errorf("%w: %T is not drawable", ErrCanvas, d.canvas)
	}
	if d.inFlight.Load() {
		return ErrBusy
	}

	dst = dst.Intersect(d.rect)
	if !dst.Empty() {
		draw.Draw(img, dst, src, sp, draw.Src)
	}
	return d.Refresh(context.Background())
}

// Write copies a raw frame into the canvas and refreshes the panel. The data
// must be exactly Height*Stride bytes in canvas layout.
func (d *Dev) Write(pixels []byte) (int, error) {
	if len(pixels) != Height*Stride {
		return 0, errors.New("epd154: invalid buffer size")
	}
	if d.inFlight.Load() {
		return 0, ErrBusy
	}
	for y := 0; y < Height; y++ {
		if copy(d.canvas.Row(y), pixels[y*Stride:(y+1)*Stride]) != Stride {
			return 0, fmt.Errorf("%w: row %d is not writable", ErrCanvas, y)
		}
	}
	if err := d.Refresh(context.Background()); err != nil {
		return 0, err
	}
	return len(pixels), nil
}

// Halt puts the panel to sleep.
func (d *Dev) Halt() error {
	return d.Sleep()
}

// String returns a string representation of the device.
func (d *Dev) String() string {
	return fmt.Sprintf("epd154.Dev{%v, %dx%d, %s}", d.t, Width, Height, d.mode)
}

// claim sets the logical busy flag, failing if it is already set.
func (d *Dev) claim() error {
	if !d.inFlight.CompareAndSwap(false, true) {
		return ErrBusy
	}
	return nil
}

func (d *Dev) release() {
	d.inFlight.Store(false)
}

// send issues cmd followed by its parameters, if any.
func (d *Dev) send(cmd byte, params ...byte) error {
	if err := d.t.Command(cmd); err != nil {
		return &TransportError{Op: "command", Cmd: cmd, Err: err}
	}
	if len(params) == 0 {
		return nil
	}
	return d.data(cmd, params)
}

func (d *Dev) data(cmd byte, b []byte) error {
	if err := d.t.Data(b); err != nil {
		return &TransportError{Op: "data", Cmd: cmd, Err: err}
	}
	return nil
}
