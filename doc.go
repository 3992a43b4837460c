// Package epd154 controls the 1.54" 200×200 black/white e-paper panel
// (Waveshare 1.54" V2, MH-ET LIVE 1.54") via SPI.
//
// The panel is bistable: it keeps its image without power, and a full
// refresh takes about two seconds during which the controller raises its
// BUSY line. This driver implements the display.Drawer interface from
// periph.io.
//
// # Display Characteristics
//
// - 200×200 pixels, 1 bit per pixel
// - Full refresh only, about 2 seconds
// - At least 3 minutes (MinRefreshInterval) between refreshes
// - Deep sleep retains the image at near zero current
//
// # Hardware Connection
//
//	Display Pin → System Pin
//	GND         → GND
//	VCC         → 3.3V
//	CLK         → SPI Clock (SCLK)
//	DIN         → SPI Data (MOSI)
//	CS          → GPIO or SPI Chip Select
//	DC          → GPIO (any available pin)
//	RST         → GPIO (any available pin)
//	BUSY        → GPIO (any available pin, input)
//
// # Basic Usage
//
//	package main
//
//	import (
//		"context"
//		"image"
//		"image/draw"
//
//		"periph.io/x/conn/v3/gpio/gpioreg"
//		"periph.io/x/conn/v3/spi/spireg"
//		"periph.io/x/host/v3"
//
//		"github.com/flavioheleno/epd154"
//		"github.com/flavioheleno/epd154/mono"
//	)
//
//	func main() {
//		host.Init()
//
//		b, _ := spireg.Open("")
//		defer b.Close()
//
//		dev, _ := epd154.NewSPI(b, epd154.Pins{
//			DC:   gpioreg.ByName("GPIO25"),
//			RST:  gpioreg.ByName("GPIO17"),
//			Busy: gpioreg.ByName("GPIO24"),
//		}, nil, nil)
//		defer dev.Sleep()
//
//		img := dev.Canvas().(*mono.HorizontalMSB)
//		draw.Draw(img, image.Rect(50, 50, 150, 150), image.Black, image.Point{}, draw.Src)
//		dev.Refresh(context.Background())
//	}
//
// # Execution Modes
//
// The mode is chosen once, through Opts.Mode.
//
// In Blocking mode (the default) Refresh waits for the panel to be ready,
// sends the frame and returns once the panel has physically updated.
//
// In Cooperative mode Refresh schedules the work on a coop.Scheduler and
// returns at once. The task yields after every row and every busy poll.
// A second Refresh while one is in flight fails with ErrBusy and sends
// nothing. Completion is observed with Updated, or with a Watch taken before
// the call:
//
//	w := dev.Watch()
//	if err := dev.Refresh(ctx); err != nil {
//		return err
//	}
//	// ... other work ...
//	if err := w.Wait(ctx); err != nil {
//		return err
//	}
//
// # Busy Handling
//
// Ready combines the BUSY line with a logical flag set the moment a refresh
// is requested, because the line only rises some time after the update is
// triggered. Waits poll every 100ms and have no timeout: a disconnected or
// stuck BUSY line hangs Initialize, PowerOn and blocking refreshes. A context
// bounds WaitReady, and bounds a blocking Refresh only while it waits for
// the panel before sending the frame; a line stuck high after the update is
// triggered still hangs it.
//
// # Errors
//
// Bus failures are returned as *TransportError and are never retried. A
// failure during a refresh leaves the controller RAM undefined: Refresh then
// fails with ErrNeedsInit until Initialize is called again. The same applies
// after Sleep, since the controller only wakes up through a hardware reset.
//
// # Caller Obligations
//
// The driver does not enforce these:
//
// - Do not refresh more often than MinRefreshInterval.
// - Do not leave the panel powered; call Sleep when done.
// - Do not modify the canvas while a refresh is in flight.
// - Do not share the SPI bus or pins with another driver instance.
package epd154
